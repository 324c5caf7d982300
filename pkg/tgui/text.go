package tgui

// TruncRunes caps s at n runes, appending "…" when something was cut.
// Button labels and list lines use it so long task texts stay one-line.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
