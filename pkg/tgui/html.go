package tgui

import "html"

// H is HTML that is already safe for Telegram's HTML parse mode.
type H string

func (h H) String() string { return string(h) }

// Esc escapes user text for HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks s as already-safe HTML. Use sparingly.
func Raw(s string) H { return H(s) }

func wrap(tag string, inner H) H {
	return H("<" + tag + ">" + string(inner) + "</" + tag + ">")
}

// B renders bold text, escaping s.
func B(s string) H { return wrap("b", Esc(s)) }

// Code renders inline monospace, escaping s.
func Code(s string) H { return wrap("code", Esc(s)) }
