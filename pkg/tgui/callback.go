package tgui

import "strings"

// Data joins callback data segments with ':'. Segments are used raw; keep
// them short, Telegram caps callback_data at MaxCallbackDataLen bytes.
func Data(parts ...string) string {
	return strings.Join(parts, ":")
}

// Split breaks callback data back into its segments.
func Split(data string) []string {
	if data == "" {
		return nil
	}
	return strings.Split(data, ":")
}
