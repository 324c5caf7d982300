// Package tgui provides small Telegram UI helpers:
//   - Inline keyboard builders
//   - Callback data helpers (colon-joined segments)
//   - A simple, safe message builder with sensible defaults
//
// Design goals:
//   - One builder covers text + send options for panel screens
//   - Safe by default for Telegram ParseMode="HTML" (auto escaping)
package tgui
