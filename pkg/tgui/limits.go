package tgui

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
// NOTE: This is the length of the full colon-joined string.
const MaxCallbackDataLen = 64
