package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath           = "path"
	KeySubscriptionID = "subscription_id"
	KeyListener       = "listener"
	KeySequence       = "sequence"
	KeyDepth          = "depth"
	KeyComponent      = "component"
	KeySessionID      = "session_id"
	KeyFile           = "file"
	KeyCount          = "count"
	KeyDurationMS     = "duration_ms"
	KeyMethod         = "method"
	KeyRequestPath    = "request_path"
	KeyStatus         = "status"
	KeyError          = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func SubscriptionID(id string) slog.Attr { return slog.String(KeySubscriptionID, id) }
func Listener(label string) slog.Attr    { return slog.String(KeyListener, label) }
func Sequence(seq uint64) slog.Attr      { return slog.Uint64(KeySequence, seq) }
func Depth(d int) slog.Attr              { return slog.Int(KeyDepth, d) }
func Component(name string) slog.Attr    { return slog.String(KeyComponent, name) }
func SessionID(id string) slog.Attr      { return slog.String(KeySessionID, id) }
func File(f string) slog.Attr            { return slog.String(KeyFile, f) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr          { return slog.String(KeyMethod, m) }
func RequestPath(p string) slog.Attr     { return slog.String(KeyRequestPath, p) }
func Status(code int) slog.Attr          { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
