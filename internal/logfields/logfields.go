// Package logfields centralizes canonical slog field name constants to avoid drift across packages.
package logfields

import "log/slog"

const (
	KeyOwnerID    = "owner_id"
	KeyIntervalID = "interval_id"
	KeyAction     = "action"
	KeyStatus     = "status"
	KeyKind       = "kind"
	KeyDurationMS = "duration_ms"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyHTTPStatus = "http_status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyRequestID  = "request_id"
	KeySubject    = "subject"
	KeyJob        = "job"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func OwnerID(id string) slog.Attr      { return slog.String(KeyOwnerID, id) }
func IntervalID(id string) slog.Attr   { return slog.String(KeyIntervalID, id) }
func Action(a string) slog.Attr        { return slog.String(KeyAction, a) }
func Status(s string) slog.Attr        { return slog.String(KeyStatus, s) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func HTTPStatus(code int) slog.Attr    { return slog.Int(KeyHTTPStatus, code) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }
func Job(name string) slog.Attr        { return slog.String(KeyJob, name) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
