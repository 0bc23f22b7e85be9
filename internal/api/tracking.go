package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"

	"frizerie/m/internal/analytics"
)

// actor is filled in by authMiddleware so that trackRequests, which wraps it,
// can attribute the request once the handler chain returns.
type actor struct {
	userID *int64
}

func (h *Handler) tracked(path string) bool {
	for _, prefix := range h.untracked {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// trackRequests records a page_view event for every tracked request and an
// error event for responses with status 400 and above.
func (h *Handler) trackRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.tracked(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		a := &actor{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), ctxActor, a)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		h.recordEvent(r, analytics.Event{
			EventType: analytics.PageView,
			UserID:    a.userID,
			Properties: analytics.Properties{
				"page":         r.URL.Path,
				"method":       r.Method,
				"query_params": queryParams(r),
			},
		})
		if status >= http.StatusBadRequest {
			h.recordEvent(r, analytics.Event{
				EventType: analytics.Error,
				UserID:    a.userID,
				Properties: analytics.Properties{
					"page":        r.URL.Path,
					"method":      r.Method,
					"status_code": status,
				},
			})
		}
	})
}

// recordEvent stores ev with the request's client details. Failures are
// logged and never reach the client.
func (h *Handler) recordEvent(r *http.Request, ev analytics.Event) {
	ev = withClient(r, ev)
	ctx := context.WithoutCancel(r.Context())
	if _, err := h.events.Track(ctx, ev); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("event_type", string(ev.EventType)).Msg("unable to record analytics event")
	}
}

// withClient attaches the caller's address and user agent to ev.
func withClient(r *http.Request, ev analytics.Event) analytics.Event {
	if ip := clientIP(r); ip != "" {
		ev.IPAddress = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		ev.UserAgent = &ua
	}
	return ev
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func queryParams(r *http.Request) map[string]any {
	out := map[string]any{}
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			out[key] = values[0]
			continue
		}
		out[key] = values
	}
	return out
}
