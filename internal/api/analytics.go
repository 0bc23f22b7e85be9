package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"frizerie/m/internal/analytics"
)

// Analytics handlers. The router restricts all of them to admins.

// reportRange turns ?days=N (default 30) into the window ending now. It
// writes a 400 and returns false when days is invalid.
func reportRange(w http.ResponseWriter, r *http.Request) (analytics.TimeRange, bool) {
	days := 30
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "days must be an integer")
			return analytics.TimeRange{}, false
		}
		days = n
	}
	tr, err := analytics.LastDays(time.Now().UTC(), days)
	if err != nil {
		respondError(w, http.StatusBadRequest, "days must be between 1 and 365")
		return analytics.TimeRange{}, false
	}
	return tr, true
}

// serveReport adapts a Store aggregation to a ?days=N endpoint.
func serveReport[T any](name string, build func(context.Context, analytics.TimeRange) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr, ok := reportRange(w, r)
		if !ok {
			return
		}
		report, err := build(r.Context(), tr)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("report", name).Msg("analytics report failed")
			respondError(w, http.StatusInternalServerError, "unable to build analytics "+name)
			return
		}
		respondJSON(w, http.StatusOK, report)
	}
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f analytics.Filter

	if raw := strings.TrimSpace(q.Get("event_type")); raw != "" {
		et, err := analytics.ParseEventType(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.EventType = et
	}
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		f.UserID = &id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"start_date", &f.Start}, {"end_date", &f.End}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, p.name+" must be RFC3339 or YYYY-MM-DD")
			return
		}
		*p.dst = &t
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, p.name+" must be an integer")
			return
		}
		*p.dst = n
	}
	if q.Has("limit") && f.Limit == 0 {
		respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
		return
	}

	events, err := h.events.Events(r.Context(), f)
	if err != nil {
		if isInvalidInput(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("list analytics events failed")
		respondError(w, http.StatusInternalServerError, "unable to list analytics events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

type trackEventRequest struct {
	EventType  string               `json:"event_type" validate:"required"`
	Properties analytics.Properties `json:"properties"`
	UserID     *int64               `json:"user_id" validate:"omitempty,gt=0"`
	StylistID  *int64               `json:"stylist_id" validate:"omitempty,gt=0"`
	ServiceID  *int64               `json:"service_id" validate:"omitempty,gt=0"`
	BookingID  *string              `json:"booking_id" validate:"omitempty,max=64"`
}

func (h *Handler) trackEvent(w http.ResponseWriter, r *http.Request) {
	var req trackEventRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	et, err := analytics.ParseEventType(req.EventType)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev := withClient(r, analytics.Event{
		EventType:  et,
		Properties: req.Properties,
		UserID:     req.UserID,
		StylistID:  req.StylistID,
		ServiceID:  req.ServiceID,
		BookingID:  req.BookingID,
	})

	stored, err := h.events.Track(r.Context(), ev)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("track analytics event failed")
		respondError(w, http.StatusInternalServerError, "failed to track analytics event")
		return
	}
	respondJSON(w, http.StatusCreated, stored)
}

func isInvalidInput(err error) bool {
	return errors.Is(err, analytics.ErrInvalidEventType) ||
		errors.Is(err, analytics.ErrInvalidPaging) ||
		errors.Is(err, analytics.ErrInvalidRange)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
