package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/interval"
	"git.home.luguber.info/inful/focusd/internal/session"
	"git.home.luguber.info/inful/focusd/internal/settings"
	"git.home.luguber.info/inful/focusd/internal/storage"
)

// maxBodyBytes caps request payloads; interval bodies are tiny.
const maxBodyBytes = 64 << 10

// owner extracts the owner id from the configured header. Every /api/v1
// route is owner-scoped; a missing header is an authentication failure.
func (s *Server) owner(r *http.Request) (string, error) {
	id := r.Header.Get(s.cfg.OwnerHeader)
	if id == "" {
		return "", derrors.AuthError("missing owner header").
			WithContext("header", s.cfg.OwnerHeader).
			Build()
	}
	return id, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return derrors.ValidationError("invalid request body").
			WithContext("detail", err.Error()).
			Build()
	}
	return nil
}

// intervalResponse augments the stored record with the derived elapsed time.
type intervalResponse struct {
	interval.Interval
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

func (s *Server) intervalJSON(iv interval.Interval) intervalResponse {
	return intervalResponse{
		Interval:       iv,
		ElapsedSeconds: int64(interval.Elapsed(iv, s.svc.Now()).Seconds()),
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	var p interval.CreateParams
	if err := s.decode(w, r, &p); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	iv, err := s.svc.Create(r.Context(), ownerID, p)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.intervalJSON(iv))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	opts := storage.ListOptions{
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}
	list, err := s.svc.List(r.Context(), ownerID, opts)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	out := make([]intervalResponse, len(list))
	for i, iv := range list {
		out[i] = s.intervalJSON(iv)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"intervals": out, "count": len(out)})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	active, err := s.svc.Active(r.Context(), ownerID)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if active == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"active": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"active": s.intervalJSON(*active)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	stats, err := s.svc.Stats(r.Context(), ownerID)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	iv, err := s.svc.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.intervalJSON(iv))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	var u interval.Update
	if err := s.decode(w, r, &u); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	iv, err := s.svc.Update(r.Context(), ownerID, r.PathValue("id"), u)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.intervalJSON(iv))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := s.svc.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transitionHandler adapts one service transition into an HTTP handler.
func (s *Server) transitionHandler(fn func(ctx context.Context, ownerID, id string) (interval.Interval, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := s.owner(r)
		if err != nil {
			s.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		iv, err := fn(r.Context(), ownerID, r.PathValue("id"))
		if err != nil {
			s.errorAdapter.WriteErrorResponse(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.intervalJSON(iv))
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	got, err := s.svc.Settings(r.Context(), ownerID)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, got)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	var u settings.Update
	if err := s.decode(w, r, &u); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	got, err := s.svc.UpdateSettings(r.Context(), ownerID, u)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, got)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	sessions, err := s.svc.Sessions(r.Context(), ownerID, from, to)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	ownerID, err := s.owner(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	totals, err := s.svc.DailyTotals(r.Context(), ownerID, from, to)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"days": totals, "count": len(totals)})
}

func intQuery(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

// dateRange parses optional from/to query parameters in YYYY-MM-DD form.
// Zero values mean "use the service default range".
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	parse := func(key string) (time.Time, error) {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(session.DateLayout, raw)
		if err != nil {
			return time.Time{}, derrors.ValidationError("invalid date parameter").
				WithContext(key, raw).
				Build()
		}
		return t, nil
	}
	from, err := parse("from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parse("to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
