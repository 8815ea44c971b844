// Package api serves the session index over HTTP as JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Zuo-Peng/sesslog/internal/enrich"
	"github.com/Zuo-Peng/sesslog/internal/index"
	"github.com/Zuo-Peng/sesslog/internal/search"
)

type Server struct {
	db *index.DB
}

func New(db *index.DB) *Server {
	return &Server{db: db}
}

// Router returns the HTTP handler. Session keys contain slashes and must be
// path-escaped: /api/sessions/111%2Falice-1/records.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(accessLog)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", s.listSessions)
		r.Get("/sessions/{key}", s.getSession)
		r.Get("/sessions/{key}/records", s.getRecords)
		r.Get("/search", s.search)
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger().Error().Err(err).Int("status", code).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	n, err := s.db.SessionCount()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func sessionKey(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "key"))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	q := r.URL.Query()
	sessions, err := s.db.ListSessions(index.ListOptions{
		User:    q.Get("user"),
		Account: q.Get("account"),
		Limit:   limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []index.SessionRow{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// lookup writes the error response itself and returns nil when the session
// cannot be served.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *index.SessionRow {
	key, err := sessionKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session key")
		return nil
	}
	session, err := s.db.GetSessionByKey(key)
	if errors.Is(err, index.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	return session
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if session := s.lookup(w, r); session != nil {
		writeJSON(w, http.StatusOK, session)
	}
}

// getRecords returns the session's records in the export format.
func (s *Server) getRecords(w http.ResponseWriter, r *http.Request) {
	session := s.lookup(w, r)
	if session == nil {
		return
	}
	rows, err := s.db.GetRecords(session.SessionKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	commandsOnly := queryBool(r, "commands_only")
	records := make([]enrich.Record, 0, len(rows))
	for _, row := range rows {
		rec := session.Record(row)
		if commandsOnly && !rec.IsCommand() {
			continue
		}
		records = append(records, rec)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	results, err := search.Search(s.db, search.Options{
		Query:        q.Get("q"),
		User:         q.Get("user"),
		Account:      q.Get("account"),
		Instance:     q.Get("instance"),
		Since:        q.Get("since"),
		Limit:        limit,
		CommandsOnly: queryBool(r, "commands_only"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}
