// Package schoolapitest provides an in-memory school API for tests.
package schoolapitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"school-admin-core/internal/config"
	"school-admin-core/internal/schoolapi"

	"github.com/rs/zerolog"
)

const (
	Token    = "test-token"
	SchoolID = "school-1"
)

type SessionRecord struct {
	ID                int64
	Label             string
	Term              int
	Active            bool
	CurrentTermEndsOn *string
	NextTermBeginsOn  *string
}

// Server mimics the session, result and roster endpoints. Mutations follow
// the real API: next-term moves the active session forward, next-session
// creates the successor session and makes it the only active one.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	endpoints config.EndpointsConfig
	sessions  []*SessionRecord
	results   []schoolapi.Result
	nextID    int64
	calls     []string

	Classes  map[string][]schoolapi.Student
	Subjects map[string][]schoolapi.Student

	// RejectUINs makes result submissions for these UINs fail with the message.
	RejectUINs map[string]string
	// FailPaths makes any request to the path fail with status 500.
	FailPaths map[string]bool
	// Delay is applied before handling result submissions.
	Delay time.Duration
}

func New(t testing.TB) *Server {
	s := &Server{
		endpoints:  config.EndpointsConfig{}.WithDefaults(),
		Classes:    map[string][]schoolapi.Student{},
		Subjects:   map[string][]schoolapi.Student{},
		RejectUINs: map[string]string{},
		FailPaths:  map[string]bool{},
		nextID:     1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Config() config.SchoolAPIConfig {
	return config.SchoolAPIConfig{
		BaseURL:      s.URL,
		StaticToken:  Token,
		SchoolID:     SchoolID,
		SchoolHeader: "X-School-Id",
		Timeout:      5 * time.Second,
		Endpoints:    s.endpoints,
	}
}

func (s *Server) Client() *schoolapi.Client {
	cfg := s.Config()
	return schoolapi.NewClientWithTokens(cfg, &http.Client{Timeout: cfg.Timeout}, schoolapi.StaticToken(Token), zerolog.Nop())
}

// AddSession stores a session; an active one deactivates all others.
func (s *Server) AddSession(label string, term int, active bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSessionLocked(label, term, active)
}

func (s *Server) addSessionLocked(label string, term int, active bool) int64 {
	if active {
		for _, existing := range s.sessions {
			existing.Active = false
		}
	}
	id := int64(len(s.sessions) + 1)
	s.sessions = append(s.sessions, &SessionRecord{ID: id, Label: label, Term: term, Active: active})
	return id
}

// SetTerm overwrites the raw term ordinal of the active session.
func (s *Server) SetTerm(ordinal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active := s.activeLocked(); active != nil {
		active.Term = ordinal
	}
}

func (s *Server) Sessions() []SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, *rec)
	}
	return out
}

func (s *Server) ActiveCount() int {
	n := 0
	for _, rec := range s.Sessions() {
		if rec.Active {
			n++
		}
	}
	return n
}

func (s *Server) Results() []schoolapi.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schoolapi.Result, len(s.results))
	copy(out, s.results)
	return out
}

// CallCount counts requests matching method and path.
func (s *Server) CallCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method+" "+path {
			n++
		}
	}
	return n
}

func (s *Server) Endpoints() config.EndpointsConfig {
	return s.endpoints
}

func (s *Server) activeLocked() *SessionRecord {
	for _, rec := range s.sessions {
		if rec.Active {
			return rec
		}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
	fail := s.FailPaths[r.URL.Path]
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
		return
	}
	if r.Header.Get("X-School-Id") != SchoolID {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "unknown school"})
		return
	}
	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	e := s.endpoints
	switch {
	case r.Method == http.MethodGet && r.URL.Path == e.CurrentSession:
		s.currentSession(w)
	case r.Method == http.MethodPut && r.URL.Path == e.UpdateSession:
		s.updateSession(w, r)
	case r.Method == http.MethodPut && r.URL.Path == e.UpdateSessionDates:
		s.updateDates(w, r)
	case r.Method == http.MethodPost && r.URL.Path == e.NextTerm:
		s.nextTerm(w)
	case r.Method == http.MethodPost && r.URL.Path == e.NextSession:
		s.nextSession(w)
	case r.Method == http.MethodPost && r.URL.Path == e.Results:
		s.createResult(w, r)
	case r.Method == http.MethodGet && r.URL.Path == e.Results:
		writeJSON(w, http.StatusOK, s.Results())
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, e.Results+"/"):
		s.deleteResult(w, strings.TrimPrefix(r.URL.Path, e.Results+"/"))
	case r.Method == http.MethodGet && r.URL.Path == e.StudentsByClass:
		s.roster(w, s.Classes, r.URL.Query().Get("className"))
	case r.Method == http.MethodGet && r.URL.Path == e.StudentsBySubject:
		s.roster(w, s.Subjects, r.URL.Query().Get("subjectId"))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route"})
	}
}

func (s *Server) currentSession(w http.ResponseWriter) {
	s.mu.Lock()
	active := s.activeLocked()
	var payload *schoolapi.Session
	if active != nil {
		isActive := true
		payload = &schoolapi.Session{
			ID:                active.ID,
			CurrentSession:    active.Label,
			CurrentTerm:       active.Term,
			SchoolName:        "Test School",
			CurrentTermEndsOn: active.CurrentTermEndsOn,
			NextTermBeginsOn:  active.NextTermBeginsOn,
			IsActive:          &isActive,
		}
	}
	s.mu.Unlock()

	if payload == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No current session found"})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	var req schoolapi.SessionUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findLocked(req.ID)
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Session not found"})
		return
	}
	rec.Label = req.CurrentSession
	rec.Term = req.CurrentTerm
	if req.CurrentTermEndsOn != nil {
		rec.CurrentTermEndsOn = req.CurrentTermEndsOn
	}
	if req.NextTermBeginsOn != nil {
		rec.NextTermBeginsOn = req.NextTermBeginsOn
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session updated"})
}

func (s *Server) updateDates(w http.ResponseWriter, r *http.Request) {
	var req schoolapi.SessionDatesRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findLocked(req.ID)
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Session not found"})
		return
	}
	if req.CurrentTermEndsOn != nil {
		rec.CurrentTermEndsOn = req.CurrentTermEndsOn
	}
	if req.NextTermBeginsOn != nil {
		rec.NextTermBeginsOn = req.NextTermBeginsOn
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session dates updated successfully"})
}

func (s *Server) nextTerm(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.activeLocked()
	if active == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No current session found"})
		return
	}
	if active.Term >= 3 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Already in third term; start a new session"})
		return
	}
	active.Term++
	active.CurrentTermEndsOn = nil
	active.NextTermBeginsOn = nil
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) nextSession(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.activeLocked()
	if active == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No current session found"})
		return
	}
	var start, end int
	if _, err := fmt.Sscanf(active.Label, "%d/%d", &start, &end); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad session label"})
		return
	}
	s.addSessionLocked(fmt.Sprintf("%d/%d", end, end+1), 1, true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createResult(w http.ResponseWriter, r *http.Request) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	var req schoolapi.Result
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.RejectUINs[req.StudentUIN]; ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": msg})
		return
	}

	for i, existing := range s.results {
		if existing.StudentID == req.StudentID && existing.SubjectCode == req.SubjectCode &&
			existing.Term == req.Term && existing.Session == req.Session {
			req.ID = existing.ID
			s.results[i] = req
			writeJSON(w, http.StatusOK, req)
			return
		}
	}

	req.ID = schoolapi.FlexID(fmt.Sprintf("%d", s.nextID))
	s.nextID++
	s.results = append(s.results, req)
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) deleteResult(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.results {
		if string(existing.ID) == id {
			s.results = append(s.results[:i], s.results[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Result not found"})
}

func (s *Server) roster(w http.ResponseWriter, source map[string][]schoolapi.Student, key string) {
	s.mu.Lock()
	students, ok := source[key]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No students found"})
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (s *Server) findLocked(id int64) *SessionRecord {
	for _, rec := range s.sessions {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
