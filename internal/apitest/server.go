// Package apitest runs an in-memory fake of the schedule service for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"schedule-cli/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Request struct {
	Method string
	Path   string
	Auth   string
}

type failure struct {
	method string
	prefix string
	status int
}

type account struct {
	user     model.User
	password string
}

// Server is a fake schedule service. The zero value is not usable; call New or Start.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int64
	nextUser int64
	accounts map[string]*account // by email
	tokens   map[string]string   // token -> email
	items    map[string]map[int64]model.ScheduleItem
	requests []Request
	failures []failure

	// TextAcks makes add/update answer with a plain-text acknowledgement instead
	// of the saved item, like services that don't echo the record.
	TextAcks bool
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := Start()
	t.Cleanup(s.Close)
	return s
}

// Start starts a server; the caller must Close it.
func Start() *Server {
	s := &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
		items:    map[string]map[int64]model.ScheduleItem{},
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
	})
	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/api/user/me", s.handleMe)
		r.Put("/api/user/me", s.handleUpdateMe)
		r.Route("/api/schedule", func(r chi.Router) {
			r.Get("/list", s.handleList)
			r.Post("/add", s.handleAdd)
			r.Put("/update/{id}", s.handleUpdate)
			r.Delete("/delete/{id}", s.handleDelete)
		})
	})
	return r
}

// AddUser registers an account and returns a valid token for it.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	email = strings.ToLower(strings.TrimSpace(email))
	s.accounts[email] = &account{
		user:     model.User{ID: s.nextUser, Email: email, FirstName: "Test", LastName: "User"},
		password: password,
	}
	return s.issueTokenLocked(email)
}

// Seed stores items for email directly and returns them with ids assigned.
func (s *Server) Seed(email string, items ...model.ScheduleItem) []model.ScheduleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	out := make([]model.ScheduleItem, 0, len(items))
	for _, it := range items {
		s.nextID++
		it.ID = s.nextID
		it.Priority = it.Priority.Normalize()
		s.userItemsLocked(email)[it.ID] = it
		out = append(out, it)
	}
	return out
}

// Items returns the stored items for email ordered by id.
func (s *Server) Items(email string) []model.ScheduleItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.items[strings.ToLower(strings.TrimSpace(email))]
	out := make([]model.ScheduleItem, 0, len(m))
	for _, it := range m {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// User returns the stored profile for email.
func (s *Server) User(email string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, false
	}
	return a.user, true
}

// Password returns the stored password for email.
func (s *Server) Password(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]; ok {
		return a.password
	}
	return ""
}

// RevokeTokens invalidates every issued token (simulates expiry).
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// FailNext makes the next request matching method and path prefix answer with status.
func (s *Server) FailNext(method, pathPrefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: pathPrefix, status: status})
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts logged requests matching method and path prefix.
func (s *Server) CountRequests(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		for i, f := range s.failures {
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
				status = f.status
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		email, ok := s.tokens[strings.TrimSpace(tok)]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		r.Header.Set("X-Test-Email", email)
		next.ServeHTTP(w, r)
	})
}

func emailOf(r *http.Request) string { return r.Header.Get("X-Test-Email") }

func (s *Server) issueTokenLocked(email string) string {
	tok := fmt.Sprintf("tok-%d-%s", len(s.tokens)+1, strings.ReplaceAll(email, "@", "_"))
	s.tokens[tok] = email
	return tok
}

func (s *Server) userItemsLocked(email string) map[int64]model.ScheduleItem {
	m, ok := s.items[email]
	if !ok {
		m = map[int64]model.ScheduleItem{}
		s.items[email] = m
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain;charset=UTF-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	s.mu.Lock()
	a, ok := s.accounts[email]
	if !ok || a.password != in.Password {
		s.mu.Unlock()
		writeText(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	tok := s.issueTokenLocked(email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in model.Registration
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 6 {
		writeText(w, http.StatusBadRequest, "Invalid registration")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		writeText(w, http.StatusBadRequest, "Email is already in use")
		return
	}
	s.nextUser++
	s.accounts[email] = &account{
		user:     model.User{ID: s.nextUser, Email: email, FirstName: in.FirstName, LastName: in.LastName},
		password: in.Password,
	}
	writeText(w, http.StatusOK, "User registered successfully")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, ok := s.accounts[emailOf(r)]
	s.mu.Unlock()
	if !ok {
		writeText(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, a.user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var in model.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[emailOf(r)]
	if !ok {
		writeText(w, http.StatusNotFound, "user not found")
		return
	}
	if in.FirstName != "" {
		a.user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		a.user.LastName = in.LastName
	}
	if strings.TrimSpace(in.Password) != "" {
		a.password = in.Password
	}
	writeText(w, http.StatusOK, "User updated")
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Items(emailOf(r)))
}

func validItem(it model.ScheduleItem) string {
	switch {
	case strings.TrimSpace(it.Title) == "":
		return "Title is mandatory"
	case strings.TrimSpace(it.Type) == "":
		return "Type is mandatory"
	case strings.TrimSpace(it.Location) == "":
		return "Location is mandatory"
	case it.StartTime.IsZero() || it.EndTime.IsZero():
		return "Start and end time are mandatory"
	}
	return ""
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var in model.ScheduleItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	if msg := validItem(in); msg != "" {
		writeText(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	s.nextID++
	in.ID = s.nextID
	in.Priority = in.Priority.Normalize()
	s.userItemsLocked(emailOf(r))[in.ID] = in
	textAcks := s.TextAcks
	s.mu.Unlock()

	if textAcks {
		writeText(w, http.StatusCreated, "Schedule item added successfully")
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid id")
		return
	}
	var in model.ScheduleItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeText(w, http.StatusBadRequest, "invalid body")
		return
	}
	if msg := validItem(in); msg != "" {
		writeText(w, http.StatusBadRequest, msg)
		return
	}
	s.mu.Lock()
	m := s.userItemsLocked(emailOf(r))
	if _, ok := m[id]; !ok {
		s.mu.Unlock()
		writeText(w, http.StatusNotFound, "Non existing task")
		return
	}
	in.ID = id
	in.Priority = in.Priority.Normalize()
	m[id] = in
	textAcks := s.TextAcks
	s.mu.Unlock()

	if textAcks {
		writeText(w, http.StatusOK, "Schedule item updated successfully")
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	m := s.userItemsLocked(emailOf(r))
	_, ok := m[id]
	delete(m, id)
	s.mu.Unlock()
	if !ok {
		writeText(w, http.StatusNotFound, "Non existing task")
		return
	}
	writeText(w, http.StatusOK, "Schedule item deleted successfully")
}
