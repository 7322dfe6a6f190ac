// Package mock provides a local stand-in for the employees API so the
// harness can be exercised without the real deployment. It mimics the
// response envelope, the error details and the role rules the cases
// assert against.
package mock

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Detail strings matching the real service's responses.
const (
	detailUnauthorized = "Full authentication is required to access this resource"
	detailForbidden    = "Access Denied"
	detailDuplicate    = "Email already registered"
)

// Employee is one stored record.
type Employee struct {
	UserID     string  `json:"userId"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	Department string  `json:"department"`
	Position   string  `json:"position"`
	Salary     float64 `json:"salary"`
}

// user is one credentialed login.
type user struct {
	Password string
	Role     string
	Email    string
}

// Server implements the employees API surface over an in-memory dataset.
// Safe for concurrent requests.
type Server struct {
	mu        sync.RWMutex
	employees map[string]Employee
	users     map[string]user
}

// NewServer returns an empty server; use Seed to populate it.
func NewServer() *Server {
	return &Server{
		employees: make(map[string]Employee),
		users:     make(map[string]user),
	}
}

// Handler returns the HTTP handler covering the API and the health
// endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/actuator/health", s.handleHealth)
	mux.HandleFunc("/api/employees", s.handleCollection)
	mux.HandleFunc("/api/employees/", s.handleItem)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "UP"})
}

// authenticate resolves the caller's role, writing the 401 problem detail
// on failure.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, pass, ok := r.BasicAuth()
	if !ok {
		problem(w, http.StatusUnauthorized, detailUnauthorized)
		return "", false
	}
	s.mu.RLock()
	u, exists := s.users[id]
	s.mu.RUnlock()
	if !exists || u.Password != pass {
		problem(w, http.StatusUnauthorized, detailUnauthorized)
		return "", false
	}
	return u.Role, true
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	role, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listEmployees(w, r)
	case http.MethodPost:
		if role != "ROLE_ADMIN" && role != "ROLE_MANAGER" {
			problem(w, http.StatusForbidden, detailForbidden)
			return
		}
		s.createEmployee(w, r)
	default:
		problem(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/employees/search") {
		if _, ok := s.authenticate(w, r); !ok {
			return
		}
		s.searchEmployees(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/employees/id/")
	if id == r.URL.Path || id == "" {
		problem(w, http.StatusNotFound, "No such resource")
		return
	}

	role, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	actor, _, _ := r.BasicAuth()

	switch r.Method {
	case http.MethodGet:
		s.getEmployee(w, id)
	case http.MethodPut:
		if role != "ROLE_ADMIN" && actor != id {
			problem(w, http.StatusForbidden, detailForbidden)
			return
		}
		s.updateEmployee(w, r, id)
	case http.MethodDelete:
		if role != "ROLE_ADMIN" {
			problem(w, http.StatusForbidden, detailForbidden)
			return
		}
		s.deleteEmployee(w, id)
	default:
		problem(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "pageNumber", 1)
	size := intParam(r, "pageSize", 10)

	all := s.sortedEmployees()
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detail":    "Employees found successfully",
		"employees": all[start:end],
	})
}

func (s *Server) searchEmployees(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	position := r.URL.Query().Get("position")
	minSalary, _ := strconv.ParseFloat(r.URL.Query().Get("salary"), 64)

	var matches []Employee
	for _, e := range s.sortedEmployees() {
		if department != "" && e.Department != department {
			continue
		}
		if position != "" && e.Position != position {
			continue
		}
		if e.Salary < minSalary {
			continue
		}
		matches = append(matches, e)
	}
	if matches == nil {
		matches = []Employee{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detail":    "Employees found successfully",
		"employees": matches,
	})
}

func (s *Server) getEmployee(w http.ResponseWriter, id string) {
	s.mu.RLock()
	e, ok := s.employees[id]
	s.mu.RUnlock()
	if !ok {
		problem(w, http.StatusNotFound, "Employee not found with id: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"detail":   "Employee found successfully",
		"employee": e,
	})
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var e Employee
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		problem(w, http.StatusBadRequest, "Validation failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.employees {
		if existing.Email == e.Email {
			problem(w, http.StatusConflict, detailDuplicate)
			return
		}
	}
	e.UserID = NewUserID()
	s.employees[e.UserID] = e

	writeJSON(w, http.StatusCreated, map[string]any{
		"detail":   "Employee created successfully",
		"employee": e,
	})
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request, id string) {
	var in Employee
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		problem(w, http.StatusBadRequest, "Validation failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.employees[id]
	if !ok {
		problem(w, http.StatusNotFound, "Employee not found with id: "+id)
		return
	}
	in.UserID = id
	if in.Department == "" {
		in.Department = old.Department
	}
	if in.Position == "" {
		in.Position = old.Position
	}
	if in.Salary == 0 {
		in.Salary = old.Salary
	}
	s.employees[id] = in

	writeJSON(w, http.StatusOK, map[string]any{
		"detail":       "Employee updated successfully",
		"employee":     in,
		"old_employee": old,
	})
}

func (s *Server) deleteEmployee(w http.ResponseWriter, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		problem(w, http.StatusNotFound, "Employee not found with id: "+id)
		return
	}
	delete(s.employees, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"detail": "Employee deleted successfully",
	})
}

func (s *Server) sortedEmployees() []Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// problem writes the Spring-style error envelope the validator reads the
// detail field from.
func problem(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{
		"status": status,
		"title":  http.StatusText(status),
		"detail": detail,
	})
}
