package cases

import (
	"encoding/json"
	"fmt"
)

// Polarity says whether a case expects the request to succeed or to be
// rejected with a specific error.
type Polarity string

const (
	Positive Polarity = "Positive Test"
	Negative Polarity = "Negative Test"
)

func (p Polarity) Valid() bool {
	return p == Positive || p == Negative
}

// Method is the HTTP method a case issues. Only the four verbs the
// employees API accepts are valid.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
)

func (m Method) Valid() bool {
	switch m {
	case GET, POST, PUT, DELETE:
		return true
	}
	return false
}

// HasBody reports whether the method carries a JSON body. The employees
// API rejects bodies on GET and DELETE, so the executor drops any payload
// for those verbs.
func (m Method) HasBody() bool {
	return m == POST || m == PUT
}

// RoleCategory names the actor pool a case draws its credentials from.
// Values outside the known set are kept verbatim so callers can surface
// them instead of silently reclassifying.
type RoleCategory string

const (
	RoleEmployee RoleCategory = "Employee"
	RoleManager  RoleCategory = "Manager"
	RoleAdmin    RoleCategory = "Admin"
	RoleGuest    RoleCategory = "Guest"
)

func (r RoleCategory) Known() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin, RoleGuest:
		return true
	}
	return false
}

// AccessMode says which record a case targets relative to its actor.
type AccessMode string

const (
	AccessNone  AccessMode = ""
	AccessSelf  AccessMode = "self"
	AccessOther AccessMode = "other"
)

func (a AccessMode) Valid() bool {
	switch a {
	case AccessNone, AccessSelf, AccessOther:
		return true
	}
	return false
}

// Payload is either a symbolic token (e.g. RANDOM_EMPLOYEE) that the
// placeholder resolver replaces before dispatch, or a concrete JSON object.
type Payload struct {
	Token  string
	Fields map[string]any
}

// IsZero reports whether the case carries no payload at all.
func (p Payload) IsZero() bool {
	return p.Token == "" && p.Fields == nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		p.Token = token
		p.Fields = nil
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("payload must be a string token or an object: %w", err)
	}
	p.Token = ""
	p.Fields = fields
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Token != "" {
		return json.Marshal(p.Token)
	}
	if p.Fields == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.Fields)
}

// Field returns a string payload field, or "" when absent.
func (p Payload) Field(name string) string {
	if p.Fields == nil {
		return ""
	}
	s, _ := p.Fields[name].(string)
	return s
}

// TestCase is one declarative scenario: which request to issue, who issues
// it, and what response to expect. Endpoint, expected detail and payload may
// contain symbolic placeholders until the resolver runs.
type TestCase struct {
	Story          string            `json:"story"`
	Feature        string            `json:"feature,omitempty"`
	Type           Polarity          `json:"type"`
	Method         Method            `json:"method"`
	Endpoint       string            `json:"endpoint"`
	Params         map[string]string `json:"params,omitempty"`
	Payload        Payload           `json:"payload,omitempty"`
	ExpectedStatus int               `json:"expected_status"`
	ExpectedDetail string            `json:"expected_detail,omitempty"`
	CheckField     string            `json:"check_field,omitempty"`
	UserRole       RoleCategory      `json:"user_role,omitempty"`
	AccessTarget   AccessMode        `json:"access_target,omitempty"`
	PageSize       int               `json:"pageSize,omitempty"`
	Schema         string            `json:"schema,omitempty"`
}

// Validate checks the fields that must be well-formed before a case can run.
func (c *TestCase) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("case %q: unknown type %q", c.Story, string(c.Type))
	}
	if !c.Method.Valid() {
		return fmt.Errorf("case %q: unknown method %q", c.Story, string(c.Method))
	}
	if !c.AccessTarget.Valid() {
		return fmt.Errorf("case %q: unknown access_target %q", c.Story, string(c.AccessTarget))
	}
	if c.ExpectedStatus < 100 || c.ExpectedStatus > 599 {
		return fmt.Errorf("case %q: expected_status %d out of range", c.Story, c.ExpectedStatus)
	}
	return nil
}

// Clone returns a deep copy so resolvers can substitute placeholders
// without mutating the loaded collection.
func (c *TestCase) Clone() TestCase {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.Payload.Fields != nil {
		out.Payload.Fields = make(map[string]any, len(c.Payload.Fields))
		for k, v := range c.Payload.Fields {
			out.Payload.Fields[k] = v
		}
	}
	return out
}

// DeclaredPageSize returns the page size a paged-listing case expects,
// preferring the query parameters over the case-level field. Listings
// accept either the pageNumber/pageSize pair or the page/size pair.
func (c *TestCase) DeclaredPageSize() int {
	for _, key := range []string{"pageSize", "size"} {
		if s, ok := c.Params[key]; ok {
			var n int
			if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
				return n
			}
		}
	}
	return c.PageSize
}

// Collection holds the cases loaded from one definition file. A file is
// either a flat array of cases or an object keyed by HTTP method.
type Collection struct {
	Name   string
	groups map[Method][]TestCase
	order  []Method
	flat   []TestCase
}

// All returns every case in file order.
func (c *Collection) All() []TestCase {
	if c.flat != nil {
		return c.flat
	}
	var out []TestCase
	for _, m := range c.order {
		out = append(out, c.groups[m]...)
	}
	return out
}

// ForMethod returns the cases grouped under one HTTP method. For flat
// collections it filters by the case's own method field.
func (c *Collection) ForMethod(m Method) []TestCase {
	if c.groups != nil {
		return c.groups[m]
	}
	var out []TestCase
	for _, tc := range c.flat {
		if tc.Method == m {
			out = append(out, tc)
		}
	}
	return out
}

// Len returns the total number of cases.
func (c *Collection) Len() int {
	if c.flat != nil {
		return len(c.flat)
	}
	n := 0
	for _, g := range c.groups {
		n += len(g)
	}
	return n
}
