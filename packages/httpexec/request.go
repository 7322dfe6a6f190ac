package httpexec

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/identity"
)

// Request is the ephemeral, fully concrete form of one case: resolved URL,
// credentials, query parameters and encoded body. It is built immediately
// before dispatch and discarded after validation.
type Request struct {
	Method      cases.Method
	URL         string
	QueryParams map[string]string
	Body        string
	Username    string
	Password    string
	Anonymous   bool
}

// BuildRequest derives the concrete request for a placeholder-resolved case.
// GET and DELETE never carry a body even when the case declares a payload;
// the API under test rejects bodies on those verbs.
func BuildRequest(baseURL string, c *cases.TestCase, actor identity.Identity) (*Request, error) {
	req := &Request{
		Method:      c.Method,
		URL:         baseURL + c.Endpoint,
		QueryParams: make(map[string]string, len(c.Params)),
		Username:    actor.UserID,
		Password:    actor.Password,
		Anonymous:   actor.IsAnonymous(),
	}
	for k, v := range c.Params {
		req.QueryParams[k] = v
	}

	if c.Method.HasBody() && c.Payload.Fields != nil {
		encoded, err := json.Marshal(c.Payload.Fields)
		if err != nil {
			return nil, fmt.Errorf("encoding payload for case %q: %w", c.Story, err)
		}
		req.Body = string(encoded)
	}
	return req, nil
}

// BuildURL appends the query parameters to the request URL.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
