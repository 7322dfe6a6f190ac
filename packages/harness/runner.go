package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/httpexec"
	"github.com/amblessed/employees-harness/packages/identity"
	"github.com/amblessed/employees-harness/packages/oracle"
	"github.com/amblessed/employees-harness/packages/validate"
)

// CaseResult is the outcome of one executed case. Err is set only for
// failures that prevented validation (resolution problems, transport
// errors); assertion mismatches live in Result.
type CaseResult struct {
	Case     cases.TestCase
	Actor    identity.Identity
	Result   *validate.Result
	Response *httpexec.Response
	Err      error
	Duration time.Duration
}

// Passed reports whether the case executed and every check held.
func (r *CaseResult) Passed() bool {
	return r.Err == nil && r.Result != nil && r.Result.Passed()
}

// RunResult is one collection's worth of executed cases.
type RunResult struct {
	SessionID  string
	Collection string
	Cases      []CaseResult
	StartedAt  time.Time
	Elapsed    time.Duration
	Latency    LatencySummary
}

// PassCount returns the number of passing cases.
func (r *RunResult) PassCount() int {
	n := 0
	for i := range r.Cases {
		if r.Cases[i].Passed() {
			n++
		}
	}
	return n
}

// Failed reports whether any case in the run did not pass.
func (r *RunResult) Failed() bool {
	return r.PassCount() != len(r.Cases)
}

// Runner executes case collections sequentially against the session's
// system under test.
type Runner struct {
	session *Session
	metrics *Metrics
}

// NewRunner returns a runner bound to the session.
func NewRunner(s *Session) *Runner {
	return &Runner{session: s, metrics: NewMetrics()}
}

// RunCollection loads the named definition file and executes every case in
// file order. Individual case failures never abort the run; a context
// cancellation does.
func (r *Runner) RunCollection(ctx context.Context, name string) (*RunResult, error) {
	col, err := r.session.Cases.Load(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	result := &RunResult{
		SessionID:  r.session.ID,
		Collection: name,
		StartedAt:  time.Now(),
	}
	for _, c := range col.All() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Cases = append(result.Cases, r.RunCase(ctx, c))
	}
	result.Elapsed = time.Since(result.StartedAt)
	result.Latency = r.metrics.Summary()
	return result, nil
}

// RunCase drives one case through the full pipeline: actor and target
// selection, placeholder resolution, dispatch, validation, and for
// positive reads, searches and deletes a cross-check against the backing
// store.
func (r *Runner) RunCase(ctx context.Context, c cases.TestCase) CaseResult {
	out := CaseResult{Case: c}

	actor, err := r.session.Identities.SelectActor(ctx, c.UserRole)
	if err != nil {
		out.Err = fmt.Errorf("selecting actor: %w", err)
		return out
	}
	out.Actor = actor

	target, err := r.session.Identities.SelectTarget(ctx, actor, c.AccessTarget)
	if err != nil {
		out.Err = fmt.Errorf("selecting target: %w", err)
		return out
	}

	resolved, err := r.session.Placeholders.Resolve(ctx, c, actor, target)
	if err != nil {
		out.Err = err
		return out
	}
	out.Case = resolved

	req, err := httpexec.BuildRequest(r.session.Config.BaseURL, &resolved, actor)
	if err != nil {
		out.Err = err
		return out
	}

	resp, err := r.session.Client.Execute(ctx, req)
	if err != nil {
		// A transport error means the system under test never answered;
		// there is nothing to validate.
		out.Err = err
		r.metrics.Record(0, false)
		return out
	}
	out.Response = resp
	out.Duration = resp.Duration

	out.Result = r.session.Validator.Validate(resp, &resolved)
	r.crossCheckRead(ctx, &resolved, resp, out.Result)
	r.crossCheckSearch(ctx, &resolved, resp, out.Result)
	r.crossCheckDelete(ctx, &resolved, out.Result)
	r.metrics.Record(resp.Duration, out.Result.Passed())
	return out
}

// crossCheckRead verifies a successful by-id read against the backing
// store: the record must exist and the name and email fields the API
// returned must match the row.
func (r *Runner) crossCheckRead(ctx context.Context, c *cases.TestCase, resp *httpexec.Response, res *validate.Result) {
	if r.session.Oracle == nil || c.Method != cases.GET || c.Type != cases.Positive {
		return
	}
	if !strings.Contains(c.Endpoint, "/id/") {
		return
	}
	id := lastPathSegment(c.Endpoint)
	if id == "" {
		return
	}

	emp, err := r.session.Oracle.EmployeeByID(ctx, id)
	switch {
	case errors.Is(err, oracle.ErrNotFound):
		res.Failures = append(res.Failures, validate.Failure{
			Check:    "store record " + id,
			Expected: "present",
			Actual:   "absent",
		})
		return
	case err != nil:
		res.Failures = append(res.Failures, validate.Failure{
			Check:    "store record " + id,
			Expected: "present",
			Actual:   fmt.Sprintf("query error: %v", err),
		})
		return
	}

	field := c.CheckField
	if field == "" {
		field = "employee"
	}
	got := gjson.ParseBytes(resp.Body).Get(field)
	for _, f := range []struct {
		name string
		want string
	}{
		{"firstName", emp.FirstName},
		{"lastName", emp.LastName},
		{"email", emp.Email},
	} {
		if v := got.Get(f.name).String(); v != f.want {
			res.Failures = append(res.Failures, validate.Failure{
				Check:    "store " + field + "." + f.name,
				Expected: f.want,
				Actual:   v,
			})
		}
	}
}

// crossCheckSearch re-runs a search case's filter against the backing
// store and requires the API to have returned exactly that record set,
// keyed by email.
func (r *Runner) crossCheckSearch(ctx context.Context, c *cases.TestCase, resp *httpexec.Response, res *validate.Result) {
	if r.session.Oracle == nil || c.Method != cases.GET || c.Type != cases.Positive {
		return
	}
	department, hasDept := c.Params["department"]
	position, hasPos := c.Params["position"]
	salaryStr, hasSalary := c.Params["salary"]
	if !hasDept && !hasPos && !hasSalary {
		return
	}
	var minSalary float64
	if hasSalary {
		// An unparsable bound is already reported by the validator.
		minSalary, _ = strconv.ParseFloat(salaryStr, 64)
	}

	want, err := r.session.Oracle.Search(ctx, department, position, minSalary)
	if err != nil {
		res.Failures = append(res.Failures, validate.Failure{
			Check:    "store search",
			Expected: "matching records",
			Actual:   fmt.Sprintf("query error: %v", err),
		})
		return
	}

	field := c.CheckField
	if field == "" {
		field = "employees"
	}
	elements := gjson.ParseBytes(resp.Body).Get(field).Array()

	wantEmails := make(map[string]bool, len(want))
	for _, e := range want {
		wantEmails[e.Email] = true
	}
	gotEmails := make(map[string]bool, len(elements))
	for _, el := range elements {
		gotEmails[el.Get("email").String()] = true
	}

	if len(elements) != len(want) {
		res.Failures = append(res.Failures, validate.Failure{
			Check:    field + " vs store",
			Expected: fmt.Sprintf("%d matching records", len(want)),
			Actual:   fmt.Sprintf("%d returned", len(elements)),
		})
	}
	for _, e := range want {
		if !gotEmails[e.Email] {
			res.Failures = append(res.Failures, validate.Failure{
				Check:    field + " vs store",
				Expected: e.Email + " in response",
				Actual:   "absent",
			})
		}
	}
	for _, el := range elements {
		if email := el.Get("email").String(); !wantEmails[email] {
			res.Failures = append(res.Failures, validate.Failure{
				Check:    field + " vs store",
				Expected: email + " in store",
				Actual:   "absent",
			})
		}
	}
}

// crossCheckDelete verifies a successful DELETE actually removed the record
// from the backing store, not just from the API's view of it.
func (r *Runner) crossCheckDelete(ctx context.Context, c *cases.TestCase, res *validate.Result) {
	if r.session.Oracle == nil || c.Method != cases.DELETE || c.Type != cases.Positive {
		return
	}
	id := lastPathSegment(c.Endpoint)
	if id == "" {
		return
	}
	_, err := r.session.Oracle.EmployeeByID(ctx, id)
	switch {
	case errors.Is(err, oracle.ErrNotFound):
		// Gone, as expected.
	case err == nil:
		res.Failures = append(res.Failures, validate.Failure{
			Check:    "store record " + id,
			Expected: "deleted",
			Actual:   "still present",
		})
	default:
		res.Failures = append(res.Failures, validate.Failure{
			Check:    "store record " + id,
			Expected: "deleted",
			Actual:   fmt.Sprintf("query error: %v", err),
		})
	}
}

func lastPathSegment(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	i := strings.LastIndex(endpoint, "/")
	if i < 0 {
		return ""
	}
	return endpoint[i+1:]
}
