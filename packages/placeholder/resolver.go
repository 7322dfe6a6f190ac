// Package placeholder rewrites the symbolic tokens embedded in a test case
// into concrete runtime values before the request is dispatched. A token is
// resolved exactly once per case, so the endpoint and the expected error
// detail always agree on the value that was chosen.
package placeholder

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/identity"
	"github.com/amblessed/employees-harness/packages/oracle"
)

// Tokens recognized in endpoints, expected details and payloads.
const (
	TokenValidID        = "RANDOM_VALID_ID"
	TokenValidEmpID     = "RANDOM_VALID_EMP_ID"
	TokenInvalidID      = "RANDOM_INVALID_ID"
	TokenNegativeID     = "RANDOM_NEGATIVE_ID"
	TokenRandomEmployee = "RANDOM_EMPLOYEE"
	TokenExistingEmail  = "EXISTING_EMAIL"
)

// Invalid numeric ids are drawn from a range the seeder never allocates.
// Both bounds are inclusive.
const (
	invalidIDFloor   = 80000
	invalidIDCeiling = 90000
	negativeIDFloor  = -22
)

// emailDomains is the fixed set random employee emails are built from.
var emailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"}

// ErrStoreRequired means a token needs database access but the resolver was
// built without an oracle client.
var ErrStoreRequired = errors.New("token requires a database-backed resolver")

// ErrTargetRequired means an id token was used but the case resolved no
// target and no store is available to sample one.
var ErrTargetRequired = errors.New("token requires a resolved target")

// Resolver substitutes placeholder tokens. It never mutates the case it is
// given; Resolve returns a fresh copy.
type Resolver struct {
	store *oracle.Client
	rng   *rand.Rand
	faker *gofakeit.Faker
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOracle enables the database-driven substitutions (valid id sampling
// and EXISTING_EMAIL lookups).
func WithOracle(store *oracle.Client) Option {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithSeed pins the randomness source so a run is reproducible.
func WithSeed(seed int64) Option {
	return func(r *Resolver) {
		r.rng = rand.New(rand.NewSource(seed))
		r.faker = gofakeit.New(uint64(seed))
	}
}

// NewResolver returns a resolver seeded from the clock unless WithSeed is
// given.
func NewResolver(opts ...Option) *Resolver {
	seed := time.Now().UnixNano()
	r := &Resolver{
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(uint64(seed)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a copy of the case with every token replaced by a concrete
// value. The same chosen value is reused across the endpoint and the
// expected detail. The target, when present, supplies the valid id; without
// a target the id is sampled from the store.
func (r *Resolver) Resolve(ctx context.Context, c cases.TestCase, actor identity.Identity, target *identity.Identity) (cases.TestCase, error) {
	out := c.Clone()

	needs := func(token string) bool {
		return strings.Contains(out.Endpoint, token) || strings.Contains(out.ExpectedDetail, token)
	}

	subs := make(map[string]string)

	if needs(TokenValidID) || needs(TokenValidEmpID) {
		id, err := r.validID(ctx, target)
		if err != nil {
			return cases.TestCase{}, fmt.Errorf("case %q: %w", c.Story, err)
		}
		// The longer token first, so RANDOM_VALID_EMP_ID is not half-eaten.
		subs[TokenValidEmpID] = id
		subs[TokenValidID] = id
	}
	if needs(TokenInvalidID) {
		subs[TokenInvalidID] = r.invalidID()
	}
	if needs(TokenNegativeID) {
		subs[TokenNegativeID] = fmt.Sprintf("%d", negativeIDFloor+r.rng.Intn(-negativeIDFloor))
	}

	out.Endpoint = substituteEndpoint(out.Endpoint, subs)
	out.ExpectedDetail = substitute(out.ExpectedDetail, subs)

	switch out.Payload.Token {
	case TokenRandomEmployee:
		out.Payload = cases.Payload{Fields: r.randomEmployee()}
	case TokenExistingEmail:
		fields, err := r.existingEmployee(ctx)
		if err != nil {
			return cases.TestCase{}, fmt.Errorf("case %q: %w", c.Story, err)
		}
		out.Payload = cases.Payload{Fields: fields}
	}

	return out, nil
}

// validID prefers the resolved target's identifier and falls back to
// sampling a valid id from the store.
func (r *Resolver) validID(ctx context.Context, target *identity.Identity) (string, error) {
	if target != nil && target.UserID != "" {
		return target.UserID, nil
	}
	if r.store == nil {
		return "", ErrTargetRequired
	}
	ids, err := r.store.AllIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("sampling valid id: %w", err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("sampling valid id: store has no records")
	}
	return ids[r.rng.Intn(len(ids))], nil
}

// invalidID is numeric for store-driven runs and the fixed non-existent
// string otherwise, matching how each variant's id space looks.
func (r *Resolver) invalidID() string {
	if r.store != nil {
		return fmt.Sprintf("%d", invalidIDFloor+r.rng.Intn(invalidIDCeiling-invalidIDFloor+1))
	}
	return identity.InvalidUserID
}

// randomEmployee synthesizes a create/update payload: generated names and an
// email derived from them plus a random domain from the fixed set.
func (r *Resolver) randomEmployee() map[string]any {
	first := r.faker.FirstName()
	last := r.faker.LastName()
	domain := emailDomains[r.rng.Intn(len(emailDomains))]
	return map[string]any{
		"firstName": first,
		"lastName":  last,
		"email":     fmt.Sprintf("%s.%s@%s", strings.ToLower(first), strings.ToLower(last), domain),
	}
}

// existingEmployee fetches a live record so a create case can provoke the
// uniqueness constraint on email.
func (r *Resolver) existingEmployee(ctx context.Context) (map[string]any, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%s: %w", TokenExistingEmail, ErrStoreRequired)
	}
	emps, err := r.store.AllEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching existing employee: %w", err)
	}
	if len(emps) == 0 {
		return nil, fmt.Errorf("fetching existing employee: store has no records")
	}
	emp := emps[r.rng.Intn(len(emps))]
	return map[string]any{
		"firstName": emp.FirstName,
		"lastName":  emp.LastName,
		"email":     emp.Email,
	}, nil
}

// substituteEndpoint handles the whole-token endpoint form ("RANDOM_VALID_ID"
// becomes "/id/<value>") as well as tokens embedded in a longer path.
func substituteEndpoint(endpoint string, subs map[string]string) string {
	for _, token := range []string{TokenValidEmpID, TokenValidID, TokenInvalidID, TokenNegativeID} {
		if endpoint == token {
			if v, ok := subs[token]; ok {
				return "/id/" + v
			}
		}
	}
	return substitute(endpoint, subs)
}

// substitute replaces token occurrences, longest token first.
func substitute(s string, subs map[string]string) string {
	if s == "" || len(subs) == 0 {
		return s
	}
	for _, token := range []string{TokenValidEmpID, TokenValidID, TokenInvalidID, TokenNegativeID} {
		if v, ok := subs[token]; ok {
			s = strings.ReplaceAll(s, token, v)
		}
	}
	return s
}
