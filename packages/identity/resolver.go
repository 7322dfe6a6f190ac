package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/oracle"
)

var (
	// ErrEmptyPool means no identity exists for the requested role category.
	ErrEmptyPool = errors.New("identity pool is empty")
	// ErrNoEligibleTarget means an "other" target was requested but the
	// employee pool has nobody besides the actor. That is a test-authoring
	// problem, not a runtime race.
	ErrNoEligibleTarget = errors.New("no eligible target")
)

// Resolver picks the actor issuing a request and the record it targets.
// Implementations must be safe for sequential reuse across cases.
type Resolver interface {
	SelectActor(ctx context.Context, role cases.RoleCategory) (Identity, error)
	SelectTarget(ctx context.Context, actor Identity, mode cases.AccessMode) (*Identity, error)
}

// DirectoryResolver selects identities from a pre-seeded directory snapshot.
type DirectoryResolver struct {
	dir *Directory
	rng *rand.Rand
}

// ResolverOption configures a resolver's randomness source.
type ResolverOption func(*rand.Rand) *rand.Rand

// WithRand injects a seeded randomness source so runs are reproducible.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(*rand.Rand) *rand.Rand {
		return rng
	}
}

func newRand(opts []ResolverOption) *rand.Rand {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, opt := range opts {
		rng = opt(rng)
	}
	return rng
}

// NewDirectoryResolver returns a resolver over the given directory.
func NewDirectoryResolver(dir *Directory, opts ...ResolverOption) *DirectoryResolver {
	return &DirectoryResolver{dir: dir, rng: newRand(opts)}
}

// SelectActor draws uniformly at random from the pool matching the role
// category. Guest and unknown categories yield the anonymous identity.
func (r *DirectoryResolver) SelectActor(_ context.Context, role cases.RoleCategory) (Identity, error) {
	var pool []Identity
	switch role {
	case cases.RoleEmployee:
		pool = r.dir.Employees()
	case cases.RoleManager:
		pool = r.dir.Managers()
	case cases.RoleAdmin:
		pool = r.dir.Admins()
	default:
		return Anonymous(), nil
	}
	if len(pool) == 0 {
		return Identity{}, fmt.Errorf("%w: role %s", ErrEmptyPool, role)
	}
	return pool[r.rng.Intn(len(pool))], nil
}

// SelectTarget resolves which record the case addresses. Mode self returns
// the actor; mode other returns a random employee that is not the actor
// (an anonymous actor gets the fixed invalid id instead, so unauthorized
// requests still have a concrete path to hit); no mode means a
// collection-level endpoint with no target.
func (r *DirectoryResolver) SelectTarget(_ context.Context, actor Identity, mode cases.AccessMode) (*Identity, error) {
	switch mode {
	case cases.AccessSelf:
		return &actor, nil
	case cases.AccessOther:
		if actor.IsAnonymous() {
			return &Identity{UserID: InvalidUserID}, nil
		}
		var eligible []Identity
		for _, e := range r.dir.Employees() {
			if e.UserID != actor.UserID {
				eligible = append(eligible, e)
			}
		}
		if len(eligible) == 0 {
			return nil, ErrNoEligibleTarget
		}
		pick := eligible[r.rng.Intn(len(eligible))]
		return &pick, nil
	default:
		return nil, nil
	}
}

// StoreResolver selects identities by sampling valid record ids from the
// backing store, for runs where test data is DB-seeded rather than
// file-seeded. Every sampled identity authenticates with the fixed default
// password the seeder assigns.
type StoreResolver struct {
	store    *oracle.Client
	password string
	rng      *rand.Rand
}

// NewStoreResolver returns a resolver backed by the reference oracle.
func NewStoreResolver(store *oracle.Client, defaultPassword string, opts ...ResolverOption) *StoreResolver {
	return &StoreResolver{
		store:    store,
		password: defaultPassword,
		rng:      newRand(opts),
	}
}

func (r *StoreResolver) sample(ctx context.Context, exclude string) (*Identity, error) {
	ids, err := r.store.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("sampling store ids: %w", err)
	}
	eligible := ids[:0]
	for _, id := range ids {
		if id != exclude {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleTarget
	}
	id := eligible[r.rng.Intn(len(eligible))]
	return &Identity{UserID: id, Password: r.password}, nil
}

// SelectActor samples any valid record id for non-guest categories.
func (r *StoreResolver) SelectActor(ctx context.Context, role cases.RoleCategory) (Identity, error) {
	if role == cases.RoleGuest || !role.Known() {
		return Anonymous(), nil
	}
	ident, err := r.sample(ctx, "")
	if err != nil {
		if errors.Is(err, ErrNoEligibleTarget) {
			return Identity{}, fmt.Errorf("%w: store has no records", ErrEmptyPool)
		}
		return Identity{}, err
	}
	return *ident, nil
}

// SelectTarget mirrors the directory resolver's semantics against the store.
func (r *StoreResolver) SelectTarget(ctx context.Context, actor Identity, mode cases.AccessMode) (*Identity, error) {
	switch mode {
	case cases.AccessSelf:
		return &actor, nil
	case cases.AccessOther:
		if actor.IsAnonymous() {
			return &Identity{UserID: InvalidUserID}, nil
		}
		return r.sample(ctx, actor.UserID)
	default:
		return nil, nil
	}
}
