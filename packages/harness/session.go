// Package harness wires the engine together: one session per run, a
// sequential runner per case collection, and the readiness waits around
// them.
package harness

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/config"
	"github.com/amblessed/employees-harness/packages/httpexec"
	"github.com/amblessed/employees-harness/packages/identity"
	"github.com/amblessed/employees-harness/packages/oracle"
	"github.com/amblessed/employees-harness/packages/placeholder"
	"github.com/amblessed/employees-harness/packages/validate"
)

// IdentityFileName is the seeded identity directory the system under test
// writes on boot.
const IdentityFileName = "user_details.json"

// Session is the per-run context threaded into every case execution.
// Built once, passed explicitly; there is no ambient global state.
type Session struct {
	ID           string
	Config       *config.Config
	Cases        *cases.Store
	Identities   identity.Resolver
	Placeholders *placeholder.Resolver
	Client       *httpexec.Client
	Validator    *validate.Validator
	Oracle       *oracle.Client
	StartedAt    time.Time
}

// NewSession builds the run context. Identity resolution prefers the
// seeded directory file; when the directory is absent but a database is
// configured, identities are sampled from the store instead.
func NewSession(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var storeOpts []cases.StoreOption
	if cfg.ResourceDir != "" {
		storeOpts = append(storeOpts, cases.WithResourceDir(cfg.ResourceDir))
	}
	caseStore, err := cases.NewStore(storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("locating resources: %w", err)
	}

	var db *oracle.Client
	if cfg.DatabaseURL != "" {
		db, err = oracle.NewClient(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to backing store: %w", err)
		}
	}

	var resolverOpts []identity.ResolverOption
	var placeholderOpts []placeholder.Option
	if cfg.Seed != 0 {
		resolverOpts = append(resolverOpts, identity.WithRand(seededRand(cfg.Seed)))
		placeholderOpts = append(placeholderOpts, placeholder.WithSeed(cfg.Seed))
	}
	if db != nil {
		placeholderOpts = append(placeholderOpts, placeholder.WithOracle(db))
	}

	var identities identity.Resolver
	if path, err := caseStore.Find(IdentityFileName); err == nil {
		dir, err := identity.LoadDirectory(path)
		if err != nil {
			closeQuietly(db)
			return nil, fmt.Errorf("loading identity directory: %w", err)
		}
		identities = identity.NewDirectoryResolver(dir, resolverOpts...)
	} else if db != nil {
		identities = identity.NewStoreResolver(db, cfg.DefaultPassword, resolverOpts...)
	} else {
		closeQuietly(db)
		return nil, fmt.Errorf("no identity source: %s not found and no database configured", IdentityFileName)
	}

	clientOpts := []httpexec.ClientOption{}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, httpexec.WithTimeout(time.Duration(cfg.Timeout)*time.Millisecond))
	}
	if cfg.RateLimit > 0 {
		clientOpts = append(clientOpts, httpexec.WithRateLimit(cfg.RateLimit))
	}

	return &Session{
		ID:           uuid.New().String(),
		Config:       cfg,
		Cases:        caseStore,
		Identities:   identities,
		Placeholders: placeholder.NewResolver(placeholderOpts...),
		Client:       httpexec.NewClient(clientOpts...),
		Validator:    validate.NewValidator(validate.WithSchemaDir(caseStore.Dir())),
		Oracle:       db,
		StartedAt:    time.Now(),
	}, nil
}

// Close releases the session's database pool, if any.
func (s *Session) Close() error {
	if s.Oracle != nil {
		return s.Oracle.Close()
	}
	return nil
}

func closeQuietly(db *oracle.Client) {
	if db != nil {
		_ = db.Close()
	}
}
