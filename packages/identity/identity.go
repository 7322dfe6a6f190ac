// Package identity selects the credentialed actors and targets for
// role-based authorization cases. Identities come from the seeded identity
// directory the system under test writes on boot, or from valid record ids
// sampled straight from the backing store.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Role strings as written by the seeder.
const (
	RoleEmployee = "ROLE_EMPLOYEE"
	RoleManager  = "ROLE_MANAGER"
	RoleAdmin    = "ROLE_ADMIN"
)

// InvalidUserID is a syntactically plausible id that the seeder never
// allocates, used to provoke not-found responses.
const InvalidUserID = "AAABBBCCC"

// Identity is one credentialed directory entry.
type Identity struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	Password string `json:"password"`
	Email    string `json:"email"`

	anonymous bool
}

// Anonymous returns the sentinel identity for guest/unknown actors: a
// request with no usable credentials.
func Anonymous() Identity {
	return Identity{UserID: "guest", anonymous: true}
}

// IsAnonymous reports whether this is the guest sentinel. Keyed on the
// sentinel itself, not on an empty password: a directory entry with a
// blank password still authenticates, with a blank secret.
func (i Identity) IsAnonymous() bool {
	return i.anonymous
}

// Directory is a read-only snapshot of the identity source, partitioned by
// role into disjoint pools. Loaded once per session and never mutated.
type Directory struct {
	employees []Identity
	managers  []Identity
	admins    []Identity
}

// directoryEntry is the file form: the user id is the object key.
type directoryEntry struct {
	Role     string `json:"role"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoadDirectory reads a JSON identity directory keyed by user id and
// partitions the entries into role pools. Anything that is not an employee
// or a manager lands in the admin pool; that default comes from the source
// system, so unrecognized role strings are logged rather than rejected.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]directoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding identity directory %s: %w", path, err)
	}

	// Sort ids for a deterministic pool order; selection is randomized later.
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	dir := &Directory{}
	for _, id := range ids {
		entry := entries[id]
		ident := Identity{
			UserID:   id,
			Role:     entry.Role,
			Password: entry.Password,
			Email:    entry.Email,
		}
		switch entry.Role {
		case RoleEmployee:
			dir.employees = append(dir.employees, ident)
		case RoleManager:
			dir.managers = append(dir.managers, ident)
		default:
			if entry.Role != RoleAdmin {
				fmt.Fprintf(os.Stderr,
					"warning: identity %s has unrecognized role %q, treating as admin\n",
					id, entry.Role)
			}
			dir.admins = append(dir.admins, ident)
		}
	}
	return dir, nil
}

// Employees returns the employee pool.
func (d *Directory) Employees() []Identity { return d.employees }

// Managers returns the manager pool.
func (d *Directory) Managers() []Identity { return d.managers }

// Admins returns the admin pool, including any identity whose role string
// was not recognized.
func (d *Directory) Admins() []Identity { return d.admins }

// Len returns the total number of identities across all pools.
func (d *Directory) Len() int {
	return len(d.employees) + len(d.managers) + len(d.admins)
}
