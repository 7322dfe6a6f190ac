package cases

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ResourceDirEnv overrides the resource search directory (CI-friendly).
const ResourceDirEnv = "RESOURCE_DIR"

// conventionalResourceDir is where the system under test keeps its test
// resources relative to the project root.
const conventionalResourceDir = "src/test/resources"

// ErrResourceNotFound is returned when a definition file cannot be located
// anywhere in the search chain.
var ErrResourceNotFound = errors.New("resource not found")

// Store loads case collections and identity directories from a resource
// directory located once at construction time.
type Store struct {
	dir  string
	logf func(format string, args ...any)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithResourceDir pins the resource directory, bypassing the search chain.
func WithResourceDir(dir string) StoreOption {
	return func(s *Store) {
		s.dir = dir
	}
}

// WithLogf replaces the decode-error logger (stderr by default).
func WithLogf(logf func(format string, args ...any)) StoreOption {
	return func(s *Store) {
		s.logf = logf
	}
}

// NewStore locates the resource directory and returns a store bound to it.
// The chain is: RESOURCE_DIR env override, then src/test/resources relative
// to the working directory, then an upward walk from the working directory.
func NewStore(opts ...StoreOption) (*Store, error) {
	s := &Store{
		logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dir == "" {
		dir, err := SearchDir()
		if err != nil {
			return nil, err
		}
		s.dir = dir
	}
	return s, nil
}

// Dir returns the resource directory the store is bound to.
func (s *Store) Dir() string {
	return s.dir
}

// SearchDir resolves the resource directory using the search chain.
func SearchDir() (string, error) {
	if env := os.Getenv(ResourceDirEnv); env != "" {
		if info, err := os.Stat(env); err == nil && info.IsDir() {
			return env, nil
		}
	}

	if info, err := os.Stat(conventionalResourceDir); err == nil && info.IsDir() {
		return filepath.Abs(conventionalResourceDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "src", "test", "resources")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			break
		}
	}

	return "", fmt.Errorf("%w: could not locate %s (set %s to override)",
		ErrResourceNotFound, conventionalResourceDir, ResourceDirEnv)
}

// Find returns the first file matching name anywhere under the resource
// directory, or ErrResourceNotFound.
func (s *Store) Find(name string) (string, error) {
	base := filepath.Base(name)
	var match string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == base {
			match = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s in %s", ErrResourceNotFound, base, s.dir)
	}
	return match, nil
}

// Load reads a named case definition file. A missing file is an error;
// malformed JSON degrades to an empty collection with a logged decode error
// so a bad file yields zero cases instead of aborting the whole run.
// Repeated loads of the same file return equal data.
func (s *Store) Load(name string) (*Collection, error) {
	path, err := s.Find(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	col := &Collection{Name: name}

	// Flat array form first, then method-keyed object form.
	var flat []TestCase
	if err := json.Unmarshal(data, &flat); err == nil {
		col.flat = flat
		return s.validated(col), nil
	}

	var keyed map[string][]TestCase
	if err := json.Unmarshal(data, &keyed); err != nil {
		s.logf("warning: decoding %s: %v", path, err)
		col.flat = []TestCase{}
		return col, nil
	}

	col.groups = make(map[Method][]TestCase, len(keyed))
	for _, m := range []Method{GET, POST, PUT, DELETE} {
		if group, ok := keyed[string(m)]; ok {
			for i := range group {
				if group[i].Method == "" {
					group[i].Method = m
				}
			}
			col.groups[m] = group
			col.order = append(col.order, m)
		}
	}
	return s.validated(col), nil
}

// validated drops cases that fail load-time validation, logging each one.
func (s *Store) validated(col *Collection) *Collection {
	keep := func(group []TestCase) []TestCase {
		out := group[:0]
		for i := range group {
			if err := group[i].Validate(); err != nil {
				s.logf("warning: dropping invalid case in %s: %v", col.Name, err)
				continue
			}
			out = append(out, group[i])
		}
		return out
	}
	if col.flat != nil {
		col.flat = keep(col.flat)
		return col
	}
	for m, group := range col.groups {
		col.groups[m] = keep(group)
	}
	return col
}
