// Package filestore implements the scope-partitioned, file-backed rule
// store: one YAML document per scope, a per-path in-process mutex plus an
// OS-level advisory flock guarding each I/O operation, atomic
// tmp-then-fsync-then-rename writes, and a backup/restore pair that
// re-parses and re-serialises documents rather than copying bytes.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rulecore/rulecore/internal/rules"
)

const probeFileName = ".health_check"

// Store is a durable rules.Store backed by per-scope YAML documents under
// a configured directory.
type Store struct {
	dir    string
	logger *slog.Logger

	locksMu sync.Mutex
	locks   map[rules.Scope]*sync.Mutex
}

// New returns a Store rooted at dir. The directory must already exist.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, logger: logger, locks: make(map[rules.Scope]*sync.Mutex)}
	for _, scope := range rules.Scopes() {
		s.locks[scope] = &sync.Mutex{}
	}
	return s
}

func (s *Store) docPath(scope rules.Scope) string {
	return filepath.Join(s.dir, string(scope)+".yaml")
}

func (s *Store) lockFor(scope rules.Scope) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[scope]
	if !ok {
		m = &sync.Mutex{}
		s.locks[scope] = m
	}
	return m
}

// Load returns the RuleSet for scope, or an empty RuleSet if the document
// does not exist.
func (s *Store) Load(_ context.Context, scope rules.Scope) (rules.RuleSet, error) {
	mu := s.lockFor(scope)
	mu.Lock()
	defer mu.Unlock()
	return s.loadLocked(scope)
}

// loadLocked must be called with the scope's in-process mutex held.
func (s *Store) loadLocked(scope rules.Scope) (rules.RuleSet, error) {
	path := s.docPath(scope)
	lockPath := path + ".lock"
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return rules.RuleSet{}, rules.NewStorageLockError(err.Error())
	}
	defer lf.Close()

	if err := flockShared(lf.Fd()); err != nil {
		return rules.RuleSet{}, rules.NewStorageLockError(err.Error())
	}
	defer flockUnlock(lf.Fd())

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules.NewRuleSet(scope), nil
		}
		return rules.RuleSet{}, rules.NewUnexpectedError(fmt.Sprintf("open %s: %v", path, err))
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var rs rules.RuleSet
	if err := dec.Decode(&rs); err != nil {
		return rules.RuleSet{}, rules.NewUnexpectedError(fmt.Sprintf("parse %s: %v", path, err))
	}
	if rs.Scope == "" {
		rs.Scope = scope
	}
	return rs, nil
}

// Save overwrites scope's document, stamping created_at on rules missing it
// and refreshing updated_at on every rule.
func (s *Store) Save(_ context.Context, rs rules.RuleSet) error {
	mu := s.lockFor(rs.Scope)
	mu.Lock()
	defer mu.Unlock()
	return s.saveLocked(rs)
}

// saveLocked must be called with the scope's in-process mutex held.
func (s *Store) saveLocked(rs rules.RuleSet) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range rs.Rules {
		if rs.Rules[i].CreatedAt == "" {
			rs.Rules[i].CreatedAt = now
		}
		rs.Rules[i].UpdatedAt = now
	}

	path := s.docPath(rs.Scope)
	lockPath := path + ".lock"
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return rules.NewStorageLockError(err.Error())
	}
	defer lf.Close()

	if err := flockExclusive(lf.Fd()); err != nil {
		return rules.NewStorageLockError(err.Error())
	}
	defer flockUnlock(lf.Fd())

	if cur, readErr := os.ReadFile(path); readErr == nil {
		if writeErr := os.WriteFile(path+".bak", cur, 0o600); writeErr != nil {
			s.logger.Warn("failed to write rule document backup", "path", path, "error", writeErr)
		}
	}

	data, err := yaml.Marshal(rs)
	if err != nil {
		return rules.NewUnexpectedError(fmt.Sprintf("marshal ruleset: %v", err))
	}
	if err := writeAtomic(path, data); err != nil {
		return rules.NewUnexpectedError(err.Error())
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Get searches scope (or, if empty, all scopes in hierarchy order) for a
// rule named name.
func (s *Store) Get(ctx context.Context, name string, scope rules.Scope) (rules.Rule, error) {
	scopesToSearch := rules.Scopes()
	if scope != "" {
		scopesToSearch = []rules.Scope{scope}
	}
	for _, sc := range scopesToSearch {
		rs, err := s.Load(ctx, sc)
		if err != nil {
			return rules.Rule{}, err
		}
		for _, r := range rs.Rules {
			if r.Name == name {
				return r, nil
			}
		}
	}
	return rules.Rule{}, rules.NewRuleNotFoundError(name, scope)
}

// Add inserts r, failing if a rule of the same name already exists in
// r.Scope.
func (s *Store) Add(ctx context.Context, r rules.Rule) (rules.Rule, error) {
	mu := s.lockFor(r.Scope)
	mu.Lock()
	defer mu.Unlock()

	rs, err := s.loadLocked(r.Scope)
	if err != nil {
		return rules.Rule{}, err
	}
	for _, existing := range rs.Rules {
		if existing.Name == r.Name {
			return rules.Rule{}, &rules.ErrRuleExists{Name: r.Name, Scope: r.Scope}
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	r.CreatedAt = now
	r.UpdatedAt = now
	rs.Rules = append(rs.Rules, r)
	if err := s.saveLocked(rs); err != nil {
		return rules.Rule{}, err
	}
	return r, nil
}

// Update replaces the rule named r.Name in r.Scope, preserving CreatedAt.
func (s *Store) Update(ctx context.Context, r rules.Rule) (rules.Rule, error) {
	mu := s.lockFor(r.Scope)
	mu.Lock()
	defer mu.Unlock()

	rs, err := s.loadLocked(r.Scope)
	if err != nil {
		return rules.Rule{}, err
	}
	idx := -1
	for i, existing := range rs.Rules {
		if existing.Name == r.Name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return rules.Rule{}, rules.NewRuleNotFoundError(r.Name, r.Scope)
	}
	r.CreatedAt = rs.Rules[idx].CreatedAt
	r.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	rs.Rules[idx] = r
	if err := s.saveLocked(rs); err != nil {
		return rules.Rule{}, err
	}
	return r, nil
}

// Delete removes the rule named name from scope, reporting whether one was
// removed.
func (s *Store) Delete(ctx context.Context, name string, scope rules.Scope) (bool, error) {
	mu := s.lockFor(scope)
	mu.Lock()
	defer mu.Unlock()

	rs, err := s.loadLocked(scope)
	if err != nil {
		return false, err
	}
	idx := -1
	for i, existing := range rs.Rules {
		if existing.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}
	rs.Rules = append(rs.Rules[:idx], rs.Rules[idx+1:]...)
	if err := s.saveLocked(rs); err != nil {
		return false, err
	}
	return true, nil
}

// List enumerates rules, scoped or (scope == "") across all scopes.
func (s *Store) List(ctx context.Context, scope rules.Scope) ([]rules.Rule, error) {
	scopesToSearch := rules.Scopes()
	if scope != "" {
		scopesToSearch = []rules.Scope{scope}
	}
	var out []rules.Rule
	for _, sc := range scopesToSearch {
		rs, err := s.Load(ctx, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, rs.Rules...)
	}
	return out, nil
}

// Backup re-parses and re-serialises every scope document into dir.
func (s *Store) Backup(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rules.NewUnexpectedError(err.Error())
	}
	for _, scope := range rules.Scopes() {
		rs, err := s.Load(ctx, scope)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(rs)
		if err != nil {
			return rules.NewUnexpectedError(err.Error())
		}
		if err := writeAtomic(filepath.Join(dir, string(scope)+".yaml"), data); err != nil {
			return rules.NewUnexpectedError(err.Error())
		}
	}
	return nil
}

// Restore re-parses every scope document found in dir and re-serialises it
// back into the store (not a byte-for-byte copy).
func (s *Store) Restore(ctx context.Context, dir string) error {
	for _, scope := range rules.Scopes() {
		path := filepath.Join(dir, string(scope)+".yaml")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return rules.NewUnexpectedError(err.Error())
		}
		var rs rules.RuleSet
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rs); err != nil {
			return rules.NewUnexpectedError(fmt.Sprintf("parse backup %s: %v", path, err))
		}
		if rs.Scope == "" {
			rs.Scope = scope
		}
		if err := s.Save(ctx, rs); err != nil {
			return err
		}
	}
	return nil
}

// Health succeeds iff the rules directory is readable and writable, probed
// by creating and deleting a marker file.
func (s *Store) Health(_ context.Context) (bool, error) {
	probe := filepath.Join(s.dir, probeFileName)
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return false, nil
	}
	_ = os.Remove(probe)
	return true, nil
}

var _ rules.Store = (*Store)(nil)
