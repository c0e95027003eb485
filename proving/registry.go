package proving

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/alk0x1/lof/r1cs"
	_ "modernc.org/sqlite"
)

// Registry is a queryable circuit cache: name → content hash,
// constraint count, and key directory. It generalizes the teacher's
// flat-file hash check in LoadOrCompile into a table that an
// orchestrator can consult before deciding whether groth16.Setup needs
// to run again.
type Registry struct {
	db *sql.DB
}

// OpenRegistry opens (creating if necessary) a sqlite-backed registry
// at path.
func OpenRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS circuits (
		name TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		constraints INTEGER NOT NULL,
		key_dir TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database handle.
func (r *Registry) Close() error { return r.db.Close() }

// Entry is one registry row.
type Entry struct {
	Name        string
	ContentHash string
	Constraints int
	KeyDir      string
}

// Lookup returns the registered entry for name, if any.
func (r *Registry) Lookup(name string) (*Entry, bool, error) {
	row := r.db.QueryRow(`SELECT name, content_hash, constraints, key_dir FROM circuits WHERE name = ?`, name)
	var e Entry
	switch err := row.Scan(&e.Name, &e.ContentHash, &e.Constraints, &e.KeyDir); {
	case err == sql.ErrNoRows:
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("lookup %q: %w", name, err)
	}
	return &e, true, nil
}

// Upsert records or updates e.
func (r *Registry) Upsert(e Entry) error {
	_, err := r.db.Exec(`INSERT INTO circuits(name, content_hash, constraints, key_dir) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content_hash=excluded.content_hash, constraints=excluded.constraints, key_dir=excluded.key_dir`,
		e.Name, e.ContentHash, e.Constraints, e.KeyDir)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", e.Name, err)
	}
	return nil
}

// LoadOrCompileWithRegistry consults reg for a cached, hash-matching
// compiled circuit under baseDir before falling back to LoadOrCompile's
// own setup-and-save path, then records the result back into reg.
func LoadOrCompileWithRegistry(sys *r1cs.System, baseDir string, reg *Registry) (*CompiledCircuit, error) {
	data, err := r1cs.Encode(sys)
	if err != nil {
		return nil, fmt.Errorf("encode system for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])
	dir := keyDirFor(baseDir, sys.Name)

	if entry, found, err := reg.Lookup(sys.Name); err == nil && found && entry.ContentHash == contentHash {
		if cc, err := LoadFrom(entry.KeyDir); err == nil {
			cc.Name = sys.Name
			cc.System = sys
			return cc, nil
		}
	}

	cc, err := LoadOrCompile(sys, baseDir)
	if err != nil {
		return nil, err
	}
	if err := reg.Upsert(Entry{Name: sys.Name, ContentHash: contentHash, Constraints: len(sys.Constraints), KeyDir: dir}); err != nil {
		return nil, err
	}
	return cc, nil
}

// keyDirFor returns the on-disk directory a circuit's keys are stored
// under, namespaced by circuit name.
func keyDirFor(baseDir, name string) string {
	return filepath.Join(baseDir, name)
}
