package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ayusman/coacht/internal/library"
)

// SignatureRepository persists trained pose signatures.
type SignatureRepository struct {
	db *sql.DB
}

// Signatures returns the signature repository for this store.
func (s *Store) Signatures() *SignatureRepository {
	return &SignatureRepository{db: s.db}
}

// Put stores or replaces a signature under the given name.
func (r *SignatureRepository) Put(name string, sig library.Signature) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO signatures (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, string(data), time.Now(),
	)
	return err
}

// Get retrieves a signature by name.
func (r *SignatureRepository) Get(name string) (library.Signature, error) {
	var data string
	err := r.db.QueryRow(`SELECT data FROM signatures WHERE name = ?`, name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return library.Signature{}, ErrNotFound
		}
		return library.Signature{}, err
	}

	var sig library.Signature
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return library.Signature{}, err
	}
	return sig, nil
}

// List retrieves all stored signatures keyed by name.
func (r *SignatureRepository) List() (map[string]library.Signature, error) {
	rows, err := r.db.Query(`SELECT name, data FROM signatures ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signatures := make(map[string]library.Signature)
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		var sig library.Signature
		if err := json.Unmarshal([]byte(data), &sig); err != nil {
			return nil, err
		}
		signatures[name] = sig
	}

	return signatures, rows.Err()
}

// LoadInto replaces the signatures in the given library with the stored
// ones. Built-in signatures not overridden in the database are kept.
func (r *SignatureRepository) LoadInto(lib *library.Library) error {
	signatures, err := r.List()
	if err != nil {
		return err
	}
	for name, sig := range signatures {
		lib.Put(name, sig)
	}
	return nil
}
