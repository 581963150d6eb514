package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/runcost/internal/ir"
)

// ErrNotFound is returned when no spec is stored under a name.
var ErrNotFound = errors.New("series spec not found")

// Record is a stored series spec.
type Record struct {
	ID            string
	Name          string
	ContentHash   string
	Spec          ir.SeriesSpec
	SpecVersion   string
	EngineVersion string
	Seq           int64
}

// Revision is one distinct version of a spec saved under a name.
type Revision struct {
	ID          string
	ContentHash string
	Spec        ir.SeriesSpec
	Seq         int64
}

// Save stores spec under spec.Name, replacing any previous spec.
// Saving a spec whose content hash matches the stored one is a no-op;
// changed reports whether anything was written.
func (s *Store) Save(ctx context.Context, spec ir.SeriesSpec) (rec Record, changed bool, err error) {
	if strings.TrimSpace(spec.Name) == "" {
		return Record{}, false, fmt.Errorf("save spec: name is required")
	}

	data, hash, err := marshalSpec(spec)
	if err != nil {
		return Record{}, false, fmt.Errorf("save spec %q: %w", spec.Name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, fmt.Errorf("save spec %q: begin: %w", spec.Name, err)
	}
	defer tx.Rollback()

	existing, err := getRecord(ctx, tx, spec.Name)
	switch {
	case err == nil && existing.ContentHash == hash:
		return existing, false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Record{}, false, fmt.Errorf("save spec %q: %w", spec.Name, err)
	}

	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return Record{}, false, fmt.Errorf("save spec %q: %w", spec.Name, err)
	}

	id := existing.ID
	if id == "" {
		id = s.idGen.Generate()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series_specs
		(id, name, content_hash, spec, spec_version, engine_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			content_hash = excluded.content_hash,
			spec = excluded.spec,
			spec_version = excluded.spec_version,
			engine_version = excluded.engine_version,
			seq = excluded.seq
	`, id, spec.Name, hash, data, ir.SpecVersion, ir.EngineVersion, seq)
	if err != nil {
		return Record{}, false, fmt.Errorf("save spec %q: %w", spec.Name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO spec_revisions (id, spec_id, content_hash, spec, seq)
		VALUES (?, ?, ?, ?, ?)
	`, s.idGen.Generate(), id, hash, data, seq)
	if err != nil {
		return Record{}, false, fmt.Errorf("save spec %q: revision: %w", spec.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, fmt.Errorf("save spec %q: commit: %w", spec.Name, err)
	}

	stored, err := unmarshalSpec(data)
	if err != nil {
		return Record{}, false, err
	}
	return Record{
		ID:            id,
		Name:          spec.Name,
		ContentHash:   hash,
		Spec:          stored,
		SpecVersion:   ir.SpecVersion,
		EngineVersion: ir.EngineVersion,
		Seq:           seq,
	}, true, nil
}

// Get returns the spec stored under name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	return getRecord(ctx, s.db, name)
}

// List returns all stored specs ordered by name (binary collation).
// Returns an empty slice (not nil) when the library is empty.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, content_hash, spec, spec_version, engine_version, seq
		FROM series_specs
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query specs: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate specs: %w", err)
	}
	return records, nil
}

// Delete removes the spec stored under name and its revisions.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM series_specs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete spec %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete spec %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete spec %q: %w", name, ErrNotFound)
	}
	return nil
}

// Revisions returns every distinct spec saved under name, oldest first.
func (s *Store) Revisions(ctx context.Context, name string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.content_hash, r.spec, r.seq
		FROM spec_revisions r
		JOIN series_specs s ON r.spec_id = s.id
		WHERE s.name = ?
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var rev Revision
		var data string
		if err := rows.Scan(&rev.ID, &rev.ContentHash, &data, &rev.Seq); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		if rev.Spec, err = unmarshalSpec(data); err != nil {
			return nil, err
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("revisions of %q: %w", name, ErrNotFound)
	}
	return revisions, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryer, name string) (Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, content_hash, spec, spec_version, engine_version, seq
		FROM series_specs
		WHERE name = ?
	`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var data string
	err := row.Scan(&rec.ID, &rec.Name, &rec.ContentHash, &data, &rec.SpecVersion, &rec.EngineVersion, &rec.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan spec: %w", err)
	}
	if rec.Spec, err = unmarshalSpec(data); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM spec_revisions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}
