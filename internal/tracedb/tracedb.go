// Package tracedb stores the cross-reference result of a build in a SQLite
// database so requirement coverage can be queried after the fact.
package tracedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	apperrors "github.com/FocuswithJustin/blueprint/core/errors"
	"github.com/FocuswithJustin/blueprint/core/sqlite"
	"github.com/FocuswithJustin/blueprint/core/xref"
)

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE pages (
	name     TEXT PRIMARY KEY,
	sections INTEGER NOT NULL
);
CREATE TABLE requirements (
	name     TEXT PRIMARY KEY,
	document TEXT NOT NULL,
	heading  TEXT NOT NULL,
	rank     INTEGER NOT NULL
);
CREATE TABLE claims (
	seq         INTEGER PRIMARY KEY,
	requirement TEXT NOT NULL REFERENCES requirements(name),
	document    TEXT NOT NULL,
	heading     TEXT NOT NULL
);
CREATE TABLE duplicates (
	seq                  INTEGER PRIMARY KEY,
	requirement          TEXT NOT NULL,
	replaced_document    TEXT NOT NULL,
	replaced_heading     TEXT NOT NULL,
	replacement_document TEXT NOT NULL,
	replacement_heading  TEXT NOT NULL
);
CREATE TABLE dangling (
	seq      INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	document TEXT NOT NULL,
	heading  TEXT NOT NULL
);
CREATE INDEX claims_requirement ON claims(requirement);
`

// Stats summarizes a stored build.
type Stats struct {
	BuildID      string
	Pages        int
	Requirements int
	Claimed      int
	Claims       int
	Duplicates   int
	Dangling     int
}

// Write replaces the database at path with the contents of res.
func Write(ctx context.Context, path, buildID string, res *xref.Result) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewIO("remove", path, err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return apperrors.NewIO("open", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := insert(ctx, tx, buildID, res); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, buildID string, res *xref.Result) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('build_id', ?)`, buildID); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	for _, name := range res.PageNames() {
		n := len(res.Pages[name].Sections())
		if _, err := tx.ExecContext(ctx, `INSERT INTO pages (name, sections) VALUES (?, ?)`, name, n); err != nil {
			return fmt.Errorf("insert page %s: %w", name, err)
		}
	}

	for _, name := range res.RequirementNames() {
		req := res.Requirements[name]
		o := req.Origin()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO requirements (name, document, heading, rank) VALUES (?, ?, ?, ?)`,
			name, o.Document, o.Heading, o.Rank); err != nil {
			return fmt.Errorf("insert requirement %s: %w", name, err)
		}
		for _, c := range req.ClaimedBy {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO claims (requirement, document, heading) VALUES (?, ?, ?)`,
				name, c.Document, c.Heading); err != nil {
				return fmt.Errorf("insert claim on %s: %w", name, err)
			}
		}
	}

	for _, d := range res.Duplicates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO duplicates (requirement, replaced_document, replaced_heading, replacement_document, replacement_heading) VALUES (?, ?, ?, ?, ?)`,
			d.Name, d.Replaced.Document, d.Replaced.Heading, d.Replacement.Document, d.Replacement.Heading); err != nil {
			return fmt.Errorf("insert duplicate %s: %w", d.Name, err)
		}
	}

	for _, c := range res.Dangling {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dangling (name, document, heading) VALUES (?, ?, ?)`,
			c.Name, c.Origin.Document, c.Origin.Heading); err != nil {
			return fmt.Errorf("insert dangling %s: %w", c.Name, err)
		}
	}
	return nil
}

// DB is a read-only handle on a stored build.
type DB struct {
	db *sql.DB
}

// Open opens an existing trace database read-only.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Stats counts the stored rows.
func (d *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'build_id'`).Scan(&s.BuildID); err != nil {
		return s, fmt.Errorf("read build id: %w", err)
	}
	counts := []struct {
		dst   *int
		query string
	}{
		{&s.Pages, `SELECT COUNT(*) FROM pages`},
		{&s.Requirements, `SELECT COUNT(*) FROM requirements`},
		{&s.Claimed, `SELECT COUNT(DISTINCT requirement) FROM claims`},
		{&s.Claims, `SELECT COUNT(*) FROM claims`},
		{&s.Duplicates, `SELECT COUNT(*) FROM duplicates`},
		{&s.Dangling, `SELECT COUNT(*) FROM dangling`},
	}
	for _, c := range counts {
		if err := d.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return s, fmt.Errorf("count: %w", err)
		}
	}
	return s, nil
}

// Unclaimed returns the requirements no section satisfies, sorted by name.
func (d *DB) Unclaimed(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT r.name FROM requirements r
		WHERE NOT EXISTS (SELECT 1 FROM claims c WHERE c.requirement = r.name)
		ORDER BY r.name`)
	if err != nil {
		return nil, fmt.Errorf("query unclaimed: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ClaimsOf returns the sections satisfying a requirement, in traversal order.
func (d *DB) ClaimsOf(ctx context.Context, requirement string) ([]xref.Origin, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT document, heading FROM claims WHERE requirement = ? ORDER BY seq`, requirement)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var origins []xref.Origin
	for rows.Next() {
		var o xref.Origin
		if err := rows.Scan(&o.Document, &o.Heading); err != nil {
			return nil, err
		}
		origins = append(origins, o)
	}
	return origins, rows.Err()
}
