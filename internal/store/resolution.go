package store

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/researchgraph/crossref/pkg/crossref"
)

const insertAuthorSQL = `
	INSERT INTO doi_author (resolution_id, first_name, last_name, full_name, orcid)
	VALUES ($1, $2, $3, $4, $5)`

// Authority returns the cached registration agency for a DOI, or "" when the
// DOI has not been looked up yet.
func (db *DB) Authority(ctx context.Context, doi string) (string, error) {
	var authority string
	err := db.conn.QueryRow(ctx,
		`SELECT authority FROM doi_authority WHERE doi = $1`, doi,
	).Scan(&authority)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("selecting authority: %w", err)
	}
	return authority, nil
}

func (db *DB) SaveAuthority(ctx context.Context, doi, authority string) error {
	_, err := db.conn.Exec(ctx,
		`INSERT INTO doi_authority (doi, authority) VALUES ($1, $2)
		 ON CONFLICT (doi) DO NOTHING`, doi, authority)
	if err != nil {
		return fmt.Errorf("inserting authority: %w", err)
	}
	return nil
}

// UnresolvedIdentifiers returns every queued identifier lacking a resolved
// timestamp, in queue order.
func (db *DB) UnresolvedIdentifiers(ctx context.Context) ([]Identifier, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT id, doi FROM doi_resolution WHERE resolved IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("selecting unresolved identifiers: %w", err)
	}
	defer rows.Close()

	var identifiers []Identifier
	for rows.Next() {
		var ident Identifier
		if err := rows.Scan(&ident.ID, &ident.DOI); err != nil {
			return nil, fmt.Errorf("scanning identifier: %w", err)
		}
		identifiers = append(identifiers, ident)
	}
	return identifiers, rows.Err()
}

// SaveResolution writes the resolved metadata and author rows for a queued
// identifier and stamps it resolved, in one transaction.
func (db *DB) SaveResolution(ctx context.Context, id int64, work *crossref.StoredWork) error {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning resolution transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE doi_resolution SET url = $2, title = $3, year = $4, resolved = now()
		 WHERE id = $1`, id, work.URL, work.Title, work.Year)
	if err != nil {
		return fmt.Errorf("updating resolution: %w", err)
	}

	for _, author := range work.Authors {
		_, err = tx.Exec(ctx, insertAuthorSQL,
			id, author.FirstName, author.LastName, author.FullName, author.ORCID)
		if err != nil {
			return fmt.Errorf("inserting author: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (db *DB) MarkResolved(ctx context.Context, id int64) error {
	_, err := db.conn.Exec(ctx,
		`UPDATE doi_resolution SET resolved = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("marking resolution: %w", err)
	}
	return nil
}

// Work rebuilds a previously resolved work, including its author rows.
// It returns nil when the DOI has no resolved metadata.
func (db *DB) Work(ctx context.Context, doi string) (*crossref.StoredWork, error) {
	work := &crossref.StoredWork{DOI: doi}
	err := db.conn.QueryRow(ctx,
		`SELECT id, url, title, year FROM doi_resolution
		 WHERE doi = $1 AND title IS NOT NULL
		 ORDER BY id LIMIT 1`, doi,
	).Scan(&work.ID, &work.URL, &work.Title, &work.Year)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting work: %w", err)
	}

	rows, err := db.conn.Query(ctx,
		`SELECT first_name, last_name, full_name, orcid FROM doi_author
		 WHERE resolution_id = $1`, work.ID)
	if err != nil {
		return nil, fmt.Errorf("selecting authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var author crossref.StoredAuthor
		if err := rows.Scan(&author.FirstName, &author.LastName, &author.FullName, &author.ORCID); err != nil {
			return nil, fmt.Errorf("scanning author: %w", err)
		}
		work.Authors = append(work.Authors, author)
	}
	return work, rows.Err()
}

// SaveWork inserts a freshly resolved work encountered outside the queue
// (reference scanning), with its author rows, in one transaction.
func (db *DB) SaveWork(ctx context.Context, work *crossref.StoredWork) (int64, error) {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning work transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO doi_resolution (doi, url, title, year, resolved)
		 VALUES ($1, $2, $3, $4, now()) RETURNING id`,
		work.DOI, work.URL, work.Title, work.Year,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting work: %w", err)
	}

	for _, author := range work.Authors {
		_, err = tx.Exec(ctx, insertAuthorSQL,
			id, author.FirstName, author.LastName, author.FullName, author.ORCID)
		if err != nil {
			return 0, fmt.Errorf("inserting author: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}
