// Package store persists extracted articles so repeated scrape runs skip
// publishers that were already fetched.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Article is a cached extraction keyed by normalized URL.
type Article struct {
	URL       string
	Publisher string
	Title     string
	Body      string
	FetchedAt time.Time
	ExpiresAt time.Time
}

// SQLiteStore implements the article cache using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS articles (
	url        TEXT PRIMARY KEY,
	publisher  TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_expires_at ON articles(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetArticle returns the unexpired article cached for url, or nil when there
// is none.
func (s *SQLiteStore) GetArticle(ctx context.Context, url string) (*Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT url, publisher, title, body, fetched_at, expires_at FROM articles
		 WHERE url = ? AND expires_at > ?`,
		url, s.now().UTC().Unix(),
	)

	var a Article
	var fetchedAt, expiresAt int64
	err := row.Scan(&a.URL, &a.Publisher, &a.Title, &a.Body, &fetchedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get article %s", url)
	}
	a.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	a.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &a, nil
}

// PutArticle stores a, replacing any previous entry for the same URL.
func (s *SQLiteStore) PutArticle(ctx context.Context, a Article, ttl time.Duration) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (url, publisher, title, body, fetched_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			publisher = excluded.publisher,
			title = excluded.title,
			body = excluded.body,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		a.URL, a.Publisher, a.Title, a.Body, now.Unix(), now.Add(ttl).Unix(),
	)
	return eris.Wrapf(err, "sqlite: put article %s", a.URL)
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE expires_at <= ?`, s.now().UTC().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired articles")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
