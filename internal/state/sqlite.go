package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codechallenge/internal/challenges"
	"codechallenge/internal/submission"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The jar and the UI write from different goroutines.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if err := s.dropLegacyCookies(ctx); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cookies (
			name TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '/',
			domain TEXT NOT NULL DEFAULT '',
			value TEXT NOT NULL,
			expires_ts TEXT NOT NULL DEFAULT '',
			secure INTEGER NOT NULL DEFAULT 0,
			http_only INTEGER NOT NULL DEFAULT 0,
			updated_ts TEXT NOT NULL,
			PRIMARY KEY (name, path, domain)
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS challenge_cache (
			command TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			tbl TEXT NOT NULL,
			doc TEXT NOT NULL,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			challenge TEXT NOT NULL,
			filename TEXT NOT NULL,
			language TEXT NOT NULL,
			test INTEGER NOT NULL DEFAULT 0,
			is_binary INTEGER NOT NULL DEFAULT 0,
			accepted INTEGER NOT NULL DEFAULT 0,
			score INTEGER NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			ts TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Backfill older schemas that predate submissions.player.
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE submissions ADD COLUMN player TEXT NOT NULL DEFAULT ''`); err != nil {
		msg := strings.ToLower(err.Error())
		if !strings.Contains(msg, "duplicate column name") {
			return fmt.Errorf("ensure schema alter submissions.player: %w", err)
		}
	}
	return nil
}

// dropLegacyCookies removes a cookies table keyed by name alone. Its rows
// carry no path, so the stored session is dropped and the user logs in again.
func (s *SQLiteStore) dropLegacyCookies(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('cookies')`)
	if err != nil {
		return fmt.Errorf("inspect cookies table: %w", err)
	}
	defer rows.Close()
	var cols int
	hasPath := false
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return err
		}
		cols++
		if col == "path" {
			hasPath = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if cols == 0 || hasPath {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE cookies`); err != nil {
		return fmt.Errorf("drop legacy cookies table: %w", err)
	}
	return nil
}

// SaveCookies replaces the stored cookie set.
func (s *SQLiteStore) SaveCookies(ctx context.Context, cookies []Cookie) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM cookies`); err != nil {
		return err
	}
	for _, c := range cookies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		ts := c.UpdatedTS
		if ts.IsZero() {
			ts = s.now()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		expires := ""
		if !c.Expires.IsZero() {
			expires = c.Expires.UTC().Format(timeLayout)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO cookies(name, path, domain, value, expires_ts, secure, http_only, updated_ts)
			VALUES(?,?,?,?,?,?,?,?)`,
			name, path, c.Domain, c.Value, expires, boolInt(c.Secure), boolInt(c.HttpOnly), ts.UTC().Format(timeLayout),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadCookies(ctx context.Context) ([]Cookie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, path, domain, value, expires_ts, secure, http_only, updated_ts
		FROM cookies ORDER BY name, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Cookie
	for rows.Next() {
		var (
			c                Cookie
			expRaw, tsRaw    string
			secure, httpOnly int
		)
		if err := rows.Scan(&c.Name, &c.Path, &c.Domain, &c.Value, &expRaw, &secure, &httpOnly, &tsRaw); err != nil {
			return nil, err
		}
		c.Secure = secure != 0
		c.HttpOnly = httpOnly != 0
		if expRaw != "" {
			if t, err := time.Parse(timeLayout, expRaw); err == nil {
				c.Expires = t
			}
		}
		if t, err := time.Parse(timeLayout, tsRaw); err == nil {
			c.UpdatedTS = t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) (err error) {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CacheChallenges replaces the cached listing, keeping server order.
func (s *SQLiteStore) CacheChallenges(ctx context.Context, coll challenges.Collection) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM challenge_cache`); err != nil {
		return err
	}
	for i, ch := range coll.Items {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO challenge_cache(command, name, tbl, doc, position) VALUES(?,?,?,?,?)`,
			ch.Command, ch.Name, ch.Table, ch.Doc, i,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadChallenges(ctx context.Context) (challenges.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command, name, tbl, doc
		FROM challenge_cache
		ORDER BY position
	`)
	if err != nil {
		return challenges.Collection{}, err
	}
	defer rows.Close()
	var out challenges.Collection
	for rows.Next() {
		var ch challenges.Challenge
		if err := rows.Scan(&ch.Command, &ch.Name, &ch.Table, &ch.Doc); err != nil {
			return challenges.Collection{}, err
		}
		out.Items = append(out.Items, ch)
	}
	if err := rows.Err(); err != nil {
		return challenges.Collection{}, err
	}
	return out, nil
}

func (s *SQLiteStore) InsertSubmission(ctx context.Context, rec SubmissionRecord) (int64, error) {
	ts := rec.TS
	if ts.IsZero() {
		ts = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions(player, challenge, filename, language, test, is_binary, accepted, score, message, ts)
		VALUES(?,?,?,?,?,?,?,?,?,?)
	`,
		rec.Player,
		rec.Challenge,
		rec.Filename,
		rec.Language,
		boolInt(rec.Test),
		boolInt(rec.Binary),
		boolInt(rec.Accepted),
		rec.Score,
		rec.Message,
		ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordSubmission stores a judged submission in the local history.
func (s *SQLiteStore) RecordSubmission(sub submission.Submission, res submission.Result) error {
	rec := SubmissionRecord{
		Player:    sub.Player,
		Challenge: sub.Challenge,
		Filename:  sub.Filename,
		Language:  sub.Language.String(),
		Test:      sub.Test,
		Binary:    !sub.HasCode() && sub.HasBinary(),
		Accepted:  res.Accepted(),
		Message:   res.Message(),
	}
	if res.Success != nil {
		rec.Score = res.Success.Score
	}
	_, err := s.InsertSubmission(context.Background(), rec)
	return err
}

// ListSubmissions returns the newest submissions first.
func (s *SQLiteStore) ListSubmissions(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player, challenge, filename, language, test, is_binary, accepted, score, message, ts
		FROM submissions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SubmissionRecord
	for rows.Next() {
		var (
			rec                    SubmissionRecord
			test, binary, accepted int
			tsRaw                  string
		)
		if err := rows.Scan(&rec.ID, &rec.Player, &rec.Challenge, &rec.Filename, &rec.Language, &test, &binary, &accepted, &rec.Score, &rec.Message, &tsRaw); err != nil {
			return nil, err
		}
		rec.Test = test == 1
		rec.Binary = binary == 1
		rec.Accepted = accepted == 1
		if t, err := time.Parse(timeLayout, tsRaw); err == nil {
			rec.TS = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) as submissions,
			COALESCE(SUM(accepted),0) as accepted,
			COALESCE(SUM(test),0) as tests,
			COALESCE(MAX(score),0) as best_score
		FROM submissions
	`)
	if err := row.Scan(&out.Submissions, &out.Accepted, &out.Tests, &out.BestScore); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
