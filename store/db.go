// Package store is the client's durable local record: the cached session and a history of
// daily balance snapshots, kept in a SQLite file under the data directory.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coinvest/api"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

type DB struct {
	db  *sql.DB
	now func() time.Time
}

// SessionRecord is the persisted session. User may be nil when only a token was stored.
type SessionRecord struct {
	Access    string
	Refresh   string
	User      *api.User
	UpdatedAt time.Time
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local record: %w", err)
	}
	db.SetMaxOpenConns(1)

	d := &DB{db: db, now: time.Now}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS session_record (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			user_json TEXT,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS balance_snapshots (
			user_id INTEGER NOT NULL,
			day TEXT NOT NULL,
			balance TEXT NOT NULL,
			recorded_at DATETIME,
			PRIMARY KEY (user_id, day)
		)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) SaveSession(rec SessionRecord) error {
	userJSON, err := encodeUser(rec.User)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`INSERT INTO session_record (id, access_token, refresh_token, user_json, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			user_json = excluded.user_json,
			updated_at = excluded.updated_at`,
		rec.Access, rec.Refresh, userJSON, d.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveUser rewrites the cached profile and leaves the tokens alone.
func (d *DB) SaveUser(user api.User) error {
	userJSON, err := encodeUser(&user)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`INSERT INTO session_record (id, user_json, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_json = excluded.user_json, updated_at = excluded.updated_at`,
		userJSON, d.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// LoadSession returns nil, nil when nothing is stored.
func (d *DB) LoadSession() (*SessionRecord, error) {
	var rec SessionRecord
	var userJSON sql.NullString
	var updatedAt sql.NullString

	err := d.db.QueryRow(`SELECT access_token, refresh_token, user_json, updated_at FROM session_record WHERE id = 1`).
		Scan(&rec.Access, &rec.Refresh, &userJSON, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if userJSON.Valid && userJSON.String != "" {
		var user api.User
		if err := json.Unmarshal([]byte(userJSON.String), &user); err != nil {
			return nil, fmt.Errorf("failed to decode cached user: %w", err)
		}
		rec.User = &user
	}
	if updatedAt.Valid {
		rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}

	return &rec, nil
}

func (d *DB) ClearSession() error {
	if _, err := d.db.Exec(`DELETE FROM session_record`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// RecordBalance stores the balance seen for the local calendar day of at, replacing any
// earlier reading from that day.
func (d *DB) RecordBalance(userID int64, at time.Time, balance decimal.Decimal) error {
	_, err := d.db.Exec(`INSERT INTO balance_snapshots (user_id, day, balance, recorded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET balance = excluded.balance, recorded_at = excluded.recorded_at`,
		userID, at.Format(dayLayout), balance.String(), at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record balance: %w", err)
	}
	return nil
}

// PreviousDayBalance returns the latest snapshot taken before the calendar day of now.
func (d *DB) PreviousDayBalance(userID int64, now time.Time) (decimal.Decimal, bool, error) {
	var raw string
	err := d.db.QueryRow(`SELECT balance FROM balance_snapshots WHERE user_id = ? AND day < ? ORDER BY day DESC LIMIT 1`,
		userID, now.Format(dayLayout)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to read balance history: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse stored balance %q: %w", raw, err)
	}
	return balance, true, nil
}

// PruneBalances drops snapshots older than the given day count.
func (d *DB) PruneBalances(keepDays int) error {
	cutoff := d.now().AddDate(0, 0, -keepDays).Format(dayLayout)
	if _, err := d.db.Exec(`DELETE FROM balance_snapshots WHERE day < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to prune balance history: %w", err)
	}
	return nil
}

func encodeUser(user *api.User) (interface{}, error) {
	if user == nil {
		return nil, nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	return string(data), nil
}
