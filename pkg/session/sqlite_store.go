// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/oneagent-dev/oneagent/pkg/oneerr"
	_ "modernc.org/sqlite"
)

// SQLiteStorage is a second, real SessionStorage implementation backed
// by a local sqlite database, proving that the storage shape in §4.3
// is genuinely replaceable without touching the session manager. It is
// selected via ONEAGENT_MCP_STORAGE_DRIVER=sqlite.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (and migrates) a sqlite-backed session store
// at the given file path.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oneerr.Wrap(oneerr.BackendUnavailable, err, "open sqlite session store")
	}
	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
`)
	if err != nil {
		return oneerr.Wrap(oneerr.BackendUnavailable, err, "migrate sqlite session schema")
	}
	return nil
}

func (s *SQLiteStorage) Create(sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return oneerr.Wrap(oneerr.Internal, err, "marshal session")
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, state, expires_at, payload) VALUES (?, ?, ?, ?)`,
		sess.ID, string(sess.State), sess.ExpiresAt.UnixNano(), string(payload),
	)
	if err != nil {
		return oneerr.Wrap(oneerr.AlreadyExists, err, "session %s already exists", sess.ID)
	}
	return nil
}

func (s *SQLiteStorage) Get(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT payload FROM sessions WHERE id = ?`, id)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, oneerr.Wrap(oneerr.BackendUnavailable, err, "get session %s", id)
	}
	var sess Session
	if err := json.Unmarshal([]byte(payload), &sess); err != nil {
		return nil, oneerr.Wrap(oneerr.Internal, err, "unmarshal session")
	}
	return &sess, nil
}

func (s *SQLiteStorage) Update(id string, patch func(*Session)) (*Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, oneerr.New(oneerr.NotFound, "session %s not found", id)
	}
	patch(sess)
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, oneerr.Wrap(oneerr.Internal, err, "marshal session")
	}
	_, err = s.db.Exec(
		`UPDATE sessions SET state = ?, expires_at = ?, payload = ? WHERE id = ?`,
		string(sess.State), sess.ExpiresAt.UnixNano(), string(payload), id,
	)
	if err != nil {
		return nil, oneerr.Wrap(oneerr.BackendUnavailable, err, "update session %s", id)
	}
	return sess, nil
}

func (s *SQLiteStorage) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return oneerr.Wrap(oneerr.BackendUnavailable, err, "delete session %s", id)
	}
	return nil
}

func (s *SQLiteStorage) ListActive() ([]Session, error) {
	rows, err := s.db.Query(`SELECT payload FROM sessions WHERE state = ?`, string(StateActive))
	if err != nil {
		return nil, oneerr.Wrap(oneerr.BackendUnavailable, err, "list active sessions")
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, oneerr.Wrap(oneerr.Internal, err, "scan session row")
		}
		var sess Session
		if err := json.Unmarshal([]byte(payload), &sess); err != nil {
			return nil, oneerr.Wrap(oneerr.Internal, err, "unmarshal session")
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) CleanupExpired(now time.Time) (int, error) {
	active, err := s.ListActive()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, sess := range active {
		if now.Before(sess.ExpiresAt) {
			continue
		}
		if _, err := s.Update(sess.ID, func(sp *Session) { sp.State = StateExpired }); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Close releases the underlying sqlite connection.
func (s *SQLiteStorage) Close() error { return s.db.Close() }

var _ SessionStorage = (*SQLiteStorage)(nil)
