// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"grimm.is/vrouter/internal/errors"
)

// BusyTimeout bounds how long a statement waits for another process's write
// transaction. Writes last milliseconds; nothing holds the database between
// statements.
const BusyTimeout = 5 * time.Second

// HistoryLimit is the number of transitions kept.
const HistoryLimit = 100

// SQLiteStore keeps the role history in SQLite. The current role is the row
// with the highest version. WAL mode lets status readers run while a
// transition writes.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "failed to create %s", filepath.Dir(path))
	}

	dsn := path + "?_pragma=busy_timeout(" + strconv.FormatInt(BusyTimeout.Milliseconds(), 10) + ")&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "could not open state store at %s", path)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		version INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		transition_id TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL -- Unix nanoseconds
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "could not initialise state schema")
	}
	return nil
}

func (s *SQLiteStore) Load() (Record, error) {
	recs, err := s.History(1)
	if err != nil {
		return unknownRecord(), err
	}
	if len(recs) == 0 {
		return unknownRecord(), nil
	}
	return recs[0], nil
}

func (s *SQLiteStore) Save(role Role, transitionID string) (Record, error) {
	rec := Record{Role: role, TransitionID: transitionID, UpdatedAt: time.Now().UTC()}

	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, errors.Wrap(err, errors.KindUnavailable, "failed to persist role")
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO transitions (role, transition_id, updated_at) VALUES (?, ?, ?)`,
		string(role), transitionID, rec.UpdatedAt.UnixNano())
	if err != nil {
		return Record{}, errors.Wrap(err, errors.KindUnavailable, "failed to persist role")
	}
	version, err := res.LastInsertId()
	if err != nil {
		return Record{}, errors.Wrap(err, errors.KindInternal, "failed to read role version")
	}
	if _, err := tx.Exec(`DELETE FROM transitions WHERE version <= ?`, version-HistoryLimit); err != nil {
		return Record{}, errors.Wrap(err, errors.KindUnavailable, "failed to prune role history")
	}
	if err := tx.Commit(); err != nil {
		return Record{}, errors.Wrap(err, errors.KindUnavailable, "failed to persist role")
	}

	rec.Version = uint64(version)
	return rec, nil
}

func (s *SQLiteStore) History(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT version, role, transition_id, updated_at
		FROM transitions
		ORDER BY version DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "failed to read role history")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			role    string
			updated int64
		)
		if err := rows.Scan(&rec.Version, &role, &rec.TransitionID, &updated); err != nil {
			return nil, errors.Wrap(err, errors.KindValidation, "corrupt role record")
		}
		rec.Role = Role(role)
		rec.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "failed to read role history")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
