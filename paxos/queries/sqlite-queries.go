package queries

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps chosen values in a single 'chosen' table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database file at @path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// one writer at a time, the node's exclusion domain already serializes us
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chosen (
		csn INTEGER NOT NULL PRIMARY KEY,
		v   TEXT    NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// SetChosenValue inserts/updates the entry of the 'chosen' table where the field 'csn' is equal to @csn.
func (s *SQLiteStore) SetChosenValue(csn int, v string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO chosen (csn, v) VALUES (?, ?)`, csn, v)
	return err
}

// GetChosenValue returns the 'v' field of the 'chosen' table where the field 'csn' is equal to @csn.
// If no value has been chosen for the requested @csn, an empty string is returned.
func (s *SQLiteStore) GetChosenValue(csn int) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT v FROM chosen WHERE csn = ?`, csn).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// GetAllChosenValues returns a map of all the entries stored in the 'chosen' table.
func (s *SQLiteStore) GetAllChosenValues() (map[int]string, error) {
	rows, err := s.db.Query(`SELECT csn, v FROM chosen`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[int]string)
	for rows.Next() {
		var csn int
		var v string
		if err := rows.Scan(&csn, &v); err != nil {
			return nil, err
		}
		m[csn] = v
	}
	return m, rows.Err()
}

// ResetAllChosenValues empties the 'chosen' table.
func (s *SQLiteStore) ResetAllChosenValues() error {
	_, err := s.db.Exec(`DELETE FROM chosen`)
	return err
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
