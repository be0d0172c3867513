package toolbox

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteDB is opened lazily on first DBInsert call and reused for the
// rest of the run — generated code may call db_insert many times across
// a single Executor invocation.
type sqliteDB struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// DBInsert appends row to table in a local SQLite database under the
// current host's output directory, creating the table (and any new
// columns) on the fly from row's keys.
func (t *Toolbox) DBInsert(table string, row map[string]interface{}) error {
	sq, err := t.ensureSQLite()
	if err != nil {
		return err
	}
	return sq.insert(table, row)
}

func (t *Toolbox) ensureSQLite() (*sqliteDB, error) {
	path := t.outputPath("data.sqlite3")

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sqlite != nil {
		return t.sqlite, nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("toolbox: open sqlite: %w", err)
	}
	t.sqlite = &sqliteDB{db: db, path: path}
	return t.sqlite, nil
}

func (s *sqliteDB) insert(table string, row map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	if err := s.ensureTable(table, cols); err != nil {
		return err
	}

	placeholders := make([]string, len(cols))
	values := make([]interface{}, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		values[i] = row[c]
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	query := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	_, err := s.db.Exec(query, values...)
	if err != nil {
		return fmt.Errorf("toolbox: insert row: %w", err)
	}
	return nil
}

func (s *sqliteDB) ensureTable(table string, cols []string) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q TEXT", c)
	}
	createStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (id INTEGER PRIMARY KEY AUTOINCREMENT, %s)", table, strings.Join(quoted, ", "))
	if _, err := s.db.Exec(createStmt); err != nil {
		return fmt.Errorf("toolbox: ensure table: %w", err)
	}

	for _, c := range cols {
		alterStmt := fmt.Sprintf("ALTER TABLE %q ADD COLUMN %q TEXT", table, c)
		_, _ = s.db.Exec(alterStmt) // ignore "duplicate column" errors
	}
	return nil
}
