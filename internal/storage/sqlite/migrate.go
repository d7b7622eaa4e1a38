package sqlite

import (
	"os"
	"strings"
)

func (s *Sqlite) Migrate() error {
	b, err := os.ReadFile("sql/sqlite/schema.sql")
	if err != nil {
		return err
	}
	stmts := strings.Split(string(b), ";\n")

	for _, stmt := range stmts {
		st := strings.TrimSpace(stmt)
		if st == "" {
			continue
		}
		if _, err = s.Db.Exec(st); err != nil {
			return err
		}
	}
	return nil
}

// MigrateFrom applies a schema from an explicit path, used by tests that run
// against an in-memory database.
func (s *Sqlite) MigrateFrom(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(b), ";\n") {
		st := strings.TrimSpace(stmt)
		if st == "" {
			continue
		}
		if _, err = s.Db.Exec(st); err != nil {
			return err
		}
	}
	return nil
}
