package convert

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// validSnapshot reports whether path holds a readable SQLite database with at
// least one schema object. A snapshot truncated by a failed or interrupted
// build fails the header read or the schema query and is rebuilt instead of
// being served as a cache hit.
func validSnapshot(path string) bool {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return false
	}
	defer db.Close()

	var objects int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&objects); err != nil {
		return false
	}
	return objects > 0
}
