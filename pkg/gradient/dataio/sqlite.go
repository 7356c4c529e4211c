package dataio

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// readTable returns every row of table in rowid order.
func readTable(path, table string) (any, error) {
	// sql.Open creates missing files; a missing dataset is an IO error.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDatabase(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM %q ORDER BY rowid`, table))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w: %w", table, ErrFormat, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := [][]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("table %s: %w", table, err)
		}
		for i, v := range values {
			values[i] = columnValue(v)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	if len(out) == 0 {
		return []any{}, nil
	}
	return out, nil
}

func columnValue(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case int:
		return int64(v)
	case float32:
		return float64(v)
	}
	return v
}

// writeTable replaces table with content: a matrix row per row, or a flat
// list as a single column. Columns are named c1..cN and left untyped so
// integers and floats keep their kind.
func writeTable(path, table string, content any) error {
	var rows [][]any
	switch v := content.(type) {
	case [][]any:
		rows = v
	case []any:
		for _, el := range v {
			if inner, ok := el.([]any); ok {
				rows = append(rows, inner)
			} else {
				rows = append(rows, []any{el})
			}
		}
	default:
		rows = [][]any{{content}}
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
		for _, cell := range row {
			if _, err := scalarText(cell); err != nil {
				return err
			}
		}
	}
	if width == 0 {
		return fmt.Errorf("table %s: nothing to store: %w", table, ErrFormat)
	}

	db, err := openDatabase(path)
	if err != nil {
		return err
	}
	defer db.Close()

	cols := make([]string, width)
	marks := make([]string, width)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i+1)
		marks[i] = "?"
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		table, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("table %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, width)
		copy(args, row)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}
	return tx.Commit()
}
