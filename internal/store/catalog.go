// Package store provides read access to the external relational source the
// reports are filled from: table listing, ordered column names (the candidate
// fields for auto-mapping) and row fetches for export.
package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog wraps the source database connection.
type Catalog struct {
	db *sql.DB
}

// Open connects to the SQLite source database.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Catalog{db: db}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB exposes the raw connection for advanced queries.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// ListTables returns the user tables of the source database, sorted by name.
func (c *Catalog) ListTables() ([]string, error) {
	rows, err := c.db.Query(
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// ListFields returns the column names of one table in declaration order.
// These are the candidate field names supplied to the auto-mapper.
func (c *Catalog) ListFields(table string) ([]string, error) {
	if err := c.requireTable(table); err != nil {
		return nil, err
	}

	rows, err := c.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var fields []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, err
		}
		fields = append(fields, name)
	}
	return fields, rows.Err()
}

// FetchRows reads the requested fields of a table in row order, as strings.
// limit <= 0 fetches everything.
func (c *Catalog) FetchRows(table string, fields []string, limit int) ([][]string, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("fetch rows: no fields requested")
	}
	known, err := c.ListFields(table)
	if err != nil {
		return nil, err
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, f := range known {
		knownSet[f] = struct{}{}
	}

	quoted := make([]string, len(fields))
	for i, f := range fields {
		if _, ok := knownSet[f]; !ok {
			return nil, fmt.Errorf("fetch rows: unknown field %q in table %q", f, table)
		}
		quoted[i] = quoteIdent(f)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(quoted, ", "), quoteIdent(table))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("fetch rows from %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		raw := make([]sql.NullString, len(fields))
		dest := make([]interface{}, len(fields))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		record := make([]string, len(fields))
		for i, v := range raw {
			if v.Valid {
				record[i] = v.String
			}
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (c *Catalog) requireTable(table string) error {
	tables, err := c.ListTables()
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("unknown table %q", table)
}

// quoteIdent quotes an identifier for embedding in SQL text.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
