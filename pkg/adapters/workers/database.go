package workers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenDatabase opens and pings the database the query worker reads from.
func OpenDatabase(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite only supports one writer at a time; in-memory databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// describeSchema lists every user table with its columns, one table per line.
func describeSchema(ctx context.Context, db *sql.DB, driver string) (string, error) {
	var query string
	switch driver {
	case DriverPostgres:
		query = `SELECT table_name, column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = current_schema()
			ORDER BY table_name, ordinal_position`
	default:
		query = `SELECT m.name, p.name, p.type
			FROM sqlite_master m JOIN pragma_table_info(m.name) p
			WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
			ORDER BY m.name, p.cid`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("describe schema: %w", err)
	}
	defer rows.Close()

	var (
		b       strings.Builder
		current string
	)
	for rows.Next() {
		var table, column, typ string
		if err := rows.Scan(&table, &column, &typ); err != nil {
			return "", fmt.Errorf("describe schema: %w", err)
		}
		if table != current {
			if current != "" {
				b.WriteString(")\n")
			}
			fmt.Fprintf(&b, "%s(", table)
			current = table
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", column, typ)
	}
	if current != "" {
		b.WriteString(")\n")
	}
	return b.String(), rows.Err()
}

// readOnly screens stmt before it reaches the database: one statement,
// starting with SELECT or WITH. Writes are refused by the database itself,
// see queryRows.
func readOnly(stmt string) error {
	s := strings.TrimSpace(stmt)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return fmt.Errorf("empty statement")
	}
	if hasStatementBreak(s) {
		return fmt.Errorf("only one statement is allowed")
	}
	words := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(words) == 0 {
		return fmt.Errorf("only SELECT statements are allowed")
	}
	if first := strings.ToUpper(words[0]); first != "SELECT" && first != "WITH" {
		return fmt.Errorf("only SELECT statements are allowed, got %s", first)
	}
	return nil
}

// hasStatementBreak reports a ';' outside quoted text and comments.
func hasStatementBreak(s string) bool {
	var quote rune
	lineComment, blockComment := false, false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case lineComment:
			if r == '\n' {
				lineComment = false
			}
		case blockComment:
			if r == '*' && next == '/' {
				blockComment = false
				i++
			}
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '-' && next == '-':
			lineComment = true
			i++
		case r == '/' && next == '*':
			blockComment = true
			i++
		case r == ';':
			return true
		}
	}
	return false
}

// queryRows runs stmt in a read-only transaction that is always rolled back
// and returns at most limit rows as column -> value maps. SQLite has no
// read-only transactions, so the connection is switched to query_only for
// the duration of the call.
func queryRows(ctx context.Context, db *sql.DB, driver, stmt string, limit int) ([]map[string]any, bool, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}
	defer conn.Close()

	opts := &sql.TxOptions{ReadOnly: true}
	if driver == DriverSQLite {
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return nil, false, fmt.Errorf("enable query_only: %w", err)
		}
		defer func() {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF")
		}()
		opts = nil
	}

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}
	var (
		out       []map[string]any
		truncated bool
	)
	for rows.Next() {
		if len(out) == limit {
			truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, truncated, rows.Err()
}
