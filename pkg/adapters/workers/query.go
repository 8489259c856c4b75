package workers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/conductor/pkg/adapters/llm"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
)

// DefaultRowLimit caps the rows a query result hands back to the run.
const DefaultRowLimit = 50

// Query answers questions from a relational database.
type Query struct {
	model    llm.Completer
	db       *sql.DB
	driver   string
	rowLimit int
	attempts int
	logger   *slog.Logger
}

// NewQuery creates the query worker. driver is DriverSQLite or DriverPostgres.
func NewQuery(model llm.Completer, db *sql.DB, driver string, opts ...Option) *Query {
	c := newConfig(opts)
	return &Query{
		model:    model,
		db:       db,
		driver:   driver,
		rowLimit: c.rowLimit,
		attempts: c.queryAttempts,
		logger:   c.logger.With("worker", domain.WorkerQuery),
	}
}

var _ ports.Worker = (*Query)(nil)

type sqlAttempt struct {
	SQL   string
	Error string
}

type sqlPromptData struct {
	Dialect  string
	Schema   string
	Question string
	Previous []sqlAttempt
}

// queryResult is the JSON document appended to the run log.
type queryResult struct {
	SQL       string           `json:"sql"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Execute writes and runs a statement for the instruction.
func (q *Query) Execute(ctx context.Context, req ports.WorkerRequest) (ports.WorkerResult, error) {
	schema, err := describeSchema(ctx, q.db, q.driver)
	if err != nil {
		return ports.WorkerResult{}, err
	}

	question := req.Instruction
	if question == "" {
		question = req.UserQuery
	}
	data := sqlPromptData{Dialect: dialectName(q.driver), Schema: schema, Question: question}

	var lastErr error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		stmt, err := q.write(ctx, data)
		if err != nil {
			return ports.WorkerResult{}, err
		}

		rows, truncated, err := q.run(ctx, stmt)
		if err == nil {
			q.logger.Debug("query executed", "rows", len(rows), "attempt", attempt)
			b, err := json.Marshal(queryResult{SQL: stmt, Rows: rows, Truncated: truncated})
			if err != nil {
				return ports.WorkerResult{}, fmt.Errorf("encode rows: %w", err)
			}
			return ports.WorkerResult{Messages: []domain.Message{{Content: "Results: " + string(b)}}}, nil
		}
		if ctx.Err() != nil {
			return ports.WorkerResult{}, ctx.Err()
		}

		q.logger.Warn("query failed", "err", err, "attempt", attempt)
		data.Previous = append(data.Previous, sqlAttempt{SQL: stmt, Error: err.Error()})
		lastErr = err
	}
	return ports.WorkerResult{}, fmt.Errorf("%w. Please check the syntax of the query and try again", lastErr)
}

func (q *Query) write(ctx context.Context, data sqlPromptData) (string, error) {
	reply, err := ask(ctx, q.model, "sql.tmpl", data, true)
	if err != nil {
		return "", fmt.Errorf("sql completion: %w", err)
	}
	raw, err := llm.ExtractObject(reply)
	if err != nil {
		return "", fmt.Errorf("sql completion: %w", err)
	}
	var out struct {
		SQL string `json:"sql"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return "", fmt.Errorf("sql completion: %w", err)
	}
	if out.SQL == "" {
		return "", errors.New("sql completion: empty statement")
	}
	return out.SQL, nil
}

func (q *Query) run(ctx context.Context, stmt string) ([]map[string]any, bool, error) {
	if err := readOnly(stmt); err != nil {
		return nil, false, err
	}
	return queryRows(ctx, q.db, q.driver, stmt, q.rowLimit)
}

func dialectName(driver string) string {
	if driver == DriverPostgres {
		return "PostgreSQL"
	}
	return "SQLite"
}
