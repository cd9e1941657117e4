package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Statement is one parameterized SQL statement queued for execution.
type Statement struct {
	SQL  string
	Args []any
}

// Batch collects statements and executes them in a single transaction, so a
// failed sync never leaves the database half-replaced.
type Batch struct {
	db     *DB
	stmts  []Statement
	DryRun bool
	Out    io.Writer
}

// NewBatch returns an empty batch bound to db.
func NewBatch(db *DB) *Batch {
	return &Batch{db: db}
}

// Add queues one statement.
func (b *Batch) Add(sql string, args ...any) {
	b.stmts = append(b.stmts, Statement{SQL: sql, Args: args})
}

// Len reports how many statements are queued.
func (b *Batch) Len() int {
	return len(b.stmts)
}

// Flush executes every queued statement inside one transaction and clears
// the queue. In dry-run mode it prints previews instead and touches nothing.
// The first failing statement rolls the whole transaction back.
func (b *Batch) Flush(ctx context.Context) (int, error) {
	if len(b.stmts) == 0 {
		return 0, nil
	}

	if b.DryRun {
		out := b.Out
		if out == nil {
			out = os.Stdout
		}
		for _, s := range b.stmts {
			fmt.Fprintf(out, "  SQL: %s\n", preview(s.SQL, s.Args))
		}
		n := len(b.stmts)
		b.stmts = nil
		return n, nil
	}

	tx, err := b.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	for _, s := range b.stmts {
		if _, err := tx.ExecContext(ctx, s.SQL, s.Args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sql failed: %s: %w", preview(s.SQL, s.Args), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	n := len(b.stmts)
	b.stmts = nil
	return n, nil
}

// preview renders a statement with its arguments inlined, truncated to 200
// characters. Display only; execution always goes through placeholders.
func preview(query string, args []any) string {
	var sb strings.Builder
	argIdx := 0
	for _, r := range query {
		if r == '?' && argIdx < len(args) {
			sb.WriteString(renderArg(args[argIdx]))
			argIdx++
			continue
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if len(out) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		return out[:cut] + "..."
	}
	return out
}

func renderArg(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}
