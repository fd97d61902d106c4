package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/prism/internal/table"
)

var (
	ErrInvalidTableName = errors.New("invalid table name")
	ErrEmptyTable       = errors.New("table has no columns")
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Beginner starts transactions. Satisfied by *pgxpool.Pool and *pgx.Conn.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SinkOptions tunes SinkPostgres.
type SinkOptions struct {
	// Replace drops an existing table of the same name first. Without it
	// rows are appended to an existing table.
	Replace bool
}

// PostgresType maps a column kind to a Postgres column type.
func PostgresType(k table.Kind) string {
	switch k {
	case table.KindInteger:
		return "BIGINT"
	case table.KindFloat:
		return "DOUBLE PRECISION"
	case table.KindBoolean:
		return "BOOLEAN"
	case table.KindDatetime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// CreateTableSQL returns the DDL that creates a table shaped like t.
func CreateTableSQL(name string, t *table.Table) string {
	defs := make([]string, 0, t.NumCols())
	for _, c := range t.Columns() {
		defs = append(defs, pgx.Identifier{c.Name}.Sanitize()+" "+PostgresType(c.Kind))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pgx.Identifier{name}.Sanitize(), strings.Join(defs, ", "))
}

// SinkPostgres copies t into the named table in one transaction, creating
// the table when needed. It returns the number of rows copied.
func SinkPostgres(ctx context.Context, db Beginner, name string, t *table.Table, opts SinkOptions) (int64, error) {
	if !tableNameRegex.MatchString(name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	if t.NumCols() == 0 {
		return 0, ErrEmptyTable
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	ident := pgx.Identifier{name}
	if opts.Replace {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
			return 0, fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	if _, err := tx.Exec(ctx, CreateTableSQL(name, t)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", name, err)
	}

	n, err := tx.CopyFrom(ctx, ident, t.Names(), &rowSource{t: t, row: -1})
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// rowSource feeds table rows to CopyFrom without materializing them.
type rowSource struct {
	t   *table.Table
	row int
}

func (r *rowSource) Next() bool {
	r.row++
	return r.row < r.t.NumRows()
}

func (r *rowSource) Values() ([]any, error) {
	cols := r.t.Columns()
	vals := make([]any, len(cols))
	for j, col := range cols {
		c := col.Cells[r.row]
		if col.Kind == table.KindObject && !c.IsMissing() {
			vals[j] = c.String()
			continue
		}
		vals[j] = c.Value()
	}
	return vals, nil
}

func (r *rowSource) Err() error { return nil }
