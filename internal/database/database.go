package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderBy int

const (
	OrderByASC OrderBy = iota
	OrderByDESC
)

func (o OrderBy) String() string {
	if o == OrderByASC {
		return "ASC"
	}
	return "DESC"
}

// Querier is the subset of pgx shared by the pool and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Database struct {
	Pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string, maxConns int32) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	db.Pool, err = pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}

	return nil
}

func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *Database) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return errors.New("database: not connected")
	}
	return db.Pool.Ping(ctx)
}

func (db *Database) conn() Querier {
	if db.tx != nil {
		return db.tx
	}
	return db.Pool
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise. Calling InTx on a transaction-scoped Database
// joins the running transaction.
func (db *Database) InTx(ctx context.Context, fn func(tx *Database) error) (err error) {
	if db.tx != nil {
		return fn(db)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("database: failed to roll back transaction: %w", rbErr))
			}
		}
	}()

	if err = fn(&Database{Pool: nil, tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: failed to commit transaction: %w", err)
	}

	return nil
}

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflicts with an existing record")
	ErrInvalidReference   = errors.New("references a record that does not exist")
	ErrConstraintViolated = errors.New("violates a constraint")

	ErrOperatorNotFound        = fmt.Errorf("operator %w", ErrNotFound)
	ErrAccountNotFound         = fmt.Errorf("account %w", ErrNotFound)
	ErrOrganizationNotFound    = fmt.Errorf("organization %w", ErrNotFound)
	ErrRoleNotFound            = fmt.Errorf("role %w", ErrNotFound)
	ErrMemberNotFound          = fmt.Errorf("organization member %w", ErrNotFound)
	ErrProfileNotFound         = fmt.Errorf("profile %w", ErrNotFound)
	ErrHorseNotFound           = fmt.Errorf("horse %w", ErrNotFound)
	ErrProvisioningRunNotFound = fmt.Errorf("provisioning run %w", ErrNotFound)
)

// classify tags Postgres constraint failures with a sentinel so callers can
// branch on them without knowing SQLSTATE codes.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%w (%s): %w", ErrConflict, pgErr.ConstraintName, err)
	case "23503":
		return fmt.Errorf("%w (%s): %w", ErrInvalidReference, pgErr.ConstraintName, err)
	case "23514", "23502":
		return fmt.Errorf("%w (%s): %w", ErrConstraintViolated, pgErr.ConstraintName, err)
	}
	return err
}

type whereBuilder struct {
	query  strings.Builder
	args   []any
	argNum int
}

func newWhereBuilder(base string) *whereBuilder {
	b := &whereBuilder{argNum: 1}
	b.query.WriteString(base)
	b.query.WriteString(" WHERE 1=1")
	return b
}

func (b *whereBuilder) and(clause string, arg any) {
	b.query.WriteString(fmt.Sprintf(" AND "+clause, b.argNum))
	b.args = append(b.args, arg)
	b.argNum++
}

func (b *whereBuilder) raw(s string) {
	b.query.WriteString(s)
}

func (b *whereBuilder) limit(n int) {
	if n > 0 {
		b.query.WriteString(fmt.Sprintf(" LIMIT $%d", b.argNum))
		b.args = append(b.args, n)
		b.argNum++
	}
}

func (b *whereBuilder) String() string {
	return b.query.String()
}

type setBuilder struct {
	sets   []string
	args   []any
	argNum int
}

func (b *setBuilder) set(column string, arg any) {
	b.argNum++
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, b.argNum))
	b.args = append(b.args, arg)
}

func (b *setBuilder) empty() bool {
	return len(b.sets) == 0
}

// statement renders "UPDATE table SET ... WHERE id = $1 RETURNING returning".
func (b *setBuilder) statement(table, returning string) string {
	return fmt.Sprintf("UPDATE %s SET %s, updated_at = NOW() WHERE id = $1 RETURNING %s", table, strings.Join(b.sets, ", "), returning)
}

// valuesPlaceholders renders "($1, $2), ($3, $4)" for a multi-row insert.
func valuesPlaceholders(rows, cols int) string {
	var sb strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", n))
			n++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}
