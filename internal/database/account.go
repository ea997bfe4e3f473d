package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stabledesk/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Operator is a dashboard user allowed to sign in and provision tenants.
type Operator struct {
	ID           uuid.UUID                `json:"id"`
	Email        string                   `json:"email"`
	Name         string                   `json:"name"`
	PasswordHash string                   `json:"-"`
	IsActive     bool                     `json:"is_active"`
	LastLoginAt  util.Optional[time.Time] `json:"last_login_at"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type CreateOperatorParams struct {
	Email        string
	Name         string
	PasswordHash string
}

func (db *Database) CreateOperator(ctx context.Context, params CreateOperatorParams) (Operator, error) {
	now := time.Now().UTC()
	operator := Operator{
		ID:           uuid.New(),
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: params.PasswordHash,
		IsActive:     true,
		LastLoginAt:  util.None[time.Time](),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := db.conn().Exec(ctx, `INSERT INTO tbl_operator (id, email, name, password_hash, is_active, last_login_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		operator.ID, operator.Email, operator.Name, operator.PasswordHash, operator.IsActive, operator.LastLoginAt, operator.CreatedAt, operator.UpdatedAt); err != nil {
		return operator, fmt.Errorf("database: failed to insert operator (email=%s): %w", operator.Email, classify(err))
	}
	return operator, nil
}

type GetOperatorParams struct {
	ID    util.Optional[uuid.UUID]
	Email util.Optional[string]
}

func (db *Database) GetOperator(ctx context.Context, params GetOperatorParams) (Operator, error) {
	var operator Operator

	b := newWhereBuilder(`SELECT id, email, name, password_hash, is_active, last_login_at, created_at, updated_at FROM tbl_operator`)
	if params.ID.IsSet {
		b.and("id = $%d", params.ID.Val)
	}
	if params.Email.IsSet {
		b.and("lower(email) = lower($%d)", params.Email.Val)
	}

	err := db.conn().QueryRow(ctx, b.String(), b.args...).Scan(
		&operator.ID, &operator.Email, &operator.Name, &operator.PasswordHash, &operator.IsActive, &operator.LastLoginAt, &operator.CreatedAt, &operator.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return operator, ErrOperatorNotFound
		}
		return operator, fmt.Errorf("database: failed to scan operator: %w", err)
	}
	return operator, nil
}

// ListOperators lists operators without their password hashes.
func (db *Database) ListOperators(ctx context.Context) ([]Operator, error) {
	rows, err := db.conn().Query(ctx, `SELECT id, email, name, is_active, last_login_at, created_at, updated_at FROM tbl_operator ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list operators: %w", err)
	}
	defer rows.Close()

	operators := []Operator{}
	for rows.Next() {
		var operator Operator
		if err := rows.Scan(&operator.ID, &operator.Email, &operator.Name, &operator.IsActive, &operator.LastLoginAt, &operator.CreatedAt, &operator.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan operator: %w", err)
		}
		operators = append(operators, operator)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate operators: %w", err)
	}
	return operators, nil
}

func (db *Database) TouchOperatorLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.conn().Exec(ctx, `UPDATE tbl_operator SET last_login_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("database: failed to update operator login (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOperatorNotFound
	}
	return nil
}

// Account is an authentication record for an organization owner or member.
type Account struct {
	ID             uuid.UUID             `json:"id"`
	Email          string                `json:"email"`
	PasswordHash   string                `json:"-"`
	FullName       string                `json:"full_name"`
	Phone          util.Optional[string] `json:"phone"`
	EmailConfirmed bool                  `json:"email_confirmed"`
	Metadata       map[string]any        `json:"user_metadata"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type CreateAccountParams struct {
	Email          string
	PasswordHash   string
	FullName       string
	Phone          util.Optional[string]
	EmailConfirmed bool
	Metadata       map[string]any
}

func (db *Database) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	now := time.Now().UTC()
	account := Account{
		ID:             uuid.New(),
		Email:          params.Email,
		PasswordHash:   params.PasswordHash,
		FullName:       params.FullName,
		Phone:          params.Phone,
		EmailConfirmed: params.EmailConfirmed,
		Metadata:       params.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if account.Metadata == nil {
		account.Metadata = map[string]any{}
	}

	if _, err := db.conn().Exec(ctx, `INSERT INTO tbl_account (id, email, password_hash, full_name, phone, email_confirmed, metadata, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Email, account.PasswordHash, account.FullName, account.Phone, account.EmailConfirmed, account.Metadata, account.CreatedAt, account.UpdatedAt); err != nil {
		return account, fmt.Errorf("database: failed to insert account (email=%s): %w", account.Email, classify(err))
	}
	return account, nil
}

type GetAccountParams struct {
	ID    util.Optional[uuid.UUID]
	Email util.Optional[string]
}

func (db *Database) GetAccount(ctx context.Context, params GetAccountParams) (Account, error) {
	var account Account

	b := newWhereBuilder(`SELECT id, email, password_hash, full_name, phone, email_confirmed, metadata, created_at, updated_at FROM tbl_account`)
	if params.ID.IsSet {
		b.and("id = $%d", params.ID.Val)
	}
	if params.Email.IsSet {
		b.and("lower(email) = lower($%d)", params.Email.Val)
	}

	err := db.conn().QueryRow(ctx, b.String(), b.args...).Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.FullName, &account.Phone, &account.EmailConfirmed, &account.Metadata, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account, ErrAccountNotFound
		}
		return account, fmt.Errorf("database: failed to scan account: %w", err)
	}
	return account, nil
}

type ListAccountsParams struct {
	Limit int
}

// ListAccounts lists accounts newest first. Password hashes are not selected.
func (db *Database) ListAccounts(ctx context.Context, params ListAccountsParams) ([]Account, error) {
	b := newWhereBuilder(`SELECT id, email, full_name, phone, email_confirmed, metadata, created_at, updated_at FROM tbl_account`)
	b.raw(" ORDER BY created_at DESC")
	b.limit(params.Limit)

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		var account Account
		if err := rows.Scan(&account.ID, &account.Email, &account.FullName, &account.Phone, &account.EmailConfirmed, &account.Metadata, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate accounts: %w", err)
	}
	return accounts, nil
}
