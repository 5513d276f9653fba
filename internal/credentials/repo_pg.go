package credentials

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

type PGRepo struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

func (r *PGRepo) Create(ctx context.Context, account Account) error {
	const query = `
INSERT INTO accounts (id, email, password_hash, provider, created_at)
VALUES ($1, $2, $3, $4, now())`
	_, err := r.DB.ExecContext(ctx, query, account.ID, account.Email, nullableString(account.PasswordHash), account.Provider)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailInUse
	}
	return err
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (Account, error) {
	const query = `
SELECT id, email, password_hash, provider, created_at
FROM accounts
WHERE lower(email) = lower($1)
LIMIT 1`
	return r.get(ctx, query, email)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Account, error) {
	const query = `
SELECT id, email, password_hash, provider, created_at
FROM accounts
WHERE id = $1
LIMIT 1`
	return r.get(ctx, query, id)
}

func (r *PGRepo) get(ctx context.Context, query string, arg string) (Account, error) {
	var account Account
	var hash sql.NullString
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&hash,
		&account.Provider,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	if hash.Valid {
		account.PasswordHash = hash.String
	}
	return account, nil
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
