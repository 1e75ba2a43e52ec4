package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"chatgate/module/user/model"
	"chatgate/tools/errs"
)

// Directory resolves user id <-> username <-> display name. Lookups
// return (nil, nil) for unknown users; an error means the directory
// itself failed.
type Directory interface {
	FindByID(ctx context.Context, id int) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// PgDirectory is the Postgres-backed directory.
type PgDirectory struct {
	pool *pgxpool.Pool
}

var _ Directory = (*PgDirectory)(nil)

func NewPgDirectory(pool *pgxpool.Pool) *PgDirectory {
	return &PgDirectory{pool: pool}
}

func (d *PgDirectory) FindByID(ctx context.Context, id int) (*model.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, username, nickname, password FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (d *PgDirectory) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, username, nickname, password FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Nickname, &u.Password)
	if pkgerrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query user")
	}
	return &u, nil
}

// Authenticate resolves username and checks the password against the
// stored bcrypt hash.
func Authenticate(ctx context.Context, dir Directory, username, password string) (*model.User, error) {
	u, err := dir.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &errs.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, &errs.ErrBadCredentials
	}
	return u, nil
}
