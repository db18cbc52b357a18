package user

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type UserRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, username, password string) (int64, error)
	GetByID(ctx context.Context, db *sqlx.DB, id int64) (*User, error)
	GetByUsername(ctx context.Context, db *sqlx.DB, username string) (*User, error)
	VerifyPassword(ctx context.Context, db *sqlx.DB, username, password string) (*User, error)
}

type userRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &userRepositoryImpl{}
}

func (r *userRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, string(hash)).Scan(&id)
	return id, err
}

func (r *userRepositoryImpl) GetByID(ctx context.Context, db *sqlx.DB, id int64) (*User, error) {
	var u User
	err := db.GetContext(ctx, &u,
		`SELECT id, username, password_hash, created_at FROM users WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepositoryImpl) GetByUsername(ctx context.Context, db *sqlx.DB, username string) (*User, error) {
	var u User
	err := db.GetContext(ctx, &u,
		`SELECT id, username, password_hash, created_at FROM users WHERE username=$1`, username)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepositoryImpl) VerifyPassword(ctx context.Context, db *sqlx.DB, username, password string) (*User, error) {
	u, err := r.GetByUsername(ctx, db, username)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errors.New("invalid credentials")
	}
	return u, nil
}
