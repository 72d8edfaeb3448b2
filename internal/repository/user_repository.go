package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/enrollio/referral-backend/internal/model"
)

// UserRepository defines the methods we need for storing and retrieving users.
type UserRepository interface {
	Create(ctx context.Context, name, phoneNumber, email, hashedPassword string, referrerID *int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetIDByEmail(ctx context.Context, email string) (int64, bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a new UserRepository backed by a sqlx.DB.
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new User and returns it with its store-assigned id.
// A colliding email fails with ErrDuplicateEmail via the unique constraint.
func (r *userRepository) Create(
	ctx context.Context,
	name, phoneNumber, email, hashedPassword string,
	referrerID *int64,
) (*model.User, error) {
	query := `
		INSERT INTO users (name, phone_number, email, hashed_password, referrer_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, phone_number, email, hashed_password, referrer_id
	`
	var u model.User
	err := r.db.GetContext(ctx, &u, query, name, phoneNumber, email, hashedPassword, referrerID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}
	return &u, nil
}

// GetByEmail fetches a user row by its email. Returns (nil, nil) if not found.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	query := `
		SELECT id, name, phone_number, email, hashed_password, referrer_id
		FROM users
		WHERE email = $1
	`
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error selecting user by email: %w", err)
	}
	return &u, nil
}

// GetIDByEmail resolves an email to a user id. Absence is not an error.
func (r *userRepository) GetIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, "SELECT id FROM users WHERE email = $1", email)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("error resolving email to id: %w", err)
	}
	return id, true, nil
}

// Exists reports whether a user with the given id is present.
func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)", id)
	if err != nil {
		return false, fmt.Errorf("error checking user existence: %w", err)
	}
	return exists, nil
}
