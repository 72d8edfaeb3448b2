package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/enrollio/referral-backend/internal/model"
)

// ReferralRepository stores referral edges and answers the statistics join.
type ReferralRepository interface {
	Link(ctx context.Context, referrerID, refereeID int64) error
	RefereesOf(ctx context.Context, referrerID int64) ([]model.User, error)
}

type referralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository constructs a ReferralRepository backed by a sqlx.DB.
func NewReferralRepository(db *sqlx.DB) ReferralRepository {
	return &referralRepository{db: db}
}

// Link records that referrer invited referee. The unique constraint on
// referee_id guarantees at most one inbound edge per user; a second link for
// the same referee fails with ErrDuplicateReferral.
func (r *referralRepository) Link(ctx context.Context, referrerID, refereeID int64) error {
	query := `INSERT INTO referrals (referrer_id, referee_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, referrerID, refereeID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReferral
		}
		return fmt.Errorf("error inserting referral: %w", err)
	}
	return nil
}

// RefereesOf returns the users the given referrer invited, in insertion
// order. Hashed passwords are not part of the projection.
func (r *referralRepository) RefereesOf(ctx context.Context, referrerID int64) ([]model.User, error) {
	query := `
		SELECT u.id, u.name, u.phone_number, u.email, u.referrer_id
		FROM referrals r
		JOIN users u ON u.id = r.referee_id
		WHERE r.referrer_id = $1
		ORDER BY u.id
	`
	referees := []model.User{}
	if err := r.db.SelectContext(ctx, &referees, query, referrerID); err != nil {
		return nil, fmt.Errorf("error selecting referees: %w", err)
	}
	return referees, nil
}
