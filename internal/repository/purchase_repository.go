package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/enrollio/referral-backend/internal/model"
)

// PurchaseRepository stores course purchases.
type PurchaseRepository interface {
	Create(ctx context.Context, studentID int64, courseID int32) (*model.Purchase, error)
	Exists(ctx context.Context, studentID int64, courseID int32) (bool, error)
}

type purchaseRepository struct {
	db *sqlx.DB
}

// NewPurchaseRepository constructs a PurchaseRepository backed by a sqlx.DB.
func NewPurchaseRepository(db *sqlx.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// Create records a purchase. The unique constraint on (student_id, course_id)
// guarantees single ownership; a duplicate fails with ErrAlreadyOwned.
func (r *purchaseRepository) Create(ctx context.Context, studentID int64, courseID int32) (*model.Purchase, error) {
	p := model.Purchase{
		ID:        uuid.New(),
		StudentID: studentID,
		CourseID:  courseID,
	}
	query := `INSERT INTO purchases (id, student_id, course_id) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.StudentID, p.CourseID); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyOwned
		}
		return nil, fmt.Errorf("error inserting purchase: %w", err)
	}
	return &p, nil
}

// Exists reports whether the student already owns the course.
func (r *purchaseRepository) Exists(ctx context.Context, studentID int64, courseID int32) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM purchases WHERE student_id=$1 AND course_id=$2)",
		studentID, courseID,
	)
	if err != nil {
		return false, fmt.Errorf("error checking purchase existence: %w", err)
	}
	return exists, nil
}
