package model

import "github.com/google/uuid"

// Purchase records ownership of a course by a student. At most one purchase
// exists per (student, course) pair.
type Purchase struct {
	ID        uuid.UUID `db:"id" json:"id"`
	StudentID int64     `db:"student_id" json:"studentId"`
	CourseID  int32     `db:"course_id" json:"courseId"`
}
