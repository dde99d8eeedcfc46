package repo

import (
	"context"
	"database/sql"
	"fmt"

	"course-fee-gateway/internal/domain"
)

// CustomerRepo resolves users and courses by natural key, creating them when
// absent. Existing rows are returned unchanged.
type CustomerRepo interface {
	UpsertUser(ctx context.Context, tx *sql.Tx, user *domain.User) error
	UpsertCourse(ctx context.Context, tx *sql.Tx, course *domain.Course) error
}

type customerRepo struct{}

func NewCustomerRepo() CustomerRepo {
	return customerRepo{}
}

func (customerRepo) UpsertUser(ctx context.Context, tx *sql.Tx, user *domain.User) error {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO users (full_name, email, phone, college_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, full_name, phone, college_name, created_at
	`
	err := tx.QueryRowContext(ctx, query, user.FullName, user.Email, user.Phone, user.CollegeName).
		Scan(&user.ID, &user.FullName, &user.Phone, &user.CollegeName, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (customerRepo) UpsertCourse(ctx context.Context, tx *sql.Tx, course *domain.Course) error {
	query := `
		INSERT INTO courses (course_name, course_fee)
		VALUES ($1, $2)
		ON CONFLICT (course_name) DO UPDATE SET course_name = EXCLUDED.course_name
		RETURNING id, course_fee, is_active
	`
	err := tx.QueryRowContext(ctx, query, course.CourseName, course.CourseFee).
		Scan(&course.ID, &course.CourseFee, &course.IsActive)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}
