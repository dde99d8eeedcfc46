package repo

import (
	"context"
	"database/sql"
	"testing"

	"course-fee-gateway/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSummary(t *testing.T) {
	db, mock := newMock(t)
	r := NewRecordRepo(db)

	mock.ExpectQuery("JOIN users u ON u.id = o.user_id").
		WithArgs("FEE_TRAD_1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "full_name", "email", "phone", "course_name", "college_name",
			"amount", "order_id", "gateway_ref", "status", "flow", "payment_link",
			"created_at", "updated_at",
		}).AddRow("7a0f2a8e-4a55-4c8f-9d38-8f0f3f4a2b10", "Sam", "s@college.edu", "9999999999", "BTech CS", "SPIT",
			"500.00", "FEE_TRAD_1", "E99", "success", "checkout", nil, created, later))

	s, err := r.FindSummary(context.Background(), "FEE_TRAD_1")
	require.NoError(t, err)
	assert.Equal(t, "s@college.edu", s.Email)
	assert.Equal(t, "E99", s.PaymentID)
	assert.Equal(t, "E99", s.TransactionID)
	assert.Equal(t, domain.OrderSuccess, s.Status)
	assert.Equal(t, "500", s.Amount.String())
}

func TestFindSummaryNotFound(t *testing.T) {
	db, mock := newMock(t)
	r := NewRecordRepo(db)

	mock.ExpectQuery("FROM orders o").WillReturnError(sql.ErrNoRows)

	_, err := r.FindSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
