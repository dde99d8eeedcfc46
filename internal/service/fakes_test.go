package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"course-fee-gateway/internal/cache"
	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/events"
	"course-fee-gateway/internal/infrastructure/payment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// memLedger is an in-memory stand-in for the order, customer, record and
// callback repositories.
type memLedger struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	courses   map[string]*domain.Course
	orders    map[string]*domain.Order
	callbacks []domain.CallbackEvent
	nextID    int64
	// transitions counts calls into TransitionStatus.
	transitions int
}

func newMemLedger() *memLedger {
	return &memLedger{
		users:   map[string]*domain.User{},
		courses: map[string]*domain.Course{},
		orders:  map[string]*domain.Order{},
	}
}

func (m *memLedger) UpsertUser(_ context.Context, _ *sql.Tx, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[user.Email]; ok {
		existing.FullName, existing.Phone, existing.CollegeName = user.FullName, user.Phone, user.CollegeName
		*user = *existing
		return nil
	}
	m.nextID++
	user.ID = m.nextID
	u := *user
	m.users[user.Email] = &u
	return nil
}

func (m *memLedger) UpsertCourse(_ context.Context, _ *sql.Tx, course *domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.courses[course.CourseName]; ok {
		existing.CourseFee = course.CourseFee
		*course = *existing
		return nil
	}
	m.nextID++
	course.ID = m.nextID
	course.IsActive = true
	c := *course
	m.courses[course.CourseName] = &c
	return nil
}

func (m *memLedger) CreateOrder(_ context.Context, _ *sql.Tx, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.OrderID]; ok {
		return domain.ErrDuplicateOrder
	}
	o := *order
	m.orders[order.OrderID] = &o
	return nil
}

func (m *memLedger) FindByOrderID(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memLedger) TransitionStatus(_ context.Context, orderID string, status domain.OrderStatus, gatewayRef string, at time.Time) (*domain.Order, domain.TransitionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions++
	o, ok := m.orders[orderID]
	if !ok {
		return nil, "", domain.ErrOrderNotFound
	}
	outcome, err := o.Transition(status, gatewayRef, at)
	cp := *o
	if err != nil {
		return &cp, "", err
	}
	return &cp, outcome, nil
}

func (m *memLedger) SetPaymentLink(_ context.Context, orderID, link string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != domain.OrderPending {
		return domain.ErrOrderNotPending
	}
	o.PaymentLink = link
	o.UpdatedAt = at
	return nil
}

func (m *memLedger) FindStuckOrders(_ context.Context, before time.Time, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderPending && o.CreatedAt.Before(before) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memLedger) FindSummary(_ context.Context, orderID string) (*domain.RecordSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	var user *domain.User
	for _, u := range m.users {
		if u.ID == o.UserID {
			user = u
		}
	}
	var course *domain.Course
	for _, c := range m.courses {
		if c.ID == o.CourseID {
			course = c
		}
	}
	return &domain.RecordSummary{
		ID:            o.ID.String(),
		FullName:      user.FullName,
		Email:         user.Email,
		Phone:         user.Phone,
		CourseName:    course.CourseName,
		CollegeName:   user.CollegeName,
		Amount:        o.Amount,
		OrderID:       o.OrderID,
		PaymentID:     o.GatewayRef,
		TransactionID: o.OrderID,
		Status:        o.Status,
		Flow:          o.Flow,
		PaymentLink:   o.PaymentLink,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}, nil
}

func (m *memLedger) RecordEvent(_ context.Context, event *domain.CallbackEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, *event)
	return nil
}

func (m *memLedger) ListByOrderID(_ context.Context, orderID string) ([]domain.CallbackEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CallbackEvent
	for _, e := range m.callbacks {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) outcomes() []domain.CallbackOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CallbackOutcome, 0, len(m.callbacks))
	for _, e := range m.callbacks {
		out = append(out, e.Outcome)
	}
	return out
}

type gatewayFunc func(ctx context.Context, req payment.LinkRequest) (string, error)

func (f gatewayFunc) InitiateLink(ctx context.Context, req payment.LinkRequest) (string, error) {
	return f(ctx, req)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PaymentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type mapCache struct {
	mu      sync.Mutex
	records map[string]domain.RecordSummary
	gets    int
}

func newMapCache() *mapCache {
	return &mapCache{records: map[string]domain.RecordSummary{}}
}

func (c *mapCache) Get(_ context.Context, orderID string) (*domain.RecordSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	rec, ok := c.records[orderID]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &rec, nil
}

func (c *mapCache) Set(_ context.Context, summary *domain.RecordSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if summary.Status.Terminal() {
		c.records[summary.OrderID] = *summary
	}
	return nil
}

// newTxDB returns a sqlmock database expecting txs begin/commit pairs.
func newTxDB(t *testing.T, txs int) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	for range txs {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db
}
