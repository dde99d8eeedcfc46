package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"course-fee-gateway/internal/checksum"
	"course-fee-gateway/internal/clock"
	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/infrastructure/payment"
	"course-fee-gateway/internal/repo"
	"course-fee-gateway/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderService interface {
	IssueOrder(ctx context.Context, in IssueInput) (*IssuedOrder, error)
	IssueLinkOrder(ctx context.Context, in IssueInput) (*IssuedLink, error)
	RetryLink(ctx context.Context, orderID string) (*IssuedLink, error)
}

type IssuedOrder struct {
	OrderID     string `json:"orderId"`
	Amount      string `json:"amount"`
	Hash        string `json:"hash"`
	MerchantKey string `json:"merchantKey"`
}

type IssuedLink struct {
	OrderID     string `json:"orderId"`
	Amount      string `json:"amount"`
	PaymentLink string `json:"paymentLink"`
}

// LinkError reports a link order that was created but has no payment link
// yet. The order stays pending and the link can be requested again.
type LinkError struct {
	OrderID string
	Err     error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("order %s: %v", e.OrderID, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

type IssuerOptions struct {
	OrderIDPrefix string
	// CallbackURL is where the gateway posts the payment result.
	CallbackURL string
}

type orderService struct {
	db           *sql.DB
	orderRepo    repo.OrderRepo
	customerRepo repo.CustomerRepo
	recordRepo   repo.RecordRepo
	paymentGtw   payment.PaymentGateway
	engine       *checksum.Engine
	clock        clock.Clock
	logger       *zap.Logger
	opts         IssuerOptions
}

func NewOrderService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	customerRepo repo.CustomerRepo,
	recordRepo repo.RecordRepo,
	paymentGtw payment.PaymentGateway,
	engine *checksum.Engine,
	clk clock.Clock,
	logger *zap.Logger,
	opts IssuerOptions,
) OrderService {
	if opts.OrderIDPrefix == "" {
		opts.OrderIDPrefix = "FEE"
	}
	return &orderService{
		db:           db,
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		recordRepo:   recordRepo,
		paymentGtw:   paymentGtw,
		engine:       engine,
		clock:        clk,
		logger:       logger,
		opts:         opts,
	}
}

func (s *orderService) IssueOrder(ctx context.Context, in IssueInput) (*IssuedOrder, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "OrderService.IssueOrder")
	defer span.End()

	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	order, err := s.createOrder(ctx, in, domain.FlowCheckout)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.OrderID))

	hash := s.engine.RequestHash(fieldsFor(order.OrderID, order.Amount.StringFixed(2), in.FullName, in.Email, in.CourseName, in.CollegeName))
	telemetry.RecordOrderIssued(string(domain.FlowCheckout))
	s.logger.Info("order issued",
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.String("order_id", order.OrderID),
		zap.String("flow", string(order.Flow)),
	)

	return &IssuedOrder{
		OrderID:     order.OrderID,
		Amount:      order.Amount.StringFixed(2),
		Hash:        hash,
		MerchantKey: s.engine.MerchantKey(),
	}, nil
}

func (s *orderService) IssueLinkOrder(ctx context.Context, in IssueInput) (*IssuedLink, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "OrderService.IssueLinkOrder")
	defer span.End()

	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	order, err := s.createOrder(ctx, in, domain.FlowLink)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.OrderID))
	telemetry.RecordOrderIssued(string(domain.FlowLink))

	link, err := s.mintLink(ctx, order.OrderID, in.Phone,
		fieldsFor(order.OrderID, order.Amount.StringFixed(2), in.FullName, in.Email, in.CourseName, in.CollegeName))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &IssuedLink{OrderID: order.OrderID, Amount: order.Amount.StringFixed(2), PaymentLink: link}, nil
}

func (s *orderService) RetryLink(ctx context.Context, orderID string) (*IssuedLink, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "OrderService.RetryLink")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	rec, err := s.recordRepo.FindSummary(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rec.Flow != domain.FlowLink {
		return nil, domain.NewValidationError("orderId", "not a payment link order")
	}
	if rec.Status != domain.OrderPending {
		return nil, domain.ErrOrderNotPending
	}

	link, err := s.mintLink(ctx, rec.OrderID, rec.Phone,
		fieldsFor(rec.OrderID, rec.Amount.StringFixed(2), rec.FullName, rec.Email, rec.CourseName, rec.CollegeName))
	if err != nil {
		return nil, err
	}
	return &IssuedLink{OrderID: rec.OrderID, Amount: rec.Amount.StringFixed(2), PaymentLink: link}, nil
}

// mintLink asks the gateway for a hosted page and stores it on the order.
// Failures leave the order pending and come back as *LinkError.
func (s *orderService) mintLink(ctx context.Context, orderID, phone string, fields checksum.PaymentFields) (string, error) {
	link, err := s.paymentGtw.InitiateLink(ctx, payment.LinkRequest{
		Fields:     fields,
		Phone:      phone,
		SuccessURL: s.opts.CallbackURL,
		FailureURL: s.opts.CallbackURL,
		Hash:       s.engine.RequestHash(fields),
	})
	if err != nil {
		telemetry.RecordGatewayFailure()
		s.logger.Warn("payment link not issued, order left pending",
			zap.String("trace_id", telemetry.GetTraceID(ctx)),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		return "", &LinkError{OrderID: orderID, Err: err}
	}

	if err := s.orderRepo.SetPaymentLink(ctx, orderID, link, s.clock.Now()); err != nil {
		s.logger.Error("payment link not persisted",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return "", &LinkError{OrderID: orderID, Err: err}
	}

	s.logger.Info("payment link issued",
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.String("order_id", orderID),
	)
	return link, nil
}

// createOrder resolves the user and course and inserts a pending order in a
// single transaction.
func (s *orderService) createOrder(ctx context.Context, in IssueInput, flow domain.OrderFlow) (*domain.Order, error) {
	now := s.clock.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user := &domain.User{
		FullName:    in.FullName,
		Email:       in.Email,
		Phone:       in.Phone,
		CollegeName: in.CollegeName,
	}
	if err := s.customerRepo.UpsertUser(ctx, tx, user); err != nil {
		return nil, err
	}

	course := &domain.Course{CourseName: in.CourseName, CourseFee: in.Amount}
	if err := s.customerRepo.UpsertCourse(ctx, tx, course); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:        uuid.New(),
		OrderID:   s.newOrderID(flow),
		UserID:    user.ID,
		CourseID:  course.ID,
		Amount:    in.Amount.Round(2),
		Status:    domain.OrderPending,
		Flow:      flow,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

// newOrderID builds <prefix>_<TRAD|LINK>_<unix millis>_<8 hex>.
func (s *orderService) newOrderID(flow domain.OrderFlow) string {
	tag := "TRAD"
	if flow == domain.FlowLink {
		tag = "LINK"
	}
	suffix := uuid.New()
	return fmt.Sprintf("%s_%s_%d_%x", s.opts.OrderIDPrefix, tag, s.clock.Now().UnixMilli(), suffix[:4])
}

// fieldsFor maps an order onto the gateway fields: udf1 carries the course
// and udf2 the institution, the rest stay empty.
func fieldsFor(orderID, amount, name, email, course, college string) checksum.PaymentFields {
	f := checksum.PaymentFields{
		TxnID:       orderID,
		Amount:      amount,
		ProductInfo: course,
		FirstName:   name,
		Email:       email,
	}
	f.UDF[0] = course
	f.UDF[1] = college
	return f
}
