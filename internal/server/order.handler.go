package server

import (
	"net/http"
	"time"

	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders  service.OrderService
	records service.RecordService
	logger  *zap.Logger
}

func NewOrderHandler(orders service.OrderService, records service.RecordService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, records: records, logger: logger}
}

type recordResponse struct {
	ID            string             `json:"id"`
	FullName      string             `json:"fullName"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	CourseName    string             `json:"courseName"`
	CollegeName   string             `json:"collegeName"`
	Amount        string             `json:"amount"`
	OrderID       string             `json:"orderId"`
	PaymentID     string             `json:"paymentId"`
	TransactionID string             `json:"transactionId"`
	Status        domain.OrderStatus `json:"status"`
	Flow          domain.OrderFlow   `json:"flow"`
	PaymentLink   string             `json:"paymentLink,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func toRecordResponse(r *domain.RecordSummary) recordResponse {
	return recordResponse{
		ID:            r.ID,
		FullName:      r.FullName,
		Email:         r.Email,
		Phone:         r.Phone,
		CourseName:    r.CourseName,
		CollegeName:   r.CollegeName,
		Amount:        r.Amount.StringFixed(2),
		OrderID:       r.OrderID,
		PaymentID:     r.PaymentID,
		TransactionID: r.TransactionID,
		Status:        r.Status,
		Flow:          r.Flow,
		PaymentLink:   r.PaymentLink,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (h *OrderHandler) bindInput(c *gin.Context) (service.IssueInput, bool) {
	var in service.IssueInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body", Code: "validation_error"})
		return in, false
	}
	return in, true
}

// CreateOrder issues a checkout order and the hash the browser needs.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	in, ok := h.bindInput(c)
	if !ok {
		return
	}
	out, err := h.orders.IssueOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) CreateLinkOrder(c *gin.Context) {
	in, ok := h.bindInput(c)
	if !ok {
		return
	}
	out, err := h.orders.IssueLinkOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) RetryLink(c *gin.Context) {
	out, err := h.orders.RetryLink(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	rec, err := h.records.GetRecord(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toRecordResponse(rec))
}

func (h *OrderHandler) ListCallbacks(c *gin.Context) {
	events, err := h.records.ListCallbacks(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if events == nil {
		events = []domain.CallbackEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"orderId": c.Param("orderId"), "callbacks": events})
}
