package server

import (
	"errors"
	"net/http"

	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	OrderID string `json:"orderId,omitempty"`
}

// writeError maps service errors onto HTTP responses. Unexpected errors are
// logged and reported without detail.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var ve *domain.ValidationError
	var le *service.LinkError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Error(), Code: "validation_error", Field: ve.Field})
	case errors.As(err, &le) && errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, errorResponse{Error: "payment gateway unavailable", Code: "gateway_unavailable", OrderID: le.OrderID})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, errorResponse{Error: "payment gateway unavailable", Code: "gateway_unavailable"})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "order not found", Code: "not_found"})
	case errors.Is(err, domain.ErrDuplicateOrder):
		c.JSON(http.StatusConflict, errorResponse{Error: "duplicate order", Code: "duplicate_order"})
	case errors.Is(err, domain.ErrOrderNotPending):
		c.JSON(http.StatusConflict, errorResponse{Error: "order is no longer pending", Code: "order_not_pending"})
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal"})
	}
}
