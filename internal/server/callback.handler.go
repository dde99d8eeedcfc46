package server

import (
	"net/http"
	"net/url"

	"course-fee-gateway/internal/checksum"
	"course-fee-gateway/internal/domain"
	"course-fee-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type CallbackHandler struct {
	callbacks   service.CallbackService
	frontendURL string
	logger      *zap.Logger
}

func NewCallbackHandler(callbacks service.CallbackService, frontendURL string, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{callbacks: callbacks, frontendURL: frontendURL, logger: logger}
}

type callbackForm struct {
	Status      string `form:"status"`
	TxnID       string `form:"txnid"`
	EasepayID   string `form:"easepayid"`
	Hash        string `form:"hash"`
	Email       string `form:"email"`
	FirstName   string `form:"firstname"`
	ProductInfo string `form:"productinfo"`
	Amount      string `form:"amount"`
	UDF1        string `form:"udf1"`
	UDF2        string `form:"udf2"`
	UDF3        string `form:"udf3"`
	UDF4        string `form:"udf4"`
	UDF5        string `form:"udf5"`
	UDF6        string `form:"udf6"`
	UDF7        string `form:"udf7"`
	UDF8        string `form:"udf8"`
	UDF9        string `form:"udf9"`
	UDF10       string `form:"udf10"`
}

func (f callbackForm) payload() service.CallbackPayload {
	return service.CallbackPayload{
		Status:     f.Status,
		GatewayRef: f.EasepayID,
		Hash:       f.Hash,
		Fields: checksum.PaymentFields{
			TxnID:       f.TxnID,
			Amount:      f.Amount,
			ProductInfo: f.ProductInfo,
			FirstName:   f.FirstName,
			Email:       f.Email,
			UDF: [checksum.UDFCount]string{
				f.UDF1, f.UDF2, f.UDF3, f.UDF4, f.UDF5,
				f.UDF6, f.UDF7, f.UDF8, f.UDF9, f.UDF10,
			},
		},
	}
}

// HandleCallback verifies the gateway's result post and sends the browser to
// the result page. Rejected callbacks redirect as failures without detail.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var form callbackForm
	if err := c.ShouldBindWith(&form, binding.Form); err != nil {
		h.redirect(c, "", domain.OrderFailure)
		return
	}

	res, err := h.callbacks.VerifyCallback(c.Request.Context(), form.payload())
	switch {
	case err == nil, res != nil && res.Outcome == domain.CallbackConflict:
		h.redirect(c, res.OrderID, res.Status)
	case res != nil && res.Outcome == domain.CallbackError:
		// The ledger could not be reached; the result page polls for the outcome.
		h.redirect(c, res.OrderID, domain.OrderPending)
	default:
		h.redirect(c, form.TxnID, domain.OrderFailure)
	}
}

func (h *CallbackHandler) redirect(c *gin.Context, orderID string, status domain.OrderStatus) {
	q := url.Values{}
	q.Set("txnid", orderID)
	q.Set("status", string(status))
	c.Redirect(http.StatusSeeOther, h.frontendURL+"?"+q.Encode())
}
