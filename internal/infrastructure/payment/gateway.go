package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"course-fee-gateway/internal/checksum"
	"course-fee-gateway/internal/domain"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type PaymentGateway interface {
	// InitiateLink asks the gateway for a hosted payment page and returns its URL.
	InitiateLink(ctx context.Context, req LinkRequest) (string, error)
}

// LinkRequest carries the outbound-hash fields plus the values the gateway
// needs to render and complete the hosted page.
type LinkRequest struct {
	Fields     checksum.PaymentFields
	Phone      string
	SuccessURL string
	FailureURL string
	Hash       string
}

type paymentGateway struct {
	baseURL     string
	merchantKey string
	client      *http.Client
}

func NewPaymentGateway(baseURL, merchantKey string, timeout time.Duration) PaymentGateway {
	return &paymentGateway{
		baseURL:     strings.TrimRight(baseURL, "/"),
		merchantKey: merchantKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type initiateResponse struct {
	Status    int             `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorDesc string          `json:"error_desc"`
}

func (pg *paymentGateway) InitiateLink(ctx context.Context, req LinkRequest) (string, error) {
	form := url.Values{}
	form.Set("key", pg.merchantKey)
	form.Set("txnid", req.Fields.TxnID)
	form.Set("amount", req.Fields.Amount)
	form.Set("productinfo", req.Fields.ProductInfo)
	form.Set("firstname", req.Fields.FirstName)
	form.Set("email", req.Fields.Email)
	form.Set("phone", req.Phone)
	form.Set("surl", req.SuccessURL)
	form.Set("furl", req.FailureURL)
	for i, v := range req.Fields.UDF {
		form.Set("udf"+strconv.Itoa(i+1), v)
	}
	form.Set("hash", req.Hash)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pg.baseURL+"/payment/initiateLink", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build initiate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := pg.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out initiateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrGatewayUnavailable, err)
	}

	var data string
	_ = json.Unmarshal(out.Data, &data)
	if out.Status != 1 || data == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, rejectReason(out, data))
	}
	return pg.baseURL + "/pay/" + url.PathEscape(data), nil
}

func rejectReason(out initiateResponse, data string) string {
	switch {
	case out.ErrorDesc != "":
		return out.ErrorDesc
	case data != "":
		return data
	default:
		return "initiate link rejected"
	}
}
