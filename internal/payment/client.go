package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const createPath = "/api/payment/create"

// IdempotencyHeader carries the key under which the provider deduplicates
// invoice creation.
const IdempotencyHeader = "Idempotency-Key"

type CreateRequest struct {
	BookingID     string `json:"bookingId"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	// IdempotencyKey defaults to BookingID.
	IdempotencyKey string `json:"-"`
}

func (r CreateRequest) idempotencyKey() string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	return r.BookingID
}

type CreateResponse struct {
	Success bool `json:"success"`
	Payment struct {
		InvoiceURL string `json:"invoice_url"`
	} `json:"payment"`
	Error string `json:"error,omitempty"`
}

// Gateway creates a hosted checkout for a booking and returns its URL.
type Gateway interface {
	CreatePayment(ctx context.Context, req CreateRequest) (string, error)
}

// RejectedError is returned when the endpoint answers success:false.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "payment rejected"
	}
	return "payment rejected: " + e.Reason
}

// retryableError marks transport failures and 5xx answers. A timed out
// request is not retryable: the provider may already hold the invoice.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	breaker    *gobreaker.CircuitBreaker
	log        logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithBackoff(d time.Duration) Option {
	return func(cl *Client) { cl.backoff = d }
}

func NewClient(baseURL string, timeout time.Duration, maxRetries int, log logrus.FieldLogger, opts ...Option) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
		log:        log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "PaymentCreate",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejection is a valid answer from a healthy endpoint.
		IsSuccessful: func(err error) bool {
			var rejected *RejectedError
			return err == nil || errors.As(err, &rejected)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name}).Warnf("circuit breaker state changed from %s to %s", from, to)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePayment posts to the payment-creation endpoint. Transport errors and
// 5xx answers are retried with linear backoff under the same idempotency key.
// Rejections and timeouts are not retried.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (string, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.createOnce(ctx, req)
		})
		if err == nil {
			return out.(string), nil
		}
		lastErr = err

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return "", err
		}
		c.log.WithFields(logrus.Fields{"booking_id": req.BookingID, "attempt": i + 1}).Warnf("payment create failed: %v", err)

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(i+1) * c.backoff):
			}
		}
	}
	return "", fmt.Errorf("payment create failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) createOnce(ctx context.Context, req CreateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal payment request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(IdempotencyHeader, req.idempotencyKey())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &retryableError{err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &retryableError{err: err}
	}
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("payment endpoint returned %d", resp.StatusCode)}
	}

	var out CreateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode payment response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success {
		return "", &RejectedError{Reason: out.Error}
	}
	if out.Payment.InvoiceURL == "" {
		return "", &RejectedError{Reason: "missing invoice_url"}
	}
	return out.Payment.InvoiceURL, nil
}

var _ Gateway = (*Client)(nil)
