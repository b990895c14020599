package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestClient_CreatePayment_Success(t *testing.T) {
	var got CreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payment/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"payment":{"invoice_url":"https://checkout/inv-1"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second, 3, quietLogger())

	url, err := client.CreatePayment(context.Background(), CreateRequest{
		BookingID:     "b-1",
		Amount:        1856000,
		Currency:      "IDR",
		CustomerEmail: "ayu@example.com",
		CustomerName:  "Ayu",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout/inv-1", url)
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, int64(1856000), got.Amount)
	assert.Equal(t, "IDR", got.Currency)
}

func TestClient_CreatePayment_RequestBodyKeys(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"success":true,"payment":{"invoice_url":"u"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, 1, quietLogger()).CreatePayment(context.Background(), CreateRequest{BookingID: "b"})
	require.NoError(t, err)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"bookingId", "amount", "currency", "customerEmail", "customerName"}, keys)
}

func TestClient_CreatePayment_RejectedIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"amount too small"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 3, quietLogger(), WithBackoff(time.Millisecond))

	_, err := client.CreatePayment(context.Background(), CreateRequest{BookingID: "b-1"})

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "amount too small", rejected.Reason)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CreatePayment_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true,"payment":{"invoice_url":"https://checkout/ok"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 3, quietLogger(), WithBackoff(time.Millisecond))

	url, err := client.CreatePayment(context.Background(), CreateRequest{BookingID: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout/ok", url)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_CreatePayment_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 2, quietLogger(), WithBackoff(time.Millisecond))

	_, err := client.CreatePayment(context.Background(), CreateRequest{BookingID: "b-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_CreatePayment_TimeoutIsNotRetried(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, 20*time.Millisecond, 3, quietLogger(), WithBackoff(time.Millisecond))

	start := time.Now()
	_, err := client.CreatePayment(context.Background(), CreateRequest{BookingID: "b-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CreatePayment_IdempotencyKey(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		if len(keys) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"success":true,"payment":{"invoice_url":"https://checkout/ok"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 3, quietLogger(), WithBackoff(time.Millisecond))

	_, err := client.CreatePayment(context.Background(), CreateRequest{BookingID: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-1"}, keys)

	keys = nil
	_, err = client.CreatePayment(context.Background(), CreateRequest{BookingID: "b-1", IdempotencyKey: "b-1-retry-7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1-retry-7", "b-1-retry-7"}, keys)
}

func TestClient_CreatePayment_MissingInvoiceURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"payment":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, 1, quietLogger()).CreatePayment(context.Background(), CreateRequest{})

	var rejected *RejectedError
	assert.ErrorAs(t, err, &rejected)
}
