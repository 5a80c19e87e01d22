package submission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrogh/eventtag/internal/domain"
)

func testRequest() Request {
	return Request{
		TeamName: "holdet",
		Model:    "gpt-4o",
		Metrics: domain.AggregateMetrics{
			AccuracyAt1:      0.8,
			WeightedAccuracy: 0.85,
			TotalRecords:     50,
		},
		TotalCost:   domain.MilliOre(12_500),
		TotalTokens: 90_000,
		RecordCount: 50,
		SubmittedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestClientSubmit(t *testing.T) {
	t.Run("posts the run and echoes the dashboard response", func(t *testing.T) {
		var got Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/submissions", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"rank":3,"message":"godt gået"}`))
		}))
		defer srv.Close()

		client := New(srv.URL, nil, nil)
		resp, err := client.Submit(context.Background(), testRequest())
		require.NoError(t, err)

		assert.JSONEq(t, `{"rank":3,"message":"godt gået"}`, string(resp),
			"dashboard body must be passed through verbatim")
		assert.Equal(t, "holdet", got.TeamName)
		assert.Equal(t, 50, got.RecordCount)
		assert.InDelta(t, 0.85, got.Metrics.WeightedAccuracy, 1e-9)
	})

	t.Run("non-2xx becomes a StatusError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("missing team"))
		}))
		defer srv.Close()

		client := New(srv.URL, nil, nil)
		_, err := client.Submit(context.Background(), testRequest())

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
		assert.Contains(t, statusErr.Error(), "missing team")
		assert.False(t, statusErr.Retryable())
	})

	t.Run("unreachable dashboard", func(t *testing.T) {
		client := New("http://127.0.0.1:0", nil, nil)
		_, err := client.Submit(context.Background(), testRequest())
		assert.Error(t, err)
	})
}

func TestStatusErrorRetryable(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: http.StatusTooManyRequests}).Retryable())
	assert.True(t, (&StatusError{StatusCode: http.StatusBadGateway}).Retryable())
	assert.False(t, (&StatusError{StatusCode: http.StatusUnprocessableEntity}).Retryable())
	assert.False(t, (&StatusError{StatusCode: http.StatusUnauthorized}).Retryable())
}
