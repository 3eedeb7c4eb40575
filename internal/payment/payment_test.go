package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/travel-bot/internal/auth"
	"github.com/ukydev/travel-bot/internal/models"
)

func TestClient_MarkCompleted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/payment/pay-42/status", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body models.StatusUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "completed", body.Status)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client(), nil)
	require.NoError(t, client.MarkCompleted(context.Background(), "pay-42"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_BearerToken(t *testing.T) {
	tokens, err := auth.NewService("secret", time.Minute)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := tokens.ValidateToken(r.Header.Get("Authorization"))
		require.NoError(t, err)
		assert.Equal(t, "pay-1", claims.Subject)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), tokens)
	assert.NoError(t, client.MarkCompleted(context.Background(), "pay-1"))
}

func TestClient_ServerResponseCodes(t *testing.T) {
	testCases := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{"success", http.StatusOK, false},
		{"accepted", http.StatusAccepted, false},
		{"bad request", http.StatusBadRequest, true},
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			err := NewClient(server.URL, server.Client(), nil).MarkCompleted(context.Background(), "pay-1")
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tc.code, statusErr.StatusCode)
			assert.Equal(t, `{"error":"nope"}`, statusErr.Body)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	err := NewClient("http://127.0.0.1:1", nil, nil).MarkCompleted(context.Background(), "pay-1")
	assert.Error(t, err)
}

func TestClient_EscapesPaymentID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payment/a%2Fb/status", r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, NewClient(server.URL, server.Client(), nil).MarkCompleted(context.Background(), "a/b"))
}
