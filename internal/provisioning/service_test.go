package provisioning_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/ConcurrentDragon/nip-renewal/internal/provisioning"
)

func TestNotifyRenewal(t *testing.T) {
	var got provisioning.UpdateNipRequest
	var contentType, requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		contentType = r.Header.Get("Content-Type")
		requestID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service, err := provisioning.New(server.URL, 5*time.Second)
	require.NoError(t, err)

	notification, err := service.NotifyRenewal(context.Background(), "ABC123")
	require.NoError(t, err)

	assert.Equal(t, "ABC123", got.Nip)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, notification.ID, requestID)
	assert.True(t, strings.HasPrefix(notification.ID, "NOTIF-"))
	assert.Equal(t, http.StatusOK, notification.StatusCode)
}

func TestNotifyRenewalBodyShape(t *testing.T) {
	var raw []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, err := buf.ReadFrom(r.Body)
		require.NoError(t, err)
		raw = []byte(buf.String())
	}))
	defer server.Close()

	service, err := provisioning.New(server.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = service.NotifyRenewal(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nip":"ABC123"}`, string(raw))
}

func TestNotifyRenewalNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("database unavailable"))
	}))
	defer server.Close()

	service, err := provisioning.New(server.URL, 5*time.Second)
	require.NoError(t, err)

	notification, err := service.NotifyRenewal(context.Background(), "ABC123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
	assert.Equal(t, http.StatusInternalServerError, notification.StatusCode)
}

func TestNotifyRenewalUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	service, err := provisioning.New(url, time.Second)
	require.NoError(t, err)

	_, err = service.NotifyRenewal(context.Background(), "ABC123")
	assert.Error(t, err)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := provisioning.New("", time.Second)
	assert.Error(t, err)
}

type failingService struct {
	calls int32
}

func (s *failingService) NotifyRenewal(ctx context.Context, nip string) (*provisioning.Notification, error) {
	atomic.AddInt32(&s.calls, 1)
	return &provisioning.Notification{Nip: nip}, errors.New("connection refused")
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingService{}
	service := provisioning.NewBreakerService(inner, 2, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := service.NotifyRenewal(context.Background(), "ABC123")
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, service.State())

	notification, err := service.NotifyRenewal(context.Background(), "ABC123")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, "ABC123", notification.Nip)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
}

func TestMockedNotifyRenewal(t *testing.T) {
	notification, err := provisioning.NewMocked().NotifyRenewal(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", notification.Nip)
}
