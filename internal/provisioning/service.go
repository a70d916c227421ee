package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	notificationPrefix = "NOTIF"
	requestIDHeader    = "X-Request-ID"
	// bytes of an error response kept for the log
	maxErrorBody = 512
)

type UpdateNipRequest struct {
	Nip string `json:"nip"`
}

type Notification struct {
	ID         string
	Nip        string
	StatusCode int
}

type ServiceImpl struct {
	url    string
	client *http.Client
}

// creates a new ServiceImpl posting to updateNipURL
func New(updateNipURL string, timeout time.Duration) (*ServiceImpl, error) {
	if updateNipURL == "" {
		return nil, fmt.Errorf("provisioning URL is required")
	}

	return &ServiceImpl{
		url: updateNipURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// generates a prefixed ULID like "NOTIF-01D78XYFJ1PRM1WPBCBT3VHMNV"
func GenerateNotificationID() string {
	return fmt.Sprintf("%s-%s", notificationPrefix, ulid.Make().String())
}

func (s *ServiceImpl) NotifyRenewal(ctx context.Context, nip string) (*Notification, error) {
	notification := &Notification{
		ID:  GenerateNotificationID(),
		Nip: nip,
	}

	body, err := json.Marshal(UpdateNipRequest{Nip: nip})
	if err != nil {
		return notification, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return notification, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, notification.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return notification, fmt.Errorf("update nip request failed: %w", err)
	}
	defer resp.Body.Close()
	notification.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return notification, fmt.Errorf("update nip failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	// drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)

	return notification, nil
}
