package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/disaster_response_system/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestWorker(cfg *config.Config) *WebhookWorker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewWebhookWorker(nil, logger, cfg)
}

func testEvent() (WebhookEvent, string) {
	event := WebhookEvent{
		Type:       EventIncidentCreated,
		IncidentID: "INC-2026-0042",
		ActorID:    uuid.New(),
		Timestamp:  time.Now().UTC(),
	}
	payload, _ := json.Marshal(event)
	return event, string(payload)
}

func TestProcessWebhookEvent_DeliversPayload(t *testing.T) {
	var delivered atomic.Int32
	var receivedBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		receivedBody = buf.Bytes()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := newTestWorker(cfg)
	event, payload := testEvent()

	worker.processWebhookEvent(context.Background(), event, payload)
	worker.httpClient.CloseIdleConnections()

	assert.Equal(t, int32(1), delivered.Load())
	assert.JSONEq(t, payload, string(receivedBody))
}

func TestProcessWebhookEvent_SignsPayloadWhenSecretSet(t *testing.T) {
	secret := "test-secret"
	var signature string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("X-Webhook-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookSecret:     secret,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := newTestWorker(cfg)
	event, payload := testEvent()

	worker.processWebhookEvent(context.Background(), event, payload)
	worker.httpClient.CloseIdleConnections()

	// Подпись проверяется пересчетом HMAC на стороне получателя
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	require.NotEmpty(t, signature)
	assert.Equal(t, expected, signature)
}

func TestProcessWebhookEvent_RetriesOnServerError(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Первые две попытки завершаются ошибкой, третья проходит
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := &config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := newTestWorker(cfg)
	event, payload := testEvent()

	worker.processWebhookEvent(context.Background(), event, payload)
	worker.httpClient.CloseIdleConnections()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestProcessWebhookEvent_SkipsWithoutURL(t *testing.T) {
	cfg := &config.Config{
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	}
	worker := newTestWorker(cfg)
	event, payload := testEvent()

	// Без настроенного URL событие молча пропускается
	worker.processWebhookEvent(context.Background(), event, payload)
}

func TestGenerateHMACSHA256(t *testing.T) {
	signature := generateHMACSHA256("payload", "secret")

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("payload"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)
}
