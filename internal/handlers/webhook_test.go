package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agustinnra/turicanje-bot/internal/bot"
	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/models"
	"github.com/Agustinnra/turicanje-bot/internal/search"
	"github.com/Agustinnra/turicanje-bot/internal/session"
)

type emptyCatalog struct{}

func (emptyCatalog) ByExactName(ctx context.Context, folded string, limit int) ([]models.Place, error) {
	return nil, nil
}

func (emptyCatalog) ByCategoryExact(ctx context.Context, terms []string, limit int) ([]models.Place, error) {
	return nil, nil
}

func (emptyCatalog) ByBroadMatch(ctx context.Context, terms []string, limit int) ([]models.Place, error) {
	return nil, nil
}

func (emptyCatalog) AnyRanked(ctx context.Context, limit int) ([]models.Place, error) {
	return nil, nil
}

type capturingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *capturingSender) SendText(ctx context.Context, to, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, body)
}

func (s *capturingSender) SendImage(ctx context.Context, to, imageURL, caption string) {}

func (s *capturingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

func testApp(appSecret string) (*fiber.App, *capturingSender) {
	cfg := &config.Config{
		WhatsApp: config.WhatsAppConfig{
			VerifyToken: "verifica_turicanje",
			AppSecret:   appSecret,
		},
		Bot: config.BotConfig{
			Language:    "es",
			Timezone:    "America/Mexico_City",
			IdleReset:   2 * time.Minute,
			PageSize:    3,
			SearchLimit: 10,
		},
	}

	sender := &capturingSender{}
	store := session.NewStore(cfg.Bot.IdleReset)
	b := bot.New(cfg, store, search.NewEngine(emptyCatalog{}, nil), nil, nil, sender, nil)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/webhook", VerifyWebhook(cfg))
	app.Post("/webhook", ReceiveWebhook(cfg, b))
	app.Get("/health", HealthCheck(cfg, store))
	return app, sender
}

func TestVerifyWebhookEchoesChallenge(t *testing.T) {
	app, _ := testApp("")

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=verifica_turicanje&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "12345", string(body))
}

func TestVerifyWebhookRejectsBadToken(t *testing.T) {
	app, _ := testApp("")

	req := httptest.NewRequest("GET", "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

const textPayload = `{
	"entry": [{
		"changes": [{
			"value": {
				"messages": [{
					"from": "5215550001",
					"type": "text",
					"text": {"body": "hola"}
				}]
			}
		}]
	}]
}`

func TestReceiveWebhookDispatchesText(t *testing.T) {
	app, sender := testApp("")

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(textPayload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		return sender.count() > 0
	}, 2*time.Second, 10*time.Millisecond, "inbound text should produce a reply")
}

func TestReceiveWebhookRejectsBadSignature(t *testing.T) {
	app, sender := testApp("topsecret")

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(textPayload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Zero(t, sender.count())
}

func TestReceiveWebhookAcceptsValidSignature(t *testing.T) {
	app, _ := testApp("topsecret")

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write([]byte(textPayload))
	sig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(textPayload)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", sig)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestReceiveWebhookIgnoresStatusCallbacks(t *testing.T) {
	app, sender := testApp("")

	payload := `{"entry": [{"changes": [{"value": {"statuses": [{"status": "delivered"}]}}]}]}`
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sender.count())
}

func TestReceiveWebhookRejectsInvalidJSON(t *testing.T) {
	app, _ := testApp("")

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealthReportsSessionsAndDryRun(t *testing.T) {
	app, _ := testApp("")

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"active_sessions":0`)
	assert.Contains(t, string(body), `"dry_run":true`)
}
