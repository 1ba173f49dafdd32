// Package whatsapp is the Cloud API client: text and image sends plus
// webhook signature verification. Sends are fire-and-forget; a failed
// delivery is logged, never surfaced to the conversation flow.
package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Agustinnra/turicanje-bot/internal/logger"
)

const (
	graphBaseURL = "https://graph.facebook.com/v20.0"

	maxTextLen    = 4096
	maxCaptionLen = 1024
)

// Sender is what the conversation layer needs from this package
type Sender interface {
	SendText(ctx context.Context, to, body string)
	SendImage(ctx context.Context, to, imageURL, caption string)
}

// Client talks to the WhatsApp Cloud API for one phone number. With
// sendEnabled false it logs outbound messages instead of delivering
// them, which is how local runs work without burning a real number.
type Client struct {
	token         string
	phoneNumberID string
	sendEnabled   bool
	baseURL       string
	httpClient    *http.Client
	log           *zap.SugaredLogger
}

// New builds a client for the given number
func New(token, phoneNumberID string, sendEnabled bool) *Client {
	return &Client{
		token:         token,
		phoneNumberID: phoneNumberID,
		sendEnabled:   sendEnabled,
		baseURL:       graphBaseURL,
		httpClient:    &http.Client{Timeout: 20 * time.Second},
		log:           logger.GetLogger("whatsapp"),
	}
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type imagePayload struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Image            imageBody `json:"image"`
}

type imageBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// SendText delivers a text message, truncated to the API limit
func (c *Client) SendText(ctx context.Context, to, body string) {
	body = truncate(body, maxTextLen)

	if !c.sendEnabled {
		c.log.Infof("[dry-run] text to %s:\n%s", to, body)
		return
	}

	c.post(ctx, to, "text", textPayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
}

// SendImage delivers an image by URL with an optional caption
func (c *Client) SendImage(ctx context.Context, to, imageURL, caption string) {
	caption = truncate(caption, maxCaptionLen)

	if !c.sendEnabled {
		c.log.Infof("[dry-run] image to %s: %s (caption %q)", to, imageURL, caption)
		return
	}

	c.post(ctx, to, "image", imagePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "image",
		Image:            imageBody{Link: imageURL, Caption: caption},
	})
}

func (c *Client) post(ctx context.Context, to, kind string, payload any) {
	if c.token == "" {
		c.log.Errorf("missing token, %s to %s dropped", kind, to)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Errorf("failed to encode %s payload: %v", kind, err)
		return
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		c.log.Errorf("failed to create %s request: %v", kind, err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorf("%s to %s failed: %v", kind, to, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Errorf("%s to %s rejected: %d %s", kind, to, resp.StatusCode, string(detail))
		return
	}
	c.log.Infof("%s sent to %s", kind, to)
}

// truncate cuts on rune boundaries so a multibyte emoji at the limit
// is dropped whole instead of split.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	for len(string(runes)) > max {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// request body. An empty appSecret disables verification.
func VerifySignature(appSecret string, body []byte, header string) bool {
	if appSecret == "" {
		return true
	}
	sig := strings.TrimPrefix(header, "sha256=")
	if sig == header {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}
