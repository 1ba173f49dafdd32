package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("test-token", "12345", true)
	c.baseURL = srv.URL
	return c
}

func TestSendTextPayload(t *testing.T) {
	var got map[string]any
	var path, auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	c.SendText(context.Background(), "5215550001", "¡Hola!")

	assert.Equal(t, "/12345/messages", path)
	assert.Equal(t, "Bearer test-token", auth)
	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "5215550001", got["to"])
	assert.Equal(t, "¡Hola!", got["text"].(map[string]any)["body"])
}

func TestSendTextTruncates(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	c.SendText(context.Background(), "5215550001", strings.Repeat("a", 5000))

	body := got["text"].(map[string]any)["body"].(string)
	assert.Len(t, body, 4096)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("a", 4094) + "😊😊"
	out := truncate(s, 4096)
	assert.LessOrEqual(t, len(out), 4096)
	assert.True(t, strings.HasSuffix(out, "a"), "partial emoji must be dropped whole")
}

func TestSendImagePayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	c.SendImage(context.Background(), "5215550001", "https://img.example.com/p.jpg", "La Lupita")

	assert.Equal(t, "image", got["type"])
	img := got["image"].(map[string]any)
	assert.Equal(t, "https://img.example.com/p.jpg", img["link"])
	assert.Equal(t, "La Lupita", img["caption"])
}

func TestSendImageOmitsEmptyCaption(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	c.SendImage(context.Background(), "5215550001", "https://img.example.com/p.jpg", "")

	img := got["image"].(map[string]any)
	_, hasCaption := img["caption"]
	assert.False(t, hasCaption)
}

func TestDryRunSkipsNetwork(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	c.sendEnabled = false

	c.SendText(context.Background(), "5215550001", "hola")
	c.SendImage(context.Background(), "5215550001", "https://img.example.com/p.jpg", "")
	assert.False(t, called)
}

func TestRejectedSendDoesNotPanic(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	})
	c.SendText(context.Background(), "5215550001", "hola")
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)

	assert.True(t, VerifySignature("secret", body, sign("secret", body)))
	assert.False(t, VerifySignature("secret", body, sign("wrong", body)))
	assert.False(t, VerifySignature("secret", body, "not-a-signature"))
	assert.False(t, VerifySignature("secret", body, ""))
	assert.True(t, VerifySignature("", body, ""), "empty secret disables verification")
}
