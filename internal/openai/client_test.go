package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agustinnra/turicanje-bot/internal/intent"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("test-key")
	require.NotNil(t, c)
	c.baseURL = srv.URL
	return c
}

func completionReply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestNewWithoutKey(t *testing.T) {
	assert.Nil(t, New(""))
}

func TestClassifyParsesReply(t *testing.T) {
	c := newTestClient(t, completionReply(`{"intent":"search","craving":"tacos al pastor","business_name":null,"needs_location":true}`))

	r, err := c.Classify(context.Background(), "quiero tacos al pastor cerca", "es", "Ana")
	require.NoError(t, err)
	assert.Equal(t, intent.Search, r.Intent)
	assert.Equal(t, "tacos al pastor", r.Craving)
	assert.Empty(t, r.Business)
	assert.True(t, r.NeedsLocation)
}

func TestClassifyBusinessSearch(t *testing.T) {
	c := newTestClient(t, completionReply(`{"intent":"business_search","craving":null,"business_name":"La Lupita","needs_location":false}`))

	r, err := c.Classify(context.Background(), "tienen La Lupita?", "es", "Ana")
	require.NoError(t, err)
	assert.Equal(t, intent.BusinessName, r.Intent)
	assert.Equal(t, "La Lupita", r.Business)
}

func TestClassifyStripsCodeFences(t *testing.T) {
	c := newTestClient(t, completionReply("```json\n{\"intent\":\"greeting\",\"craving\":null,\"business_name\":null,\"needs_location\":false}\n```"))

	r, err := c.Classify(context.Background(), "hola", "es", "Ana")
	require.NoError(t, err)
	assert.Equal(t, intent.Greeting, r.Intent)
}

func TestClassifyUnknownIntentMapsToOther(t *testing.T) {
	c := newTestClient(t, completionReply(`{"intent":"banter","craving":null,"business_name":null,"needs_location":false}`))

	r, err := c.Classify(context.Background(), "jaja", "es", "Ana")
	require.NoError(t, err)
	assert.Equal(t, intent.Other, r.Intent)
}

func TestClassifyUnparseableReply(t *testing.T) {
	c := newTestClient(t, completionReply("claro, el usuario quiere tacos"))

	_, err := c.Classify(context.Background(), "quiero tacos", "es", "Ana")
	assert.Error(t, err)
}

func TestClassifyUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.Classify(context.Background(), "quiero tacos", "es", "Ana")
	assert.Error(t, err)
}

func TestExpandSplitsTerms(t *testing.T) {
	c := newTestClient(t, completionReply("Tacos al pastor, quesadillas , gringas,  "))

	terms, err := c.Expand(context.Background(), "tacos")
	require.NoError(t, err)
	assert.Equal(t, []string{"tacos al pastor", "quesadillas", "gringas"}, terms)
}

func TestExpandEmptyReply(t *testing.T) {
	c := newTestClient(t, completionReply(" , , "))

	_, err := c.Expand(context.Background(), "tacos")
	assert.Error(t, err)
}

func TestGreeting(t *testing.T) {
	c := newTestClient(t, completionReply("¡Hola! Soy Ana 😊 ¿Qué se te antoja hoy?"))

	msg, err := c.Greeting(context.Background(), "Ana")
	require.NoError(t, err)
	assert.Contains(t, msg, "Ana")
}

func TestRequestCarriesAuth(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		completionReply(`{"intent":"other","craving":null,"business_name":null,"needs_location":false}`)(w, r)
	})

	_, err := c.Classify(context.Background(), "x", "es", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
}
