// Package openai talks to the chat-completions API for the two language
// tasks the bot delegates: intent extraction and craving expansion.
// Both degrade gracefully when the API is unreachable.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Agustinnra/turicanje-bot/internal/intent"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
)

const (
	apiURL = "https://api.openai.com/v1/chat/completions"
	model  = "gpt-4o-mini"

	classifyTimeout = 15 * time.Second
	expandTimeout   = 10 * time.Second
)

// Client implements intent.Classifier and the search expander against
// the OpenAI chat-completions endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// New builds a client; an empty key yields a nil client so callers fall
// back to heuristics without special-casing.
func New(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    apiURL,
		httpClient: &http.Client{Timeout: classifyTimeout},
		log:        logger.GetLogger("openai"),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, timeout time.Duration, temperature float64, maxTokens int, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

type classifyPayload struct {
	Intent        string `json:"intent"`
	Craving       string `json:"craving"`
	BusinessName  string `json:"business_name"`
	NeedsLocation bool   `json:"needs_location"`
}

// Classify implements intent.Classifier. The prompt forces a strict
// JSON reply; anything unparseable is an error so the caller can fall
// back to the regex heuristic.
func (c *Client) Classify(ctx context.Context, text, language, displayName string) (intent.Result, error) {
	system := fmt.Sprintf(`Eres %s, analizas mensajes para saber qué quiere comer o qué negocio busca el usuario.
NUNCA inventes comida que no mencionó. Si no menciona comida específica, craving es null.
Si el mensaje nombra un negocio concreto, business_name lleva ese nombre exacto.
Responde SOLO en JSON con: {"intent": "greeting|search|business_search|other", "craving": "texto exacto o null", "business_name": "nombre exacto o null", "needs_location": true/false}

Intents:
- greeting: saludos iniciales
- search: busca comida o restaurante por antojo
- business_search: busca un negocio por nombre
- other: todo lo demás

needs_location solo es true si pidió "cerca", "aquí cerca", etc.`, displayName)

	content, err := c.complete(ctx, classifyTimeout, 0.1, 100, system, fmt.Sprintf("Analiza este mensaje: '%s'", text))
	if err != nil {
		return intent.Result{}, err
	}

	var payload classifyPayload
	if err := json.Unmarshal([]byte(stripFences(content)), &payload); err != nil {
		return intent.Result{}, fmt.Errorf("unparseable intent reply %q: %w", content, err)
	}

	r := intent.Result{
		Craving:       cleanField(payload.Craving),
		Business:      cleanField(payload.BusinessName),
		NeedsLocation: payload.NeedsLocation,
	}
	switch payload.Intent {
	case "greeting":
		r.Intent = intent.Greeting
	case "search":
		r.Intent = intent.Search
	case "business_search":
		r.Intent = intent.BusinessName
	default:
		r.Intent = intent.Other
	}
	return r, nil
}

// Expand implements the search expander: related terms for a craving,
// comma separated. On any failure the caller degrades to the original
// term, so the error is returned as-is.
func (c *Client) Expand(ctx context.Context, term string) ([]string, error) {
	system := `Dado un antojo de comida, responde SOLO con términos relacionados separados por comas.
Términos concretos de comida mexicana que un negocio pondría en su menú. Máximo 6. Sin explicaciones.`

	content, err := c.complete(ctx, expandTimeout, 0.3, 60, system, term)
	if err != nil {
		return nil, err
	}

	var terms []string
	for _, part := range strings.Split(content, ",") {
		if t := strings.ToLower(strings.TrimSpace(part)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("expansion returned no terms")
	}
	return terms, nil
}

// Greeting generates the humanized first-contact message. Errors fall
// back to the canned templates at the call site.
func (c *Client) Greeting(ctx context.Context, displayName string) (string, error) {
	system := fmt.Sprintf(`Eres %s, una persona real que trabaja recomendando lugares para comer en México.
Escribes como un amigo cálido por WhatsApp, natural y casual, sin ser formal.
NUNCA menciones que eres un bot, IA o asistente automático.
Usa 1-2 emojis máximo. Preséntate brevemente y pregunta qué se le antoja.
Máximo 3 líneas. No uses markdown.`, displayName)

	return c.complete(ctx, classifyTimeout, 0.8, 120, system, "Genera tu primer mensaje de saludo para alguien que acaba de escribirte.")
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return s
}
