package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Agustinnra/turicanje-bot/internal/bot"
	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
	"github.com/Agustinnra/turicanje-bot/internal/middleware"
	"github.com/Agustinnra/turicanje-bot/internal/whatsapp"
)

// webhookPayload is the slice of the Cloud API notification we care
// about: the first message of the first change of the first entry.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

// VerifyWebhook answers the Cloud API subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func VerifyWebhook(cfg *config.Config) fiber.Handler {
	log := logger.GetLogger("webhook")

	return func(c *fiber.Ctx) error {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode == "subscribe" && token == cfg.WhatsApp.VerifyToken {
			log.Info("webhook verification succeeded")
			return c.SendString(challenge)
		}

		log.Warnf("webhook verification failed: mode=%s", mode)
		return fiber.NewError(fiber.StatusForbidden, "verification failed")
	}
}

// ReceiveWebhook accepts an inbound notification. The signature is
// checked against the raw body, then the message is dispatched to the
// bot on its own goroutine so the Cloud API gets its 200 immediately.
func ReceiveWebhook(cfg *config.Config, b *bot.Bot) fiber.Handler {
	log := logger.GetLogger("webhook")

	return func(c *fiber.Ctx) error {
		body := c.Body()

		if !whatsapp.VerifySignature(cfg.WhatsApp.AppSecret, body, c.Get("X-Hub-Signature-256")) {
			log.Warn("invalid webhook signature")
			return fiber.NewError(fiber.StatusForbidden, "invalid signature")
		}

		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON")
		}

		msg, ok := firstMessage(&payload)
		if !ok {
			// Status callbacks and other non-message notifications
			return c.JSON(fiber.Map{"status": "no messages"})
		}

		middleware.CountWebhookMessage(msg.Type)
		log.Infof("message from %s type=%s", msg.From, msg.Type)

		switch msg.Type {
		case "text":
			text := strings.TrimSpace(msg.Text.Body)
			go b.HandleText(context.Background(), msg.From, text)
		case "location":
			go b.HandleLocation(context.Background(), msg.From, msg.Location.Latitude, msg.Location.Longitude)
		default:
			log.Infof("unsupported message type %s", msg.Type)
		}

		return c.JSON(fiber.Map{"status": "processed"})
	}
}

func firstMessage(p *webhookPayload) (inboundMessage, bool) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return inboundMessage{}, false
	}
	messages := p.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return inboundMessage{}, false
	}
	return messages[0], true
}
