// Package bot is the conversation orchestrator: it classifies inbound
// messages, drives the search engine and session state, and renders
// replies. All handling for one user runs under that user's lock.
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Agustinnra/turicanje-bot/internal/analytics"
	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/format"
	"github.com/Agustinnra/turicanje-bot/internal/intent"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
	"github.com/Agustinnra/turicanje-bot/internal/search"
	"github.com/Agustinnra/turicanje-bot/internal/session"
	"github.com/Agustinnra/turicanje-bot/internal/whatsapp"
)

// Greeter produces the humanized first-contact message. Nil or failing
// greeters fall back to canned templates.
type Greeter interface {
	Greeting(ctx context.Context, displayName string) (string, error)
}

// Bot wires the conversation pieces together
type Bot struct {
	cfg        *config.Config
	store      *session.Store
	engine     *search.Engine
	classifier intent.Classifier
	greeter    Greeter
	sender     whatsapp.Sender
	events     analytics.Recorder
	log        *zap.SugaredLogger
}

// New builds the orchestrator. classifier, greeter and events may be
// nil; the bot degrades to heuristics and skips event writes.
func New(cfg *config.Config, store *session.Store, engine *search.Engine, classifier intent.Classifier, greeter Greeter, sender whatsapp.Sender, events analytics.Recorder) *Bot {
	return &Bot{
		cfg:        cfg,
		store:      store,
		engine:     engine,
		classifier: classifier,
		greeter:    greeter,
		sender:     sender,
		events:     events,
		log:        logger.GetLogger("bot"),
	}
}

// Store exposes the session store for health reporting and the sweeper
func (b *Bot) Store() *session.Store {
	return b.store
}

func (b *Bot) record(ctx context.Context, waID, eventType, detail string) {
	if b.events != nil {
		b.events.Record(ctx, waID, eventType, detail)
	}
}

// HandleText processes one inbound text message
func (b *Bot) HandleText(ctx context.Context, waID, text string) {
	unlock := b.store.LockUser(waID)
	defer unlock()

	now := b.cfg.Bot.Now()
	sess, created := b.store.GetOrCreate(waID, b.cfg.Bot.Language, now)
	b.record(ctx, waID, analytics.EventMessageIn, text)

	res := intent.Resolve(ctx, b.classifier, text, sess.Language, sess.DisplayName)
	b.log.Infof("message from %s intent=%s", waID, res.Intent)

	switch res.Intent {
	case intent.Selection:
		b.handleSelection(ctx, sess, res.SelectionIndex)
	case intent.MoreOptions:
		b.handleMore(ctx, sess)
	case intent.NoMore:
		sess.ClearSearch()
		b.sender.SendText(ctx, waID, format.AcceptedNoMore())
	case intent.Greeting:
		b.sendGreeting(ctx, sess)
	case intent.Search, intent.BusinessName:
		term := res.Craving
		if res.Intent == intent.BusinessName && res.Business != "" {
			term = res.Business
		}
		if term == "" {
			b.sender.SendText(ctx, waID, format.AskCraving())
			return
		}
		if created {
			b.sendGreeting(ctx, sess)
		}
		b.runSearch(ctx, sess, term, res.Intent == intent.BusinessName)
	default:
		if created {
			b.sendGreeting(ctx, sess)
			return
		}
		b.sender.SendText(ctx, waID, format.AskCraving())
	}
}

// HandleLocation merges coordinates into the session. An active search
// is re-run with the location so results pick up distances and nearby
// ranking, pagination restarting at page one.
func (b *Bot) HandleLocation(ctx context.Context, waID string, lat, lng float64) {
	unlock := b.store.LockUser(waID)
	defer unlock()

	now := b.cfg.Bot.Now()
	sess, _ := b.store.GetOrCreate(waID, b.cfg.Bot.Language, now)
	sess.SetLocation(lat, lng)
	b.record(ctx, waID, analytics.EventMessageIn, "location")

	if sess.Search == nil {
		b.sender.SendText(ctx, waID, format.LocationReceived())
		return
	}
	b.runSearch(ctx, sess, sess.Search.Query, false)
}

// Farewell sends the idle goodbye. Invoked by the sweeper, which has
// already marked the session so this fires once per idle period.
func (b *Bot) Farewell(ctx context.Context, sess *session.Session) {
	b.sender.SendText(ctx, sess.WaID, format.Farewell())
	b.record(ctx, sess.WaID, analytics.EventFarewell, "")
}

func (b *Bot) sendGreeting(ctx context.Context, sess *session.Session) {
	if !sess.FirstTurn {
		b.sender.SendText(ctx, sess.WaID, format.AskCraving())
		return
	}
	sess.FirstTurn = false

	if b.greeter != nil {
		if msg, err := b.greeter.Greeting(ctx, sess.DisplayName); err == nil && msg != "" {
			b.sender.SendText(ctx, sess.WaID, msg)
			return
		}
	}
	b.sender.SendText(ctx, sess.WaID, format.Greeting(sess.DisplayName))
}

func (b *Bot) runSearch(ctx context.Context, sess *session.Session, term string, businessName bool) {
	now := b.cfg.Bot.Now()
	hasLocation := sess.Location != nil

	set, err := b.engine.Search(ctx, term, search.Options{
		Location:     sess.Location,
		Limit:        b.cfg.Bot.SearchLimit,
		BusinessName: businessName,
	})
	if err != nil {
		b.log.Errorf("search %q for %s failed: %v", term, sess.WaID, err)
		b.sender.SendText(ctx, sess.WaID, format.AskCraving())
		return
	}
	b.record(ctx, sess.WaID, analytics.EventSearch, term)

	if len(set.Results) == 0 {
		sess.ClearSearch()
		b.sender.SendText(ctx, sess.WaID, format.NoResults(term, hasLocation))
		return
	}

	page := sess.StartSearch(term, set.Results, set.UsedExpansion, b.cfg.Bot.PageSize, now)

	intro := format.SearchIntro(len(set.Results), term, hasLocation)
	if set.Tier == search.TierNearby {
		intro = format.NearbyFallbackIntro(term)
	}

	parts := []string{intro, format.ResultsPage(page, 0), format.NumberPrompt(hasLocation)}
	b.sender.SendText(ctx, sess.WaID, strings.Join(parts, "\n\n"))
}

func (b *Bot) handleMore(ctx context.Context, sess *session.Session) {
	page, remaining, ok := sess.NextPage(b.cfg.Bot.PageSize)
	if !ok {
		sess.ClearSearch()
		b.sender.SendText(ctx, sess.WaID, format.NoMoreOptions())
		return
	}

	parts := []string{
		format.MorePageIntro(len(page)),
		format.ResultsPage(page, sess.PageOffset(len(page))),
		format.MorePageClosing(len(page), remaining),
	}
	b.sender.SendText(ctx, sess.WaID, strings.Join(parts, "\n\n"))
}

func (b *Bot) handleSelection(ctx context.Context, sess *session.Session, n int) {
	if sess.Search == nil {
		b.sender.SendText(ctx, sess.WaID, format.DefaultPrompt())
		return
	}

	result, ok := sess.Select(n)
	if !ok {
		b.sender.SendText(ctx, sess.WaID, format.SelectionOutOfRange(sess.OptionCount()))
		return
	}
	b.record(ctx, sess.WaID, analytics.EventSelection, result.Place.Name)

	if result.Place.ImagenURL != nil && *result.Place.ImagenURL != "" {
		b.sender.SendImage(ctx, sess.WaID, *result.Place.ImagenURL, result.Place.Name)
	}
	b.sender.SendText(ctx, sess.WaID, format.PlaceDetails(result))
}
