// Package session holds per-user conversation state: language, active
// search with pagination offset, sticky location, and idle bookkeeping.
package session

import (
	"math/rand"
	"time"

	"github.com/Agustinnra/turicanje-bot/internal/geo"
	"github.com/Agustinnra/turicanje-bot/internal/search"
)

// displayNames are the cosmetic personas a session is greeted under
var displayNames = []string{
	"Ana", "Carlos", "María", "Luis", "Carmen", "José", "Isabella", "Diego",
	"Sofía", "Miguel", "Valentina", "Alejandro", "Camila", "Roberto", "Lucía",
	"Fernando", "Gabriela", "Ricardo", "Natalia", "Andrés", "Elena", "Pablo",
	"Daniela", "Javier", "Adriana", "Manuel", "Patricia", "Francisco", "Mónica",
}

func randomDisplayName() string {
	return displayNames[rand.Intn(len(displayNames))]
}

// ActiveSearch is the full ranked open-only result set of the last
// search, plus how much of it the user has already seen.
type ActiveSearch struct {
	Query         string
	UsedExpansion bool
	Results       []search.Result
	// Shown counts results already displayed; it never exceeds
	// len(Results)
	Shown     int
	StartedAt time.Time
}

// Session is one user's conversation state, keyed by WhatsApp id
type Session struct {
	WaID        string
	DisplayName string
	Language    string

	CreatedAt    time.Time
	LastActivity time.Time
	FirstTurn    bool

	// Location is sticky until the session expires
	Location *geo.Point
	Search   *ActiveSearch

	// GoodbyeSent keeps the idle farewell from firing twice
	GoodbyeSent bool
}

func newSession(waID, language string, now time.Time) *Session {
	return &Session{
		WaID:         waID,
		DisplayName:  randomDisplayName(),
		Language:     language,
		CreatedAt:    now,
		LastActivity: now,
		FirstTurn:    true,
	}
}

// StartSearch replaces the active search wholesale and returns the
// first page.
func (s *Session) StartSearch(query string, results []search.Result, usedExpansion bool, pageSize int, now time.Time) []search.Result {
	shown := pageSize
	if shown > len(results) {
		shown = len(results)
	}
	s.Search = &ActiveSearch{
		Query:         query,
		UsedExpansion: usedExpansion,
		Results:       results,
		Shown:         shown,
		StartedAt:     now,
	}
	return results[:shown]
}

// NextPage returns the next slice of the active search and how many
// results remain after it. ok is false when there is no active search
// or everything has been shown; the caller clears the search and tells
// the user there is nothing left.
func (s *Session) NextPage(pageSize int) (page []search.Result, remaining int, ok bool) {
	if s.Search == nil || s.Search.Shown >= len(s.Search.Results) {
		return nil, 0, false
	}
	end := s.Search.Shown + pageSize
	if end > len(s.Search.Results) {
		end = len(s.Search.Results)
	}
	page = s.Search.Results[s.Search.Shown:end]
	s.Search.Shown = end
	return page, len(s.Search.Results) - end, true
}

// PageOffset is how many results were shown before the most recent page
func (s *Session) PageOffset(pageLen int) int {
	if s.Search == nil {
		return 0
	}
	return s.Search.Shown - pageLen
}

// Select resolves a 1-based index against the full ranked set, not just
// the displayed page. ok=false leaves all state untouched.
func (s *Session) Select(n int) (search.Result, bool) {
	if s.Search == nil || n < 1 || n > len(s.Search.Results) {
		return search.Result{}, false
	}
	return s.Search.Results[n-1], true
}

// OptionCount is the size of the full ranked set, 0 without a search
func (s *Session) OptionCount() int {
	if s.Search == nil {
		return 0
	}
	return len(s.Search.Results)
}

// ClearSearch drops the active search; the session itself stays alive
func (s *Session) ClearSearch() {
	s.Search = nil
}

// SetLocation merges coordinates into the session
func (s *Session) SetLocation(lat, lng float64) {
	s.Location = &geo.Point{Lat: lat, Lng: lng}
}

// Touch refreshes the idle clock and re-arms the farewell
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
	s.GoodbyeSent = false
}

// IdleFor reports how long the session has been quiet
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
