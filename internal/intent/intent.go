// Package intent decides what an inbound message means. Cheap
// deterministic checks run first; only ambiguous text reaches the
// Classifier collaborator.
package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the resolved meaning of a message
type Kind string

const (
	Greeting     Kind = "greeting"
	Search       Kind = "search"
	BusinessName Kind = "business_search"
	MoreOptions  Kind = "more_options"
	NoMore       Kind = "no_more_options"
	Selection    Kind = "selection"
	Other        Kind = "other"
)

// Result is a classified message. Craving and Business are set only
// for the search intents; SelectionIndex only for Selection.
type Result struct {
	Intent         Kind
	Craving        string
	Business       string
	NeedsLocation  bool
	SelectionIndex int
}

// Classifier extracts intent and craving from free text. Implementations
// must return an error rather than guess when they cannot classify.
type Classifier interface {
	Classify(ctx context.Context, text, language, displayName string) (Result, error)
}

var (
	moreWords = map[string]struct{}{
		"más": {}, "mas": {}, "mas opciones": {}, "más opciones": {},
		"otras": {}, "otros": {}, "ver más": {}, "ver mas": {},
	}
	noMoreWords = map[string]struct{}{
		"no": {}, "ya no": {}, "no gracias": {}, "ya": {}, "asi esta bien": {},
		"así está bien": {}, "nop": {},
	}

	greetingRe = []*regexp.Regexp{
		regexp.MustCompile(`^\s*[¡!]*\s*(hola|hello|hi|hey|buenas|buenos)\s*[¡!]*\s*$`),
		regexp.MustCompile(`^\s*(que\s*tal|qué\s*tal)`),
		regexp.MustCompile(`^\s*(buenas\s*(tardes|noches)|buenos\s*días|buenos\s*dias)`),
	}
)

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// ShortCircuit resolves the deterministic intents that never need the
// classifier: pagination words, refusals and bare numeric selections.
// ok=false means the text is ambiguous and the caller should classify.
func ShortCircuit(text string) (Result, bool) {
	t := normalize(text)
	if t == "" {
		return Result{}, false
	}

	if _, hit := moreWords[t]; hit {
		return Result{Intent: MoreOptions}, true
	}
	if _, hit := noMoreWords[t]; hit {
		return Result{Intent: NoMore}, true
	}
	if n, err := strconv.Atoi(t); err == nil {
		return Result{Intent: Selection, SelectionIndex: n}, true
	}
	return Result{}, false
}

// IsGreeting is the regex fallback used when the classifier is
// unavailable or fails. Empty text counts as a greeting.
func IsGreeting(text string) bool {
	t := normalize(text)
	if t == "" {
		return true
	}
	for _, re := range greetingRe {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// Fallback classifies without the collaborator: greeting or other
func Fallback(text string) Result {
	if IsGreeting(text) {
		return Result{Intent: Greeting}
	}
	return Result{Intent: Other}
}

// Resolve runs the full pipeline: short-circuits first, then the
// classifier, then the regex fallback on classifier failure.
func Resolve(ctx context.Context, c Classifier, text, language, displayName string) Result {
	if r, ok := ShortCircuit(text); ok {
		return r
	}
	if c != nil {
		if r, err := c.Classify(ctx, text, language, displayName); err == nil {
			return r
		}
	}
	return Fallback(text)
}
