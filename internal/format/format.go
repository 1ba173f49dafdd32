// Package format renders every Spanish message the bot sends: result
// pages, place details, search intros, pagination copy, greetings and
// farewells. All rendering is pure so it can be tested without I/O.
package format

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/Agustinnra/turicanje-bot/internal/models"
	"github.com/Agustinnra/turicanje-bot/internal/search"
)

var weekdayShort = map[time.Weekday]string{
	time.Monday:    "Lun",
	time.Tuesday:   "Mar",
	time.Wednesday: "Mié",
	time.Thursday:  "Jue",
	time.Friday:    "Vie",
	time.Saturday:  "Sáb",
	time.Sunday:    "Dom",
}

const maxSpecialties = 6

// ResultsPage renders one page of results. offset is the number of
// results already shown before this page, so indices stay stable when
// later pages are displayed (page 2 of a 3-per-page search renders
// 4, 5, 6).
func ResultsPage(results []search.Result, offset int) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("%d. %s", offset+i+1, resultBlock(r)))
	}
	return strings.Join(blocks, "\n\n")
}

func resultBlock(r search.Result) string {
	lines := []string{statusLine(r)}

	delivery := "No ❌"
	if r.Place.Delivery || (r.Place.URLOrder != nil && *r.Place.URLOrder != "") {
		delivery = "Sí ✅"
	}
	lines = append(lines, "🚚 Servicio a domicilio: "+delivery)

	cashback := "No"
	if r.Place.Cashback {
		cashback = "Sí 💰 (cashback)"
	}
	lines = append(lines, "💳 Acumula cashback: "+cashback)

	if r.DistanceText != "" {
		lines = append(lines, "📍 Distancia: "+r.DistanceText)
	}
	if url := r.Place.MainURL(); url != "" {
		lines = append(lines, "🔗 Ver el lugar: "+url)
	}
	return strings.Join(lines, "\n")
}

func statusLine(r search.Result) string {
	state := "🔴 CERRADO"
	if r.Open {
		state = "🟢 ABIERTO"
	}
	line := fmt.Sprintf("📍 %s %s", r.Place.Name, state)
	if r.Hint != "" {
		line += fmt.Sprintf(" (%s)", r.Hint)
	}
	return line
}

// PlaceDetails renders the full card for a selected place: state,
// cashback highlight, distance, address, phone, link, weekly hours and
// specialties, closed with a follow-up question.
func PlaceDetails(r search.Result) string {
	p := r.Place
	lines := []string{"📍 " + p.Name}

	state := "🔴 CERRADO"
	if r.Open {
		state = "🟢 ABIERTO"
	}
	if r.Hint != "" {
		state += fmt.Sprintf(" (%s)", r.Hint)
	}
	lines = append(lines, state)

	if p.Cashback {
		lines = append(lines, "💰 ¡CON CASHBACK DISPONIBLE! 🎉")
	}
	if r.DistanceText != "" {
		lines = append(lines, fmt.Sprintf("🚗 A %s de ti", r.DistanceText))
	}
	if p.Address != nil && *p.Address != "" {
		lines = append(lines, "📍 "+*p.Address)
	}
	if p.Phone != nil && *p.Phone != "" {
		lines = append(lines, "📞 "+*p.Phone)
	}
	if url := p.MainURL(); url != "" {
		lines = append(lines, "🔗 "+url)
	}

	if p.HasAnyHours() {
		lines = append(lines, "\n⏰ Horarios:")
		for d := time.Monday; d <= time.Saturday; d++ {
			lines = appendHoursLine(lines, &p, d)
		}
		lines = appendHoursLine(lines, &p, time.Sunday)
	}

	if len(p.Products) > 0 {
		specialties := p.Products
		if len(specialties) > maxSpecialties {
			specialties = specialties[:maxSpecialties]
		}
		lines = append(lines, "\n🍽️ Especialidades: "+strings.Join(specialties, ", "))
	}

	lines = append(lines, "\n¿Te interesa otro lugar o quieres que busque algo más? 😊")
	return strings.Join(lines, "\n")
}

func appendHoursLine(lines []string, p *models.Place, d time.Weekday) []string {
	open, close, ok := p.SlotFor(d)
	if !ok {
		return lines
	}
	return append(lines, fmt.Sprintf("  %s: %s-%s", weekdayShort[d], open, close))
}

// SearchIntro is the human-sounding header before a result list, tuned
// to how many places matched.
func SearchIntro(count int, craving string, hasLocation bool) string {
	near := ""
	if hasLocation {
		near = " cerca de ti"
	}
	switch {
	case count == 0:
		return fmt.Sprintf("No encontré lugares que tengan %s%s 😕", craving, near)
	case count == 1:
		return fmt.Sprintf("Solo conozco un lugar donde tienen %s%s", craving, near)
	case count <= 3:
		return fmt.Sprintf("Te conseguí %d lugares que tienen %s%s:", count, craving, near)
	default:
		return fmt.Sprintf("Mira, te conseguí %d opciones de %s%s:", count, craving, near)
	}
}

// NoResults is the empty-search reply
func NoResults(craving string, hasLocation bool) string {
	if hasLocation {
		return fmt.Sprintf("Ay no, no encontré %s cerca de ti 😕 ¿Tienes ganas de algo más?", craving)
	}
	return fmt.Sprintf("No tengo %s en mi lista. ¿Qué tal otra cosa o me mandas tu ubicación?", craving)
}

// NearbyFallbackIntro introduces the backup list shown when everything
// matching the craving is closed right now.
func NearbyFallbackIntro(craving string) string {
	return fmt.Sprintf("Todo lo que tengo de %s está cerrado ahorita 😕 Pero mira, estas opciones cerca de ti sí están abiertas:", craving)
}

// NumberPrompt is the footer asking the user to pick a result. When the
// session has no location it also nudges for one.
func NumberPrompt(hasLocation bool) string {
	prompt := "Mándame el número del que te guste"
	if !hasLocation {
		prompt += " o mándame tu ubicación para ver qué hay cerca 📍"
	}
	return prompt
}

// MorePageClosing follows a "más" page: it either invites another round
// or marks these as the last ones.
func MorePageClosing(pageLen, remaining int) string {
	if remaining <= 0 {
		if pageLen == 1 {
			return "Esta es la última opción que tengo 😊"
		}
		return fmt.Sprintf("Estas son las últimas %d opciones que tengo 😊", pageLen)
	}
	if remaining == 1 {
		return "Todavía me queda 1 opción más, dime \"más\" si la quieres ver"
	}
	return fmt.Sprintf("Todavía me quedan %d opciones más, dime \"más\" si quieres verlas", remaining)
}

// MorePageIntro heads a continuation page
func MorePageIntro(count int) string {
	if count == 1 {
		return "¡Va! Aquí tienes la última opción:"
	}
	return fmt.Sprintf("¡Va! Aquí tienes %d opciones más:", count)
}

// NoMoreOptions answers a "más" with nothing left to show
func NoMoreOptions() string {
	return "Ya no tengo más opciones por ahora 😕 ¿Quieres que busque otra cosa?"
}

// SelectionOutOfRange re-prompts after a number outside 1..count
func SelectionOutOfRange(count int) string {
	return fmt.Sprintf("Elige un número del 1 al %d, porfa 😊", count)
}

var greetingTemplates = []string{
	"¡Hola! Soy %s 😊 ¿Qué antojo tienes hoy?",
	"¡Hey! Me llamo %s 🍽️ ¿Se te antoja algo en particular?",
	"¡Hola! Soy %s ¿Qué tienes ganas de comer? 😋",
}

// Greeting is the canned first-contact message when no generated
// greeting is available.
func Greeting(name string) string {
	return fmt.Sprintf(greetingTemplates[rand.Intn(len(greetingTemplates))], name)
}

// Farewell closes an idle conversation
func Farewell() string {
	return "Bueno, aquí ando si se te antoja algo después 😊 ¡Que te vaya bien!"
}

// AskCraving answers messages with no recognizable craving
func AskCraving() string {
	return "Oye, cuéntame qué se te antoja comer y te ayudo a encontrar algo bueno por ahí 😊"
}

// DefaultPrompt is the catch-all nudge
func DefaultPrompt() string {
	return "¿En qué te puedo echar la mano? Dime qué comida tienes ganas de probar 🍽️"
}

// LocationReceived thanks for a location with no search to refresh
func LocationReceived() string {
	return "¡Gracias! Ya tengo tu ubicación 📍 ¿Qué se te antoja?"
}

// AcceptedNoMore acknowledges the user declining further options
func AcceptedNoMore() string {
	return "¡Va! Si luego se te antoja otra cosa, aquí ando 😊"
}
