// Package hours resolves whether a place is open at a given instant and
// produces the next-transition hint shown to users.
package hours

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Agustinnra/turicanje-bot/internal/models"
)

// DefaultTimezone is assumed when a place carries no usable timezone
const DefaultTimezone = "America/Mexico_City"

// endOfDay is the second the "24:00" sentinel maps to (23:59:59)
const endOfDay = 24*3600 - 1

// earlyMorningCutoff: before this hour a cross-midnight window opened
// yesterday can still be running
const earlyMorningCutoff = 6

var spanishDays = map[time.Weekday]string{
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
	time.Sunday:    "domingo",
}

// Status is the outcome of an open/closed check
type Status struct {
	Open bool
	// Hint is the human-readable next transition: "hasta 02:00",
	// "abre a las 08:00", "abre mañana a las 08:00". Empty when no
	// hours exist at all.
	Hint string
	// HasHoursToday is false when today's slot is missing or half-filled
	HasHoursToday bool
}

// Location resolves a place's timezone, silently falling back to the
// default when absent or unparseable.
func Location(p *models.Place) *time.Location {
	if p.Timezone != nil && *p.Timezone != "" {
		if loc, err := time.LoadLocation(*p.Timezone); err == nil {
			return loc
		}
	}
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Resolve determines whether p is open at the instant now, and what the
// next transition looks like. now may be in any location; it is shifted
// into the place's timezone first.
func Resolve(p *models.Place, now time.Time) Status {
	local := now.In(Location(p))
	nowSec := local.Hour()*3600 + local.Minute()*60 + local.Second()

	// Today's window
	openSec, closeSec, hasToday := parsedSlot(p, local.Weekday())
	if hasToday {
		if openSec < closeSec {
			if nowSec >= openSec && nowSec <= closeSec {
				return Status{Open: true, Hint: "hasta " + formatSec(closeSec), HasHoursToday: true}
			}
		} else {
			// Cross-midnight window, close is next-day
			if nowSec >= openSec || nowSec <= closeSec {
				return Status{Open: true, Hint: "hasta " + formatSec(closeSec), HasHoursToday: true}
			}
		}
	}

	// A window that opened yesterday and crosses midnight can still be
	// running in the early morning.
	if local.Hour() < earlyMorningCutoff {
		yesterday := local.AddDate(0, 0, -1).Weekday()
		yOpen, yClose, ok := parsedSlot(p, yesterday)
		if ok && yOpen >= yClose && nowSec <= yClose {
			return Status{Open: true, Hint: "hasta " + formatSec(yClose), HasHoursToday: hasToday}
		}
	}

	// Closed. Opens later today?
	if hasToday && openSec > nowSec {
		return Status{Open: false, Hint: "abre a las " + formatSec(openSec), HasHoursToday: true}
	}

	// Scan forward for the next day with a defined slot
	for i := 1; i <= 7; i++ {
		day := local.AddDate(0, 0, i).Weekday()
		nextOpen, _, ok := parsedSlot(p, day)
		if !ok {
			continue
		}
		if i == 1 {
			return Status{Open: false, Hint: "abre mañana a las " + formatSec(nextOpen), HasHoursToday: hasToday}
		}
		return Status{Open: false, Hint: fmt.Sprintf("abre %s a las %s", spanishDays[day], formatSec(nextOpen)), HasHoursToday: hasToday}
	}

	if hasToday {
		// Only today has hours and they are already over
		return Status{Open: false, Hint: "abre a las " + formatSec(openSec), HasHoursToday: true}
	}
	return Status{Open: false, Hint: "", HasHoursToday: false}
}

// parsedSlot returns the open/close seconds-of-day for the weekday, or
// ok=false when the slot is absent, half-filled, or unparseable.
func parsedSlot(p *models.Place, day time.Weekday) (openSec, closeSec int, ok bool) {
	openStr, closeStr, present := p.SlotFor(day)
	if !present {
		return 0, 0, false
	}
	openSec, okOpen := ParseClock(openStr)
	closeSec, okClose := ParseClock(closeStr)
	if !okOpen || !okClose {
		return 0, 0, false
	}
	return openSec, closeSec, true
}

// ParseClock parses "H:MM", "HH:MM" or "HH:MM:SS" into seconds of day.
// The sentinel "24:00" means end of day.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	ss := 0
	if len(parts) == 3 {
		ss, err = strconv.Atoi(parts[2])
		if err != nil {
			return 0, false
		}
	}
	if hh == 24 && mm == 0 && ss == 0 {
		return endOfDay, true
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 || ss < 0 || ss > 59 {
		return 0, false
	}
	return hh*3600 + mm*60 + ss, true
}

// formatSec renders seconds of day as HH:MM, with the end-of-day
// sentinel shown as 24:00.
func formatSec(sec int) string {
	if sec == endOfDay {
		return "24:00"
	}
	return fmt.Sprintf("%02d:%02d", sec/3600, (sec%3600)/60)
}
