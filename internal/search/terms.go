package search

import "strings"

// accentFold maps accented Spanish letters to their bare form
var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

// Fold lowercases a term and strips Spanish accents so that "Café" and
// "cafe" compare equal.
func Fold(s string) string {
	return accentFold.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Variants returns the query term together with its singular/plural
// toggles: "taco" also searches "tacos", "tacos" also searches "taco".
// Order is stable, the original term first.
func Variants(term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	out := []string{term}
	seen := map[string]bool{term: true}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	if strings.HasSuffix(term, "s") {
		if len(term) > 2 {
			add(term[:len(term)-1])
		}
		if strings.HasSuffix(term, "es") && len(term) > 3 {
			add(term[:len(term)-2] + "a")
		}
	} else {
		if endsInVowel(term) {
			add(term + "s")
		} else {
			add(term + "es")
		}
	}

	return out
}

func endsInVowel(s string) bool {
	return strings.ContainsAny(s[len(s)-1:], "aeiouáéíóú")
}
