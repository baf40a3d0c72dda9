package scene

import (
	"regexp"
	"strings"
)

// AddressingDetector decides whether a piece of dialogue addresses a given
// agent. Detection rules are language-specific (vocative inflection, pronoun
// forms), so the engine only depends on this interface and stays
// language-agnostic.
type AddressingDetector interface {
	// WasAddressed reports whether text directly addresses the agent known by
	// name/title.
	WasAddressed(text, name, title string) bool

	// WasAskedQuestion reports whether text asks this agent a question.
	// agentsInScene is the total number of agents present; with exactly two,
	// any question is aimed at the listener.
	WasAskedQuestion(text, name, title string, agentsInScene int) bool
}

// CzechAddressing is the reference detector. Czech addresses people in the
// vocative case, so it derives vocative variants of the name/title by suffix
// substitution and matches them whole-word, anchored at the start of a
// sentence or after a comma. A generic second-person fallback catches
// addressing without a name.
type CzechAddressing struct{}

var _ AddressingDetector = CzechAddressing{}

// czech second person, anchored at text/sentence start, optionally after "a"
// ("and"): "Vy jste...", "A ty?", "Co vám..."
var czechSecondPerson = regexp.MustCompile(`(^|[.!?]\s*)(a\s+)?(vy|ty|vám|vás|tobě|tebe)\b`)

const czechVowels = "aeiouyáéíóúůý"

// vocativeForms derives the plausible vocative variants of a Czech name.
// Suffix rules:
//
//	-a  -> -o   (Vlasta -> Vlasto)
//	-ka -> -ko  (Babička -> Babičko)
//	-ek -> -ku  (Stařek -> Stařku)
//	-el -> -le  (Karel -> Karle)
//	final consonant -> +e
//
// The nominative itself is kept; speakers do not always inflect.
func vocativeForms(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	forms := []string{lower}

	if strings.HasSuffix(lower, "a") {
		forms = append(forms, lower[:len(lower)-1]+"o")
	}
	if strings.HasSuffix(lower, "ek") {
		forms = append(forms, lower[:len(lower)-2]+"ku")
	}
	if strings.HasSuffix(lower, "ka") {
		forms = append(forms, lower[:len(lower)-2]+"ko")
	}
	if strings.HasSuffix(lower, "el") {
		forms = append(forms, lower[:len(lower)-2]+"le")
	}
	runes := []rune(lower)
	if len(runes) > 0 && !strings.ContainsRune(czechVowels, runes[len(runes)-1]) {
		forms = append(forms, lower+"e")
	}
	return forms
}

// matchVocative matches a form whole-word at text start, after terminal
// punctuation, or after a comma. Anchoring keeps "babička" from matching
// inside "babičkami" mid-sentence.
func matchVocative(textLower, form string) bool {
	pattern := `(^|[.!?]\s*|,\s*)` + regexp.QuoteMeta(form) + `\b`
	matched, err := regexp.MatchString(pattern, textLower)
	return err == nil && matched
}

func (CzechAddressing) WasAddressed(text, name, title string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)

	for _, candidate := range []string{name, title} {
		for _, form := range vocativeForms(candidate) {
			if matchVocative(lower, form) {
				return true
			}
		}
	}

	return czechSecondPerson.MatchString(lower)
}

func (c CzechAddressing) WasAskedQuestion(text, name, title string, agentsInScene int) bool {
	if !strings.Contains(text, "?") {
		return false
	}
	if agentsInScene == 2 {
		return true
	}
	return c.WasAddressed(text, name, title)
}
