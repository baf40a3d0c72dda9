package repetition

import "strings"

// A topic is detected by keyword lookup and carries a fatigue weight. Backdrop
// topics (weather, the sea, birds) are things anyone would mention repeatedly
// while sitting outdoors, so they fatigue gently. Content-loop topics (health,
// family, money) are the ones a stuck conversation circles back to, and they
// fatigue hard. Keywords are Czech, the language the whole content path runs
// in, with common inflected forms listed out since there is no stemmer.
type topicDef struct {
	name     string
	weight   float64
	keywords []string
}

var topicDefs = []topicDef{
	{name: "weather", weight: 0.3, keywords: []string{"počasí", "vítr", "slunce", "déšť", "mraky", "mrholí", "teplo", "zima"}},
	{name: "sea", weight: 0.3, keywords: []string{"moře", "vlna", "vlny", "břeh", "voda", "parník", "plachetnice", "příliv"}},
	{name: "birds", weight: 0.3, keywords: []string{"racek", "racka", "racci", "albatros", "pták", "ptáci"}},
	{name: "health", weight: 0.6, keywords: []string{"zdraví", "doktor", "doktora", "bolest", "bolí", "koleno", "kolena", "záda", "prášky", "nemocnice", "unavený"}},
	{name: "family", weight: 0.6, keywords: []string{"rodina", "syn", "dcera", "vnoučata", "žena", "manželka", "muž", "manžel", "matka", "otec"}},
	{name: "work", weight: 0.6, keywords: []string{"práce", "práci", "zaměstnání", "továrna", "fabrika", "kancelář", "důchod", "penze"}},
	{name: "money", weight: 0.6, keywords: []string{"peníze", "cena", "ceny", "drahé", "drahý", "levné", "platit", "koruna", "koruny"}},
	{name: "past", weight: 0.6, keywords: []string{"pamatuju", "pamatuješ", "vzpomínám", "tenkrát", "dřív", "mladý", "mládí", "kdysi", "válka", "válce"}},
}

var topicWeights = func() map[string]float64 {
	m := make(map[string]float64, len(topicDefs))
	for _, d := range topicDefs {
		m[d.name] = d.weight
	}
	return m
}()

// detectTopics maps text to the topics it touches, by keyword membership on
// the normalized word list.
func detectTopics(words []string) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, d := range topicDefs {
		if seen[d.name] {
			continue
		}
		for _, w := range words {
			if containsWord(d.keywords, w) {
				seen[d.name] = true
				topics = append(topics, d.name)
				break
			}
		}
	}
	return topics
}

func containsWord(list []string, w string) bool {
	for _, k := range list {
		if k == w {
			return true
		}
	}
	return false
}

// stopwords are Czech function words dropped before phrase extraction, so
// that "se", "že" and "to" never register as shared content between two
// utterances. Length is not a criterion; short words like "ano" and "ne"
// matter for repetition.
var stopwords = map[string]bool{
	"a": true, "i": true, "o": true, "u": true, "v": true, "k": true,
	"s": true, "z": true, "na": true, "do": true, "to": true, "je": true,
	"se": true, "že": true, "by": true, "si": true, "ale": true,
	"tak": true, "jak": true, "co": true, "ten": true, "ta": true,
	"ty": true, "já": true, "on": true, "ona": true, "vy": true,
	"my": true, "oni": true,
}

// normalizeWords strips punctuation, lowercases and splits into words.
func normalizeWords(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' || r > 127 {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// extractPhrases returns the unique content words of a text, order preserved.
func extractPhrases(text string) []string {
	words := normalizeWords(text)
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// extractStart returns the first normalized word, the tell for "Ano, ..." and
// "No, ..." openers.
func extractStart(text string) string {
	words := normalizeWords(text)
	if len(words) == 0 {
		return ""
	}
	return words[0]
}

// phrasesSimilar treats two words as the same phrase on exact match or a
// shared 4-rune prefix, which folds inflected forms together. Runes, not
// bytes: diacritics must count as one character.
func phrasesSimilar(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) >= 4 && len(rb) >= 4 && string(ra[:4]) == string(rb[:4]) {
		return true
	}
	return false
}
