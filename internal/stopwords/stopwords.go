// Package stopwords provides per-language stopword sets for the word
// filters of the frequency views. Each set is a base list with curated
// additions and removals layered on top: tokenizer clitics like "n't" are
// stopwords even though base lists omit them, while corpus-relevant words
// like "cases" are kept even though base lists drop them.
package stopwords

import "sync"

var (
	mu    sync.Mutex
	cache = map[string]map[string]struct{}{}
)

// For returns the stopword set for lang. Languages without a curated set
// get an empty set, which keeps every word.
func For(lang string) map[string]struct{} {
	mu.Lock()
	defer mu.Unlock()
	if set, ok := cache[lang]; ok {
		return set
	}

	set := make(map[string]struct{})
	for _, w := range base[lang] {
		set[w] = struct{}{}
	}
	for _, w := range additions[lang] {
		set[w] = struct{}{}
	}
	for _, w := range removals[lang] {
		delete(set, w)
	}
	cache[lang] = set
	return set
}

// IsStopword reports whether word is a stopword in lang.
func IsStopword(word string, lang string) bool {
	_, ok := For(lang)[word]
	return ok
}

var base = map[string][]string{
	"en": {
		"a", "about", "above", "after", "again", "against", "all", "am",
		"an", "and", "any", "are", "aren't", "as", "at", "be", "because",
		"been", "before", "being", "below", "between", "both", "but", "by",
		"can", "can't", "could", "did", "do", "does", "doing", "don't",
		"down", "during", "each", "few", "for", "from", "further", "get",
		"go", "had", "has", "have", "having", "he", "her", "here", "hers",
		"him", "his", "how", "i", "if", "in", "into", "is", "isn't", "it",
		"its", "it's", "just", "like", "me", "more", "most", "my", "no",
		"nor", "not", "now", "of", "off", "on", "once", "only", "or",
		"other", "our", "out", "over", "own", "people", "same", "she",
		"should", "so", "some", "such", "than", "that", "the", "their",
		"them", "then", "there", "these", "they", "this", "those",
		"through", "to", "too", "under", "until", "up", "us", "very",
		"was", "we", "were", "what", "when", "where", "which", "while",
		"who", "whom", "why", "will", "with", "would", "you", "your",
	},
	"de": {
		"aber", "alle", "als", "also", "am", "an", "auch", "auf", "aus",
		"bei", "bin", "bis", "bitte", "da", "damit", "dann", "das", "dass",
		"dem", "den", "denn", "der", "des", "die", "diese", "doch", "dort",
		"du", "durch", "ein", "eine", "einem", "einen", "einer", "es",
		"etwas", "für", "gegen", "haben", "hat", "hatte", "hier", "ich",
		"ihr", "im", "immer", "in", "ist", "ja", "jetzt", "kann", "kein",
		"können", "mal", "man", "mehr", "mein", "mit", "muss", "nach",
		"nein", "nicht", "noch", "nur", "oder", "schon", "sehr", "sein",
		"sich", "sie", "sind", "so", "über", "um", "und", "uns", "viel",
		"vom", "von", "vor", "war", "waren", "was", "weil", "wenn", "werden",
		"wie", "wieder", "wir", "wird", "wo", "wurde", "zu", "zum", "zur",
	},
}

// additions lists tokenizer artifacts and filler words the base lists
// miss; removals lists words the base lists contain but that carry topical
// signal in this corpus.
var additions = map[string][]string{
	"en": {
		"'m", "'re", "'s", "'ve", "n't", "nt", "n’t", "’m", "’re", "’s", "’ve",
	},
	"de": {
		"bleiben", "ca.", "echt", "eher", "eigentlich", "fast", "fest",
		"genau", "halt", "klar", "ne", "paar", "sogar", "trotz",
		"wahrscheinlich",
	},
}

var removals = map[string][]string{
	"en": {
		"case", "cases", "help", "home", "information", "man", "million",
		"new", "novel", "state", "states", "system", "today", "uk", "work",
		"world", "year", "years",
	},
	"de": {
		"ernst", "jahr", "jahre", "jahren", "mensch", "menschen", "neuen",
		"tag", "tage", "uhr", "wissen", "zeit",
	},
}
