// Package tokenize adapts per-language tokenization for the pipeline: it
// normalizes raw text, strips HTML markup best-effort, splits into
// classified tokens, and expands text fields into the indexed
// field/field_orig/field_tokens convention.
package tokenize

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Class categorises a token.
type Class int

const (
	ClassRegular Class = iota
	ClassHashtag
	ClassMention
	ClassNumber
	ClassNumberCompound
	ClassAbbreviation
	ClassURL
	ClassSymbol
)

// Token is one normalized, lower-cased token with its class.
type Token struct {
	Text  string
	Class Class
}

// Countable reports whether the token's class participates in word
// frequency counting. URLs and symbols are never emitted at all; mentions
// and plain numbers are indexed but not counted.
func (t Token) Countable() bool {
	switch t.Class {
	case ClassRegular, ClassHashtag, ClassNumberCompound, ClassAbbreviation:
		return true
	}
	return false
}

// snowballLanguages maps our language codes onto snowball stemmer names.
var snowballLanguages = map[string]string{
	"en": "english",
	"de": "german",
}

const fallbackLang = "en"

// Options configures a Tokenizer.
type Options struct {
	// Stem reduces tokens to snowball stems, merging inflected forms.
	Stem bool
}

// Tokenizer tokenizes text per language, falling back to English for
// languages without a registered tokenizer.
type Tokenizer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Tokenizer.
func New(opts Options) *Tokenizer {
	return &Tokenizer{
		opts:   opts,
		logger: slog.Default().With("component", "tokenizer"),
	}
}

// Tokenize normalizes text and returns its classified tokens. URL and
// symbol tokens are discarded; everything else is lower-cased. Empty input
// yields an empty sequence, never an error.
func (t *Tokenizer) Tokenize(text string, lang string) []Token {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return nil
	}
	text = stripHTML(text)
	if text == "" {
		return nil
	}

	if _, ok := snowballLanguages[lang]; !ok {
		t.logger.Warn("no tokenizer for language, falling back",
			"lang", lang,
			"fallback", fallbackLang,
		)
		lang = fallbackLang
	}

	var tokens []Token
	for _, raw := range strings.Fields(text) {
		word, class := classify(raw)
		if word == "" || class == ClassURL || class == ClassSymbol {
			continue
		}
		word = strings.ToLower(word)
		if t.opts.Stem && class == ClassRegular {
			if stemmed, err := snowball.Stem(word, snowballLanguages[lang], false); err == nil && stemmed != "" {
				word = stemmed
			}
		}
		tokens = append(tokens, Token{Text: word, Class: class})
	}
	return tokens
}

// Expand tokenizes one text field and returns the three derived values of
// the indexing convention: the space-joined normalized token stream, the
// unmodified original text, and the discrete token bag.
func (t *Tokenizer) Expand(text string, lang string) (joined string, orig string, tokens []string) {
	toks := t.Tokenize(text, lang)
	tokens = make([]string, 0, len(toks))
	for _, tok := range toks {
		tokens = append(tokens, tok.Text)
	}
	return strings.Join(tokens, " "), text, tokens
}

// classify trims punctuation from a whitespace-separated raw token and
// assigns its class.
func classify(raw string) (string, Class) {
	switch {
	case strings.HasPrefix(raw, "http://"),
		strings.HasPrefix(raw, "https://"),
		strings.HasPrefix(raw, "www."):
		return raw, ClassURL
	case strings.HasPrefix(raw, "#"):
		if word := trimPunct(raw[1:]); word != "" {
			return "#" + word, ClassHashtag
		}
		return raw, ClassSymbol
	case strings.HasPrefix(raw, "@"):
		if word := trimPunct(raw[1:]); word != "" {
			return "@" + word, ClassMention
		}
		return raw, ClassSymbol
	}

	word := trimPunct(raw)
	if word == "" {
		return raw, ClassSymbol
	}
	if isAbbreviation(word) {
		return word, ClassAbbreviation
	}

	hasDigit, hasLetter := false, false
	for _, r := range word {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	switch {
	case hasDigit && hasLetter:
		return word, ClassNumberCompound
	case hasDigit:
		return word, ClassNumber
	case hasLetter:
		return word, ClassRegular
	}
	return word, ClassSymbol
}

// trimPunct strips leading and trailing punctuation while keeping internal
// characters (apostrophes, hyphens, abbreviation periods) intact. A
// trailing period is kept when the token looks like an abbreviation.
func trimPunct(s string) string {
	trimmed := strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if trimmed != "" && strings.HasSuffix(s, ".") && isAbbreviation(trimmed+".") {
		return trimmed + "."
	}
	return trimmed
}

// isAbbreviation matches period-separated letter groups like "e.g." or
// "u.s.a.".
func isAbbreviation(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	groups := 0
	for _, part := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if part == "" || len(part) > 2 {
			return false
		}
		for _, r := range part {
			if !unicode.IsLetter(r) {
				return false
			}
		}
		groups++
	}
	return groups >= 2
}

// stripHTML extracts the text content of HTML markup, skipping script and
// style elements. Parse failures or markup-free input fall back to the
// raw text unmodified; failure here is recovered locally, never
// propagated.
func stripHTML(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		slog.Default().Warn("html parsing failed, using raw text", "error", err)
		return text
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	stripped := strings.TrimSpace(sb.String())
	if stripped == "" {
		return text
	}
	return stripped
}
