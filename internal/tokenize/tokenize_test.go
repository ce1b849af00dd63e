package tokenize

import (
	"testing"
)

func TestTokenizeClasses(t *testing.T) {
	tok := New(Options{})
	tests := []struct {
		name  string
		text  string
		want  []Token
	}{
		{
			name: "plain words are lower-cased",
			text: "Corona Virus",
			want: []Token{
				{Text: "corona", Class: ClassRegular},
				{Text: "virus", Class: ClassRegular},
			},
		},
		{
			name: "hashtags and mentions keep their sigil",
			text: "#Covid19 @WHO update",
			want: []Token{
				{Text: "#covid19", Class: ClassHashtag},
				{Text: "@who", Class: ClassMention},
				{Text: "update", Class: ClassRegular},
			},
		},
		{
			name: "urls are discarded",
			text: "read https://example.org/news now",
			want: []Token{
				{Text: "read", Class: ClassRegular},
				{Text: "now", Class: ClassRegular},
			},
		},
		{
			name: "numbers versus number compounds",
			text: "1000 deaths covid19",
			want: []Token{
				{Text: "1000", Class: ClassNumber},
				{Text: "deaths", Class: ClassRegular},
				{Text: "covid19", Class: ClassNumberCompound},
			},
		},
		{
			name: "abbreviations keep internal periods",
			text: "e.g. the u.s. reported",
			want: []Token{
				{Text: "e.g.", Class: ClassAbbreviation},
				{Text: "the", Class: ClassRegular},
				{Text: "u.s.", Class: ClassAbbreviation},
				{Text: "reported", Class: ClassRegular},
			},
		},
		{
			name: "surrounding punctuation is trimmed",
			text: `"Wuhan", (China)!`,
			want: []Token{
				{Text: "wuhan", Class: ClassRegular},
				{Text: "china", Class: ClassRegular},
			},
		},
		{
			name: "pure punctuation is dropped",
			text: "wow !!! ---",
			want: []Token{
				{Text: "wow", Class: ClassRegular},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.text, "en")
			assertTokens(t, got, tt.want)
		})
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	tok := New(Options{})
	for _, text := range []string{"", "   ", "\n\t"} {
		if got := tok.Tokenize(text, "en"); got != nil {
			t.Errorf("Tokenize(%q) = %v, want nil", text, got)
		}
	}
}

func TestTokenizeUnknownLanguageFallsBack(t *testing.T) {
	tok := New(Options{})
	got := tok.Tokenize("Hello World", "xx")
	assertTokens(t, got, []Token{
		{Text: "hello", Class: ClassRegular},
		{Text: "world", Class: ClassRegular},
	})
}

func TestTokenizeStripsHTML(t *testing.T) {
	tok := New(Options{})
	got := tok.Tokenize("<p>Corona <b>virus</b></p><script>alert(1)</script>", "en")
	assertTokens(t, got, []Token{
		{Text: "corona", Class: ClassRegular},
		{Text: "virus", Class: ClassRegular},
	})
}

func TestTokenizeStemming(t *testing.T) {
	tok := New(Options{Stem: true})
	got := tok.Tokenize("running cases", "en")
	assertTokens(t, got, []Token{
		{Text: "run", Class: ClassRegular},
		{Text: "case", Class: ClassRegular},
	})

	// Hashtags are never stemmed.
	got = tok.Tokenize("#running", "en")
	assertTokens(t, got, []Token{
		{Text: "#running", Class: ClassHashtag},
	})
}

func TestCountable(t *testing.T) {
	tests := []struct {
		class Class
		want  bool
	}{
		{ClassRegular, true},
		{ClassHashtag, true},
		{ClassNumberCompound, true},
		{ClassAbbreviation, true},
		{ClassMention, false},
		{ClassNumber, false},
	}
	for _, tt := range tests {
		tok := Token{Text: "x", Class: tt.class}
		if got := tok.Countable(); got != tt.want {
			t.Errorf("Countable(class %d) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestExpand(t *testing.T) {
	tok := New(Options{})
	joined, orig, tokens := tok.Expand("Corona, virus!", "en")
	if joined != "corona virus" {
		t.Errorf("joined = %q", joined)
	}
	if orig != "Corona, virus!" {
		t.Errorf("orig = %q", orig)
	}
	if len(tokens) != 2 || tokens[0] != "corona" || tokens[1] != "virus" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestExpandEmpty(t *testing.T) {
	tok := New(Options{})
	joined, orig, tokens := tok.Expand("", "en")
	if joined != "" || orig != "" || len(tokens) != 0 {
		t.Errorf("expected empty expansion, got %q %q %v", joined, orig, tokens)
	}
}

func assertTokens(t *testing.T, got, want []Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}
