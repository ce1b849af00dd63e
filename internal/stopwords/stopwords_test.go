package stopwords

import "testing"

func TestIsStopword(t *testing.T) {
	tests := []struct {
		word string
		lang string
		want bool
	}{
		{"the", "en", true},
		{"corona", "en", false},
		{"und", "de", true},
		{"virus", "de", false},
	}
	for _, tt := range tests {
		if got := IsStopword(tt.word, tt.lang); got != tt.want {
			t.Errorf("IsStopword(%q, %q) = %v, want %v", tt.word, tt.lang, got, tt.want)
		}
	}
}

func TestAdditionsLayeredOnBase(t *testing.T) {
	// Tokenizer clitics are stopwords even though base lists omit them.
	for _, w := range []string{"n't", "'s", "'re"} {
		if !IsStopword(w, "en") {
			t.Errorf("expected %q to be an English stopword", w)
		}
	}
	if !IsStopword("halt", "de") {
		t.Error("expected \"halt\" to be a German stopword")
	}
}

func TestRemovalsKeepTopicalWords(t *testing.T) {
	for _, w := range []string{"cases", "new", "world"} {
		if IsStopword(w, "en") {
			t.Errorf("expected %q not to be an English stopword", w)
		}
	}
	if IsStopword("menschen", "de") {
		t.Error("expected \"menschen\" not to be a German stopword")
	}
}

func TestUnknownLanguageKeepsEverything(t *testing.T) {
	if len(For("xx")) != 0 {
		t.Error("expected empty stopword set for unknown language")
	}
	if IsStopword("the", "xx") {
		t.Error("expected no stopwords for unknown language")
	}
}
