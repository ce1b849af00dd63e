package search

import (
	"errors"
	"testing"

	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

func TestForTypeCoversAllTypes(t *testing.T) {
	for _, typ := range []config.DatasetType{
		config.TypeRawSocial,
		config.TypeNewsCSV,
		config.TypeCodedRawSocial,
		config.TypeCodedNewsCSV,
	} {
		schema, err := ForType(typ)
		if err != nil {
			t.Errorf("ForType(%s): %v", typ, err)
			continue
		}
		if schema.Type() != typ {
			t.Errorf("ForType(%s).Type() = %s", typ, schema.Type())
		}
	}
}

func TestForTypeUnknown(t *testing.T) {
	_, err := ForType(config.DatasetType("PARQUET"))
	if !errors.Is(err, apperrors.ErrDatasetTypeMismatch) {
		t.Errorf("expected ErrDatasetTypeMismatch, got %v", err)
	}
}

func TestRawSocialFieldLocations(t *testing.T) {
	s, err := ForType(config.TypeRawSocial)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"date", s.DateField(), "created_at"},
		{"lang", s.LangField(), "batch_meta.request.lang"},
		{"text", s.TextField(), "full_text"},
		{"text tokens", s.TextTokensField(), "full_text_tokens"},
		{"search query", s.SearchQueryField(), "batch_meta.request.query"},
		{"search filter", s.SearchFilterField(), "batch_meta.request.filter"},
		{"user verified", s.UserVerifiedField(), "user.verified"},
	}
	for _, tt := range tests {
		if got := tt.field.Name(); got != tt.want {
			t.Errorf("%s field = %q, want %q", tt.name, got, tt.want)
		}
	}

	// Crawl metadata lives one nested object deep.
	if paths := s.LangField().NestedPaths(); len(paths) != 1 || paths[0] != "batch_meta" {
		t.Errorf("lang nested paths = %v", paths)
	}
}

func TestNewsCSVFieldLocations(t *testing.T) {
	s, err := ForType(config.TypeNewsCSV)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.DateField().Name(); got != "time" {
		t.Errorf("date field = %q", got)
	}
	if got := s.URLNetlocField().Name(); got != "url_netloc" {
		t.Errorf("url netloc field = %q", got)
	}
}

func TestCodedFieldLocations(t *testing.T) {
	for _, typ := range []config.DatasetType{config.TypeCodedRawSocial, config.TypeCodedNewsCSV} {
		s, err := ForType(typ)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.TextField().Name(); got != "segment" {
			t.Errorf("%s text field = %q", typ, got)
		}
		if got := s.CodeIdentifierField().Name(); got != "code_identifier" {
			t.Errorf("%s code identifier field = %q", typ, got)
		}
	}
}

// TestCodedDateFieldsDiffer pins the date field per coded type: coded
// social segments have their own created_at, coded news rows only carry
// the time field inherited from their parent article.
func TestCodedDateFieldsDiffer(t *testing.T) {
	codedRaw, err := ForType(config.TypeCodedRawSocial)
	if err != nil {
		t.Fatal(err)
	}
	if got := codedRaw.DateField().Name(); got != "created_at" {
		t.Errorf("coded raw social date field = %q, want %q", got, "created_at")
	}

	codedNews, err := ForType(config.TypeCodedNewsCSV)
	if err != nil {
		t.Fatal(err)
	}
	if got := codedNews.DateField().Name(); got != "time" {
		t.Errorf("coded news date field = %q, want %q", got, "time")
	}
}

func TestCodedNewsInheritsURLNetloc(t *testing.T) {
	s, err := ForType(config.TypeCodedNewsCSV)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.URLNetlocField().Name(); got != "url_netloc" {
		t.Errorf("url netloc field = %q", got)
	}
}

func TestUnsupportedAccessorsPanic(t *testing.T) {
	rawSocial, _ := ForType(config.TypeRawSocial)
	news, _ := ForType(config.TypeNewsCSV)
	codedRaw, _ := ForType(config.TypeCodedRawSocial)

	tests := []struct {
		name string
		call func()
	}{
		{"raw social url netloc", func() { rawSocial.URLNetlocField() }},
		{"raw social code identifier", func() { rawSocial.CodeIdentifierField() }},
		{"news search query", func() { news.SearchQueryField() }},
		{"news user verified", func() { news.UserVerifiedField() }},
		{"coded raw social url netloc", func() { codedRaw.URLNetlocField() }},
		{"coded raw social search filter", func() { codedRaw.SearchFilterField() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.call()
		})
	}
}
