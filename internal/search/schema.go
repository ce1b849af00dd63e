// Package search builds Elasticsearch query and aggregation bodies for
// the configured dataset types. Field locations differ per type, so all
// builders go through a per-type Schema; the bodies themselves are plain
// map[string]any DSL fragments consumed by pkg/elastic.
package search

import (
	"fmt"
	"strings"

	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

// Field is the location of a document field. Multi-segment fields live
// inside nested objects: every prefix of the segments is a nested path
// that queries and aggregations must wrap.
type Field []string

// Name returns the full dotted field name.
func (f Field) Name() string { return strings.Join(f, ".") }

// NestedPaths returns the nested object paths enclosing the field, from
// outermost to innermost. A single-segment field has none.
func (f Field) NestedPaths() []string {
	paths := make([]string, 0, len(f)-1)
	for i := 1; i < len(f); i++ {
		paths = append(paths, strings.Join(f[:i], "."))
	}
	return paths
}

// Schema resolves field locations for one dataset type. The first four
// accessors exist on every type; the rest are type-scoped and panic when
// the type has no such field, since calling them then is a programming
// error, not an input condition.
type Schema interface {
	Type() config.DatasetType
	DateField() Field
	LangField() Field
	TextField() Field
	TextTokensField() Field

	SearchQueryField() Field
	SearchFilterField() Field
	UserVerifiedField() Field
	URLNetlocField() Field
	CodeIdentifierField() Field
}

// ForType returns the Schema for a dataset type.
func ForType(t config.DatasetType) (Schema, error) {
	switch t {
	case config.TypeRawSocial:
		return rawSocialSchema{}, nil
	case config.TypeNewsCSV:
		return newsCSVSchema{}, nil
	case config.TypeCodedRawSocial:
		return codedSchema{typ: t}, nil
	case config.TypeCodedNewsCSV:
		return codedSchema{typ: t, urlNetloc: true}, nil
	default:
		return nil, fmt.Errorf("%w: no schema for dataset type %q", apperrors.ErrDatasetTypeMismatch, t)
	}
}

// unsupportedField reports the misuse of a type-scoped accessor.
func unsupportedField(t config.DatasetType, accessor string) string {
	return fmt.Sprintf("search: dataset type %s has no %s", t, accessor)
}

type rawSocialSchema struct{}

func (rawSocialSchema) Type() config.DatasetType { return config.TypeRawSocial }
func (rawSocialSchema) DateField() Field         { return Field{"created_at"} }
func (rawSocialSchema) LangField() Field         { return Field{"batch_meta", "request.lang"} }
func (rawSocialSchema) TextField() Field         { return Field{"full_text"} }
func (rawSocialSchema) TextTokensField() Field   { return Field{"full_text_tokens"} }
func (rawSocialSchema) SearchQueryField() Field  { return Field{"batch_meta", "request.query"} }
func (rawSocialSchema) SearchFilterField() Field { return Field{"batch_meta", "request.filter"} }
func (rawSocialSchema) UserVerifiedField() Field { return Field{"user.verified"} }

func (s rawSocialSchema) URLNetlocField() Field {
	panic(unsupportedField(s.Type(), "url netloc field"))
}

func (s rawSocialSchema) CodeIdentifierField() Field {
	panic(unsupportedField(s.Type(), "code identifier field"))
}

type newsCSVSchema struct{}

func (newsCSVSchema) Type() config.DatasetType { return config.TypeNewsCSV }
func (newsCSVSchema) DateField() Field         { return Field{"time"} }
func (newsCSVSchema) LangField() Field         { return Field{"lang"} }
func (newsCSVSchema) TextField() Field         { return Field{"text"} }
func (newsCSVSchema) TextTokensField() Field   { return Field{"text_tokens"} }
func (newsCSVSchema) URLNetlocField() Field    { return Field{"url_netloc"} }

func (s newsCSVSchema) SearchQueryField() Field {
	panic(unsupportedField(s.Type(), "search query field"))
}

func (s newsCSVSchema) SearchFilterField() Field {
	panic(unsupportedField(s.Type(), "search filter field"))
}

func (s newsCSVSchema) UserVerifiedField() Field {
	panic(unsupportedField(s.Type(), "user verified field"))
}

func (s newsCSVSchema) CodeIdentifierField() Field {
	panic(unsupportedField(s.Type(), "code identifier field"))
}

// codedSchema covers both coded dataset types, which share the MAXQDA
// segment layout. Coded news rows additionally inherit the url netloc of
// their parent news row.
type codedSchema struct {
	typ       config.DatasetType
	urlNetloc bool
}

func (s codedSchema) Type() config.DatasetType { return s.typ }

// DateField differs between the coded types: coded social segments carry
// their own created_at timestamp, while coded news rows inherit the time
// field of their parent article.
func (s codedSchema) DateField() Field {
	if s.typ == config.TypeCodedNewsCSV {
		return Field{"time"}
	}
	return Field{"created_at"}
}

func (codedSchema) LangField() Field { return Field{"lang"} }
func (codedSchema) TextField() Field           { return Field{"segment"} }
func (codedSchema) TextTokensField() Field     { return Field{"segment_tokens"} }
func (codedSchema) CodeIdentifierField() Field { return Field{"code_identifier"} }

func (s codedSchema) URLNetlocField() Field {
	if !s.urlNetloc {
		panic(unsupportedField(s.typ, "url netloc field"))
	}
	return Field{"url_netloc"}
}

func (s codedSchema) SearchQueryField() Field {
	panic(unsupportedField(s.typ, "search query field"))
}

func (s codedSchema) SearchFilterField() Field {
	panic(unsupportedField(s.typ, "search filter field"))
}

func (s codedSchema) UserVerifiedField() Field {
	panic(unsupportedField(s.typ, "user verified field"))
}
