// Package trends assembles day-bucketed word-frequency series from the
// document index and prepares them for presentation: top-K ranking with
// optional smoothed normalization, word filters, selection-keyed caching,
// and a background update path.
package trends

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lschmelzeisen/nasty-analysis/internal/search"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
)

// Selection identifies one data view. Two equal selections always
// describe the same series, so the selection doubles as the cache key.
type Selection struct {
	Dataset      string   `json:"dataset"`
	Lang         string   `json:"lang"`
	CooccurWords []string `json:"cooccurWords,omitempty"`

	// Raw social only.
	SearchFilter string `json:"searchFilter,omitempty"`
	SearchQuery  string `json:"searchQuery,omitempty"`
	UserVerified *bool  `json:"userVerified,omitempty"`

	// News types only.
	URLNetloc string `json:"urlNetloc,omitempty"`

	// Coded types only.
	CodeIdentifiers []string `json:"codeIdentifiers,omitempty"`

	// Probe words for trend series. Empty means rank the top words
	// instead.
	Words []string `json:"words,omitempty"`
}

// CacheKey returns a canonical string identity for the selection.
func (s Selection) CacheKey() string {
	parts := []string{
		"trends", "v1",
		s.Dataset,
		s.Lang,
		strings.Join(s.CooccurWords, " "),
		s.SearchFilter,
		s.SearchQuery,
		boolKey(s.UserVerified),
		s.URLNetloc,
		strings.Join(s.CodeIdentifiers, " "),
		strings.Join(s.Words, " "),
	}
	return strings.Join(parts, "|")
}

func boolKey(b *bool) string {
	if b == nil {
		return "*"
	}
	return strconv.FormatBool(*b)
}

// filterClauses builds the non-scoring filter clauses the selection
// imposes, using the schema of the dataset's type.
func (s Selection) filterClauses(schema search.Schema) ([]map[string]any, error) {
	clauses := []map[string]any{
		search.TermQuery(schema.LangField(), s.Lang),
	}
	for _, word := range s.CooccurWords {
		clauses = append(clauses, search.TermQuery(schema.TextTokensField(), word))
	}

	typ := schema.Type()

	if typ == config.TypeRawSocial {
		if s.SearchFilter != "" {
			clauses = append(clauses, search.TermQuery(schema.SearchFilterField(), s.SearchFilter))
		}
		if s.SearchQuery != "" {
			clauses = append(clauses, search.TermQuery(schema.SearchQueryField(), s.SearchQuery))
		}
		if s.UserVerified != nil {
			clauses = append(clauses, search.TermQuery(schema.UserVerifiedField(), *s.UserVerified))
		}
	} else if s.SearchFilter != "" || s.SearchQuery != "" || s.UserVerified != nil {
		return nil, fmt.Errorf("crawl request filters only apply to %s datasets", config.TypeRawSocial)
	}

	if typ == config.TypeNewsCSV || typ == config.TypeCodedNewsCSV {
		if s.URLNetloc != "" {
			clauses = append(clauses, search.TermQuery(schema.URLNetlocField(), s.URLNetloc))
		}
	} else if s.URLNetloc != "" {
		return nil, fmt.Errorf("url netloc filters only apply to news datasets")
	}

	if typ == config.TypeCodedRawSocial || typ == config.TypeCodedNewsCSV {
		if len(s.CodeIdentifiers) > 0 {
			clauses = append(clauses, search.TermsQuery(schema.CodeIdentifierField(), s.CodeIdentifiers))
		}
	} else if len(s.CodeIdentifiers) > 0 {
		return nil, fmt.Errorf("code identifier filters only apply to coded datasets")
	}

	return clauses, nil
}
