package dataset

import "github.com/lschmelzeisen/nasty-analysis/pkg/config"

func textProps(fields ...string) map[string]any {
	props := make(map[string]any, 3*len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "text"}
		props[f+"_orig"] = map[string]any{"type": "text"}
		props[f+"_tokens"] = map[string]any{"type": "keyword"}
	}
	return props
}

func keywordProps(props map[string]any, fields ...string) map[string]any {
	for _, f := range fields {
		props[f] = map[string]any{"type": "keyword"}
	}
	return props
}

// mapping returns the index mapping for the dataset's type. The
// batch_meta object of raw social documents must be nested so that term
// queries against the originating request stay scoped per request.
func (d *Dataset) mapping() map[string]any {
	var props map[string]any

	switch d.cfg.Type {
	case config.TypeRawSocial:
		props = textProps("full_text")
		keywordProps(props, "id_str", "lang", "quoted_status_id")
		props["url"] = map[string]any{"type": "keyword", "doc_values": false}
		props["created_at"] = map[string]any{"type": "date"}
		props["reply_count"] = map[string]any{"type": "long"}
		props["retweet_count"] = map[string]any{"type": "long"}
		props["favorite_count"] = map[string]any{"type": "long"}
		userProps := textProps("description")
		keywordProps(userProps, "id_str", "name", "screen_name", "location")
		userProps["verified"] = map[string]any{"type": "boolean"}
		userProps["geo_enabled"] = map[string]any{"type": "boolean"}
		userProps["followers_count"] = map[string]any{"type": "long"}
		userProps["friends_count"] = map[string]any{"type": "long"}
		userProps["favourites_count"] = map[string]any{"type": "long"}
		userProps["statuses_count"] = map[string]any{"type": "long"}
		props["user"] = map[string]any{"properties": userProps}
		props["batch_meta"] = map[string]any{
			"type": "nested",
			"properties": map[string]any{
				"request": map[string]any{
					"properties": keywordProps(map[string]any{}, "query", "lang", "filter", "date"),
				},
			},
		}

	case config.TypeNewsCSV:
		props = textProps("title", "text")
		keywordProps(props, "lang", "url_netloc")
		props["url"] = map[string]any{"type": "keyword", "doc_values": false}
		props["url_path"] = map[string]any{"type": "keyword"}
		props["time"] = map[string]any{"type": "date"}

	case config.TypeCodedRawSocial:
		props = textProps("segment")
		keywordProps(props, "document_group", "code_identifier", "code", "lang")
		props["created_at"] = map[string]any{"type": "date"}
		props["coverage"] = map[string]any{"type": "float"}

	case config.TypeCodedNewsCSV:
		props = textProps("title", "text", "segment")
		keywordProps(props,
			"lang", "url_netloc", "document_id", "document_group",
			"code_identifier", "code",
		)
		props["url"] = map[string]any{"type": "keyword", "doc_values": false}
		props["url_path"] = map[string]any{"type": "keyword"}
		props["time"] = map[string]any{"type": "date"}
		props["coverage"] = map[string]any{"type": "float"}
	}

	return map[string]any{
		"mappings": map[string]any{"properties": props},
	}
}

// indexedFilesMapping is the mapping of the side collection tracking
// fully indexed source files.
func indexedFilesMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"file_name": map[string]any{"type": "keyword"},
			},
		},
	}
}
