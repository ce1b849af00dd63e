// Package elastic wraps the go-elasticsearch client with the operations
// the pipeline needs: JSON-body search, scrolled full-result iteration,
// bulk indexing, and index management. Query bodies are built as
// map[string]any DSL fragments by internal/search.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	elasticsearch7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"

	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/resilience"
)

// Client wraps an Elasticsearch 7 client.
type Client struct {
	es     *elasticsearch7.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// Hit is one search result document.
type Hit struct {
	ID     string
	Source map[string]any
}

// SearchResponse is the decoded subset of an Elasticsearch search response
// the pipeline consumes.
type SearchResponse struct {
	TookMsecs    int64
	Total        int64
	Hits         []Hit
	Aggregations map[string]any
	ScrollID     string
}

// Document is one unit of a bulk-index request.
type Document struct {
	ID     string
	Source map[string]any
}

// NewClient creates a Client from configuration and verifies connectivity.
func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch7.NewClient(elasticsearch7.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    cfg.MaxRetries,
		RetryOnStatus: []int{408, 409, 429, 502, 503, 504},
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	c := &Client{
		es:     es,
		retry:  resilience.RetryConfig{MaxAttempts: cfg.MaxRetries},
		logger: slog.Default().With("component", "elastic"),
	}
	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("connecting to elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return c, nil
}

// Ping verifies the cluster is reachable.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("pinging elasticsearch: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	if res.IsError() {
		return fmt.Errorf("pinging elasticsearch: %s", res.Status())
	}
	return nil
}

// Search executes a query body against index and decodes the response.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*SearchResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	var out *SearchResponse
	err := resilience.Retry(ctx, "es-search", c.retry, func() error {
		res, err := c.es.Search(
			c.es.Search.WithContext(ctx),
			c.es.Search.WithIndex(index),
			c.es.Search.WithBody(bytes.NewReader(buf.Bytes())),
			c.es.Search.WithTrackTotalHits(true),
		)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		out, err = decodeSearchResponse(res)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("searching index %s: %w", index, err)
	}
	return out, nil
}

// OpenScroll starts a scrolled search over index with the given page size.
func (c *Client) OpenScroll(ctx context.Context, index string, body map[string]any, pageSize int) (*SearchResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(&buf),
		c.es.Search.WithSize(pageSize),
		c.es.Search.WithScroll(time.Minute),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("opening scroll on %s: %w", index, err)
	}
	defer res.Body.Close()
	return decodeSearchResponse(res)
}

// ContinueScroll fetches the next page of an open scroll. An empty Hits
// slice signals the end of the result set.
func (c *Client) ContinueScroll(ctx context.Context, scrollID string) (*SearchResponse, error) {
	res, err := c.es.Scroll(
		c.es.Scroll.WithContext(ctx),
		c.es.Scroll.WithScrollID(scrollID),
		c.es.Scroll.WithScroll(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("continuing scroll: %w", err)
	}
	defer res.Body.Close()
	return decodeSearchResponse(res)
}

// ClearScroll releases server-side scroll resources.
func (c *Client) ClearScroll(ctx context.Context, scrollID string) error {
	res, err := c.es.ClearScroll(
		c.es.ClearScroll.WithContext(ctx),
		c.es.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		return fmt.Errorf("clearing scroll: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	return nil
}

// IndexExists reports whether the given index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists(
		[]string{index},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", index, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, fmt.Errorf("checking index %s: %s", index, res.Status())
	}
}

// CreateIndex creates index with the given mapping body. Creating an index
// that already exists is an error.
func (c *Client) CreateIndex(ctx context.Context, index string, mapping map[string]any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(mapping); err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}
	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("creating index %s: %s", index, responseError(res))
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

// Index stores a single document, refreshing immediately so it is visible
// to the next query. Used for small side records, not bulk data.
func (c *Client) Index(ctx context.Context, index string, id string, doc map[string]any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       &buf,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("indexing document %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing document %s: %s", id, responseError(res))
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

// BulkIndex stores documents in one bulk request. Item-level failures are
// collected into the returned error; callers decide whether to abort or
// log and continue.
func (c *Client) BulkIndex(ctx context.Context, index string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, doc := range docs {
		action := map[string]any{"index": map[string]any{"_id": doc.ID}}
		if doc.ID == "" {
			action = map[string]any{"index": map[string]any{}}
		}
		meta, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("encoding bulk action: %w", err)
		}
		source, err := json.Marshal(doc.Source)
		if err != nil {
			return fmt.Errorf("encoding bulk document %s: %w", doc.ID, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(source)
		buf.WriteByte('\n')
	}

	return resilience.Retry(ctx, "es-bulk", c.retry, func() error {
		res, err := c.es.Bulk(
			bytes.NewReader(buf.Bytes()),
			c.es.Bulk.WithContext(ctx),
			c.es.Bulk.WithIndex(index),
		)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("bulk request: %s", responseError(res))
		}

		var body struct {
			Errors bool `json:"errors"`
			Items  []map[string]struct {
				Status int `json:"status"`
				Error  *struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"items"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			return fmt.Errorf("decoding bulk response: %w", err)
		}
		if !body.Errors {
			return nil
		}
		var failed []string
		for _, item := range body.Items {
			for _, result := range item {
				if result.Error != nil {
					failed = append(failed, fmt.Sprintf("%s: %s", result.Error.Type, result.Error.Reason))
				}
			}
		}
		return fmt.Errorf("bulk indexed with %d item failures: %s",
			len(failed), strings.Join(dedupe(failed, 3), "; "))
	})
}

func dedupe(msgs []string, max int) []string {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]string, 0, max)
	for _, m := range msgs {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
		if len(out) == max {
			break
		}
	}
	return out
}

func decodeSearchResponse(res *esapi.Response) (*SearchResponse, error) {
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", responseError(res))
	}
	var body struct {
		Took     int64  `json:"took"`
		ScrollID string `json:"_scroll_id"`
		Hits     struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]any `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	out := &SearchResponse{
		TookMsecs:    body.Took,
		Total:        body.Hits.Total.Value,
		Aggregations: body.Aggregations,
		ScrollID:     body.ScrollID,
	}
	for _, hit := range body.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: hit.ID, Source: hit.Source})
	}
	return out, nil
}

// responseError extracts the error type and reason from an error response
// body, falling back to the HTTP status line.
func responseError(res *esapi.Response) string {
	var e struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil || e.Error.Type == "" {
		return res.Status()
	}
	return fmt.Sprintf("[%s] %s: %s", res.Status(), e.Error.Type, e.Error.Reason)
}
