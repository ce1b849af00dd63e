// Package trendserver exposes the assembled frequency and trend views
// over HTTP: rankings, per-word day series, and the bootstrap metadata
// the view layer needs to populate its selectors.
package trendserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/trends"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

// Handler serves the trend API.
type Handler struct {
	assembler     *trends.Assembler
	cache         *trends.Cache
	meta          *trends.Meta
	cfg           *config.Config
	topNWords     int
	dayResolution int
	logger        *slog.Logger
}

// New returns a Handler over an assembler and its cache. meta is the
// bootstrap state fetched at startup.
func New(assembler *trends.Assembler, cache *trends.Cache, meta *trends.Meta, cfg *config.Config) *Handler {
	dayResolution := cfg.Serve.DayResolution
	if dayResolution < 1 {
		dayResolution = 1
	}
	return &Handler{
		assembler:     assembler,
		cache:         cache,
		meta:          meta,
		cfg:           cfg,
		topNWords:     cfg.Serve.TopNWords,
		dayResolution: dayResolution,
		logger:        slog.Default().With("component", "trendserver"),
	}
}

// Meta serves the corpus date range and per-dataset vocabularies.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.meta)
}

type freqsResponse struct {
	Words     []trends.RankedWord `json:"words"`
	NumDocs   int64               `json:"numDocs"`
	TookMsecs int64               `json:"tookMsecs"`
}

// Freqs serves the ranked word frequencies of a selection over a date
// sub-range.
func (h *Handler) Freqs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sel, err := h.parseSelection(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	sel.Words = nil

	from, to, err := h.parseDateRange(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	normalize := r.URL.Query().Get("normalize") == "true"
	filter, err := trends.ParseWordFilter(r.URL.Query().Get("wordFilter"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	topN := h.topNWords
	if s := r.URL.Query().Get("topN"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput,
				http.StatusBadRequest, "topN must be a positive integer"))
			return
		}
		if n < topN {
			topN = n
		}
	}

	series, err := h.assembleCached(r, sel)
	if err != nil {
		h.writeError(w, err)
		return
	}

	ranked, numDocs, err := trends.RankTopK(series, from, to, topN, normalize, filter, sel.Lang)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, freqsResponse{
		Words:     ranked,
		NumDocs:   numDocs,
		TookMsecs: time.Since(start).Milliseconds(),
	})
}

type trendsResponse struct {
	Days      []dates.Day        `json:"days"`
	WordFreqs map[string][]int64 `json:"wordFreqs"`
	NumDocs   []int64            `json:"numDocs"`
	TookMsecs int64              `json:"tookMsecs"`
}

// Trends serves the day series of specific probe words over a date
// sub-range.
func (h *Handler) Trends(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sel, err := h.parseSelection(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(sel.Words) == 0 {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "query parameter 'words' is required"))
		return
	}

	from, to, err := h.parseDateRange(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	series, err := h.assembleCached(r, sel)
	if err != nil {
		h.writeError(w, err)
		return
	}

	lo := dates.DaysBetween(series.Start, from)
	hi := dates.DaysBetween(series.Start, to) + 1
	if lo < 0 || hi > series.Len() || hi <= lo {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidDateRange,
			http.StatusBadRequest, "date range outside the corpus"))
		return
	}

	resp := trendsResponse{
		Days:      dates.RangeInclusive(from, to),
		WordFreqs: make(map[string][]int64, len(sel.Words)),
		NumDocs:   series.NumDocsPerDay[lo:hi],
		TookMsecs: time.Since(start).Milliseconds(),
	}
	for word, freqs := range series.WordFreqsPerDay {
		resp.WordFreqs[word] = freqs[lo:hi]
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// assembleCached resolves the series for a selection through the cache,
// binding the selection into the compute closure.
func (h *Handler) assembleCached(r *http.Request, sel trends.Selection) (*trends.Series, error) {
	series, err := h.cache.GetOrCompute(r.Context(), sel, func(ctx context.Context) (*trends.Series, error) {
		return h.assembler.Assemble(ctx, sel)
	})
	if err != nil {
		h.logger.Error("assembling series failed", "selection", sel.CacheKey(), "error", err)
	}
	return series, err
}

// parseSelection reads the selection parameters shared by Freqs and
// Trends.
func (h *Handler) parseSelection(r *http.Request) (trends.Selection, error) {
	q := r.URL.Query()
	sel := trends.Selection{
		Dataset:      q.Get("dataset"),
		Lang:         q.Get("lang"),
		CooccurWords: splitWords(q.Get("cooccur")),
		SearchFilter: q.Get("searchFilter"),
		SearchQuery:  q.Get("searchQuery"),
		URLNetloc:    q.Get("urlNetloc"),
		Words:        splitWords(q.Get("words")),
	}
	if codes := q.Get("codes"); codes != "" {
		sel.CodeIdentifiers = strings.Split(codes, ",")
	}
	if v := q.Get("userVerified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			return sel, apperrors.Newf(apperrors.ErrInvalidInput,
				http.StatusBadRequest, "userVerified must be a boolean")
		}
		sel.UserVerified = &verified
	}
	if sel.Dataset == "" {
		return sel, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "query parameter 'dataset' is required")
	}
	if sel.Lang == "" {
		return sel, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "query parameter 'lang' is required")
	}
	return sel, nil
}

// parseDateRange reads the from/to parameters, defaulting to the full
// corpus range.
func (h *Handler) parseDateRange(r *http.Request) (dates.Day, dates.Day, error) {
	from := h.assembler.MinDate()
	to := h.assembler.MaxDate()
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = dates.Parse(s); err != nil {
			return from, to, apperrors.Newf(apperrors.ErrInvalidDateRange,
				http.StatusBadRequest, "from must be a YYYY-MM-DD date")
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = dates.Parse(s); err != nil {
			return from, to, apperrors.Newf(apperrors.ErrInvalidDateRange,
				http.StatusBadRequest, "to must be a YYYY-MM-DD date")
		}
	}
	if to.Before(from) {
		return from, to, apperrors.Newf(apperrors.ErrInvalidDateRange,
			http.StatusBadRequest, "to must not precede from")
	}
	return from, to, nil
}

func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(strings.ReplaceAll(s, ",", " "))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encoding response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
