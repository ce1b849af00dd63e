package trendserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/freqs"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

// artifactTopWords caps how many rows of each frequency artifact count
// towards a bucket.
const artifactTopWords = 100

type fileFreqsBucket struct {
	Start dates.Day     `json:"start"`
	Words []rankedCount `json:"words"`
}

type rankedCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

type fileFreqsResponse struct {
	Resolution int               `json:"resolution"`
	Buckets    []fileFreqsBucket `json:"buckets"`
	TookMsecs  int64             `json:"tookMsecs"`
}

// FileFreqs serves the flat-file frequency view: per-entry artifacts
// aggregated into day buckets, without touching the search index. Only
// datasets with a crawl archive carry frequency artifacts.
func (h *Handler) FileFreqs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	name := q.Get("dataset")
	if name == "" {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "query parameter 'dataset' is required"))
		return
	}
	ds, err := h.cfg.Dataset(name)
	if err != nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrUnknownDataset,
			http.StatusNotFound, "no dataset named %q", name))
		return
	}
	if ds.Type != config.TypeRawSocial || ds.SourceRawSocial == nil || ds.SourceRawSocial.FrequenciesDir == "" {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "dataset %q has no frequency artifacts", name))
		return
	}
	src := ds.SourceRawSocial

	lang := q.Get("lang")
	query := q.Get("query")
	if lang == "" || query == "" {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "query parameters 'lang' and 'query' are required"))
		return
	}
	filterName := q.Get("searchFilter")
	if filterName == "" {
		filterName = string(plan.FilterTop)
	}
	filter, err := plan.ParseFilter(filterName)
	if err != nil {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "%v", err))
		return
	}

	// The configured crawl range bounds the series; from/to narrow it,
	// with 'to' inclusive like the other endpoints.
	first := dates.DayOf(src.StartDate)
	end := dates.DayOf(src.EndDate)
	if s := q.Get("from"); s != "" {
		if first, err = dates.Parse(s); err != nil {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidDateRange,
				http.StatusBadRequest, "from must be a YYYY-MM-DD date"))
			return
		}
	}
	if s := q.Get("to"); s != "" {
		to, err := dates.Parse(s)
		if err != nil {
			h.writeError(w, apperrors.Newf(apperrors.ErrInvalidDateRange,
				http.StatusBadRequest, "to must be a YYYY-MM-DD date"))
			return
		}
		end = to.AddDays(1)
	}
	if !first.Before(end) {
		h.writeError(w, apperrors.Newf(apperrors.ErrInvalidDateRange,
			http.StatusBadRequest, "to must not precede from"))
		return
	}

	topN := h.topNWords
	if s := q.Get("topN"); s != "" {
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

	series, err := freqs.LoadBucketedSeries(
		src.FrequenciesDir, filter, lang, query,
		first, end, h.dayResolution, artifactTopWords,
	)
	if err != nil {
		h.logger.Error("loading frequency artifacts failed", "dataset", name, "error", err)
		h.writeError(w, err)
		return
	}

	resp := fileFreqsResponse{
		Resolution: series.Resolution,
		Buckets:    make([]fileFreqsBucket, 0, series.Len()),
		TookMsecs:  time.Since(start).Milliseconds(),
	}
	for _, bucket := range series.Buckets {
		table := bucket.Counts.Table()
		if len(table) > topN {
			table = table[:topN]
		}
		words := make([]rankedCount, 0, len(table))
		for _, entry := range table {
			words = append(words, rankedCount{Word: entry.Word, Count: entry.Count})
		}
		resp.Buckets = append(resp.Buckets, fileFreqsBucket{Start: bucket.Start, Words: words})
	}
	h.writeJSON(w, http.StatusOK, resp)
}
