package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
)

// indexRawSocial indexes the crawled archive of a raw social dataset.
// Already-indexed data files are skipped via the side collection, so an
// interrupted run picks up where it left off without duplicating work.
func (d *Dataset) indexRawSocial(ctx context.Context) (int64, error) {
	src := d.cfg.SourceRawSocial

	if err := d.ensureIndex(ctx, d.indexedIndex(), indexedFilesMapping()); err != nil {
		return 0, err
	}

	p, err := plan.Load(src.PlanFile)
	if err != nil {
		return 0, fmt.Errorf("loading plan %s: %w", src.PlanFile, err)
	}
	arc := archive.Open(src.ArchiveDir)

	var total int64
	for _, spec := range arc.Entries(p.Entries()) {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		fileName := filepath.Base(arc.DataFile(spec))

		done, err := d.fileIndexed(ctx, fileName)
		if err != nil {
			return total, err
		}
		if done {
			d.logger.Debug("data file already indexed, skipping", "file", fileName)
			if d.metrics != nil {
				d.metrics.FilesSkippedTotal.Inc()
			}
			continue
		}

		n, err := d.indexDataFile(ctx, arc, spec)
		if err != nil {
			return total, fmt.Errorf("indexing data file %s: %w", fileName, err)
		}
		total += n

		if err := d.markFileIndexed(ctx, fileName); err != nil {
			return total, err
		}
		d.logger.Info("indexed data file", "file", fileName, "documents", n)
	}
	return total, nil
}

func (d *Dataset) indexDataFile(ctx context.Context, arc *archive.Archive, spec plan.QuerySpec) (int64, error) {
	var (
		buf   []elastic.Document
		count int64
	)
	err := arc.Each(spec, func(doc archive.Document) error {
		buf = append(buf, d.normalizeRawSocial(doc, spec))
		count++
		if len(buf) >= d.bulkSize {
			if err := d.flush(ctx, buf); err != nil {
				return err
			}
			buf = buf[:0]
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, d.flush(ctx, buf)
}

// normalizeRawSocial flattens one crawled document and attaches the
// originating request as the nested batch_meta object.
func (d *Dataset) normalizeRawSocial(doc archive.Document, spec plan.QuerySpec) elastic.Document {
	user := map[string]any{
		"id_str":           doc.User.IDStr,
		"name":             doc.User.Name,
		"screen_name":      doc.User.ScreenName,
		"location":         doc.User.Location,
		"verified":         doc.User.Verified,
		"geo_enabled":      doc.User.GeoEnabled,
		"followers_count":  doc.User.FollowersCount,
		"friends_count":    doc.User.FriendsCount,
		"favourites_count": doc.User.FavouritesCount,
		"statuses_count":   doc.User.StatusesCount,
	}
	d.expandText(user, "description", doc.User.Description, doc.Lang)

	source := map[string]any{
		"id_str":         doc.IDStr,
		"created_at":     doc.CreatedAt.UTC().Format(time.RFC3339),
		"lang":           doc.Lang,
		"url":            doc.URL,
		"reply_count":    doc.ReplyCount,
		"retweet_count":  doc.RetweetCount,
		"favorite_count": doc.FavoriteCount,
		"user":           user,
		"batch_meta": map[string]any{
			"request": map[string]any{
				"query":  spec.Query,
				"lang":   spec.Lang,
				"filter": string(spec.Filter),
				"date":   spec.Date.String(),
			},
		},
	}
	if doc.QuotedStatusID != "" {
		source["quoted_status_id"] = doc.QuotedStatusID
	}
	d.expandText(source, "full_text", doc.FullText, doc.Lang)

	return elastic.Document{ID: doc.IDStr, Source: source}
}
