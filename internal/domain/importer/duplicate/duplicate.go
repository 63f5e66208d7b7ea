// Package duplicate flags candidate transactions that probably duplicate
// existing ones. Flagging is advisory by design: a false positive must
// not silently lose a real transaction, and a false negative must not
// silently double-count money, so the user decides at commit time.
package duplicate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
)

// Lookup is the single collaborator consulted before commit: an
// existing-transactions query keyed by account and date range.
type Lookup interface {
	ListByAccountAndDateRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]importer.ExistingTransaction, error)
}

// Options tune the matching thresholds.
type Options struct {
	// DateWindowDays absorbs clearing-date skew between the statement
	// and the stored transaction.
	DateWindowDays int
	// SimilarityThreshold is the minimum description similarity (0..1)
	// for a same-amount, near-date pair to be flagged.
	SimilarityThreshold float64
}

// DefaultOptions returns the tuning used when the caller passes zeroes.
func DefaultOptions() Options {
	return Options{DateWindowDays: 2, SimilarityThreshold: 0.5}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DateWindowDays <= 0 {
		o.DateWindowDays = def.DateWindowDays
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = def.SimilarityThreshold
	}
	return o
}

// Flag annotates Valid rows that probably duplicate an existing
// transaction; Warning and Rejected rows pass through unchanged. It
// issues one bounded lookup covering the whole candidate date span, then
// matches in a single pass over day buckets, keeping cost linear in the
// number of existing transactions.
func Flag(ctx context.Context, rows []importer.PreviewRow, lookup Lookup, accountID uuid.UUID, opts Options) ([]importer.PreviewRow, error) {
	opts = opts.withDefaults()

	from, to, any := candidateSpan(rows)
	if !any {
		return rows, nil
	}
	window := time.Duration(opts.DateWindowDays) * 24 * time.Hour
	existing, err := lookup.ListByAccountAndDateRange(ctx, accountID, from.Add(-window), to.Add(window))
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}

	buckets := make(map[int64][]importer.ExistingTransaction, len(existing))
	for _, tx := range existing {
		day := dayKey(tx.Date)
		buckets[day] = append(buckets[day], tx)
	}

	for i := range rows {
		row := &rows[i]
		if row.Status != importer.StatusValid || row.Normalized == nil {
			continue
		}
		if ref := bestMatch(row.Normalized, buckets, opts); ref != nil {
			row.DuplicateOf = ref
		}
	}
	return rows, nil
}

// bestMatch scans the day buckets within the window and returns the
// highest-confidence match, ties broken by smaller date distance so the
// result is deterministic for a given (candidates, existing) pair.
func bestMatch(n *importer.Normalized, buckets map[int64][]importer.ExistingTransaction, opts Options) *importer.DuplicateRef {
	var (
		best     *importer.DuplicateRef
		bestDist int
	)
	day := dayKey(n.Date)
	for offset := -opts.DateWindowDays; offset <= opts.DateWindowDays; offset++ {
		for _, tx := range buckets[day+int64(offset)] {
			if !tx.Amount.Equal(n.Amount) {
				continue
			}
			confidence := describeSimilarity(n.Description, tx.Description)
			if confidence < opts.SimilarityThreshold {
				continue
			}
			dist := offset
			if dist < 0 {
				dist = -dist
			}
			if best == nil || confidence > best.Confidence ||
				(confidence == best.Confidence && dist < bestDist) {
				best = &importer.DuplicateRef{ExistingID: tx.ID, Confidence: confidence}
				bestDist = dist
			}
		}
	}
	return best
}

// describeSimilarity scores two descriptions in [0,1]. A normalized
// exact match is highest confidence; otherwise the better of token
// overlap and edit-distance similarity.
func describeSimilarity(a, b string) float64 {
	na, nb := normalizeDescription(a), normalizeDescription(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}

	overlap := tokenOverlap(na, nb)

	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	levSim := 1.0 - float64(fuzzy.LevenshteinDistance(na, nb))/float64(maxLen)

	score := overlap
	if levSim > score {
		score = levSim
	}
	// Cap below exact-match confidence so callers can distinguish.
	if score > 0.95 {
		score = 0.95
	}
	return score
}

func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}
	shared := 0
	for _, t := range tb {
		if set[t] {
			shared++
		}
	}
	denom := len(ta)
	if len(tb) > denom {
		denom = len(tb)
	}
	return float64(shared) / float64(denom)
}

func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func candidateSpan(rows []importer.PreviewRow) (from, to time.Time, any bool) {
	for i := range rows {
		row := &rows[i]
		if row.Status != importer.StatusValid || row.Normalized == nil {
			continue
		}
		d := row.Normalized.Date
		if !any {
			from, to, any = d, d, true
			continue
		}
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}
	return from, to, any
}
