// Package aggregate derives the monthly trend and the label distribution
// from one labeled batch. Results are request scoped.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DeafMist/comment-sentiment/internal/models"
)

var (
	ErrBadTimestamp = errors.New("unparseable timestamp")
	ErrNoPrediction = errors.New("record has no prediction")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 and naive "date time" strings; naive
// values are taken as UTC. The result is always in UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
}

// Record pairs a comment timestamp with its prediction. A nil Prediction
// marks an item that failed inference.
type Record struct {
	PublishedAt string
	Prediction  *models.Prediction
}

// RecordError reports a record left out of the trend.
type RecordError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

func (e RecordError) Unwrap() error { return e.Err }

// MonthBucket holds the labels of one calendar month (UTC).
type MonthBucket struct {
	YearMonth   string                   `json:"year_month"`
	Counts      map[models.Label]int     `json:"counts"`
	Proportions map[models.Label]float64 `json:"proportions"`
	Total       int                      `json:"total"`
}

// MonthlyResult is the trend series. Buckets are ascending by month and
// only months with at least one record appear.
type MonthlyResult struct {
	Buckets []MonthBucket `json:"buckets"`
	Skipped []RecordError `json:"skipped"`
}

// ByMonth groups records by UTC year-month.
func ByMonth(records []Record) MonthlyResult {
	counts := make(map[month]map[models.Label]int)
	skipped := []RecordError{}

	for i, r := range records {
		if r.Prediction == nil {
			skipped = append(skipped, RecordError{Index: i, Reason: ErrNoPrediction.Error(), Err: ErrNoPrediction})
			continue
		}
		ts, err := ParseTimestamp(r.PublishedAt)
		if err != nil {
			skipped = append(skipped, RecordError{Index: i, Reason: err.Error(), Err: err})
			continue
		}
		key := month{year: ts.Year(), month: ts.Month()}
		if counts[key] == nil {
			counts[key] = make(map[models.Label]int, len(models.AllLabels))
		}
		counts[key][r.Prediction.Label]++
	}

	keys := make([]month, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Chronological, not lexical: UTC conversion can push a year past 9999.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	buckets := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, newBucket(k.String(), counts[k]))
	}
	return MonthlyResult{Buckets: buckets, Skipped: skipped}
}

type month struct {
	year  int
	month time.Month
}

func (m month) String() string {
	return fmt.Sprintf("%04d-%02d", m.year, int(m.month))
}

func newBucket(key string, labelCounts map[models.Label]int) MonthBucket {
	b := MonthBucket{
		YearMonth:   key,
		Counts:      make(map[models.Label]int, len(models.AllLabels)),
		Proportions: make(map[models.Label]float64, len(models.AllLabels)),
	}
	for _, n := range labelCounts {
		b.Total += n
	}
	for _, l := range models.AllLabels {
		b.Counts[l] = labelCounts[l]
		b.Proportions[l] = float64(labelCounts[l]) / float64(b.Total)
	}
	return b
}
