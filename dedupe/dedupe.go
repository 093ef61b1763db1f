// Package dedupe collapses repeated listing records.
package dedupe

import (
	"strings"

	"pokeca-watcher/models"
)

// Dedupe removes duplicate records from the input, keyed by the
// normalized (product, detail_url) pair. The first occurrence of each
// key is kept unmodified and later repeats are discarded entirely; no
// field merging happens. Records with an empty product are dropped.
// Input order is preserved.
func Dedupe(records []models.ListingRecord) []models.ListingRecord {
	seen := make(map[string]bool, len(records))
	unique := make([]models.ListingRecord, 0, len(records))

	for _, rec := range records {
		// Trim like Key() does, so a whitespace-only product counts
		// as empty.
		if strings.TrimSpace(rec.Product) == "" {
			continue
		}
		key := rec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, rec)
	}

	return unique
}
