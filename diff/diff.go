// Package diff compares consecutive extraction results of one source.
package diff

import (
	"sort"

	"pokeca-watcher/models"
)

// Detect compares the previous snapshot of a source against the current
// result. A nil previous result means the source runs for the first time
// and always counts as changed. Products are compared by name only; the
// detail URL does not participate in the comparison.
func Detect(prev *models.SourceResult, cur models.SourceResult) models.ChangeReport {
	report := models.ChangeReport{
		SourceID:   cur.SourceID,
		CountAfter: len(cur.Records),
	}

	if prev == nil {
		report.HasChanges = true
		report.Reason = "first run"
		return report
	}

	report.CountBefore = len(prev.Records)

	oldProducts := productSet(prev.Records)
	newProducts := productSet(cur.Records)

	for name := range newProducts {
		if !oldProducts[name] {
			report.Added = append(report.Added, name)
		}
	}
	for name := range oldProducts {
		if !newProducts[name] {
			report.Removed = append(report.Removed, name)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)

	report.HasChanges = report.CountBefore != report.CountAfter ||
		len(report.Added) > 0 || len(report.Removed) > 0

	return report
}

func productSet(records []models.ListingRecord) map[string]bool {
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.Product] = true
	}
	return set
}
