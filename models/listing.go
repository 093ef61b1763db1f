package models

import (
	"strings"
	"time"
)

// ListingKind classifies how a product is sold.
type ListingKind string

const (
	KindLottery     ListingKind = "lottery"
	KindReservation ListingKind = "reservation"
	KindCampaign    ListingKind = "campaign"
)

// ListingStatus is the lifecycle state of a lottery or reservation.
type ListingStatus string

const (
	StatusActive   ListingStatus = "active"
	StatusClosed   ListingStatus = "closed"
	StatusUpcoming ListingStatus = "upcoming"
	StatusUnknown  ListingStatus = "unknown"
)

// ListingRecord represents one lottery or reservation opportunity
// extracted from a retailer page.
type ListingRecord struct {
	Store            string        `json:"store"`
	Product          string        `json:"product"`
	Kind             ListingKind   `json:"kind"`
	Period           string        `json:"period,omitempty"`
	StartDate        string        `json:"start_date,omitempty"`
	EndDate          string        `json:"end_date,omitempty"`
	AnnouncementDate string        `json:"announcement_date,omitempty"`
	Conditions       string        `json:"conditions,omitempty"`
	Price            string        `json:"price,omitempty"`
	DetailURL        string        `json:"detail_url,omitempty"`
	Status           ListingStatus `json:"status"`
	SourceID         string        `json:"source_id"`
}

// Key returns the deduplication identity of the record: the
// (product, detail_url) pair after trimming and case folding.
func (r ListingRecord) Key() string {
	product := strings.ToLower(strings.TrimSpace(r.Product))
	url := strings.ToLower(strings.TrimSpace(r.DetailURL))
	return product + "\x00" + url
}

// SourceResult is the output of one site extraction run.
// It is immutable once returned by the orchestration step.
type SourceResult struct {
	SourceID      string          `json:"source_id"`
	SourceURL     string          `json:"source_url"`
	ScrapedAt     time.Time       `json:"scraped_at"`
	Records       []ListingRecord `json:"records"`
	Error         string          `json:"error,omitempty"`
	HasActiveFlag *bool           `json:"has_active_flag,omitempty"`
}

// ChangeReport describes the difference between the previous and the
// current result of one source. Product identity here is name-only,
// intentionally coarser than the deduplication key: a record whose URL
// changed but whose name persisted is not reported as added+removed.
type ChangeReport struct {
	SourceID    string   `json:"source_id"`
	HasChanges  bool     `json:"has_changes"`
	Reason      string   `json:"reason,omitempty"`
	Added       []string `json:"added,omitempty"`
	Removed     []string `json:"removed,omitempty"`
	CountBefore int      `json:"count_before"`
	CountAfter  int      `json:"count_after"`
}

// CycleResult aggregates every source result produced in one run.
type CycleResult struct {
	Timestamp time.Time      `json:"timestamp"`
	Sources   []SourceResult `json:"sources"`
}

// CountByKind returns the number of lottery, reservation and campaign
// records across all sources of the cycle. Records without a kind count
// as lotteries.
func (c CycleResult) CountByKind() (lotteries, reservations, campaigns int) {
	for _, src := range c.Sources {
		for _, rec := range src.Records {
			switch rec.Kind {
			case KindReservation:
				reservations++
			case KindCampaign:
				campaigns++
			default:
				lotteries++
			}
		}
	}
	return lotteries, reservations, campaigns
}

// AllRecords flattens the cycle into one record sequence, preserving
// source order.
func (c CycleResult) AllRecords() []ListingRecord {
	var records []ListingRecord
	for _, src := range c.Sources {
		records = append(records, src.Records...)
	}
	return records
}
