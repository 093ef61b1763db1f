// Package extractor turns fetched HTML into listing records. There is
// one implementation; site differences are configuration data, not
// subclasses.
package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pokeca-watcher/config"
	"pokeca-watcher/dedupe"
	"pokeca-watcher/heuristics"
	"pokeca-watcher/models"
)

// SiteExtractor is the contract every source-specific extractor
// fulfills. Extract is total over malformed or partial HTML: missing
// elements degrade to empty fields and an extractor that finds nothing
// returns an empty sequence, never an error.
type SiteExtractor interface {
	SourceID() string
	Extract(html string) []models.ListingRecord
}

// defaultSaleKeywords gate candidates to lottery/reservation context.
var defaultSaleKeywords = []string{"抽選", "予約", "BOX", "ボックス", "パック"}

// attrHints mark an element as a structural product candidate when its
// class or id contains one of them.
var attrHints = []string{"item", "product", "goods", "campaign", "entry", "lottery"}

const maxProductLen = 150
const minLinkTextLen = 10

// Site extracts listings for one configured source.
type Site struct {
	cfg config.Source
	kw  *heuristics.Keywords
}

// NewSite builds the extractor for a source. The keyword set is shared
// across all sites and must not be mutated.
func NewSite(cfg config.Source, kw *heuristics.Keywords) *Site {
	return &Site{cfg: cfg, kw: kw}
}

// SourceID identifies the producing source.
func (s *Site) SourceID() string {
	return s.cfg.ID
}

// Extract scans the document twice: structural candidates first, then
// anchors directly in case script-injected content carries no item
// markup. Both paths feed the same deduplicator.
func (s *Site) Extract(html string) (records []models.ListingRecord) {
	// The DOM walk must never take the extractor down, whatever the
	// page served.
	defer func() {
		if r := recover(); r != nil {
			records = []models.ListingRecord{}
		}
	}()

	if strings.TrimSpace(html) == "" {
		return []models.ListingRecord{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []models.ListingRecord{}
	}

	// A page-level closed banner empties the whole source.
	pageText := doc.Text()
	for _, marker := range s.cfg.ClosedMarkers {
		if strings.Contains(pageText, marker) {
			return []models.ListingRecord{}
		}
	}

	var candidates []models.ListingRecord

	s.structuralScan(doc).Each(func(_ int, item *goquery.Selection) {
		if rec := s.parseItem(item); rec != nil {
			candidates = append(candidates, *rec)
		}
	})

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		if rec := s.parseLink(link); rec != nil {
			candidates = append(candidates, *rec)
		}
	})

	return dedupe.Dedupe(candidates)
}

// structuralScan selects elements whose markup hints at a product or
// campaign card. An explicit item selector from the source config wins;
// otherwise containers are matched by class/id hints.
func (s *Site) structuralScan(doc *goquery.Document) *goquery.Selection {
	if s.cfg.ItemSelector != "" {
		return doc.Find(s.cfg.ItemSelector)
	}
	return doc.Find("div, li, article").FilterFunction(func(_ int, el *goquery.Selection) bool {
		attrs := strings.ToLower(el.AttrOr("class", "") + " " + el.AttrOr("id", ""))
		for _, hint := range attrHints {
			if strings.Contains(attrs, hint) {
				return true
			}
		}
		return false
	})
}

func (s *Site) parseItem(item *goquery.Selection) *models.ListingRecord {
	text := normalizeSpace(item.Text())

	if !s.kw.IsRelevant(text) || !s.inSaleContext(text) {
		return nil
	}

	product := s.itemTitle(item)
	if product == "" {
		product = truncate(text, maxProductLen)
	}
	if product == "" {
		return nil
	}

	href := s.absolutize(item.Find("a[href]").First().AttrOr("href", ""))

	return s.record(product, href, text)
}

// parseLink handles anchors the structural scan missed, typically
// script-injected cards without recognizable container markup.
func (s *Site) parseLink(link *goquery.Selection) *models.ListingRecord {
	text := normalizeSpace(link.Text())
	if len([]rune(text)) < minLinkTextLen || !s.kw.IsRelevant(text) {
		return nil
	}

	href := link.AttrOr("href", "")
	if s.cfg.LinkPattern != "" && !strings.Contains(href, s.cfg.LinkPattern) {
		return nil
	}
	abs := s.absolutize(href)
	if abs == "" {
		return nil
	}

	contextText := text
	if parent := link.Closest("div, li, article"); parent.Length() > 0 {
		contextText = normalizeSpace(parent.Text())
	}
	if !s.inSaleContext(contextText) {
		return nil
	}

	// Kind and status come from the anchor's own text. The surrounding
	// container may describe sibling listings too, so it only backfills
	// price and period.
	rec := s.record(truncate(text, maxProductLen), abs, text)
	if rec.Price == "" {
		rec.Price = heuristics.ExtractPrice(contextText)
	}
	if rec.Period == "" {
		rec.Period = heuristics.ExtractPeriod(contextText)
		rec.StartDate, rec.EndDate = heuristics.SplitPeriod(rec.Period)
	}
	return rec
}

func (s *Site) record(product, href, contextText string) *models.ListingRecord {
	period := heuristics.ExtractPeriod(contextText)
	start, end := heuristics.SplitPeriod(period)

	return &models.ListingRecord{
		Store:            s.cfg.Store,
		Product:          product,
		Kind:             s.kindFor(contextText),
		Period:           period,
		StartDate:        start,
		EndDate:          end,
		AnnouncementDate: heuristics.ExtractAnnouncement(contextText),
		Price:            heuristics.ExtractPrice(contextText),
		Conditions:       s.cfg.Conditions,
		DetailURL:        href,
		Status:           s.kw.ClassifyStatus(contextText),
		SourceID:         s.cfg.ID,
	}
}

// kindFor forces lottery when the text says 抽選 and reservation when it
// says 予約; otherwise the source default applies.
func (s *Site) kindFor(text string) models.ListingKind {
	if strings.Contains(text, "抽選") {
		return models.KindLottery
	}
	if strings.Contains(text, "予約") {
		return models.KindReservation
	}
	switch s.cfg.Kind {
	case "reservation":
		return models.KindReservation
	case "campaign":
		return models.KindCampaign
	default:
		return models.KindLottery
	}
}

func (s *Site) inSaleContext(text string) bool {
	kws := s.cfg.SaleKeywords
	if len(kws) == 0 {
		kws = defaultSaleKeywords
	}
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// itemTitle looks for a heading-like child whose class names it a
// product name.
func (s *Site) itemTitle(item *goquery.Selection) string {
	title := ""
	item.Find("h2, h3, h4, p, span").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		class := strings.ToLower(el.AttrOr("class", ""))
		if strings.Contains(class, "name") || strings.Contains(class, "title") || strings.Contains(class, "ttl") {
			if t := normalizeSpace(el.Text()); t != "" {
				title = truncate(t, maxProductLen)
				return false
			}
		}
		return true
	})
	return title
}

// absolutize resolves href against the source base URL and drops
// anything that does not end up an absolute, well-formed URL.
func (s *Site) absolutize(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil || base.Scheme == "" {
		return ""
	}
	return base.ResolveReference(u).String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
