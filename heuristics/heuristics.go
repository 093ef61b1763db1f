package heuristics

import (
	"regexp"
	"strings"

	"pokeca-watcher/models"
)

// Keywords holds the keyword classes used for relevance filtering and
// status classification. Treat as immutable after construction; a single
// instance is shared by all extractors.
type Keywords struct {
	Product  []string
	Active   []string
	Closed   []string
	Upcoming []string
}

// Default returns the keyword sets for the Pokemon card product family.
func Default() *Keywords {
	return &Keywords{
		Product: []string{
			"ポケモンカード", "ポケカ", "pokemon", "ポケモン",
			"スカーレット", "バイオレット", "テラスタル",
			"シャイニートレジャー", "バトルマスター", "TCG",
			"ナイトワンダラー", "クリムゾンヘイズ", "レイジングサーフ",
		},
		Active:   []string{"受付中", "予約可", "在庫あり", "カートに入れる", "販売中"},
		Closed:   []string{"終了", "売切", "品切", "完売", "予約終了"},
		Upcoming: []string{"近日", "予定", "まもなく"},
	}
}

var priceRe = regexp.MustCompile(`[\d,]+円`)

// periodRes are tried in order; the first hit wins. The ordering is part
// of the contract because the patterns overlap (a date range contains a
// bare date).
var periodRes = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}[/月]\d{1,2}日?\s*[〜～-]\s*\d{1,2}[/月]\d{1,2}日?`),
	regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),
	regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}`),
}

// IsRelevant reports whether the text mentions the watched product
// family. Matching is a case-insensitive substring check.
func (k *Keywords) IsRelevant(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range k.Product {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ExtractPrice returns the first currency token in the text, verbatim,
// or "" when none is present.
func ExtractPrice(text string) string {
	if text == "" {
		return ""
	}
	return priceRe.FindString(text)
}

// ExtractPeriod returns the first date or date-range token in the text,
// or "" when none is present.
func ExtractPeriod(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range periodRes {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

var periodSepRe = regexp.MustCompile(`\s*[〜～-]\s*`)

var announceRe = regexp.MustCompile(`(?:当選発表|抽選発表|発表)[^0-9]{0,6}(\d{4}年\d{1,2}月\d{1,2}日|\d{4}/\d{1,2}/\d{1,2}|\d{1,2}[/月]\d{1,2}日?)`)

// ExtractAnnouncement returns the result-announcement date when the
// text labels one, or "" otherwise.
func ExtractAnnouncement(text string) string {
	if text == "" {
		return ""
	}
	m := announceRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// SplitPeriod splits an extracted period token into its start and end
// halves. A single date yields only a start; an empty period yields
// nothing.
func SplitPeriod(period string) (start, end string) {
	if period == "" {
		return "", ""
	}
	parts := periodSepRe.Split(period, 2)
	start = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		end = strings.TrimSpace(parts[1])
	}
	return start, end
}

// ClassifyStatus maps the text onto a lifecycle status. Keyword classes
// are checked in fixed priority order (active, closed, upcoming) so a
// text containing both an active and a closed keyword resolves to active.
func (k *Keywords) ClassifyStatus(text string) models.ListingStatus {
	if text == "" {
		return models.StatusUnknown
	}
	if containsAny(text, k.Active) {
		return models.StatusActive
	}
	if containsAny(text, k.Closed) {
		return models.StatusClosed
	}
	if containsAny(text, k.Upcoming) {
		return models.StatusUpcoming
	}
	return models.StatusUnknown
}

func containsAny(text string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
