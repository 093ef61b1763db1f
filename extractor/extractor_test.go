package extractor

import (
	"strings"
	"testing"

	"pokeca-watcher/config"
	"pokeca-watcher/heuristics"
	"pokeca-watcher/models"
)

func testSource() config.Source {
	return config.Source{
		ID:           "biccamera",
		Store:        "ビックカメラ",
		BaseURL:      "https://www.biccamera.com",
		Kind:         "lottery",
		ItemSelector: ".bcs_item",
		LinkPattern:  "/bc/item/",
	}
}

const itemPage = `
<html><body>
<div class="bcs_item">
  <a href="/bc/item/12345/"><img src="x.jpg"></a>
  <p class="bcs_name">ポケモンカードゲーム スカーレット&amp;バイオレット 拡張パック BOX</p>
  <p class="bcs_price">5,400円</p>
  <span>抽選受付中 12/1〜12/15</span>
</div>
<div class="bcs_item">
  <p class="bcs_name">デジタルカメラ 三脚セット</p>
  <p class="bcs_price">12,800円</p>
</div>
</body></html>`

func TestExtractStructuralItem(t *testing.T) {
	site := NewSite(testSource(), heuristics.Default())

	got := site.Extract(itemPage)
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d records, want 1", len(got))
	}

	rec := got[0]
	if rec.Product != "ポケモンカードゲーム スカーレット&バイオレット 拡張パック BOX" {
		t.Errorf("Product = %q", rec.Product)
	}
	if rec.DetailURL != "https://www.biccamera.com/bc/item/12345/" {
		t.Errorf("DetailURL = %q, want absolute item URL", rec.DetailURL)
	}
	if rec.Price != "5,400円" {
		t.Errorf("Price = %q, want 5,400円", rec.Price)
	}
	if rec.Period == "" {
		t.Error("Period is empty, want the 12/1〜12/15 range")
	}
	if rec.Status != models.StatusActive {
		t.Errorf("Status = %q, want active", rec.Status)
	}
	if rec.Kind != models.KindLottery {
		t.Errorf("Kind = %q, want lottery", rec.Kind)
	}
	if rec.SourceID != "biccamera" {
		t.Errorf("SourceID = %q", rec.SourceID)
	}
}

func TestExtractAnchorFallback(t *testing.T) {
	// No recognizable item containers, just script-injected anchors.
	html := `
<html><body>
<div>
  <a href="/bc/item/99/">ポケモンカード ナイトワンダラー BOX 予約受付中</a>
  <a href="/bc/item/98/">短い</a>
  <a href="/bc/campaign/1/">ポケモンカード 拡張パック テラスタルフェス 抽選販売のご案内</a>
</div>
</body></html>`

	site := NewSite(testSource(), heuristics.Default())
	got := site.Extract(html)

	if len(got) != 1 {
		t.Fatalf("Extract() returned %d records, want 1", len(got))
	}
	if got[0].DetailURL != "https://www.biccamera.com/bc/item/99/" {
		t.Errorf("DetailURL = %q", got[0].DetailURL)
	}
	if got[0].Kind != models.KindReservation {
		t.Errorf("Kind = %q, want reservation for 予約 text", got[0].Kind)
	}
}

func TestExtractDefaultStructuralScan(t *testing.T) {
	src := testSource()
	src.ItemSelector = ""
	src.LinkPattern = ""

	html := `
<html><body>
<li class="product-card">
  <a href="https://shop.example.com/goods/7"><span class="goods-name">ポケモンカードゲーム 強化拡張パック</span></a>
  <span>抽選販売 1,980円</span>
</li>
</body></html>`

	site := NewSite(src, heuristics.Default())
	got := site.Extract(html)

	if len(got) != 1 {
		t.Fatalf("Extract() returned %d records, want 1", len(got))
	}
	if got[0].Price != "1,980円" {
		t.Errorf("Price = %q", got[0].Price)
	}
}

func TestExtractClosedMarkerEmptiesSource(t *testing.T) {
	src := testSource()
	src.ClosedMarkers = []string{"抽選受付は終了しました"}

	html := `
<html><body>
<p>抽選受付は終了しました</p>
<div class="bcs_item">
  <a href="/bc/item/1/"></a>
  <p class="bcs_name">ポケモンカードゲーム 拡張パック BOX 抽選</p>
</div>
</body></html>`

	site := NewSite(src, heuristics.Default())
	if got := site.Extract(html); len(got) != 0 {
		t.Fatalf("Extract() returned %d records on a closed page, want 0", len(got))
	}
}

func TestExtractMalformedHTML(t *testing.T) {
	site := NewSite(testSource(), heuristics.Default())

	inputs := []string{
		"",
		"   \n\t  ",
		"<div<<<a href=",
		"<html><body><div class='bcs_item'>ポケモンカード 抽選",
		strings.Repeat("<div>", 200),
	}
	for _, in := range inputs {
		got := site.Extract(in)
		if got == nil {
			t.Errorf("Extract(%.20q) returned nil, want empty slice", in)
		}
	}
}

func TestExtractDeduplicatesBothScans(t *testing.T) {
	// The anchor text matches the structural title, so both scans find
	// the same listing.
	html := `
<html><body>
<div class="bcs_item">
  <a href="/bc/item/5/">ポケモンカードゲーム バトルパートナーズ BOX 抽選受付中</a>
</div>
</body></html>`

	site := NewSite(testSource(), heuristics.Default())
	got := site.Extract(html)
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d records, want 1 after dedup", len(got))
	}
}

func TestExtractTruncatesLongTitles(t *testing.T) {
	long := "ポケモンカード 抽選 " + strings.Repeat("あ", 300)
	html := `<div class="bcs_item"><p>` + long + `</p></div>`

	site := NewSite(testSource(), heuristics.Default())
	got := site.Extract(html)
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d records, want 1", len(got))
	}
	if n := len([]rune(got[0].Product)); n > 150 {
		t.Errorf("Product length = %d runes, want <= 150", n)
	}
}

func TestExtractRejectsUnresolvableLinks(t *testing.T) {
	src := testSource()
	src.BaseURL = ""
	src.ItemSelector = ""

	html := `<div><a href="/bc/item/3/">ポケモンカードゲーム 拡張パック 抽選販売受付中</a></div>`

	site := NewSite(src, heuristics.Default())
	got := site.Extract(html)
	for _, rec := range got {
		if rec.DetailURL != "" && !strings.HasPrefix(rec.DetailURL, "http") {
			t.Errorf("DetailURL = %q, want absolute or empty", rec.DetailURL)
		}
	}
}
