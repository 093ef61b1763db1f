package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pokeca-watcher/heuristics"
)

// Config is the full runtime configuration: keyword sets, fetch
// tunables, and the per-source data table. Site differences live here
// as data, not as per-site code.
type Config struct {
	Keywords KeywordConfig  `yaml:"keywords"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Notify   NotifyConfig   `yaml:"notify"`
	Report   ReportConfig   `yaml:"report"`
	Sources  []Source       `yaml:"sources"`
}

// KeywordConfig overrides the built-in keyword classes. Empty lists fall
// back to the defaults.
type KeywordConfig struct {
	Product  []string `yaml:"product"`
	Active   []string `yaml:"active"`
	Closed   []string `yaml:"closed"`
	Upcoming []string `yaml:"upcoming"`
}

// FetchConfig tunes the resilient fetcher.
type FetchConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

// SnapshotConfig locates the snapshot directory.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// NotifyConfig controls the Telegram notification. The bot token comes
// from the POKECA_KEY_TG environment variable, never from this file.
type NotifyConfig struct {
	Enabled bool  `yaml:"enabled"`
	ChatID  int64 `yaml:"chat_id"`
}

// ReportConfig controls the Google Sheets cycle report. Credentials come
// from GOOGLE_SHEETS_CREDENTIALS or the -credentials flag. Mode selects
// between a new sheet per cycle ("cycle", the default) and appending
// rows to the rolling default sheet ("append").
type ReportConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SpreadsheetURL string `yaml:"spreadsheet_url"`
	Mode           string `yaml:"mode"`
}

// Source describes one retail site to watch.
type Source struct {
	ID    string `yaml:"id"`
	Store string `yaml:"store"`
	URL   string `yaml:"url"`
	// BaseURL absolutizes relative detail links.
	BaseURL string `yaml:"base_url"`
	// Kind is the default listing kind when the item text does not say
	// 抽選 (which always forces lottery).
	Kind string `yaml:"kind"`
	// NeedsBrowser selects the headless-browser fetch path for sites
	// that render via script or block plain clients.
	NeedsBrowser bool `yaml:"needs_browser"`
	// WaitSelector is an optional CSS selector the fetcher waits for
	// before capturing HTML.
	WaitSelector string `yaml:"wait_selector"`
	// ItemSelector overrides the default structural candidate scan.
	ItemSelector string `yaml:"item_selector"`
	// LinkPattern is a substring a detail href must contain for the
	// anchor scan to accept it.
	LinkPattern string `yaml:"link_pattern"`
	// SaleKeywords gate items to lottery/reservation context. Empty
	// means the default gate.
	SaleKeywords []string `yaml:"sale_keywords"`
	// ClosedMarkers empty the whole source when found in the page text
	// (e.g. a "抽選受付は終了しました" banner).
	ClosedMarkers []string `yaml:"closed_markers"`
	// NoActiveMarker, on single-status sources, signals that no lottery
	// is currently open.
	NoActiveMarker string `yaml:"no_active_marker"`
	// SingleStatus sources report a has_active_flag instead of a rich
	// listing table.
	SingleStatus bool `yaml:"single_status"`
	// Conditions is free text attached to every record of the source.
	Conditions string `yaml:"conditions"`
}

// LoadConfig loads configuration from a YAML file. Sections left empty
// in the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the built-in configuration: the watched source table
// and the stock keyword sets.
func Default() *Config {
	cfg := &Config{
		Fetch: FetchConfig{
			MaxRetries:     3,
			TimeoutSeconds: 30,
			BackoffSeconds: 2,
		},
		Snapshot: SnapshotConfig{Dir: "data"},
		Report:   ReportConfig{Mode: "cycle"},
		Sources:  defaultSources(),
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Fetch.MaxRetries <= 0 {
		c.Fetch.MaxRetries = 3
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = 30
	}
	if c.Fetch.BackoffSeconds <= 0 {
		c.Fetch.BackoffSeconds = 2
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = "data"
	}
	if c.Report.Mode == "" {
		c.Report.Mode = "cycle"
	}
	if len(c.Sources) == 0 {
		c.Sources = defaultSources()
	}
}

// HeuristicKeywords builds the shared keyword set, using defaults for
// classes the config leaves empty.
func (c *Config) HeuristicKeywords() *heuristics.Keywords {
	kw := heuristics.Default()
	if len(c.Keywords.Product) > 0 {
		kw.Product = c.Keywords.Product
	}
	if len(c.Keywords.Active) > 0 {
		kw.Active = c.Keywords.Active
	}
	if len(c.Keywords.Closed) > 0 {
		kw.Closed = c.Keywords.Closed
	}
	if len(c.Keywords.Upcoming) > 0 {
		kw.Upcoming = c.Keywords.Upcoming
	}
	return kw
}

func defaultSources() []Source {
	return []Source{
		{
			ID:            "rakuten_books",
			Store:         "楽天ブックス",
			URL:           "https://books.rakuten.co.jp/event/game/card/entry/",
			BaseURL:       "https://books.rakuten.co.jp",
			Kind:          "lottery",
			ClosedMarkers: []string{"抽選受付は終了", "受付は終了"},
			Conditions:    "楽天会員登録必須",
		},
		{
			ID:             "pokemon_center",
			Store:          "ポケモンセンターオンライン",
			URL:            "https://www.pokemoncenter-online.com/lottery/apply.html",
			BaseURL:        "https://www.pokemoncenter-online.com",
			Kind:           "lottery",
			ItemSelector:   "[class*='lottery']",
			NoActiveMarker: "公開中の抽選がありません",
			SingleStatus:   true,
		},
		{
			ID:          "amazon",
			Store:       "Amazon",
			URL:         "https://www.amazon.co.jp/s?k=ポケモンカード+予約",
			BaseURL:     "https://www.amazon.co.jp",
			Kind:        "reservation",
			LinkPattern: "/dp/",
		},
		{
			ID:          "yodobashi",
			Store:       "ヨドバシカメラ",
			URL:         "https://www.yodobashi.com/?word=ポケモンカード+抽選",
			BaseURL:     "https://www.yodobashi.com",
			Kind:        "lottery",
			LinkPattern: "/product/",
		},
		{
			ID:           "biccamera",
			Store:        "ビックカメラ",
			URL:          "https://www.biccamera.com/bc/category/?q=ポケモンカード+抽選",
			BaseURL:      "https://www.biccamera.com",
			Kind:         "lottery",
			NeedsBrowser: true,
			WaitSelector: ".bcs_item",
			LinkPattern:  "/bc/item/",
		},
		{
			ID:           "joshin",
			Store:        "ジョーシン",
			URL:          "https://joshinweb.jp/search?KEY=ポケモンカード+抽選",
			BaseURL:      "https://joshinweb.jp",
			Kind:         "lottery",
			NeedsBrowser: true,
		},
		{
			ID:           "edion",
			Store:        "エディオン",
			URL:          "https://www.edion.com/search/?keyword=ポケモンカード",
			BaseURL:      "https://www.edion.com",
			Kind:         "lottery",
			NeedsBrowser: true,
			LinkPattern:  "/item/",
		},
		{
			ID:      "nojima",
			Store:   "ノジマオンライン",
			URL:     "https://online.nojima.co.jp/app/catalog/list/init?searchCategoryCode=0&immediateSearch=true&q=ポケモンカード+抽選",
			BaseURL: "https://online.nojima.co.jp",
			Kind:    "lottery",
		},
		{
			ID:      "yellow_submarine",
			Store:   "イエローサブマリン",
			URL:     "https://www.yellowsubmarine.co.jp/products/list.php?name=ポケモンカード",
			BaseURL: "https://www.yellowsubmarine.co.jp",
			Kind:    "reservation",
		},
		{
			ID:           "sevennet",
			Store:        "セブンネットショッピング",
			URL:          "https://7net.omni7.jp/search/?keyword=ポケモンカード+抽選",
			BaseURL:      "https://7net.omni7.jp",
			Kind:         "lottery",
			NeedsBrowser: true,
			LinkPattern:  "/detail/",
		},
		{
			ID:      "lawson",
			Store:   "ローソンHMV",
			URL:     "https://www.hmv.co.jp/search/keyword_ポケモンカード/",
			BaseURL: "https://www.hmv.co.jp",
			Kind:    "reservation",
		},
		{
			ID:           "aeon",
			Store:        "イオンスタイルオンライン",
			URL:          "https://aeonretail.com/catalogsearch/result/?q=ポケモンカード",
			BaseURL:      "https://aeonretail.com",
			Kind:         "reservation",
			NeedsBrowser: true,
		},
	}
}
