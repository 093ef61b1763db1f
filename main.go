package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pokeca-watcher/config"
	"pokeca-watcher/db"
	"pokeca-watcher/diff"
	"pokeca-watcher/extractor"
	"pokeca-watcher/fetcher"
	"pokeca-watcher/heuristics"
	"pokeca-watcher/models"
	"pokeca-watcher/notify"
	"pokeca-watcher/report"
	"pokeca-watcher/scheduler"
	"pokeca-watcher/snapshot"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dataDir := flag.String("data", "", "Snapshot directory (overrides config)")
	interval := flag.Duration("interval", 0, "Watch interval (0 runs a single cycle and exits)")
	credentialsPath := flag.String("credentials", "", "Path to Google service account credentials JSON file (or use GOOGLE_SHEETS_CREDENTIALS env var)")
	flag.Parse()

	cfg := loadConfig(*configPath)
	if *dataDir != "" {
		cfg.Snapshot.Dir = *dataDir
	}

	w, err := newWatcher(cfg, *credentialsPath)
	if err != nil {
		log.Fatalf("Error: %v\n", err)
	}
	defer w.close()

	// One-shot mode
	if *interval <= 0 {
		w.runCycle()
		return
	}

	sched := scheduler.NewScheduler(*interval, w.runCycle)
	sched.Start()
	log.Printf("Watcher started, interval %s\n", *interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	sched.Stop()
}

// watcher holds everything a cycle needs. Sources are processed one at
// a time; a failing source never stops the cycle.
type watcher struct {
	cfg      *config.Config
	keywords *heuristics.Keywords
	browser  fetcher.Fetcher
	plain    fetcher.Fetcher
	store    *snapshot.Store
	notifier *notify.Notifier
	writer   *report.Writer
	database *db.DB
}

func newWatcher(cfg *config.Config, credentialsPath string) (*watcher, error) {
	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	backoff := time.Duration(cfg.Fetch.BackoffSeconds) * time.Second

	w := &watcher{
		cfg:      cfg,
		keywords: cfg.HeuristicKeywords(),
		browser:  fetcher.NewRodFetcher(cfg.Fetch.MaxRetries, timeout, backoff),
		plain:    fetcher.NewHTTPFetcher(timeout),
		store:    snapshot.NewStore(cfg.Snapshot.Dir),
	}

	if cfg.Notify.Enabled {
		notifier, err := notify.NewNotifier(cfg.Notify.ChatID)
		if err != nil {
			log.Printf("Warning: Telegram notifications disabled: %v\n", err)
		} else {
			w.notifier = notifier
		}
	}

	if cfg.Report.Enabled {
		spreadsheetID := report.ExtractSpreadsheetID(cfg.Report.SpreadsheetURL)
		if spreadsheetID == "" {
			log.Printf("Warning: Could not extract spreadsheet ID from URL: %s\n", cfg.Report.SpreadsheetURL)
		} else {
			writer, err := report.NewWriter(spreadsheetID, credentialsPath)
			if err != nil {
				log.Printf("Warning: Google Sheets report disabled: %v\n", err)
			} else {
				w.writer = writer
				log.Printf("Google Sheets writer initialized for spreadsheet: %s\n", spreadsheetID)
			}
		}
	}

	if db.Configured() {
		database, err := db.NewDB()
		if err != nil {
			log.Printf("Warning: run history disabled: %v\n", err)
		} else {
			w.database = database
			log.Println("Database initialized successfully")
		}
	}

	return w, nil
}

func (w *watcher) close() {
	if w.database != nil {
		if err := w.database.Close(); err != nil {
			log.Printf("Warning: failed to close database: %v\n", err)
		}
	}
}

// runCycle processes every configured source sequentially, persists the
// snapshots and pushes the optional report and notification.
func (w *watcher) runCycle() {
	start := time.Now()
	log.Printf("Starting watch cycle with %d sources\n", len(w.cfg.Sources))

	cycle := models.CycleResult{Timestamp: start}
	var changes []models.ChangeReport

	for _, src := range w.cfg.Sources {
		res := w.processSource(src)

		prev, err := w.store.Load(src.ID)
		if err != nil {
			log.Printf("Warning: failed to load previous snapshot for %s: %v\n", src.ID, err)
			prev = nil
		}

		change := diff.Detect(prev, res)
		if change.HasChanges {
			log.Printf("Source %s changed: %s (%d -> %d)\n", src.ID, change.Reason, change.CountBefore, change.CountAfter)
		}

		if err := w.store.Save(res); err != nil {
			log.Printf("Error saving snapshot for %s: %v\n", src.ID, err)
		}

		cycle.Sources = append(cycle.Sources, res)
		changes = append(changes, change)
	}

	if err := w.store.SaveCycle(cycle); err != nil {
		log.Printf("Error saving cycle snapshot: %v\n", err)
	}

	lotteries, reservations, campaigns := cycle.CountByKind()
	log.Printf("Cycle finished in %s: %d lotteries, %d reservations, %d campaigns\n",
		time.Since(start).Round(time.Second), lotteries, reservations, campaigns)

	w.recordHistory(cycle, changes, lotteries, reservations, campaigns)

	if w.writer != nil {
		w.writeReport(cycle)
	}

	if w.notifier != nil {
		if err := w.notifier.NotifyCycle(cycle, changes); err != nil {
			log.Printf("Error sending notification: %v\n", err)
		}
	}
}

// processSource fetches and extracts one source. Errors are recorded on
// the result instead of propagating.
func (w *watcher) processSource(src config.Source) models.SourceResult {
	log.Printf("Processing source %s\n", src.ID)

	res := models.SourceResult{
		SourceID:  src.ID,
		SourceURL: src.URL,
		ScrapedAt: time.Now(),
		Records:   []models.ListingRecord{},
	}

	f := w.plain
	if src.NeedsBrowser {
		f = w.browser
	}

	html, err := f.Fetch(src.URL, src.WaitSelector)
	if err != nil {
		log.Printf("Error fetching %s: %v\n", src.ID, err)
		res.Error = err.Error()
		return res
	}

	res.Records = extractor.NewSite(src, w.keywords).Extract(html)

	if src.SingleStatus {
		active := len(res.Records) > 0 &&
			(src.NoActiveMarker == "" || !strings.Contains(html, src.NoActiveMarker))
		res.HasActiveFlag = &active
	}

	log.Printf("Source %s: %d records\n", src.ID, len(res.Records))
	return res
}

// writeReport pushes the cycle to Google Sheets in the configured mode:
// a new sheet per cycle, or rows appended to the rolling sheet.
func (w *watcher) writeReport(cycle models.CycleResult) {
	if w.cfg.Report.Mode == "append" {
		if err := w.writer.AppendRecords(cycle.AllRecords()); err != nil {
			log.Printf("Error appending to Google Sheets: %v\n", err)
		}
		return
	}
	if _, err := w.writer.WriteCycle(cycle); err != nil {
		log.Printf("Error writing to Google Sheets: %v\n", err)
	}
}

func (w *watcher) recordHistory(cycle models.CycleResult, changes []models.ChangeReport, lotteries, reservations, campaigns int) {
	if w.database == nil {
		return
	}

	changedSources := 0
	for _, ch := range changes {
		if ch.HasChanges {
			changedSources++
		}
	}

	cycleID, err := w.database.RecordCycle(cycle.Timestamp, lotteries, reservations, campaigns, changedSources)
	if err != nil {
		log.Printf("Warning: failed to record cycle: %v\n", err)
		return
	}

	for i, src := range cycle.Sources {
		hasChanges := false
		if i < len(changes) {
			hasChanges = changes[i].HasChanges
		}
		if err := w.database.RecordSourceRun(cycleID, src.SourceID, len(src.Records), hasChanges, src.Error); err != nil {
			log.Printf("Warning: failed to record source run for %s: %v\n", src.SourceID, err)
		}
	}
}

// loadConfig loads configuration from file or returns defaults
func loadConfig(configPath string) *config.Config {
	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			log.Printf("Warning: Failed to load config file: %v. Using defaults.\n", err)
			cfg = config.Default()
		}
	} else {
		log.Println("Config file not found. Using default configuration.")
		cfg = config.Default()
	}
	return cfg
}
