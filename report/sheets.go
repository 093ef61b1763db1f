// Package report writes cycle results to Google Sheets.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"pokeca-watcher/models"
)

// Writer handles writing cycle results to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer. Credentials come from
// the given file path or, when empty, the GOOGLE_SHEETS_CREDENTIALS
// environment variable.
func NewWriter(spreadsheetID string, credentialsPath string) (*Writer, error) {
	ctx := context.Background()

	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		log.Printf("Reading credentials from GOOGLE_SHEETS_CREDENTIALS environment variable (%d bytes)\n", len(credsEnv))
		credsJSON = []byte(credsEnv)
	}

	// Parse and validate JSON
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}

	// Validate that it's a service account credentials file
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

// WriteCycle creates a sheet named after the cycle timestamp at the
// beginning of the spreadsheet and writes every record of the cycle to
// it. Returns the created sheet name.
func (w *Writer) WriteCycle(cycle models.CycleResult) (string, error) {
	sheetName := sanitizeSheetName(fmt.Sprintf("Cycle_%s", cycle.Timestamp.Format("20060102_150405")))

	addSheetRequest := &sheets.AddSheetRequest{
		Properties: &sheets.SheetProperties{
			Title: sheetName,
			Index: 0,
		},
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: addSheetRequest,
			},
		},
	}

	if _, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Do(); err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	log.Printf("Created sheet '%s'\n", sheetName)

	values := cycleRows(cycle)

	range_ := fmt.Sprintf("%s!A1", sheetName)
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := w.service.Spreadsheets.Values.Update(w.spreadsheetID, range_, valueRange).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to write to sheet: %w", err)
	}

	log.Printf("Successfully wrote %d rows to sheet '%s'\n", len(values), sheetName)
	return sheetName, nil
}

// AppendRecords appends records to the end of the default sheet, after
// the last occupied row.
func (w *Writer) AppendRecords(records []models.ListingRecord) error {
	if len(records) == 0 {
		log.Println("No records to append")
		return nil
	}

	resp, err := w.service.Spreadsheets.Values.Get(w.spreadsheetID, "Sheet1!A:A").Do()
	if err != nil {
		return fmt.Errorf("failed to read existing data: %w", err)
	}

	nextRow := 1
	if len(resp.Values) > 0 {
		nextRow = len(resp.Values) + 1
	}

	var values [][]interface{}
	for _, rec := range records {
		values = append(values, recordRow(rec))
	}

	updateRange := fmt.Sprintf("Sheet1!A%d", nextRow)
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, updateRange, valueRange).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheets: %w", err)
	}

	log.Printf("Successfully appended %d records to Google Sheets (starting at row %d)\n", len(records), nextRow)
	return nil
}

// cycleRows flattens a cycle into sheet rows: a metadata row, a header
// row, then one row per record.
func cycleRows(cycle models.CycleResult) [][]interface{} {
	var values [][]interface{}

	values = append(values, []interface{}{"Scraped at", cycle.Timestamp.Format(time.RFC3339)})
	values = append(values, []interface{}{"Store", "Product", "Kind", "Period", "Price", "Status", "Conditions", "Link", "Source"})

	for _, src := range cycle.Sources {
		for _, rec := range src.Records {
			values = append(values, recordRow(rec))
		}
	}
	return values
}

func recordRow(rec models.ListingRecord) []interface{} {
	return []interface{}{
		rec.Store,
		rec.Product,
		string(rec.Kind),
		rec.Period,
		rec.Price,
		string(rec.Status),
		rec.Conditions,
		rec.DetailURL,
		rec.SourceID,
	}
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ]
	invalidChars := []string{"/", "\\", "?", "*", "[", "]"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func ExtractSpreadsheetID(url string) string {
	// Handle various URL formats:
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
