package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

const (
	// DefaultSheetsBaseURL is the Google Sheets REST API endpoint.
	DefaultSheetsBaseURL = "https://sheets.googleapis.com"

	// SpreadsheetScope is the OAuth2 scope the backend needs.
	SpreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"
)

// AccessTokenSource supplies bearer tokens for the Sheets API.
type AccessTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// GoogleRepository mirrors rows into a Google Spreadsheet through the
// Sheets v4 values API.
type GoogleRepository struct {
	// BaseURL is overridable in tests.
	BaseURL string

	spreadsheetID string
	tokens        AccessTokenSource
	httpClient    *http.Client

	mu    sync.Mutex
	ready bool
}

func NewGoogleRepository(spreadsheetID string, tokens AccessTokenSource) *GoogleRepository {
	log.Printf("📊 [SHEETS] Google Sheets backend for spreadsheet %s", spreadsheetID)
	return &GoogleRepository{
		BaseURL:       DefaultSheetsBaseURL,
		spreadsheetID: spreadsheetID,
		tokens:        tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *GoogleRepository) Name() string {
	return "google_sheets"
}

func (r *GoogleRepository) EnsureHeaders(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureHeadersLocked(ctx)
}

func (r *GoogleRepository) Upsert(ctx context.Context, row models.SheetRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureHeadersLocked(ctx); err != nil {
		return err
	}

	rows, err := r.readValues(ctx, fmt.Sprintf("%s!A2:F", WorksheetName))
	if err != nil {
		return err
	}

	for i, existing := range rows {
		if len(existing) < 6 {
			continue
		}
		if existing[0] == row.Date && existing[5] == row.UserID {
			rowNum := i + 2
			return r.writeValues(ctx, fmt.Sprintf("%s!A%d:F%d", WorksheetName, rowNum, rowNum), rowCells(row))
		}
	}
	return r.appendValues(ctx, rowCells(row))
}

func (r *GoogleRepository) ensureHeadersLocked(ctx context.Context) error {
	if r.ready {
		return nil
	}

	exists, err := r.worksheetExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.addWorksheet(ctx); err != nil {
			return err
		}
		log.Printf("📊 [SHEETS] Created worksheet %s", WorksheetName)
	}

	header, err := r.readValues(ctx, fmt.Sprintf("%s!A1:F1", WorksheetName))
	if err != nil {
		return err
	}
	var first []string
	if len(header) > 0 {
		first = header[0]
	}
	switch classifyHeader(first) {
	case headerCurrent:
	case headerEmpty, headerLegacy:
		cells := make([]interface{}, len(Headers))
		for i, h := range Headers {
			cells[i] = h
		}
		if err := r.writeValues(ctx, fmt.Sprintf("%s!A1:F1", WorksheetName), cells); err != nil {
			return err
		}
	case headerUnknown:
		log.Printf("⚠️ [SHEETS] Unexpected header row in spreadsheet %s: %v", r.spreadsheetID, first)
	}

	r.ready = true
	return nil
}

func (r *GoogleRepository) worksheetExists(ctx context.Context) (bool, error) {
	var result struct {
		Sheets []struct {
			Properties struct {
				Title string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s", r.spreadsheetID)
	query := url.Values{"fields": {"sheets.properties"}}
	if err := r.do(ctx, "GET", path, query, nil, &result); err != nil {
		return false, err
	}
	for _, s := range result.Sheets {
		if s.Properties.Title == WorksheetName {
			return true, nil
		}
	}
	return false, nil
}

func (r *GoogleRepository) addWorksheet(ctx context.Context) error {
	body := map[string]interface{}{
		"requests": []interface{}{
			map[string]interface{}{
				"addSheet": map[string]interface{}{
					"properties": map[string]interface{}{
						"title": WorksheetName,
					},
				},
			},
		},
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s:batchUpdate", r.spreadsheetID)
	return r.do(ctx, "POST", path, nil, body, nil)
}

func (r *GoogleRepository) readValues(ctx context.Context, valueRange string) ([][]string, error) {
	var result struct {
		Values [][]string `json:"values"`
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s", r.spreadsheetID, url.PathEscape(valueRange))
	if err := r.do(ctx, "GET", path, nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Values, nil
}

func (r *GoogleRepository) writeValues(ctx context.Context, valueRange string, cells []interface{}) error {
	body := map[string]interface{}{
		"values": [][]interface{}{cells},
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s", r.spreadsheetID, url.PathEscape(valueRange))
	query := url.Values{"valueInputOption": {"RAW"}}
	return r.do(ctx, "PUT", path, query, body, nil)
}

func (r *GoogleRepository) appendValues(ctx context.Context, cells []interface{}) error {
	body := map[string]interface{}{
		"values": [][]interface{}{cells},
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s:append",
		r.spreadsheetID, url.PathEscape(fmt.Sprintf("%s!A:F", WorksheetName)))
	query := url.Values{"valueInputOption": {"RAW"}}
	return r.do(ctx, "POST", path, query, body, nil)
}

func (r *GoogleRepository) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	endpoint := r.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Sheets API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("Sheets API error: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("Sheets API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("invalid Sheets API response: %w", err)
		}
	}
	return nil
}
