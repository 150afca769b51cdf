package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"finboard/internal/core"
	ports "finboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab the ledger is mirrored into.
const DefaultSheetName = "Ledger"

// Client mirrors the ledger into a single tab of a spreadsheet. The tab is
// owned by the mirror: every run clears A:D and rewrites it.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu         sync.Mutex
	lastDigest string
	lastSync   time.Time
}

// Ensure interface conformance
var _ ports.LedgerMirror = (*Client)(nil)

// Options selects the target spreadsheet and the credentials. A service
// account takes precedence over a user OAuth token.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	TokenFile       string
}

// OptionsFromEnv reads the mirror target and credentials from the environment.
// Target: GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME (default "Ledger").
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; otherwise GOOGLE_OAUTH_CLIENT_JSON or
// GOOGLE_OAUTH_CLIENT_FILE with GOOGLE_OAUTH_TOKEN_FILE (default token.json).
func OptionsFromEnv() Options {
	opts := Options{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
		OAuthClientJSON: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")),
		OAuthClientFile: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")),
		TokenFile:       strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")),
	}
	if opts.CredentialsJSON == "" && opts.CredentialsFile == "" {
		opts.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if opts.TokenFile == "" {
		opts.TokenFile = "token.json"
	}
	return opts
}

// NewFromEnv creates a Sheets client using environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, OptionsFromEnv())
}

// New creates a Sheets client from explicit options.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// newSheetsService initializes a Sheets Service from service account
// credentials, or from a saved user OAuth token.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var auth goption.ClientOption

	switch {
	case opts.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		auth = goption.WithCredentialsJSON([]byte(opts.CredentialsJSON))
	case opts.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		credentialsJSON, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		auth = goption.WithCredentialsJSON(credentialsJSON)
	case opts.OAuthClientJSON != "" || opts.OAuthClientFile != "":
		slog.InfoContext(ctx, "Using saved OAuth token", "path", opts.TokenFile)
		o, err := oauthOption(ctx, opts)
		if err != nil {
			return nil, err
		}
		auth = o
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or an OAuth client)")
	}

	service, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:D", c.sheetName)
}

// Mirror replaces the tab content with the ledger. Receipts are reduced to a
// yes/no flag. An unchanged ledger is not rewritten.
func (c *Client) Mirror(ctx context.Context, l core.Ledger) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := mirrorRows(l)
	digest := rowsDigest(rows)

	c.mu.Lock()
	unchanged := digest == c.lastDigest
	c.mu.Unlock()
	if unchanged {
		slog.DebugContext(ctx, "Ledger mirror up to date", "sheet", c.sheetName, "rows", len(l))
		return nil
	}

	rng := c.dataRange()
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	start := fmt.Sprintf("%s!A1", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", start, err)
	}

	c.mu.Lock()
	c.lastDigest = digest
	c.lastSync = time.Now()
	c.mu.Unlock()

	slog.InfoContext(ctx, "Ledger mirrored to Google Sheets",
		"sheet", c.sheetName,
		"rows", len(l))
	return nil
}

// Fetch reads the mirrored rows back. IDs and receipts are not mirrored, so
// returned transactions carry neither.
func (c *Client) Fetch(ctx context.Context) (core.Ledger, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.dataRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseMirrorRows(resp.Values)
}

// Invalidate forces the next Mirror call to rewrite the tab.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastDigest = ""
}

// LastSync returns the time of the last successful rewrite.
func (c *Client) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}
