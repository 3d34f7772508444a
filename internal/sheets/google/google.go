package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	ports "tablero/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to read it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	// Installed-app OAuth client plus the token saved by the auth flow.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.Source = (*Client)(nil)

// New creates a read-only Sheets client. CredentialsJSON wins over
// CredentialsFile, then a saved OAuth token; when none is set
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Ideas"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a read-only Sheets Service. Service account
// credentials win; an OAuth client with a saved token is the fallback.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)
	hasOAuth := (cfg.OAuthClientJSON != "" || cfg.OAuthClientFile != "") && cfg.OAuthTokenFile != ""
	if serviceAccountJSON == "" && serviceAccountFile == "" && !hasOAuth {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var opts []goption.ClientOption
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		opts = append(opts, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(data))
	case hasOAuth:
		slog.InfoContext(ctx, "Using OAuth token", "path", cfg.OAuthTokenFile)
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, goption.WithTokenSource(ts))
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client with GOOGLE_OAUTH_TOKEN_FILE)")
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:Z", c.sheetName)
}

// ReadRows reads the whole ideas sheet. Dates are requested as serial numbers
// so they parse the same way as workbook cells.
func (c *Client) ReadRows(ctx context.Context) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.dataRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return valuesToRows(resp.Values), nil
}

// Identity names the spreadsheet range. The Sheets API exposes no revision,
// so freshness of this source relies on the cache TTL.
func (c *Client) Identity(_ context.Context) (string, error) {
	return "sheets:" + c.spreadsheetID + "/" + c.dataRange(), nil
}

func valuesToRows(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		out = append(out, toStrings(row))
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strings.ToUpper(strconv.FormatBool(t))
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
