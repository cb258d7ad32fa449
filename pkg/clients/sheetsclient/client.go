package sheetsclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/jakechorley/caregiver-planner/internal/config"
	"github.com/jakechorley/caregiver-planner/pkg/utils"
)

// Client wraps the Google Sheets API client
type Client struct {
	service *sheets.Service
	logger  *zap.Logger
}

// NewClient creates a Sheets client, running the OAuth flow if no stored token can be used.
// Tokens are persisted per environment in store.
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, store *utils.TokenStore, env string, logger *zap.Logger) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	token, err := utils.GetTokenWithFlow(ctx, oauthConfig, store, env, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(oauthConfig.Client(ctx, token)))
}

// NewClientWithOptions creates a Sheets client from raw API options.
// Tests use it to point the client at a local server.
func NewClientWithOptions(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{service: service, logger: logger}, nil
}

// Service returns the underlying sheets service for direct API access
func (c *Client) Service() *sheets.Service {
	return c.service
}

// CreateSheet creates a new sheet/tab in the spreadsheet
func (c *Client) CreateSheet(ctx context.Context, spreadsheetID, sheetTitle string) (int64, error) {
	req := &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: sheetTitle,
			},
		},
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{req},
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, fmt.Errorf("unexpected response from create sheet")
	}

	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// SheetExists reports whether the spreadsheet has a tab with the given title
func (c *Client) SheetExists(ctx context.Context, spreadsheetID, sheetTitle string) (bool, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetTitle {
			return true, nil
		}
	}
	return false, nil
}
