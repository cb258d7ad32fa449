package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/caregiver-planner/internal/config"
)

const (
	AuthPort       = 3000
	authTimeout    = 5 * time.Minute
	callbackPath   = "/oauth/callback"
	tokenDirName   = ".caregiver-planner/tokens"
	tokenFilePerms = 0600
	tokenDirPerms  = 0700
)

// ScopeSheets is the only Google scope the planner needs
const ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"

// tokenInfoURL is a var so tests can point it at an httptest server
var tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var (
	tokenCache   *oauth2.Token
	tokenCacheMu sync.Mutex
)

func requiredScopes() []string {
	return []string{ScopeSheets}
}

// GetOAuthConfig creates an OAuth2 config from the OAuth client configuration
func GetOAuthConfig(oauthCfg *config.OAuthClientConfig) (*oauth2.Config, error) {
	oauthConfigJSON, err := json.Marshal(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal oauth config: %w", err)
	}

	googleConfig, err := google.ConfigFromJSON(oauthConfigJSON, requiredScopes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google config: %w", err)
	}

	// Override redirect URI to use our local server
	googleConfig.RedirectURL = fmt.Sprintf("http://localhost:%d%s", AuthPort, callbackPath)

	return googleConfig, nil
}

// TokenStore persists OAuth tokens per environment under Dir
type TokenStore struct {
	Dir string
}

// DefaultTokenStore keeps tokens in ~/.caregiver-planner/tokens
func DefaultTokenStore() (*TokenStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &TokenStore{Dir: filepath.Join(homeDir, tokenDirName)}, nil
}

func (s *TokenStore) path(env string) string {
	if env == "" {
		env = "default"
	}
	return filepath.Join(s.Dir, fmt.Sprintf("token-%s.json", env))
}

// Load returns nil without error when no token has been saved yet
func (s *TokenStore) Load(env string) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(env))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return &token, nil
}

func (s *TokenStore) Save(env string, token *oauth2.Token) error {
	if err := os.MkdirAll(s.Dir, tokenDirPerms); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(s.path(env), data, tokenFilePerms); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

func (s *TokenStore) Delete(env string) error {
	if err := os.Remove(s.path(env)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// validateTokenScopes asks Google's tokeninfo endpoint which scopes the token carries
func validateTokenScopes(ctx context.Context, token *oauth2.Token) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenInfoURL+"?access_token="+token.AccessToken, nil)
	if err != nil {
		return fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tokeninfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenInfo struct {
		Scope string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return fmt.Errorf("failed to decode tokeninfo response: %w", err)
	}

	grantedScopes := strings.Fields(tokenInfo.Scope)
	var missingScopes []string
	for _, required := range requiredScopes() {
		if !slices.Contains(grantedScopes, required) {
			missingScopes = append(missingScopes, required)
		}
	}

	if len(missingScopes) > 0 {
		return fmt.Errorf("token is missing required scopes: %v", missingScopes)
	}

	return nil
}

// GetTokenWithFlow returns a usable token, refreshing a stored one or running
// the browser authorization flow. Only one flow runs at a time.
func GetTokenWithFlow(ctx context.Context, oauthConfig *oauth2.Config, store *TokenStore, env string, logger *zap.Logger) (*oauth2.Token, error) {
	tokenCacheMu.Lock()
	defer tokenCacheMu.Unlock()

	if tokenCache != nil && tokenCache.Valid() {
		return tokenCache, nil
	}

	if token := reuseStoredToken(ctx, oauthConfig, store, env, logger); token != nil {
		tokenCache = token
		return token, nil
	}

	logger.Info("No valid token found, starting OAuth flow")

	authURL := oauthConfig.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Printf("\nVisit this URL to authorize the application:\n%s\n\n", authURL)

	code, err := listenForAuthCallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := validateTokenScopes(ctx, token); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if err := store.Save(env, token); err != nil {
		logger.Warn("Failed to save token", zap.Error(err))
	}

	tokenCache = token
	return token, nil
}

// reuseStoredToken returns the stored token if it is valid or refreshable and
// carries the sheets scope. A token with missing scopes is deleted.
func reuseStoredToken(ctx context.Context, oauthConfig *oauth2.Config, store *TokenStore, env string, logger *zap.Logger) *oauth2.Token {
	fileToken, err := store.Load(env)
	if err != nil {
		logger.Warn("Failed to load token from file", zap.Error(err))
		return nil
	}
	if fileToken == nil {
		return nil
	}

	token := fileToken
	if !fileToken.Valid() {
		if fileToken.RefreshToken == "" {
			return nil
		}
		refreshed, err := oauthConfig.TokenSource(ctx, fileToken).Token()
		if err != nil || refreshed.AccessToken == fileToken.AccessToken {
			return nil
		}
		token = refreshed
	}

	if err := validateTokenScopes(ctx, token); err != nil {
		logger.Warn("Stored token rejected, deleting it", zap.Error(err))
		if err := store.Delete(env); err != nil {
			logger.Warn("Failed to delete token", zap.Error(err))
		}
		return nil
	}

	if token != fileToken {
		logger.Info("Token refreshed")
		if err := store.Save(env, token); err != nil {
			logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	}
	return token
}

// listenForAuthCallback starts a local HTTP server and waits for the OAuth callback
func listenForAuthCallback(ctx context.Context) (string, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>`)

		codeChan <- code
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", AuthPort),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var code string
	var authErr error

	select {
	case code = <-codeChan:
	case authErr = <-errChan:
	case <-timeoutCtx.Done():
		authErr = fmt.Errorf("authorization timeout after %v", authTimeout)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	if authErr != nil {
		return "", authErr
	}

	return code, nil
}

// ClearToken clears the token from memory cache
func ClearToken() {
	tokenCacheMu.Lock()
	defer tokenCacheMu.Unlock()
	tokenCache = nil
}
