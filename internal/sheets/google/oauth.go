package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultTokenFile is where bistro-oauth saves the user token when
// GOOGLE_OAUTH_TOKEN_FILE is unset.
const DefaultTokenFile = "token.json"

var errNoOAuthClient = errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")

// OAuthConfigFromEnv builds the installed-app OAuth config for the Sheets
// scope from GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	var b []byte
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")); inline != "" {
		b = []byte(inline)
	} else if path := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")); path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	} else {
		return nil, errNoOAuthClient
	}

	cfg, err := googleoauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFile is GOOGLE_OAUTH_TOKEN_FILE or DefaultTokenFile.
func TokenFile() string {
	if p := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); p != "" {
		return p
	}
	return DefaultTokenFile
}

func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return tok, nil
}

// SaveToken writes tok readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// userTokenSource returns a refreshing token source when both an OAuth
// client and GOOGLE_OAUTH_TOKEN_FILE are configured, and nil otherwise.
func userTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	path := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if path == "" {
		return nil, nil
	}
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(path)
	if err != nil {
		return nil, fmt.Errorf("load oauth token: %w", err)
	}
	return cfg.TokenSource(ctx, tok), nil
}
