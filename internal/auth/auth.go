// Package auth loads Google service account credentials for the Sheets and Drive clients.
package auth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes are the read-only scopes the sync needs: spreadsheet values and the Drive change log.
var Scopes = []string{
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// Credentials wraps the parsed Google credentials.
type Credentials struct {
	ClientEmail string // Service account email, for logs
	creds       *google.Credentials
}

// LoadCredentials loads a service account (or authorized user) JSON key file.
func LoadCredentials(ctx context.Context, path string, scopes ...string) (*Credentials, error) {
	if path == "" {
		return nil, fmt.Errorf("credentials file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	return ParseCredentials(ctx, data, scopes...)
}

// ParseCredentials parses JSON credentials. Default scopes apply when none are given.
func ParseCredentials(ctx context.Context, data []byte, scopes ...string) (*Credentials, error) {
	if len(scopes) == 0 {
		scopes = Scopes
	}

	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	email, err := clientEmail(data)
	if err != nil {
		return nil, err
	}

	return &Credentials{ClientEmail: email, creds: creds}, nil
}

// ClientOptions returns the API client options that authenticate with these credentials.
func (c *Credentials) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithCredentials(c.creds)}
}
