package auth

import (
	"encoding/json"
	"fmt"
)

// clientEmail extracts the client_email field; authorized user keys have none.
func clientEmail(data []byte) (string, error) {
	var key struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("decode credentials: %w", err)
	}
	if key.Type == "service_account" && key.ClientEmail == "" {
		return "", fmt.Errorf("service account key has no client_email")
	}
	return key.ClientEmail, nil
}
