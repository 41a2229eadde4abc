package config

import (
	"errors"
	"os"
)

// Credential errors. Missing credentials abort the run before any unit starts.
var (
	ErrMissingClientID     = errors.New("NAVER_CLIENT_ID is not set")
	ErrMissingClientSecret = errors.New("NAVER_CLIENT_SECRET is not set")
)

// Credentials holds the API client identifier and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// CredentialsFromEnv reads the API credentials from the process environment.
func CredentialsFromEnv() (Credentials, error) {
	id := os.Getenv("NAVER_CLIENT_ID")
	if id == "" {
		return Credentials{}, ErrMissingClientID
	}

	secret := os.Getenv("NAVER_CLIENT_SECRET")
	if secret == "" {
		return Credentials{}, ErrMissingClientSecret
	}

	return Credentials{ClientID: id, ClientSecret: secret}, nil
}
