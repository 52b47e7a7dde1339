package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credentials is the on-disk form of a stored session
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}

// FileStore persists the token pair to a JSON file readable only by its owner.
// Every read goes to disk so several processes sharing the file see each
// other's writes; the last write wins.
type FileStore struct {
	mu   sync.RWMutex
	path string
	log  *slog.Logger
}

// NewFileStore creates a store persisting to path
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		log:  slog.Default().With(slog.String("component", "token-file-store"), slog.String("path", path)),
	}
}

// Path returns the credentials file location
func (f *FileStore) Path() string {
	return f.path
}

// SaveTokens writes both tokens to the file
func (f *FileStore) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if accessToken == "" || refreshToken == "" {
		return ErrIncompletePair
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	creds := &Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SavedAt:      time.Now().UTC(),
	}
	if err := f.write(creds); err != nil {
		f.log.Error("failed to save credentials", slog.String("error", err.Error()))
		return err
	}
	f.log.Debug("credentials saved", slog.String("preview", Preview(accessToken)))
	return nil
}

// GetAccessToken returns the stored access token or ""
func (f *FileStore) GetAccessToken(ctx context.Context) (string, error) {
	creds, err := f.Load(ctx)
	if err != nil || creds == nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// GetRefreshToken returns the stored refresh token or ""
func (f *FileStore) GetRefreshToken(ctx context.Context) (string, error) {
	creds, err := f.Load(ctx)
	if err != nil || creds == nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// ClearTokens removes the credentials file
func (f *FileStore) ClearTokens(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	f.log.Debug("credentials removed")
	return nil
}

// IsLoggedIn reports whether both tokens are stored
func (f *FileStore) IsLoggedIn(ctx context.Context) (bool, error) {
	creds, err := f.Load(ctx)
	if err != nil {
		return false, err
	}
	return creds != nil && creds.AccessToken != "" && creds.RefreshToken != "", nil
}

// Load returns the stored credentials, or nil when there are none.
// A file holding only one token is treated as no session.
func (f *FileStore) Load(ctx context.Context) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return nil, nil
	}
	return &creds, nil
}

func (f *FileStore) write(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// CreateTemp opens with 0600; the rename swaps the file atomically
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
