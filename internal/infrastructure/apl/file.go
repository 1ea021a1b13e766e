package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultFilePath is used when FILE_APL_PATH is not set
const DefaultFilePath = ".auth-data.json"

// FileAPL keeps every AuthData in one JSON file keyed by Saleor API URL.
// Intended for local development: the mutex only serializes writers in this process.
type FileAPL struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileAPL creates a file-backed APL
func NewFileAPL(path string, logger zerolog.Logger) *FileAPL {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileAPL{
		path:   path,
		logger: logger.With().Str("apl", "file").Logger(),
	}
}

var _ ports.APL = (*FileAPL)(nil)

func (a *FileAPL) load() (map[string]*domain.AuthData, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*domain.AuthData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", domain.ErrConnection, a.path, err)
	}
	records := map[string]*domain.AuthData{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", a.path, err)
	}
	return records, nil
}

func (a *FileAPL) store(records map[string]*domain.AuthData) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode auth data: %w", err)
	}

	// write to a sibling temp file and rename so readers never see a partial file
	tmp, err := os.CreateTemp(filepath.Dir(a.path), filepath.Base(a.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", domain.ErrConnection, a.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %w", domain.ErrConnection, a.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", domain.ErrConnection, a.path, err)
	}
	if err := os.Rename(tmp.Name(), a.path); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", domain.ErrConnection, a.path, err)
	}
	return nil
}

// Get returns the record for the URL, or nil if none is stored
func (a *FileAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.load()
	if err != nil {
		return nil, err
	}
	return records[saleorAPIURL], nil
}

// Set upserts the record
func (a *FileAPL) Set(ctx context.Context, authData *domain.AuthData) error {
	if err := authData.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.load()
	if err != nil {
		return err
	}
	stored := *authData
	records[authData.SaleorAPIURL] = &stored
	if err := a.store(records); err != nil {
		return err
	}

	a.logger.Info().Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Auth data saved")
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (a *FileAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.load()
	if err != nil {
		return err
	}
	if _, ok := records[saleorAPIURL]; !ok {
		return nil
	}
	delete(records, saleorAPIURL)
	if err := a.store(records); err != nil {
		return err
	}

	a.logger.Info().Str("saleorApiUrl", saleorAPIURL).Msg("Auth data deleted")
	return nil
}

// GetAll returns every record ordered by URL
func (a *FileAPL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := a.load()
	if err != nil {
		return nil, err
	}
	all := make([]*domain.AuthData, 0, len(records))
	for _, record := range records {
		all = append(all, record)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].SaleorAPIURL < all[j].SaleorAPIURL
	})
	return all, nil
}

// IsReady checks the file, if present, can be read and parsed
func (a *FileAPL) IsReady(ctx context.Context) ports.ReadyResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.load(); err != nil {
		return ports.ReadyResult{Ready: false, Error: err}
	}
	return ports.ReadyResult{Ready: true}
}

// IsConfigured always succeeds: the path has a default
func (a *FileAPL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	return ports.ConfiguredResult{Configured: true}
}
