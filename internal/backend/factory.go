package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tablero/internal/loader"
	"tablero/internal/log"
	"tablero/internal/sheets/excel"
	gsheet "tablero/internal/sheets/google"
	"tablero/internal/sheets/memory"
	"tablero/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case ExcelBackend:
		return f.createExcelBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createExcelBackend(config Config) (*BackendResult, error) {
	if _, err := os.Stat(config.ExcelPath); err != nil {
		// Not fatal: every load falls back to synthetic data until the file appears.
		f.logger.Warn("Workbook not accessible yet", "path", config.ExcelPath, log.FieldError, err)
	}

	f.logger.Info("Initialized Excel backend", "path", config.ExcelPath, "sheet", config.ExcelSheet)

	return &BackendResult{
		Source: excel.New(config.ExcelPath, config.ExcelSheet),
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		OAuthClientJSON: config.GoogleOAuthClientJSON,
		OAuthClientFile: config.GoogleOAuthClientFile,
		OAuthTokenFile:  config.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &BackendResult{
		Source: cli,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Source:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.MemorySeedFile != "" {
		store, err := memory.NewFromFile(config.MemorySeedFile)
		if err == nil {
			f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)
			return &BackendResult{Source: store}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read memory seed file: %w", err)
		}
	}

	seed := config.SyntheticSeed
	if seed == 0 {
		seed = loader.DefaultSeed
	}
	f.logger.Info("Initialized memory backend with synthetic rows", "seed", seed)

	return &BackendResult{
		Source: memory.New(loader.SyntheticMatrix(seed)),
	}, nil
}
