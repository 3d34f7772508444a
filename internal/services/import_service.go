package services

import (
	"context"
	"errors"
	"fmt"

	"tablero/internal/amqp"
	"tablero/internal/core"
	"tablero/internal/loader"
	"tablero/internal/log"
	"tablero/internal/sheets"
	"tablero/internal/storage"
)

// ErrNothingToImport guards the store against being emptied by a sheet
// that holds a header and no ideas.
var ErrNothingToImport = errors.New("source holds no ideas")

// IdeaStore persists a full replacement of the ideas.
type IdeaStore interface {
	ReplaceIdeas(ctx context.Context, source string, ideas []core.Idea) (storage.Import, error)
}

// ReloadPublisher announces a new dataset to running servers.
type ReloadPublisher interface {
	PublishReload(ctx context.Context, msg *amqp.ReloadMessage) error
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Import    storage.Import
	Stats     loader.ParseStats
	Published bool
}

// ImportService copies a spreadsheet into the SQLite idea store and tells
// the servers to reload.
type ImportService struct {
	store     IdeaStore
	publisher ReloadPublisher
	aliases   map[string]loader.Field
	logger    *log.Logger
}

// NewImportService builds the service. publisher may be nil; aliases nil
// means the default header aliases.
func NewImportService(store IdeaStore, publisher ReloadPublisher, aliases map[string]loader.Field, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if aliases == nil {
		aliases, _ = loader.Aliases(nil)
	}
	return &ImportService{
		store:     store,
		publisher: publisher,
		aliases:   aliases,
		logger:    logger.WithComponent(log.ComponentImport),
	}
}

// Import reads src, stores its ideas under the name source and publishes a
// reload message. A failed publish is logged; the import still stands.
func (s *ImportService) Import(ctx context.Context, src sheets.RowReader, source string) (ImportResult, error) {
	var res ImportResult

	rows, err := src.ReadRows(ctx)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", source, err)
	}

	t, stats, err := loader.Parse(rows, s.aliases)
	if err != nil {
		return res, fmt.Errorf("parse %s: %w", source, err)
	}
	res.Stats = stats
	if t.Len() == 0 {
		return res, ErrNothingToImport
	}

	imp, err := s.store.ReplaceIdeas(ctx, source, t.Ideas)
	if err != nil {
		return res, fmt.Errorf("store ideas: %w", err)
	}
	res.Import = imp

	s.logger.InfoContext(ctx, "Ideas imported",
		log.FieldOperation, log.OpImport,
		log.FieldSource, source,
		log.FieldVersion, imp.Version,
		log.FieldRows, imp.RowCount,
		log.FieldSkipped, stats.Skipped,
		log.FieldUndated, stats.Undated)
	if len(stats.Ignored) > 0 {
		s.logger.DebugContext(ctx, "Ignored columns", "columns", stats.Ignored)
	}

	res.Published = s.publish(ctx, source, imp.Version)
	return res, nil
}

func (s *ImportService) publish(ctx context.Context, source, version string) bool {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping reload message")
		return false
	}
	if err := s.publisher.PublishReload(ctx, amqp.NewReloadMessage("import", source, version)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish reload message",
			log.FieldVersion, version, log.FieldError, err)
		return false
	}
	return true
}
