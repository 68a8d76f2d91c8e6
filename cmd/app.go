package cmd

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/sales-import/internal/config"
	"github.com/ginjaninja78/sales-import/internal/fields"
	"github.com/ginjaninja78/sales-import/internal/importer"
	"github.com/ginjaninja78/sales-import/internal/memory"
	"github.com/ginjaninja78/sales-import/internal/spreadsheet"
	"github.com/ginjaninja78/sales-import/internal/transform"
)

// loadRegistry returns the configured field definitions: the XLSX template
// when one is set, otherwise the built-in set.
func loadRegistry() (*fields.Registry, error) {
	if cfg.FieldsTemplate == "" {
		return fields.DefaultRegistry(), nil
	}

	defs, err := fields.LoadTemplate(cfg.FieldsTemplate)
	if err != nil {
		return nil, err
	}
	return fields.NewRegistry(defs)
}

// openStore opens the configured mapping memory store. The returned close
// function is never nil. A nil store means memory is disabled.
func openStore(ctx context.Context) (memory.Store, func(), error) {
	noop := func() {}

	switch cfg.Memory.Backend {
	case config.MemoryBackendNone:
		return nil, noop, nil

	case config.MemoryBackendSQLite:
		store, err := memory.NewSQLiteStore(cfg.Memory.Path, cfg.Memory.Profile)
		if err != nil {
			return nil, noop, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close mapping memory", "error", err)
			}
		}, nil

	default:
		return memory.NewFileStore(cfg.Memory.Path), noop, nil
	}
}

// newImporter wires an Importer from the configuration. Mapping memory that
// cannot be opened is logged and disabled.
func newImporter(ctx context.Context) (*importer.Importer, *fields.Registry, func(), error) {
	registry, err := loadRegistry()
	if err != nil {
		return nil, nil, nil, err
	}

	tr, err := transform.New(cfg.TransformationRules)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid transformation rules: %w", err)
	}

	store, closeStore, err := openStore(ctx)
	if err != nil {
		logger.Warn("mapping memory unavailable", "backend", cfg.Memory.Backend, "error", err)
		store = nil
	}

	im, err := importer.New(cfg, registry, spreadsheet.NewParser(cfg.CSVSettings), memory.NewManager(store, logger), tr, logger)
	if err != nil {
		closeStore()
		return nil, nil, nil, err
	}

	return im, registry, closeStore, nil
}
