package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finboard/internal/adapters"
	"finboard/internal/amqp"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/sheets/memory"
	"finboard/internal/storage"
)

// MirrorFactory builds the spreadsheet mirror. Tests replace it.
type MirrorFactory func(ctx context.Context, spreadsheetID, sheetName string) (sheets.LedgerMirror, error)

var _ Factory = (*DefaultFactory)(nil)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger    *slog.Logger
	newMirror MirrorFactory
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:    logger,
		newMirror: googleMirror,
	}
}

// WithMirrorFactory overrides how the inline mirror is built.
func (f *DefaultFactory) WithMirrorFactory(m MirrorFactory) *DefaultFactory {
	f.newMirror = m
	return f
}

func googleMirror(ctx context.Context, spreadsheetID, sheetName string) (sheets.LedgerMirror, error) {
	opts := gsheet.OptionsFromEnv()
	opts.SpreadsheetID = spreadsheetID
	opts.SheetName = sheetName
	cli, err := gsheet.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	res.Publisher = f.createPublisher(config)

	// Without a broker nobody runs the mirror worker, so mirror inline.
	if config.AMQPURL == "" && config.GoogleSpreadsheetID != "" {
		mirror, err := f.newMirror(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
		if err != nil {
			f.logger.Warn("Failed to initialize spreadsheet mirror, continuing without it", "error", err)
		} else {
			res.Store = adapters.NewMirroringStore(res.Store, mirror)
			f.logger.Info("Inline spreadsheet mirror enabled", "sheet", config.GoogleSheetName)
		}
	}

	return res, nil
}

// CreateStore builds only the ledger store, for readers such as the mirror
// worker that never publish.
func (f *DefaultFactory) CreateStore(config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return f.createStore(config)
}

func (f *DefaultFactory) createStore(config Config) (*BackendResult, error) {
	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (*BackendResult, error) {
	store := storage.NewCSVStore(config.LedgerFile)

	f.logger.Info("Initialized CSV backend", "ledger_file", config.LedgerFile)

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   sqliteRepo,
		Cleanup: sqliteRepo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createPublisher(config Config) amqp.Publisher {
	if config.AMQPURL == "" {
		return amqp.NopPublisher{}
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		return amqp.NopPublisher{}
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
