package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Store is a repositories.Store backed by SQLite through gorm
type Store struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path and migrates the schema.
// SQLite serializes writers, so the pool is held to a single connection; this
// also keeps one shared database alive for MemoryPath.
func Open(path string, logger logrus.FieldLogger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		logger.WithError(err).Warn("otelgorm plugin not installed")
	}

	store, err := New(db, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logger.WithField("path", path).Debug("sqlite store opened")
	return store, nil
}

// New wraps an open gorm handle and migrates the schema
func New(db *gorm.DB, logger logrus.FieldLogger) (*Store, error) {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Repositories returns repositories running each call in its own implicit transaction
func (s *Store) Repositories() repositories.Repositories {
	return bind(s.db)
}

// WithinTransaction runs fn inside one database transaction, committing when
// fn returns nil and rolling back otherwise. fn must only use the repositories
// it is handed.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, bind(tx))
	})
}

func bind(db *gorm.DB) repositories.Repositories {
	return repositories.Repositories{
		Items:        &ItemRepository{db: db},
		Lots:         &LotRepository{db: db},
		Ledger:       &LedgerRepository{db: db},
		Assemblies:   &AssemblyRepository{db: db},
		Dependencies: &DependencyRepository{db: db},
		Revaluations: &RevaluationRepository{db: db},
	}
}

func notFound(err error, kind, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &entities.NotFoundError{Kind: kind, Key: key}
	}
	return err
}
