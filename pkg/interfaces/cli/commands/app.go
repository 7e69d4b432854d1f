package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/costing/pkg/application/services/costing"
	"github.com/vsinha/costing/pkg/application/services/inventory"
	"github.com/vsinha/costing/pkg/application/services/production"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/infrastructure/config"
	"github.com/vsinha/costing/pkg/infrastructure/events"
	"github.com/vsinha/costing/pkg/infrastructure/lock"
	"github.com/vsinha/costing/pkg/infrastructure/logging"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/costing/pkg/infrastructure/repositories/gormstore"
)

// eventStreamMaxLen caps the Redis stream events are forwarded to
const eventStreamMaxLen = 10000

// App wires the costing services over one store for the lifetime of a command
type App struct {
	Config     config.Config
	Format     string
	Out        io.Writer
	Logger     *logrus.Logger
	Store      *gormstore.Store
	Events     *events.InMemoryEventStore
	Costing    *costing.CostingService
	Inventory  *inventory.InventoryService
	Production *production.ProductionService
	Importer   *csv.Importer

	redis redis.UniversalClient
}

// NewApp opens the store and builds every service. Command output goes to
// out and logs go to logOut.
func NewApp(cfg config.Config, format string, out, logOut io.Writer) (*App, error) {
	logger := logging.NewWithOutput(cfg.LogLevel, cfg.LogFormat, logOut)

	store, err := gormstore.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	bus := events.NewInMemoryEventStore(logger.WithField("module", "events"))
	app := &App{
		Config: cfg,
		Format: format,
		Out:    out,
		Logger: logger,
		Store:  store,
		Events: bus,
	}

	costingOpts := []costing.Option{costing.WithPublisher(bus)}
	if cfg.RedisAddress != "" {
		app.redis = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddress}})
		costingOpts = append(costingOpts, costing.WithLocker(lock.NewRedisLocker(app.redis, cfg.LockTTL)))

		if cfg.EventStream != "" {
			forwarder := events.NewRedisStreamForwarder(app.redis, cfg.EventStream, eventStreamMaxLen)
			if err := bus.Subscribe(events.AllEventTypes, forwarder); err != nil {
				app.Close()
				return nil, fmt.Errorf("failed to subscribe event forwarder: %w", err)
			}
		}
		logger.WithFields(logrus.Fields{
			"redis":  cfg.RedisAddress,
			"stream": cfg.EventStream,
		}).Debug("redis coordination enabled")
	}

	costingConfig := costing.Config{MaxDepth: cfg.RollupMaxDepth, PropagationDepth: cfg.PropagationDepth}
	app.Costing = costing.NewCostingService(store, logger, costingConfig, costingOpts...)
	app.Inventory = inventory.NewInventoryService(store, logger, inventory.WithPublisher(bus))
	app.Production = production.NewProductionService(store, logger, production.WithPublisher(bus))
	app.Importer = csv.NewImporter(store, logger, newID)
	return app, nil
}

// Close flushes pending event deliveries and releases the store and Redis client
func (a *App) Close() error {
	a.Events.Drain()

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// item resolves ref as an item id first and then as a SKU
func (a *App) item(ctx context.Context, ref string) (*entities.Item, error) {
	if ref == "" {
		return nil, &entities.InvalidArgumentError{Field: "item", Reason: "is required"}
	}
	items := a.Store.Repositories().Items
	item, err := items.GetItem(ctx, entities.ItemID(ref))
	if errors.Is(err, entities.ErrNotFound) {
		return items.GetItemBySKU(ctx, ref)
	}
	return item, err
}

// lot resolves ref as a lot code of itemRef when an item is given, else as a lot id
func (a *App) lot(ctx context.Context, itemRef, ref string) (*entities.Lot, error) {
	if ref == "" {
		return nil, &entities.InvalidArgumentError{Field: "lot", Reason: "is required"}
	}
	lots := a.Store.Repositories().Lots
	if itemRef == "" {
		return lots.GetLot(ctx, entities.LotID(ref))
	}
	item, err := a.item(ctx, itemRef)
	if err != nil {
		return nil, err
	}
	return lots.FindLotByCode(ctx, item.ID, ref)
}
