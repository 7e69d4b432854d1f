package costing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/infrastructure/events"
	"github.com/vsinha/costing/pkg/infrastructure/lock"
	"github.com/vsinha/costing/pkg/infrastructure/logging"
)

const moduleName = "costing"

// Config holds engine limits
type Config struct {
	// MaxDepth bounds roll-up recursion
	MaxDepth int
	// PropagationDepth is the number of dependency hops a revaluation follows, or PropagateAll
	PropagationDepth int
}

// DefaultConfig returns the limits used when none are configured
func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth, PropagationDepth: 1}
}

// Option customizes a CostingService
type Option func(*CostingService)

// WithLocker replaces the in-process lot lock
func WithLocker(l lock.Locker) Option {
	return func(s *CostingService) { s.locker = l }
}

// WithPublisher sets where post-commit events go
func WithPublisher(p events.Publisher) Option {
	return func(s *CostingService) { s.publisher = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *CostingService) { s.now = now }
}

// WithIDGenerator overrides revaluation record ids
func WithIDGenerator(newID func() string) Option {
	return func(s *CostingService) { s.newID = newID }
}

// CostingService exposes cost queries, COGS inspection and lot revaluation.
// It keeps no state between calls beyond its collaborators.
type CostingService struct {
	store     repositories.Store
	locker    lock.Locker
	publisher events.Publisher
	logger    logrus.FieldLogger
	tracer    trace.Tracer
	config    Config
	now       func() time.Time
	newID     func() string
}

func NewCostingService(store repositories.Store, logger logrus.FieldLogger, config Config, opts ...Option) *CostingService {
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.PropagationDepth == 0 {
		config.PropagationDepth = 1
	}
	s := &CostingService{
		store:     store,
		locker:    lock.NewLocalLocker(),
		publisher: events.NopPublisher{},
		logger:    logger.WithField("module", moduleName),
		tracer:    otel.Tracer("github.com/vsinha/costing/costing"),
		config:    config,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCurrentCost resolves an item's cost from active lots and its authorities
func (s *CostingService) GetCurrentCost(ctx context.Context, itemID entities.ItemID) (result *dto.CostQueryResult, err error) {
	ctx, span := s.startSpan(ctx, "costing.GetCurrentCost", attribute.String("item_id", string(itemID)))
	defer func() { endSpan(span, err) }()

	return s.resolve(ctx, itemID, nil)
}

// GetHistoricalCost resolves an item's cost using only lots received on or before asOf
func (s *CostingService) GetHistoricalCost(ctx context.Context, itemID entities.ItemID, asOf time.Time) (result *dto.CostQueryResult, err error) {
	ctx, span := s.startSpan(ctx, "costing.GetHistoricalCost",
		attribute.String("item_id", string(itemID)),
		attribute.String("as_of", asOf.Format(time.RFC3339)))
	defer func() { endSpan(span, err) }()

	return s.resolve(ctx, itemID, &asOf)
}

func (s *CostingService) resolve(ctx context.Context, itemID entities.ItemID, asOf *time.Time) (*dto.CostQueryResult, error) {
	var result *dto.CostQueryResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		item, err := repos.Items.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		cost, err := NewCostResolver(repos.Lots).Resolve(ctx, item, ResolveOptions{AsOf: asOf, IncludeEstimates: true})
		if err != nil {
			return err
		}
		result = &dto.CostQueryResult{
			ItemID:         item.ID,
			SKU:            item.SKU,
			Name:           item.Name,
			UnitCost:       cost.UnitCost,
			CostSource:     cost.Source,
			HasEstimate:    cost.HasEstimate,
			EstimateReason: cost.EstimateReason,
			AsOf:           asOf,
		}
		return nil
	})
	return result, err
}

// InspectCogs rolls up an item's cost and returns the full breakdown tree
func (s *CostingService) InspectCogs(ctx context.Context, itemID entities.ItemID, asOf *time.Time, includeEstimates bool) (result *dto.CogsResult, err error) {
	ctx, span := s.startSpan(ctx, "costing.InspectCogs",
		attribute.String("item_id", string(itemID)),
		attribute.Bool("include_estimates", includeEstimates))
	defer func() { endSpan(span, err) }()

	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		tree, err := NewRollupEngine(repos).BuildCostTree(ctx, itemID, RollupOptions{
			AsOf:             asOf,
			IncludeEstimates: includeEstimates,
			MaxDepth:         s.config.MaxDepth,
		})
		if err != nil {
			return err
		}

		material, overhead := decimal.Zero, decimal.Zero
		for _, child := range tree.Children {
			if child.IsOverhead {
				overhead = overhead.Add(child.ExtendedCost)
			} else {
				material = material.Add(child.ExtendedCost)
			}
		}

		result = &dto.CogsResult{
			ItemID:         tree.ItemID,
			SKU:            tree.SKU,
			Name:           tree.Name,
			UnitCost:       tree.UnitCost,
			CostSource:     tree.CostSource,
			HasEstimate:    tree.HasEstimate,
			EstimateReason: tree.EstimateReason,
			MaterialCost:   entities.RoundMoney(material),
			OverheadCost:   entities.RoundMoney(overhead),
			AsOf:           asOf,
			Breakdown:      tree,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RevalueLot sets a lot's current unit cost, records the audit trail and,
// when propagate is set, re-derives the cost of lots produced from it.
// Everything commits together or not at all.
func (s *CostingService) RevalueLot(ctx context.Context, lotID entities.LotID, newUnitCost decimal.Decimal, reason, actor string, propagate bool) (result *dto.RevaluationResult, err error) {
	ctx, span := s.startSpan(ctx, "costing.RevalueLot",
		attribute.String("lot_id", string(lotID)),
		attribute.String("new_unit_cost", newUnitCost.String()),
		attribute.Bool("propagate", propagate))
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, "revalue:lot:"+string(lotID))
	if err != nil {
		logging.LogError(s.logger, moduleName, "RevalueLot", "acquire lot lock", lotID, err)
		return nil, err
	}
	defer func() {
		if rerr := release(context.Background()); rerr != nil {
			s.logger.WithError(rerr).WithField("lot_id", lotID).Warn("failed to release lot lock")
		}
	}()

	var records []*entities.RevaluationRecord
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		records, err = NewRevaluationEngine(repos, s.newID).Revalue(ctx, RevaluationRequest{
			LotID:       lotID,
			NewUnitCost: newUnitCost,
			Reason:      reason,
			Actor:       actor,
			Propagate:   propagate,
			Depth:       s.config.PropagationDepth,
			At:          s.now(),
		})
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "RevalueLot", "revalue lot "+string(lotID), map[string]string{
			"new_unit_cost": newUnitCost.String(),
			"actor":         actor,
		}, err)
		return nil, err
	}

	result = &dto.RevaluationResult{Record: records[0], Propagated: make([]entities.RevaluationRecord, 0, len(records)-1)}
	for _, r := range records[1:] {
		result.Propagated = append(result.Propagated, *r)
	}
	span.SetAttributes(attribute.Int("propagated", len(result.Propagated)))

	s.publish(events.LotRevaluedEvent, events.LotStream(lotID), events.LotRevalued{Record: *result.Record})
	for _, r := range result.Propagated {
		s.publish(events.CostPropagatedEvent, events.LotStream(r.LotID), events.CostPropagated{Record: r})
	}

	s.logger.WithFields(logrus.Fields{
		"lot_id":     lotID,
		"old_cost":   result.Record.OldUnitCost.String(),
		"new_cost":   result.Record.NewUnitCost.String(),
		"delta":      result.Record.DeltaExtendedCost.String(),
		"propagated": len(result.Propagated),
		"actor":      actor,
	}).Info("lot revalued")
	return result, nil
}

// RevaluationHistory returns the audit records of a lot, oldest first
func (s *CostingService) RevaluationHistory(ctx context.Context, lotID entities.LotID) (records []*entities.RevaluationRecord, err error) {
	ctx, span := s.startSpan(ctx, "costing.RevaluationHistory", attribute.String("lot_id", string(lotID)))
	defer func() { endSpan(span, err) }()

	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Lots.GetLot(ctx, lotID); err != nil {
			return err
		}
		var err error
		records, err = repos.Revaluations.ListByLot(ctx, lotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *CostingService) publish(eventType, stream string, data interface{}) {
	if err := s.publisher.AppendEvent(stream, events.NewEvent(eventType, stream, data, s.now())); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("failed to publish event")
	}
}

func (s *CostingService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
