package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/application/services/costing"
	"github.com/vsinha/costing/pkg/application/services/inventory"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/infrastructure/events"
	"github.com/vsinha/costing/pkg/infrastructure/logging"
)

const moduleName = "production"

// Input is one material consumed by a production run
type Input struct {
	ItemID   entities.ItemID
	Quantity decimal.Decimal
}

// ProduceRequest describes a production run. Inputs may be left empty for
// ProduceAssembly, which derives them from the assembly graph.
type ProduceRequest struct {
	ItemID        entities.ItemID
	LotCode       string
	Quantity      decimal.Decimal
	Inputs        []Input
	AllowNegative bool
	OverrideNote  string
	ProducedAt    time.Time
	Reference     string
}

// Option customizes a ProductionService
type Option func(*ProductionService)

// WithPublisher sets where post-commit events go
func WithPublisher(p events.Publisher) Option {
	return func(s *ProductionService) { s.publisher = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *ProductionService) { s.now = now }
}

// WithIDGenerator overrides lot, transaction and dependency ids
func WithIDGenerator(newID func() string) Option {
	return func(s *ProductionService) { s.newID = newID }
}

// ProductionService turns consumed lots into a produced lot and records the
// cost provenance revaluation propagation later follows.
type ProductionService struct {
	store     repositories.Store
	publisher events.Publisher
	logger    logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

func NewProductionService(store repositories.Store, logger logrus.FieldLogger, opts ...Option) *ProductionService {
	s := &ProductionService{
		store:     store,
		publisher: events.NopPublisher{},
		logger:    logger.WithField("module", moduleName),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Produce issues every input FIFO, creates the produced lot at the consumed
// cost per unit and records one dependency per consumed issue transaction.
// Any failure rolls back the whole run.
func (s *ProductionService) Produce(ctx context.Context, req ProduceRequest) (*dto.ProductionResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	producedAt := req.ProducedAt
	if producedAt.IsZero() {
		producedAt = s.now()
	}

	var result *dto.ProductionResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		result, err = s.produce(ctx, repos, req, producedAt)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "Produce", "produce lot "+req.LotCode, req.ItemID, err)
		return nil, err
	}

	s.publishResult(req, result)
	s.logger.WithFields(logrus.Fields{
		"item_id":      req.ItemID,
		"lot_code":     result.Lot.Code,
		"quantity":     result.Lot.Quantity.String(),
		"unit_cost":    result.Lot.CurrentUnitCost.String(),
		"dependencies": len(result.Dependencies),
	}).Info("lot produced")
	return result, nil
}

func validate(req ProduceRequest) error {
	if err := inventory.CheckOverride(req.AllowNegative, req.OverrideNote); err != nil {
		return err
	}
	if !req.Quantity.IsPositive() {
		return &entities.InvalidArgumentError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %s", req.Quantity)}
	}
	if req.LotCode == "" {
		return &entities.InvalidArgumentError{Field: "lot code", Reason: "cannot be empty"}
	}
	return nil
}

func (s *ProductionService) produce(ctx context.Context, repos repositories.Repositories, req ProduceRequest, producedAt time.Time) (*dto.ProductionResult, error) {
	if len(req.Inputs) == 0 {
		return nil, &entities.InvalidArgumentError{Field: "inputs", Reason: "production needs at least one input"}
	}
	if _, err := repos.Items.GetItem(ctx, req.ItemID); err != nil {
		return nil, err
	}
	switch _, err := repos.Lots.FindLotByCode(ctx, req.ItemID, req.LotCode); {
	case err == nil:
		return nil, &entities.InvalidArgumentError{Field: "lot code", Reason: fmt.Sprintf("%s already exists for item %s", req.LotCode, req.ItemID)}
	case !errors.Is(err, entities.ErrNotFound):
		return nil, err
	}

	reference := inventory.OverrideReference(fmt.Sprintf("produce %s %s", req.ItemID, req.LotCode), req.OverrideNote)
	issuer := inventory.NewIssuer(repos, s.newID)

	result := &dto.ProductionResult{TotalCost: decimal.Zero}
	for _, in := range req.Inputs {
		if in.ItemID == req.ItemID {
			return nil, &entities.InvalidArgumentError{Field: "inputs", Reason: fmt.Sprintf("%s cannot consume itself", in.ItemID)}
		}
		item, err := repos.Items.GetItem(ctx, in.ItemID)
		if err != nil {
			return nil, err
		}
		consumed, err := issuer.Issue(ctx, item, in.Quantity, req.AllowNegative, reference, producedAt)
		if err != nil {
			return nil, fmt.Errorf("consuming %s: %w", item.SKU, err)
		}
		result.Consumed = append(result.Consumed, consumed)
		result.TotalCost = result.TotalCost.Add(consumed.TotalCost)
	}

	unitCost := entities.RoundMoney(result.TotalCost.Div(req.Quantity))
	lot, err := entities.NewLot(entities.LotID(s.newID()), req.ItemID, req.LotCode, req.Quantity, unitCost, producedAt)
	if err != nil {
		return nil, &entities.InvalidArgumentError{Field: "lot", Reason: err.Error()}
	}
	if err := repos.Lots.CreateLot(ctx, lot); err != nil {
		return nil, err
	}

	produceTx, err := entities.NewLedgerTransaction(entities.TransactionID(s.newID()), lot.ID, entities.TransactionProduce,
		lot.Quantity, unitCost, entities.CostSourceActual, req.Reference, producedAt)
	if err != nil {
		return nil, err
	}
	if err := repos.Ledger.AppendTransaction(ctx, produceTx); err != nil {
		return nil, err
	}

	for _, consumed := range result.Consumed {
		for _, tx := range consumed.Transactions {
			dep := &entities.AssemblyCostDependency{
				ID:                    entities.DependencyID(s.newID()),
				ConsumedLotID:         tx.LotID,
				ProducedLotID:         lot.ID,
				ConsumedTransactionID: tx.ID,
				ProducedTransactionID: produceTx.ID,
				CreatedAt:             producedAt,
			}
			if err := repos.Dependencies.RecordDependency(ctx, dep); err != nil {
				return nil, err
			}
			result.Dependencies = append(result.Dependencies, dep)
		}
	}

	result.Lot = lot
	result.Transaction = produceTx
	result.TotalCost = entities.RoundMoney(result.TotalCost)
	return result, nil
}

// PlanInputs derives the material inputs for quantity units of an assembly
// from its effective edges. Energy and overhead edges are costed, not issued.
func (s *ProductionService) PlanInputs(ctx context.Context, itemID entities.ItemID, quantity decimal.Decimal, asOf *time.Time) ([]Input, error) {
	var inputs []Input
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		inputs, err = planInputs(ctx, repos, itemID, quantity, asOf)
		return err
	})
	return inputs, err
}

func planInputs(ctx context.Context, repos repositories.Repositories, itemID entities.ItemID, quantity decimal.Decimal, asOf *time.Time) ([]Input, error) {
	item, err := repos.Items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.CanHaveChildren() {
		return nil, &entities.InvalidArgumentError{Field: "item", Reason: fmt.Sprintf("%s is not assemblable", item.SKU)}
	}

	edges, err := costing.NewAssemblyGraphReader(repos.Assemblies).ChildrenOf(ctx, itemID, asOf)
	if err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, len(edges))
	for _, edge := range edges {
		if edge.IsEnergyOrOverhead {
			continue
		}
		inputs = append(inputs, Input{
			ItemID:   edge.ChildID,
			Quantity: entities.RoundQuantity(edge.QuantityNeeded().Mul(quantity)),
		})
	}
	if len(inputs) == 0 {
		return nil, &entities.InvalidArgumentError{Field: "item", Reason: fmt.Sprintf("%s has no material inputs", item.SKU)}
	}
	return inputs, nil
}

// ProduceAssembly plans the inputs from the assembly graph and produces in
// one transaction
func (s *ProductionService) ProduceAssembly(ctx context.Context, req ProduceRequest) (*dto.ProductionResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	producedAt := req.ProducedAt
	if producedAt.IsZero() {
		producedAt = s.now()
	}

	var result *dto.ProductionResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		inputs, err := planInputs(ctx, repos, req.ItemID, req.Quantity, &producedAt)
		if err != nil {
			return err
		}
		req.Inputs = inputs
		result, err = s.produce(ctx, repos, req, producedAt)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "ProduceAssembly", "produce assembly "+string(req.ItemID), req.LotCode, err)
		return nil, err
	}

	s.publishResult(req, result)
	s.logger.WithFields(logrus.Fields{
		"item_id":   req.ItemID,
		"lot_code":  result.Lot.Code,
		"inputs":    len(req.Inputs),
		"unit_cost": result.Lot.CurrentUnitCost.String(),
	}).Info("assembly produced")
	return result, nil
}

func (s *ProductionService) publishResult(req ProduceRequest, result *dto.ProductionResult) {
	for _, consumed := range result.Consumed {
		payload := events.StockIssued{ItemID: consumed.ItemID, Reference: req.LotCode, Issues: consumed.Issues, Override: consumed.Override}
		for _, tx := range consumed.Transactions {
			payload.Transactions = append(payload.Transactions, *tx)
		}
		s.publish(events.StockIssuedEvent, events.ItemStream(consumed.ItemID), payload)
	}

	produced := events.LotProduced{Lot: *result.Lot, Transaction: *result.Transaction}
	for _, dep := range result.Dependencies {
		produced.Dependencies = append(produced.Dependencies, *dep)
	}
	s.publish(events.LotProducedEvent, events.LotStream(result.Lot.ID), produced)
}

func (s *ProductionService) publish(eventType, stream string, data interface{}) {
	if err := s.publisher.AppendEvent(stream, events.NewEvent(eventType, stream, data, s.now())); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("failed to publish event")
	}
}
