package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/costing/pkg/application/dto"
	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
	"github.com/vsinha/costing/pkg/infrastructure/events"
	"github.com/vsinha/costing/pkg/infrastructure/logging"
)

const moduleName = "inventory"

// ReceiveRequest describes a purchase receipt
type ReceiveRequest struct {
	ItemID     entities.ItemID
	LotCode    string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	ReceivedAt time.Time
	Reference  string
}

// IssueRequest describes a FIFO issue of an item
type IssueRequest struct {
	ItemID        entities.ItemID
	Quantity      decimal.Decimal
	AllowNegative bool
	OverrideNote  string
	Reference     string
}

// Option customizes an InventoryService
type Option func(*InventoryService)

// WithPublisher sets where post-commit events go
func WithPublisher(p events.Publisher) Option {
	return func(s *InventoryService) { s.publisher = p }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) { s.now = now }
}

// WithIDGenerator overrides lot and transaction ids
func WithIDGenerator(newID func() string) Option {
	return func(s *InventoryService) { s.newID = newID }
}

// InventoryService records receipts, issues and corrections against lots.
// Every operation keeps lot quantities equal to the sum of their ledger.
type InventoryService struct {
	store     repositories.Store
	publisher events.Publisher
	logger    logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

func NewInventoryService(store repositories.Store, logger logrus.FieldLogger, opts ...Option) *InventoryService {
	s := &InventoryService{
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

// ReceiveLot creates a lot and its RECEIPT transaction
func (s *InventoryService) ReceiveLot(ctx context.Context, req ReceiveRequest) (*entities.Lot, *entities.LedgerTransaction, error) {
	if !req.Quantity.IsPositive() {
		return nil, nil, &entities.InvalidArgumentError{Field: "quantity", Reason: fmt.Sprintf("must be positive, got %s", req.Quantity)}
	}
	if req.UnitCost.IsNegative() {
		return nil, nil, &entities.InvalidArgumentError{Field: "unit cost", Reason: fmt.Sprintf("cannot be negative, got %s", req.UnitCost)}
	}
	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	var lot *entities.Lot
	var tx *entities.LedgerTransaction
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Items.GetItem(ctx, req.ItemID); err != nil {
			return err
		}
		switch _, err := repos.Lots.FindLotByCode(ctx, req.ItemID, req.LotCode); {
		case err == nil:
			return &entities.InvalidArgumentError{Field: "lot code", Reason: fmt.Sprintf("%s already exists for item %s", req.LotCode, req.ItemID)}
		case !errors.Is(err, entities.ErrNotFound):
			return err
		}

		var err error
		lot, err = entities.NewLot(entities.LotID(s.newID()), req.ItemID, req.LotCode, req.Quantity, req.UnitCost, receivedAt)
		if err != nil {
			return &entities.InvalidArgumentError{Field: "lot", Reason: err.Error()}
		}
		if err := repos.Lots.CreateLot(ctx, lot); err != nil {
			return err
		}

		tx, err = entities.NewLedgerTransaction(entities.TransactionID(s.newID()), lot.ID, entities.TransactionReceipt,
			lot.Quantity, *lot.CurrentUnitCost, entities.CostSourceActual, req.Reference, receivedAt)
		if err != nil {
			return err
		}
		return repos.Ledger.AppendTransaction(ctx, tx)
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "ReceiveLot", "receive lot "+req.LotCode, req.ItemID, err)
		return nil, nil, err
	}

	s.publish(events.LotReceivedEvent, events.LotStream(lot.ID), events.LotReceived{Lot: *lot, Transaction: *tx})
	s.logger.WithFields(logrus.Fields{
		"item_id":   req.ItemID,
		"lot_code":  lot.Code,
		"quantity":  lot.Quantity.String(),
		"unit_cost": lot.CurrentUnitCost.String(),
	}).Info("lot received")
	return lot, tx, nil
}

// IssueStock issues an item FIFO from its active lots
func (s *InventoryService) IssueStock(ctx context.Context, req IssueRequest) (*dto.IssueResult, error) {
	if err := CheckOverride(req.AllowNegative, req.OverrideNote); err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return &dto.IssueResult{ItemID: req.ItemID, Quantity: decimal.Zero, TotalCost: decimal.Zero}, nil
	}

	var result *dto.IssueResult
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		item, err := repos.Items.GetItem(ctx, req.ItemID)
		if err != nil {
			return err
		}
		result, err = NewIssuer(repos, s.newID).Issue(ctx, item, req.Quantity, req.AllowNegative,
			OverrideReference(req.Reference, req.OverrideNote), s.now())
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "IssueStock", "issue "+req.Quantity.String()+" of "+string(req.ItemID), req.Reference, err)
		return nil, err
	}

	payload := events.StockIssued{ItemID: req.ItemID, Reference: req.Reference, Issues: result.Issues, Override: req.AllowNegative}
	for _, tx := range result.Transactions {
		payload.Transactions = append(payload.Transactions, *tx)
	}
	s.publish(events.StockIssuedEvent, events.ItemStream(req.ItemID), payload)

	entry := s.logger.WithFields(logrus.Fields{
		"item_id":    req.ItemID,
		"quantity":   result.Quantity.String(),
		"total_cost": result.TotalCost.String(),
		"lots":       len(result.Issues),
	})
	if req.AllowNegative {
		entry.WithField("override_note", req.OverrideNote).Warn("stock issued under negative override")
	} else {
		entry.Info("stock issued")
	}
	return result, nil
}

// AdjustLot applies a signed quantity correction as an ADJUSTMENT transaction
func (s *InventoryService) AdjustLot(ctx context.Context, lotID entities.LotID, delta decimal.Decimal, reason string) (*entities.Lot, *entities.LedgerTransaction, error) {
	if entities.RoundQuantity(delta).IsZero() {
		return nil, nil, &entities.InvalidArgumentError{Field: "delta", Reason: "cannot be zero"}
	}
	return s.correct(ctx, "AdjustLot", lotID, entities.TransactionAdjustment, reason, func(*entities.Lot) decimal.Decimal {
		return delta
	})
}

// Stocktake sets a lot's quantity to the counted amount through a STOCKTAKE
// transaction. A count matching the book quantity writes nothing.
func (s *InventoryService) Stocktake(ctx context.Context, lotID entities.LotID, counted decimal.Decimal, reference string) (*entities.Lot, *entities.LedgerTransaction, error) {
	if counted.IsNegative() {
		return nil, nil, &entities.InvalidArgumentError{Field: "counted quantity", Reason: fmt.Sprintf("cannot be negative, got %s", counted)}
	}
	return s.correct(ctx, "Stocktake", lotID, entities.TransactionStocktake, reference, func(lot *entities.Lot) decimal.Decimal {
		return entities.RoundQuantity(counted).Sub(lot.Quantity)
	})
}

func (s *InventoryService) correct(ctx context.Context, funcName string, lotID entities.LotID, txType entities.TransactionType, reference string, deltaFor func(*entities.Lot) decimal.Decimal) (*entities.Lot, *entities.LedgerTransaction, error) {
	var lot *entities.Lot
	var tx *entities.LedgerTransaction
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		lot, err = repos.Lots.GetLotForUpdate(ctx, lotID)
		if err != nil {
			return err
		}

		delta := entities.RoundQuantity(deltaFor(lot))
		if delta.IsZero() {
			return nil
		}

		lot.Quantity = entities.RoundQuantity(lot.Quantity.Add(delta))
		if err := repos.Lots.UpdateLot(ctx, lot); err != nil {
			return err
		}

		tx, err = entities.NewLedgerTransaction(entities.TransactionID(s.newID()), lot.ID, txType,
			delta, lot.EffectiveCost(), entities.CostSourceActual, reference, s.now())
		if err != nil {
			return err
		}
		return repos.Ledger.AppendTransaction(ctx, tx)
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, funcName, "correct lot "+string(lotID), reference, err)
		return nil, nil, err
	}
	if tx == nil {
		return lot, nil, nil
	}

	s.publish(events.LotAdjustedEvent, events.LotStream(lot.ID), events.LotAdjusted{Lot: *lot, Transaction: *tx})
	s.logger.WithFields(logrus.Fields{
		"lot_id":   lot.ID,
		"type":     txType,
		"delta":    tx.Quantity.String(),
		"quantity": lot.Quantity.String(),
	}).Info("lot quantity corrected")
	return lot, tx, nil
}

// ReverseTransaction undoes a transaction with an opposite-signed reversal.
// Reversals cannot themselves be reversed and a transaction is reversed at most once.
func (s *InventoryService) ReverseTransaction(ctx context.Context, txID entities.TransactionID, reason string) (*entities.LedgerTransaction, error) {
	var original, reversal *entities.LedgerTransaction
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		original, err = repos.Ledger.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if original.Type.IsReversal() {
			return &entities.InvalidArgumentError{Field: "transaction", Reason: fmt.Sprintf("%s is itself a reversal", txID)}
		}
		existing, err := repos.Ledger.FindReversal(ctx, txID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &entities.InvalidArgumentError{Field: "transaction", Reason: fmt.Sprintf("%s was already reversed by %s", txID, existing.ID)}
		}

		lot, err := repos.Lots.GetLotForUpdate(ctx, original.LotID)
		if err != nil {
			return err
		}
		lot.Quantity = entities.RoundQuantity(lot.Quantity.Sub(original.Quantity))
		if err := repos.Lots.UpdateLot(ctx, lot); err != nil {
			return err
		}

		reversal, err = entities.NewLedgerTransaction(entities.TransactionID(s.newID()), lot.ID, original.Type.Reversal(),
			original.Quantity.Neg(), original.UnitCost, original.CostSource, reason, s.now())
		if err != nil {
			return err
		}
		reversal.ReversesID = original.ID
		return repos.Ledger.AppendTransaction(ctx, reversal)
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "ReverseTransaction", "reverse transaction "+string(txID), reason, err)
		return nil, err
	}

	s.publish(events.TransactionReversedEvent, events.LotStream(reversal.LotID), events.TransactionReversed{Original: *original, Reversal: *reversal})
	s.logger.WithFields(logrus.Fields{
		"transaction_id": txID,
		"reversal_id":    reversal.ID,
		"type":           reversal.Type,
	}).Info("transaction reversed")
	return reversal, nil
}

// DeactivateLot soft-deactivates a lot. Deactivated lots keep their history
// and remain eligible for historical cost queries.
func (s *InventoryService) DeactivateLot(ctx context.Context, lotID entities.LotID) (*entities.Lot, error) {
	var lot *entities.Lot
	changed := false
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		lot, err = repos.Lots.GetLotForUpdate(ctx, lotID)
		if err != nil || !lot.Active {
			return err
		}
		lot.Active = false
		changed = true
		return repos.Lots.UpdateLot(ctx, lot)
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "DeactivateLot", "deactivate lot "+string(lotID), nil, err)
		return nil, err
	}

	if changed {
		s.publish(events.LotDeactivatedEvent, events.LotStream(lot.ID), events.LotDeactivated{Lot: *lot})
		s.logger.WithField("lot_id", lot.ID).Info("lot deactivated")
	}
	return lot, nil
}

// Reconcile compares a lot's quantity with the sum of its ledger.
// It returns nil when they agree.
func (s *InventoryService) Reconcile(ctx context.Context, lotID entities.LotID) (*dto.ReconciliationMismatch, error) {
	var mismatch *dto.ReconciliationMismatch
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		lot, err := repos.Lots.GetLot(ctx, lotID)
		if err != nil {
			return err
		}
		mismatch, err = reconcileLot(ctx, repos, lot)
		return err
	})
	return mismatch, err
}

// ReconcileAll checks every lot and returns the ones whose ledger disagrees
func (s *InventoryService) ReconcileAll(ctx context.Context) ([]dto.ReconciliationMismatch, error) {
	mismatches := []dto.ReconciliationMismatch{}
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		lots, err := repos.Lots.ListAllLots(ctx)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			mismatch, err := reconcileLot(ctx, repos, lot)
			if err != nil {
				return err
			}
			if mismatch != nil {
				mismatches = append(mismatches, *mismatch)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(mismatches) > 0 {
		s.logger.WithField("mismatches", len(mismatches)).Warn("ledger does not reconcile")
	}
	return mismatches, nil
}

func reconcileLot(ctx context.Context, repos repositories.Repositories, lot *entities.Lot) (*dto.ReconciliationMismatch, error) {
	txs, err := repos.Ledger.ListTransactionsByLot(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Quantity)
	}
	sum = entities.RoundQuantity(sum)
	if sum.Equal(entities.RoundQuantity(lot.Quantity)) {
		return nil, nil
	}
	return &dto.ReconciliationMismatch{
		LotID:          lot.ID,
		LotCode:        lot.Code,
		LotQuantity:    lot.Quantity,
		LedgerQuantity: sum,
	}, nil
}

func (s *InventoryService) publish(eventType, stream string, data interface{}) {
	if err := s.publisher.AppendEvent(stream, events.NewEvent(eventType, stream, data, s.now())); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("failed to publish event")
	}
}
