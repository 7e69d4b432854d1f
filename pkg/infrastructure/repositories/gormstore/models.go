package gormstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/costing/pkg/domain/entities"
)

type itemModel struct {
	ID             string              `gorm:"primaryKey;size:64"`
	SKU            string              `gorm:"uniqueIndex;size:100;not null"`
	Name           string              `gorm:"size:255;not null"`
	Purchasable    bool                `gorm:"not null"`
	Sellable       bool                `gorm:"not null"`
	Assemblable    bool                `gorm:"not null"`
	Tracked        bool                `gorm:"not null"`
	StandardCost   decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	EstimatedCost  decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	EstimateReason string              `gorm:"size:255"`
}

func (itemModel) TableName() string { return "items" }

type lotModel struct {
	ID               string              `gorm:"primaryKey;size:64"`
	ItemID           string              `gorm:"uniqueIndex:idx_lot_item_code;index;size:64;not null"`
	Code             string              `gorm:"uniqueIndex:idx_lot_item_code;size:100;not null"`
	Quantity         decimal.Decimal     `gorm:"type:decimal(20,6);not null"`
	UnitCost         decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	OriginalUnitCost decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	CurrentUnitCost  decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	ReceivedAt       time.Time           `gorm:"index;not null"`
	Active           bool                `gorm:"not null"`
	Version          int                 `gorm:"not null"`
}

func (lotModel) TableName() string { return "lots" }

type ledgerModel struct {
	Seq          uint64          `gorm:"primaryKey;autoIncrement"`
	ID           string          `gorm:"uniqueIndex;size:64;not null"`
	LotID        string          `gorm:"index;size:64;not null"`
	Type         string          `gorm:"size:32;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	ExtendedCost decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CostSource   string          `gorm:"size:16"`
	Reference    string          `gorm:"size:255"`
	ReversesID   string          `gorm:"index;size:64"`
	CreatedAt    time.Time       `gorm:"not null"`
}

func (ledgerModel) TableName() string { return "ledger_transactions" }

type edgeModel struct {
	Seq                uint64          `gorm:"primaryKey;autoIncrement"`
	ParentID           string          `gorm:"index;size:64;not null"`
	ChildID            string          `gorm:"index;size:64;not null"`
	Ratio              decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	LossFactor         decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	YieldFactor        decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	EffectiveFrom      *time.Time
	EffectiveTo        *time.Time
	IsEnergyOrOverhead bool `gorm:"not null"`
	Active             bool `gorm:"not null"`
}

func (edgeModel) TableName() string { return "assembly_edges" }

type dependencyModel struct {
	Seq                   uint64    `gorm:"primaryKey;autoIncrement"`
	ID                    string    `gorm:"uniqueIndex;size:64;not null"`
	ConsumedLotID         string    `gorm:"index;size:64;not null"`
	ProducedLotID         string    `gorm:"index;size:64;not null"`
	ConsumedTransactionID string    `gorm:"size:64"`
	ProducedTransactionID string    `gorm:"size:64"`
	CreatedAt             time.Time `gorm:"not null"`
}

func (dependencyModel) TableName() string { return "assembly_cost_dependencies" }

type revaluationModel struct {
	Seq                    uint64          `gorm:"primaryKey;autoIncrement"`
	ID                     string          `gorm:"uniqueIndex;size:64;not null"`
	ItemID                 string          `gorm:"index;size:64;not null"`
	LotID                  string          `gorm:"index;size:64;not null"`
	OldUnitCost            decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	NewUnitCost            decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	DeltaExtendedCost      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Reason                 string          `gorm:"size:500"`
	Actor                  string          `gorm:"size:100"`
	CreatedAt              time.Time       `gorm:"not null"`
	PropagatedToAssemblies bool            `gorm:"not null"`
	ParentID               string          `gorm:"index;size:64"`
}

func (revaluationModel) TableName() string { return "revaluation_records" }

func allModels() []interface{} {
	return []interface{}{
		&itemModel{},
		&lotModel{},
		&ledgerModel{},
		&edgeModel{},
		&dependencyModel{},
		&revaluationModel{},
	}
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNull(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	return entities.DecimalPtr(n.Decimal)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func newItemModel(i *entities.Item) itemModel {
	return itemModel{
		ID:             string(i.ID),
		SKU:            i.SKU,
		Name:           i.Name,
		Purchasable:    i.Purchasable,
		Sellable:       i.Sellable,
		Assemblable:    i.Assemblable,
		Tracked:        i.Tracked,
		StandardCost:   toNull(i.StandardCost),
		EstimatedCost:  toNull(i.EstimatedCost),
		EstimateReason: i.EstimateReason,
	}
}

func (m *itemModel) toEntity() *entities.Item {
	return &entities.Item{
		ID:             entities.ItemID(m.ID),
		SKU:            m.SKU,
		Name:           m.Name,
		Purchasable:    m.Purchasable,
		Sellable:       m.Sellable,
		Assemblable:    m.Assemblable,
		Tracked:        m.Tracked,
		StandardCost:   fromNull(m.StandardCost),
		EstimatedCost:  fromNull(m.EstimatedCost),
		EstimateReason: m.EstimateReason,
	}
}

func newLotModel(l *entities.Lot) lotModel {
	return lotModel{
		ID:               string(l.ID),
		ItemID:           string(l.ItemID),
		Code:             l.Code,
		Quantity:         l.Quantity,
		UnitCost:         toNull(l.UnitCost),
		OriginalUnitCost: toNull(l.OriginalUnitCost),
		CurrentUnitCost:  toNull(l.CurrentUnitCost),
		ReceivedAt:       l.ReceivedAt.UTC(),
		Active:           l.Active,
		Version:          l.Version,
	}
}

func (m *lotModel) toEntity() *entities.Lot {
	return &entities.Lot{
		ID:               entities.LotID(m.ID),
		ItemID:           entities.ItemID(m.ItemID),
		Code:             m.Code,
		Quantity:         m.Quantity,
		UnitCost:         fromNull(m.UnitCost),
		OriginalUnitCost: fromNull(m.OriginalUnitCost),
		CurrentUnitCost:  fromNull(m.CurrentUnitCost),
		ReceivedAt:       m.ReceivedAt,
		Active:           m.Active,
		Version:          m.Version,
	}
}

func newLedgerModel(t *entities.LedgerTransaction) ledgerModel {
	return ledgerModel{
		ID:           string(t.ID),
		LotID:        string(t.LotID),
		Type:         string(t.Type),
		Quantity:     t.Quantity,
		UnitCost:     t.UnitCost,
		ExtendedCost: t.ExtendedCost,
		CostSource:   t.CostSource.String(),
		Reference:    t.Reference,
		ReversesID:   string(t.ReversesID),
		CreatedAt:    t.CreatedAt.UTC(),
	}
}

func (m *ledgerModel) toEntity() (*entities.LedgerTransaction, error) {
	source, err := entities.ParseCostSource(m.CostSource)
	if err != nil {
		return nil, err
	}
	return &entities.LedgerTransaction{
		ID:           entities.TransactionID(m.ID),
		LotID:        entities.LotID(m.LotID),
		Type:         entities.TransactionType(m.Type),
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		ExtendedCost: m.ExtendedCost,
		CostSource:   source,
		Reference:    m.Reference,
		ReversesID:   entities.TransactionID(m.ReversesID),
		CreatedAt:    m.CreatedAt,
	}, nil
}

func newEdgeModel(e *entities.AssemblyEdge) edgeModel {
	return edgeModel{
		ParentID:           string(e.ParentID),
		ChildID:            string(e.ChildID),
		Ratio:              e.Ratio,
		LossFactor:         e.LossFactor,
		YieldFactor:        e.YieldFactor,
		EffectiveFrom:      utcPtr(e.Effectivity.From),
		EffectiveTo:        utcPtr(e.Effectivity.To),
		IsEnergyOrOverhead: e.IsEnergyOrOverhead,
		Active:             e.Active,
	}
}

func (m *edgeModel) toEntity() *entities.AssemblyEdge {
	return &entities.AssemblyEdge{
		ParentID:           entities.ItemID(m.ParentID),
		ChildID:            entities.ItemID(m.ChildID),
		Ratio:              m.Ratio,
		LossFactor:         m.LossFactor,
		YieldFactor:        m.YieldFactor,
		Effectivity:        entities.EffectiveWindow{From: m.EffectiveFrom, To: m.EffectiveTo},
		IsEnergyOrOverhead: m.IsEnergyOrOverhead,
		Active:             m.Active,
	}
}

func newDependencyModel(d *entities.AssemblyCostDependency) dependencyModel {
	return dependencyModel{
		ID:                    string(d.ID),
		ConsumedLotID:         string(d.ConsumedLotID),
		ProducedLotID:         string(d.ProducedLotID),
		ConsumedTransactionID: string(d.ConsumedTransactionID),
		ProducedTransactionID: string(d.ProducedTransactionID),
		CreatedAt:             d.CreatedAt.UTC(),
	}
}

func (m *dependencyModel) toEntity() *entities.AssemblyCostDependency {
	return &entities.AssemblyCostDependency{
		ID:                    entities.DependencyID(m.ID),
		ConsumedLotID:         entities.LotID(m.ConsumedLotID),
		ProducedLotID:         entities.LotID(m.ProducedLotID),
		ConsumedTransactionID: entities.TransactionID(m.ConsumedTransactionID),
		ProducedTransactionID: entities.TransactionID(m.ProducedTransactionID),
		CreatedAt:             m.CreatedAt,
	}
}

func newRevaluationModel(r *entities.RevaluationRecord) revaluationModel {
	return revaluationModel{
		ID:                     string(r.ID),
		ItemID:                 string(r.ItemID),
		LotID:                  string(r.LotID),
		OldUnitCost:            r.OldUnitCost,
		NewUnitCost:            r.NewUnitCost,
		DeltaExtendedCost:      r.DeltaExtendedCost,
		Reason:                 r.Reason,
		Actor:                  r.Actor,
		CreatedAt:              r.CreatedAt.UTC(),
		PropagatedToAssemblies: r.PropagatedToAssemblies,
		ParentID:               string(r.ParentID),
	}
}

func (m *revaluationModel) toEntity() *entities.RevaluationRecord {
	return &entities.RevaluationRecord{
		ID:                     entities.RevaluationID(m.ID),
		ItemID:                 entities.ItemID(m.ItemID),
		LotID:                  entities.LotID(m.LotID),
		OldUnitCost:            m.OldUnitCost,
		NewUnitCost:            m.NewUnitCost,
		DeltaExtendedCost:      m.DeltaExtendedCost,
		Reason:                 m.Reason,
		Actor:                  m.Actor,
		CreatedAt:              m.CreatedAt,
		PropagatedToAssemblies: m.PropagatedToAssemblies,
		ParentID:               entities.RevaluationID(m.ParentID),
	}
}
