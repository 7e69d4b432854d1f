package repositories

import "context"

// Repositories bundles every repository bound to one unit of work
type Repositories struct {
	Items        ItemRepository
	Lots         LotRepository
	Ledger       LedgerRepository
	Assemblies   AssemblyRepository
	Dependencies DependencyRepository
	Revaluations RevaluationRepository
}

// Store is the transactional backing store for the costing engine
type Store interface {
	// Repositories returns repositories bound to no transaction. Each call
	// observes committed state only.
	Repositories() Repositories
	// WithinTransaction runs fn against repositories bound to one ACID
	// transaction. fn's error rolls everything back.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
