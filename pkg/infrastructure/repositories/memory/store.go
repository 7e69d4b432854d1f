package memory

import (
	"context"
	"sync"

	"github.com/vsinha/costing/pkg/domain/entities"
	"github.com/vsinha/costing/pkg/domain/repositories"
)

// state is one consistent snapshot of everything the store holds
type state struct {
	items        []entities.Item
	itemsMap     map[entities.ItemID]int
	lots         map[entities.LotID]*entities.Lot
	transactions []entities.LedgerTransaction
	txIndex      map[entities.TransactionID]int
	edges        []entities.AssemblyEdge
	edgeIndexes  map[entities.ItemID][]int
	dependencies []entities.AssemblyCostDependency
	revaluations []entities.RevaluationRecord
}

func newState(expectedItems int) *state {
	return &state{
		items:        make([]entities.Item, 0, expectedItems),
		itemsMap:     make(map[entities.ItemID]int, expectedItems),
		lots:         make(map[entities.LotID]*entities.Lot),
		transactions: []entities.LedgerTransaction{},
		txIndex:      make(map[entities.TransactionID]int),
		edges:        []entities.AssemblyEdge{},
		edgeIndexes:  make(map[entities.ItemID][]int, expectedItems),
		dependencies: []entities.AssemblyCostDependency{},
		revaluations: []entities.RevaluationRecord{},
	}
}

// clone deep-copies the mutable parts. Transactions, edges, dependencies and
// revaluation records are never mutated in place, so their slices are copied
// by value.
func (s *state) clone() *state {
	c := &state{
		items:        append([]entities.Item(nil), s.items...),
		itemsMap:     make(map[entities.ItemID]int, len(s.itemsMap)),
		lots:         make(map[entities.LotID]*entities.Lot, len(s.lots)),
		transactions: append([]entities.LedgerTransaction(nil), s.transactions...),
		txIndex:      make(map[entities.TransactionID]int, len(s.txIndex)),
		edges:        append([]entities.AssemblyEdge(nil), s.edges...),
		edgeIndexes:  make(map[entities.ItemID][]int, len(s.edgeIndexes)),
		dependencies: append([]entities.AssemblyCostDependency(nil), s.dependencies...),
		revaluations: append([]entities.RevaluationRecord(nil), s.revaluations...),
	}
	for k, v := range s.itemsMap {
		c.itemsMap[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v.Clone()
	}
	for k, v := range s.txIndex {
		c.txIndex[k] = v
	}
	for k, v := range s.edgeIndexes {
		c.edgeIndexes[k] = append([]int(nil), v...)
	}
	return c
}

// Store is an in-memory, serializable implementation of repositories.Store.
// Transactions run against a private snapshot that replaces the committed
// state only when the transaction function succeeds.
type Store struct {
	mu        sync.RWMutex
	writeMu   sync.Mutex
	committed *state
}

// NewStore creates an empty in-memory store
func NewStore(expectedItems int) *Store {
	return &Store{committed: newState(expectedItems)}
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// Repositories returns repositories reading committed state
func (s *Store) Repositories() repositories.Repositories {
	return s.bind(access{store: s})
}

// WithinTransaction runs fn on a snapshot and commits it atomically on success.
// Write transactions are serialized.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s.bind(access{store: s, tx: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

func (s *Store) bind(a access) repositories.Repositories {
	return repositories.Repositories{
		Items:        &ItemRepository{access: a},
		Lots:         &LotRepository{access: a},
		Ledger:       &LedgerRepository{access: a},
		Assemblies:   &AssemblyRepository{access: a},
		Dependencies: &DependencyRepository{access: a},
		Revaluations: &RevaluationRepository{access: a},
	}
}

// access routes reads and writes either to a transaction snapshot or to the
// committed state under the store locks
type access struct {
	store *Store
	tx    *state
}

func (a access) read(fn func(st *state)) {
	if a.tx != nil {
		fn(a.tx)
		return
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	fn(a.store.committed)
}

func (a access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.writeMu.Lock()
	defer a.store.writeMu.Unlock()
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.committed)
}
