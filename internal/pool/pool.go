// Package pool holds the in-memory item arena one adaptive test draws from.
// A pool is built once from calibrated items and never mutated afterwards;
// the only shared mutable state is the per-item exposure counter.
package pool

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/SAP-F-2025/adaptive-testing-service/internal/models"
)

var ErrInvalidItemParameters = errors.New("invalid item parameters")

var ErrItemNotFound = errors.New("item not found in pool")

// ValidateItemParameters checks the IRT calibration constraints an item must
// satisfy before it may enter a pool: a > 0, 0 <= c < 1, and the scoring
// fields the item type requires. Items are validated at authoring time so
// these errors never surface mid-session.
func ValidateItemParameters(item *models.Item) error {
	if item.Discrimination <= 0 {
		return fmt.Errorf("%w: discrimination must be > 0, got %v", ErrInvalidItemParameters, item.Discrimination)
	}
	if item.Guessing < 0 || item.Guessing >= 1 {
		return fmt.Errorf("%w: guessing must be in [0,1), got %v", ErrInvalidItemParameters, item.Guessing)
	}
	if item.Text == "" {
		return fmt.Errorf("%w: item text is required", ErrInvalidItemParameters)
	}
	if item.CorrectAnswer == "" {
		return fmt.Errorf("%w: correct answer is required", ErrInvalidItemParameters)
	}
	if item.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidItemParameters)
	}
	switch item.Type {
	case models.MultipleChoice, models.TrueFalse:
	default:
		return fmt.Errorf("%w: unknown question type %q", ErrInvalidItemParameters, item.Type)
	}
	return nil
}

// entry pairs an item with its exposure counter. Counters are per-item
// atomics so concurrent sessions never need a pool-wide lock.
type entry struct {
	item     *models.Item
	exposure atomic.Int64
}

// Pool is an immutable-after-build arena of items indexed by id.
type Pool struct {
	id      uint
	entries map[uint]*entry
	order   []uint // item ids sorted ascending, for deterministic iteration

	totalAdministrations atomic.Int64
}

// New builds a pool from calibrated items, validating every item's
// parameters. Previously recorded exposures may be seeded so a reloaded pool
// keeps its fairness history.
func New(poolID uint, items []*models.Item, exposures map[uint]int64) (*Pool, error) {
	p := &Pool{
		id:      poolID,
		entries: make(map[uint]*entry, len(items)),
		order:   make([]uint, 0, len(items)),
	}
	var total int64
	for _, item := range items {
		if err := ValidateItemParameters(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", item.ID, err)
		}
		if _, dup := p.entries[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %d", ErrInvalidItemParameters, item.ID)
		}
		e := &entry{item: item}
		if n := exposures[item.ID]; n > 0 {
			e.exposure.Store(n)
			total += n
		}
		p.entries[item.ID] = e
		p.order = append(p.order, item.ID)
	}
	sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
	p.totalAdministrations.Store(total)
	return p, nil
}

func (p *Pool) ID() uint { return p.id }

func (p *Pool) Size() int { return len(p.entries) }

// GetItem returns the item with the given id.
func (p *Pool) GetItem(id uint) (*models.Item, error) {
	e, ok := p.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrItemNotFound, id)
	}
	return e.item, nil
}

// Items returns all items in ascending id order.
func (p *Pool) Items() []*models.Item {
	items := make([]*models.Item, 0, len(p.order))
	for _, id := range p.order {
		items = append(items, p.entries[id].item)
	}
	return items
}

// UnadministeredItems returns, in ascending id order, the items the session
// has not seen yet.
func (p *Pool) UnadministeredItems(administeredIDs []uint) []*models.Item {
	seen := make(map[uint]struct{}, len(administeredIDs))
	for _, id := range administeredIDs {
		seen[id] = struct{}{}
	}
	items := make([]*models.Item, 0, len(p.order))
	for _, id := range p.order {
		if _, ok := seen[id]; !ok {
			items = append(items, p.entries[id].item)
		}
	}
	return items
}

// RecordExposure atomically increments the item's exposure counter and the
// pool-wide administration total.
func (p *Pool) RecordExposure(itemID uint) error {
	e, ok := p.entries[itemID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
	}
	e.exposure.Add(1)
	p.totalAdministrations.Add(1)
	return nil
}

// Exposure returns a point-in-time snapshot of the item's exposure count.
// Slight staleness is acceptable: exposure control is a fairness heuristic,
// not a consistency requirement.
func (p *Pool) Exposure(itemID uint) int64 {
	if e, ok := p.entries[itemID]; ok {
		return e.exposure.Load()
	}
	return 0
}

// TotalAdministrations returns the pool-wide administration count snapshot.
func (p *Pool) TotalAdministrations() int64 {
	return p.totalAdministrations.Load()
}

// ExposureCounts snapshots all counters, for persisting back through the
// repository layer.
func (p *Pool) ExposureCounts() map[uint]int64 {
	counts := make(map[uint]int64, len(p.entries))
	for id, e := range p.entries {
		counts[id] = e.exposure.Load()
	}
	return counts
}
