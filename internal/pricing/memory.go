package pricing

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// MemoryPromotions is an in-process PromotionStore.
type MemoryPromotions struct {
	mu    sync.RWMutex
	codes map[string]model.Promotion
}

// NewMemoryPromotions validates and indexes the given promotions.
func NewMemoryPromotions(promos ...model.Promotion) (*MemoryPromotions, error) {
	m := &MemoryPromotions{codes: make(map[string]model.Promotion, len(promos))}
	for _, p := range promos {
		if err := m.Put(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Put adds or replaces a promotion.
func (m *MemoryPromotions) Put(p model.Promotion) error {
	p.Code = NormalizeCode(p.Code)
	if p.Code == "" {
		return fmt.Errorf("promotion without code")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[p.Code] = p
	return nil
}

func (m *MemoryPromotions) FindByCode(_ context.Context, code string) (model.Promotion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.codes[NormalizeCode(code)]
	if !ok {
		return model.Promotion{}, fmt.Errorf("%w: %s", ErrPromotionNotFound, code)
	}
	return p, nil
}
