package llm

import (
	"sync"

	"github.com/mkrogh/eventtag/internal/domain"
)

// PricingRegistry maps model names to a cost rate per 1000 tokens. Unknown
// models fall back to the default rate so cost accounting never fails a run.
type PricingRegistry struct {
	mu          sync.RWMutex
	rates       map[string]domain.MilliOre
	defaultRate domain.MilliOre
}

// NewPricingRegistry builds a registry with the given default per-1000-token
// rate.
func NewPricingRegistry(defaultRate domain.MilliOre) *PricingRegistry {
	return &PricingRegistry{
		rates:       make(map[string]domain.MilliOre),
		defaultRate: defaultRate,
	}
}

// SetRate registers the per-1000-token rate for a model.
func (r *PricingRegistry) SetRate(model string, rate domain.MilliOre) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[model] = rate
}

// Rate returns the per-1000-token rate for a model, falling back to the
// default.
func (r *PricingRegistry) Rate(model string) domain.MilliOre {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rate, ok := r.rates[model]; ok {
		return rate
	}
	return r.defaultRate
}

// Cost computes the charge for the given token count. Integer arithmetic in
// milli-øre keeps the result exact; sub-unit remainders round toward zero.
func (r *PricingRegistry) Cost(model string, totalTokens int64) domain.MilliOre {
	if totalTokens <= 0 {
		return 0
	}
	return domain.MilliOre(totalTokens) * r.Rate(model) / 1000
}
