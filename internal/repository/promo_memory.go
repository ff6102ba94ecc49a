package repository

import (
	"context"
	"sort"
	"sync"

	"booking-system/internal/models"
)

type promoEntry struct {
	mu    sync.Mutex
	promo models.PromoCode
}

// MemoryPromoRepository хранит промокоды в памяти. Изменения одного кода
// сериализуются мьютексом записи, разные коды не блокируют друг друга.
type MemoryPromoRepository struct {
	mu      sync.RWMutex
	entries map[string]*promoEntry
}

// NewMemoryPromoRepository создаёт пустое хранилище.
func NewMemoryPromoRepository() *MemoryPromoRepository {
	return &MemoryPromoRepository{entries: make(map[string]*promoEntry)}
}

func (r *MemoryPromoRepository) Create(_ context.Context, p models.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[p.Code]; ok {
		return ErrAlreadyExists
	}
	if p.Version == 0 {
		p.Version = 1
	}
	r.entries[p.Code] = &promoEntry{promo: clonePromo(p)}
	return nil
}

func (r *MemoryPromoRepository) entry(code string) (*promoEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[code]
	return e, ok
}

func (r *MemoryPromoRepository) Get(_ context.Context, code string) (models.PromoCode, error) {
	e, ok := r.entry(code)
	if !ok {
		return models.PromoCode{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return clonePromo(e.promo), nil
}

func (r *MemoryPromoRepository) List(_ context.Context, limit, offset int) ([]models.PromoCode, error) {
	limit, offset = normalizePage(limit, offset)

	r.mu.RLock()
	entries := make([]*promoEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	all := make([]models.PromoCode, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		p := clonePromo(e.promo)
		e.mu.Unlock()
		p.UsageHistory = nil
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Code < all[j].Code
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []models.PromoCode{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Mutate передаёт fn полную историю: в памяти её не нужно фильтровать.
func (r *MemoryPromoRepository) Mutate(ctx context.Context, code, _ string, fn MutateFunc) (models.PromoCode, error) {
	e, ok := r.entry(code)
	if !ok {
		return models.PromoCode{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.PromoCode{}, err
	}

	next, _, err := fn(clonePromo(e.promo))
	if err != nil {
		return models.PromoCode{}, err
	}
	next.ID = e.promo.ID
	next.Code = e.promo.Code
	next.Version = e.promo.Version + 1
	e.promo = clonePromo(next)
	return clonePromo(next), nil
}

func clonePromo(p models.PromoCode) models.PromoCode {
	if p.UsageHistory != nil {
		history := make([]models.UsageRecord, len(p.UsageHistory))
		copy(history, p.UsageHistory)
		p.UsageHistory = history
	}
	if p.Analytics.FailureReasons != nil {
		reasons := make(map[string]int64, len(p.Analytics.FailureReasons))
		for k, v := range p.Analytics.FailureReasons {
			reasons[k] = v
		}
		p.Analytics.FailureReasons = reasons
	}
	return p
}
