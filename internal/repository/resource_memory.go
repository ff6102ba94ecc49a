package repository

import (
	"context"
	"sort"
	"sync"

	"booking-system/internal/models"

	"github.com/google/uuid"
)

// MemoryResourceRepository хранит ресурсы в памяти.
type MemoryResourceRepository struct {
	mu        sync.RWMutex
	resources map[uuid.UUID]models.Resource
}

// NewMemoryResourceRepository создаёт пустое хранилище.
func NewMemoryResourceRepository() *MemoryResourceRepository {
	return &MemoryResourceRepository{resources: make(map[uuid.UUID]models.Resource)}
}

func (r *MemoryResourceRepository) Create(_ context.Context, res models.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[res.ID]; ok {
		return ErrAlreadyExists
	}
	r.resources[res.ID] = res
	return nil
}

func (r *MemoryResourceRepository) Get(_ context.Context, id uuid.UUID) (models.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[id]
	if !ok {
		return models.Resource{}, ErrNotFound
	}
	return res, nil
}

func (r *MemoryResourceRepository) List(_ context.Context, limit, offset int) ([]models.Resource, error) {
	limit, offset = normalizePage(limit, offset)

	r.mu.RLock()
	all := make([]models.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		all = append(all, res)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []models.Resource{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryResourceRepository) Update(_ context.Context, res models.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[res.ID]; !ok {
		return ErrNotFound
	}
	r.resources[res.ID] = res
	return nil
}

func (r *MemoryResourceRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[id]; !ok {
		return ErrNotFound
	}
	delete(r.resources, id)
	return nil
}
