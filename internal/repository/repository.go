// Package repository хранит ресурсы и промокоды. Все изменения промокода идут через
// Mutate: чтение актуального состояния, расчёт нового и запись выполняются атомарно
// относительно других изменений того же кода.
package repository

import (
	"context"
	"errors"

	"booking-system/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// MutateFunc получает актуальное состояние промокода и возвращает новое.
// Если usage не nil, запись добавляется в историю вместе с новым состоянием.
// Ошибка отменяет изменение целиком.
type MutateFunc func(current models.PromoCode) (next models.PromoCode, usage *models.UsageRecord, err error)

// PromoRepository хранилище промокодов.
type PromoRepository interface {
	Create(ctx context.Context, p models.PromoCode) error
	Get(ctx context.Context, code string) (models.PromoCode, error)
	List(ctx context.Context, limit, offset int) ([]models.PromoCode, error)
	// Mutate загружает промокод с историей пользователя userID и использованиями
	// за текущие сутки, вызывает fn и сохраняет результат.
	Mutate(ctx context.Context, code, userID string, fn MutateFunc) (models.PromoCode, error)
}

// ResourceRepository хранилище ресурсов с тарифами.
type ResourceRepository interface {
	Create(ctx context.Context, r models.Resource) error
	Get(ctx context.Context, id uuid.UUID) (models.Resource, error)
	List(ctx context.Context, limit, offset int) ([]models.Resource, error)
	Update(ctx context.Context, r models.Resource) error
	Delete(ctx context.Context, id uuid.UUID) error
}

const defaultListLimit = 50

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
