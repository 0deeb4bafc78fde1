package repository

import (
	"context"
	"sync"
	"time"

	"anoa.com/yogaschool/internal/entity"
)

type memorySettingsRepository struct {
	mu      sync.Mutex
	setting *entity.Setting
}

func NewMemorySettingsRepository() SettingsRepository {
	return &memorySettingsRepository{}
}

func (r *memorySettingsRepository) GetOrCreate(ctx context.Context) (*entity.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.setting == nil {
		r.setting = &entity.Setting{ID: entity.SettingsID, UpdatedAt: time.Now()}
	}
	clone := *r.setting
	return &clone, nil
}

func (r *memorySettingsRepository) Save(ctx context.Context, setting *entity.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	setting.ID = entity.SettingsID
	setting.UpdatedAt = time.Now()
	stored := *setting
	r.setting = &stored
	return nil
}
