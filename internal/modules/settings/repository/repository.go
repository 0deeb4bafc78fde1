package repository

import (
	"context"

	"anoa.com/yogaschool/internal/entity"
	"gorm.io/gorm"
)

// SettingsRepository stores the single school-wide settings row.
type SettingsRepository interface {
	// GetOrCreate returns the settings row, inserting an empty one on first use.
	GetOrCreate(ctx context.Context) (*entity.Setting, error)
	Save(ctx context.Context, setting *entity.Setting) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetOrCreate(ctx context.Context) (*entity.Setting, error) {
	var setting entity.Setting
	err := r.db.WithContext(ctx).
		Where(entity.Setting{ID: entity.SettingsID}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingsRepository) Save(ctx context.Context, setting *entity.Setting) error {
	setting.ID = entity.SettingsID
	return r.db.WithContext(ctx).Save(setting).Error
}
