package repository

import (
	"context"

	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SectorRepository interface {
	Create(ctx context.Context, s *model.Sector) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sector, error)
	List(ctx context.Context) ([]model.Sector, error)
	CreateStreet(ctx context.Context, s *model.Street) error
	FindStreet(ctx context.Context, id uuid.UUID) (*model.Street, error)
}

type sectorRepo struct{ db *gorm.DB }

func NewSectorRepository(db *gorm.DB) SectorRepository { return &sectorRepo{db: db} }

func (r *sectorRepo) Create(ctx context.Context, s *model.Sector) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sectorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sector, error) {
	var s model.Sector
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sector", id)
	}
	return &s, nil
}

func (r *sectorRepo) List(ctx context.Context) ([]model.Sector, error) {
	var ss []model.Sector
	err := r.db.WithContext(ctx).Where("active = true").Order("name").Find(&ss).Error
	return ss, err
}

func (r *sectorRepo) CreateStreet(ctx context.Context, s *model.Street) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sectorRepo) FindStreet(ctx context.Context, id uuid.UUID) (*model.Street, error) {
	var s model.Street
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "street", id)
	}
	return &s, nil
}
