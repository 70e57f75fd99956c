package repository

import (
	"context"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OperatorRepository interface {
	Create(ctx context.Context, o *model.Operator) error
	FindByUsername(ctx context.Context, username string) (*model.Operator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Operator, error)
	List(ctx context.Context) ([]model.Operator, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CreateAssignment(ctx context.Context, a *model.OperatorAssignment) error
	// ListAssignments returns the assignments of an operator valid at t.
	ListAssignments(ctx context.Context, operatorID uuid.UUID, t time.Time) ([]model.OperatorAssignment, error)
}

type operatorRepo struct{ db *gorm.DB }

func NewOperatorRepository(db *gorm.DB) OperatorRepository { return &operatorRepo{db: db} }

func (r *operatorRepo) Create(ctx context.Context, o *model.Operator) error {
	err := r.db.WithContext(ctx).Create(o).Error
	if isUniqueViolation(err) {
		return apperr.ErrUniqueViolation.WithDetail("username %q already exists", o.Username)
	}
	return err
}

func (r *operatorRepo) FindByUsername(ctx context.Context, username string) (*model.Operator, error) {
	var o model.Operator
	// Accept login by username OR email (case-insensitive email match)
	err := r.db.WithContext(ctx).
		Where("(username = ? OR LOWER(email) = LOWER(?)) AND active = true", username, username).
		First(&o).Error
	if err != nil {
		return nil, notFound(err, "operator", username)
	}
	return &o, nil
}

func (r *operatorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	var o model.Operator
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "operator", id)
	}
	return &o, nil
}

func (r *operatorRepo) List(ctx context.Context) ([]model.Operator, error) {
	var ops []model.Operator
	err := r.db.WithContext(ctx).Order("username").Find(&ops).Error
	return ops, err
}

func (r *operatorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Operator{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("operator", id)
	}
	return nil
}

func (r *operatorRepo) CreateAssignment(ctx context.Context, a *model.OperatorAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *operatorRepo) ListAssignments(ctx context.Context, operatorID uuid.UUID, t time.Time) ([]model.OperatorAssignment, error) {
	var as []model.OperatorAssignment
	err := r.db.WithContext(ctx).
		Where("operator_id = ? AND valid_from <= ? AND (valid_to IS NULL OR valid_to > ?)", operatorID, t, t).
		Find(&as).Error
	return as, err
}
