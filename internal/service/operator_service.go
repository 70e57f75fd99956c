package service

import (
	"context"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
	"parkcore/internal/model"
	"parkcore/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// OperatorService administers operators, their assignments and the sectors
// they are assigned to.
type OperatorService interface {
	Create(ctx context.Context, req dto.CreateOperatorRequest) (*dto.OperatorResponse, error)
	List(ctx context.Context) ([]dto.OperatorResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	CreateAssignment(ctx context.Context, operatorID uuid.UUID, req dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error)
	ListAssignments(ctx context.Context, operatorID uuid.UUID) ([]dto.AssignmentResponse, error)
	CreateSector(ctx context.Context, req dto.CreateSectorRequest) (*dto.SectorResponse, error)
	ListSectors(ctx context.Context) ([]dto.SectorResponse, error)
}

type operatorService struct {
	repo    repository.OperatorRepository
	sectors repository.SectorRepository
	quota   QuotaChecker
	now     func() time.Time
}

func NewOperatorService(repo repository.OperatorRepository, sectors repository.SectorRepository, quota QuotaChecker) OperatorService {
	return &operatorService{repo: repo, sectors: sectors, quota: quota, now: time.Now}
}

func (s *operatorService) Create(ctx context.Context, req dto.CreateOperatorRequest) (*dto.OperatorResponse, error) {
	if err := checkQuota(ctx, s.quota, infra.ResourceOperator); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	op := &model.Operator{
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, op); err != nil {
		return nil, err
	}
	log.Info().Str("operator_id", op.ID.String()).Str("role", op.Role).Msg("operator created")
	resp := toOperatorResponse(op)
	return &resp, nil
}

func (s *operatorService) List(ctx context.Context) ([]dto.OperatorResponse, error) {
	ops, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.OperatorResponse, len(ops))
	for i := range ops {
		resp[i] = toOperatorResponse(&ops[i])
	}
	return resp, nil
}

func (s *operatorService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, false)
}

func (s *operatorService) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetActive(ctx, id, true)
}

func (s *operatorService) CreateAssignment(ctx context.Context, operatorID uuid.UUID, req dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error) {
	sectorID, err := parseID("sector_id", req.SectorID)
	if err != nil {
		return nil, err
	}
	streetID, err := parseOptionalID("street_id", req.StreetID)
	if err != nil {
		return nil, err
	}
	from, err := parseTime("valid_from", req.ValidFrom, s.now())
	if err != nil {
		return nil, err
	}
	var to *time.Time
	if req.ValidTo != nil && *req.ValidTo != "" {
		t, err := parseTime("valid_to", *req.ValidTo, time.Time{})
		if err != nil {
			return nil, err
		}
		if !t.After(from) {
			return nil, apperr.ErrInvalidInput.WithDetail("valid_to must be after valid_from")
		}
		to = &t
	}

	if _, err := s.repo.FindByID(ctx, operatorID); err != nil {
		return nil, err
	}
	if _, err := s.sectors.FindByID(ctx, sectorID); err != nil {
		return nil, err
	}
	if streetID != nil {
		street, err := s.sectors.FindStreet(ctx, *streetID)
		if err != nil {
			return nil, err
		}
		if street.SectorID != sectorID {
			return nil, apperr.ErrInvalidInput.WithDetail("street %s does not belong to sector %s", street.ID, sectorID)
		}
	}
	if err := checkQuota(ctx, s.quota, infra.ResourceOperator); err != nil {
		return nil, err
	}

	a := &model.OperatorAssignment{
		OperatorID: operatorID,
		SectorID:   sectorID,
		StreetID:   streetID,
		ValidFrom:  from,
		ValidTo:    to,
	}
	if err := s.repo.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	resp := toAssignmentResponse(a)
	return &resp, nil
}

// ListAssignments returns the assignments valid now.
func (s *operatorService) ListAssignments(ctx context.Context, operatorID uuid.UUID) ([]dto.AssignmentResponse, error) {
	as, err := s.repo.ListAssignments(ctx, operatorID, s.now())
	if err != nil {
		return nil, err
	}
	resp := make([]dto.AssignmentResponse, len(as))
	for i := range as {
		resp[i] = toAssignmentResponse(&as[i])
	}
	return resp, nil
}

func (s *operatorService) CreateSector(ctx context.Context, req dto.CreateSectorRequest) (*dto.SectorResponse, error) {
	sector := &model.Sector{Name: req.Name, Active: true}
	if err := s.sectors.Create(ctx, sector); err != nil {
		return nil, err
	}
	resp := &dto.SectorResponse{ID: sector.ID.String(), Name: sector.Name}
	for _, name := range req.Streets {
		st := &model.Street{SectorID: sector.ID, Name: name}
		if err := s.sectors.CreateStreet(ctx, st); err != nil {
			return nil, err
		}
		resp.Streets = append(resp.Streets, dto.StreetResponse{ID: st.ID.String(), Name: st.Name})
	}
	return resp, nil
}

func (s *operatorService) ListSectors(ctx context.Context) ([]dto.SectorResponse, error) {
	ss, err := s.sectors.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.SectorResponse, len(ss))
	for i, sec := range ss {
		resp[i] = dto.SectorResponse{ID: sec.ID.String(), Name: sec.Name}
	}
	return resp, nil
}

func toAssignmentResponse(a *model.OperatorAssignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:         a.ID.String(),
		OperatorID: a.OperatorID.String(),
		SectorID:   a.SectorID.String(),
		StreetID:   idPtr(a.StreetID),
		ValidFrom:  fmtTime(a.ValidFrom),
		ValidTo:    fmtTimePtr(a.ValidTo),
	}
}
