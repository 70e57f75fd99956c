package service

import (
	"context"
	"strings"

	"parkcore/internal/apperr"
	"parkcore/internal/dto"
	"parkcore/internal/infra"
)

// IndexSource supplies currency index values. infra.IndexClient implements it.
type IndexSource interface {
	Current(ctx context.Context, code string) (*infra.IndexValue, error)
}

type IndexService interface {
	Current(ctx context.Context, code string) (*dto.IndexValueResponse, error)
}

type indexService struct {
	source IndexSource
}

// NewIndexService wraps source; a nil source reports every lookup as an
// unavailable dependency.
func NewIndexService(source IndexSource) IndexService {
	return &indexService{source: source}
}

func (s *indexService) Current(ctx context.Context, code string) (*dto.IndexValueResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.ErrInvalidInput.WithDetail("index code is required")
	}
	if s.source == nil {
		return nil, apperr.ErrExternalDependency.WithDetail("currency index service is not configured")
	}
	v, err := s.source.Current(ctx, code)
	if err != nil {
		return nil, apperr.ErrExternalDependency.WithDetail("currency index %s", code).Wrap(err)
	}
	return &dto.IndexValueResponse{Code: v.Code, Value: v.Value, Date: v.Date}, nil
}
