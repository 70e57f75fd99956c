package service

import (
	"context"
	"time"

	"parkcore/internal/apperr"
	"parkcore/internal/config"
	"parkcore/internal/dto"
	"parkcore/internal/model"
	"parkcore/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.OperatorRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.OperatorRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	op, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.issue(op)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.ErrInvalidToken
	}
	raw, ok := claims["user_id"].(string)
	if !ok {
		return nil, apperr.ErrInvalidToken
	}
	uid, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	op, err := s.repo.FindByID(ctx, uid)
	if err != nil || !op.Active {
		return nil, apperr.ErrInvalidToken.WithDetail("operator not found or inactive")
	}
	return s.issue(op)
}

func (s *authService) issue(op *model.Operator) (*dto.LoginResponse, error) {
	access, err := s.generateToken(op, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(op, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         toOperatorResponse(op),
	}, nil
}

func (s *authService) generateToken(op *model.Operator, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  op.ID.String(),
		"username": op.Username,
		"role":     op.Role,
		"exp":      time.Now().Add(duration).Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
