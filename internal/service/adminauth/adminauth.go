package adminauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

const (
	defaultTokenTTL      = 1 * time.Hour
	defaultSigningMethod = "HS256"

	scopeAdmin = "admin"
)

type adminClaims struct {
	jwt.RegisteredClaims
	AdminID uuid.UUID `json:"aid"`
	Scope   string    `json:"scope"`
}

type Config struct {
	// Secret key to sign admin tokens
	// Required to be set
	SecretKey string

	// JWT MAC algorithm, default HS256
	Alg string

	// Token lifetime, default 1h
	TokenTTL time.Duration

	// Password hasher, default bcrypt
	Hasher PasswordHasher
}

// Service authenticates admins and verifies reviewer capability.
// Authorization is decided here, server side, from the admins table: no
// client supplied flag is ever trusted.
type Service struct {
	key       string
	alg       jwt.SigningMethod
	ttl       time.Duration
	hasher    PasswordHasher
	adminRepo repository.AdminRepo
}

func NewService(cfg Config, adminRepo repository.AdminRepo) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Hasher == nil {
		cfg.Hasher = DefaultHasher
	}

	return &Service{
		key:       cfg.SecretKey,
		alg:       jwt.GetSigningMethod(cfg.Alg),
		ttl:       cfg.TokenTTL,
		hasher:    cfg.Hasher,
		adminRepo: adminRepo,
	}, nil
}

// Login checks credentials and issues a short lived admin token
func (s *Service) Login(ctx context.Context, username string, password string) (models.IssuedToken, error) {
	var token models.IssuedToken

	admin, err := s.adminRepo.GetAdminByUsername(ctx, username)
	if err != nil {
		// Same error for unknown admin and bad password
		return token, apperrors.ErrUnauthorized
	}

	if err := s.hasher.Compare(admin.HashedPassword, password); err != nil {
		return token, apperrors.ErrUnauthorized
	}

	return s.issue(admin)
}

func (s *Service) issue(admin models.Admin) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(
		s.alg,
		adminClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			AdminID: admin.ID,
			Scope:   scopeAdmin,
		},
	)

	signed, err := token.SignedString([]byte(s.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing admin token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// VerifyToken parses an admin token and re-checks the reviewer capability
// against the admins table
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (models.Admin, error) {
	var claims adminClaims

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(s.key), nil },
		jwt.WithValidMethods([]string{s.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Admin{}, apperrors.ErrUnauthorized
	}

	if claims.Scope != scopeAdmin {
		return models.Admin{}, apperrors.ErrUnauthorized
	}

	admin, err := s.adminRepo.GetAdminByID(ctx, claims.AdminID)
	if err != nil {
		return models.Admin{}, apperrors.ErrUnauthorized
	}

	return admin, nil
}

// Auth authenticates the admin behind an http request
func (s *Service) Auth(ctx context.Context, r *http.Request) (models.Admin, error) {
	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return models.Admin{}, apperrors.ErrUnauthorized
	}

	return s.VerifyToken(ctx, tokenString)
}

// EnsureAdmin creates the admin if it does not exist yet.
// Used at startup to bootstrap the reviewer configured via environment.
func (s *Service) EnsureAdmin(ctx context.Context, username string, password string) (models.Admin, error) {
	admin, err := s.adminRepo.GetAdminByUsername(ctx, username)
	switch {
	case err == nil:
		return admin, nil
	case errors.Is(err, apperrors.ErrAdminNotFound):
		// create below
	default:
		return admin, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return admin, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	admin, err = s.adminRepo.CreateAdmin(ctx, username, hash)
	if errors.Is(err, apperrors.ErrAdminAlreadyExists) {
		// Lost the race to a concurrent bootstrap
		return s.adminRepo.GetAdminByUsername(ctx, username)
	}

	return admin, err
}
