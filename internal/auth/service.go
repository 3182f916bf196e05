package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/internal/users"
	pkgauth "github.com/bundlehubgh/bundlehub-backend/pkg/auth"
	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
}

// Service issues sessions for registration and login and handles the admin
// role-upgrade action.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	Profile(ctx context.Context, userID uuid.UUID) (*users.View, error)
	PromoteToAgent(ctx context.Context, userID uuid.UUID) (*users.View, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
}

type service struct {
	users       userRepository
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &service{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
		now:         time.Now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, errors.New(errors.CodeValidation, "email is required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New(errors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: passwordHash,
		Role:         enums.UserRoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, errors.New(errors.CodeConflict, "email already registered")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "create user")
	}

	return s.mintSession(user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, errors.New(errors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, errors.New(errors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.mintSession(user)
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*users.View, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "lookup user")
	}
	view := users.FromModel(user)
	return &view, nil
}

// PromoteToAgent upgrades a user account to the agent role, unlocking the
// wallet. Admin accounts are left untouched.
func (s *service) PromoteToAgent(ctx context.Context, userID uuid.UUID) (*users.View, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "lookup user")
	}
	if user.Role == enums.UserRoleAdmin {
		return nil, errors.New(errors.CodeConflict, "admin accounts cannot be downgraded to agent")
	}
	if user.Role != enums.UserRoleAgent {
		if err := s.users.UpdateRole(ctx, userID, enums.UserRoleAgent); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "update role")
		}
		user.Role = enums.UserRoleAgent
	}
	view := users.FromModel(user)
	return &view, nil
}

func (s *service) mintSession(user *models.User) (*Session, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "mint jwt")
	}
	return &Session{AccessToken: token, User: users.FromModel(user)}, nil
}
