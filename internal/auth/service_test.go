package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/bundlehubgh/bundlehub-backend/pkg/auth"
	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: map[string]*models.User{}}
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return gorm.ErrDuplicatedKey
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	for _, user := range s.byEmail {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "bundlehub-test",
		ExpirationMinutes: 60,
	}
}

func newTestService(t *testing.T, repo userRepository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:  repo,
		JWTConfig: testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterIssuesSessionForNewUser(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo)

	session, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Buyer@Example.COM ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if session.User.Email != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %q", session.User.Email)
	}
	if session.User.Role != enums.UserRoleUser {
		t.Fatalf("expected new accounts to start as user, got %s", session.User.Role)
	}
	if session.User.WalletBalance != nil {
		t.Fatal("expected no wallet exposure for plain users")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), session.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != session.User.ID {
		t.Fatal("token subject does not match created user")
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo)

	if _, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "password1"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "password2"})
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterShortPasswordRejected(t *testing.T) {
	svc := newTestService(t, newStubUserRepo())
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.com", Password: "short"})
	if !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo)

	hash, err := security.HashPassword("opensesame", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.byEmail["agent@example.com"] = &models.User{
		ID:           uuid.New(),
		Email:        "agent@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleAgent,
	}

	session, err := svc.Login(context.Background(), LoginRequest{Email: "Agent@Example.com", Password: "opensesame"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.User.Role != enums.UserRoleAgent {
		t.Fatalf("expected agent role, got %s", session.User.Role)
	}
	if session.User.WalletBalance == nil {
		t.Fatal("expected wallet balance on agent view")
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "agent@example.com", Password: "wrong"})
	if !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on bad password, got %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "opensesame"})
	if !errors.IsCode(err, errors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on unknown email, got %v", err)
	}
}

func TestPromoteToAgent(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestService(t, repo)

	session, err := svc.Register(context.Background(), RegisterRequest{Email: "u@b.com", Password: "password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	view, err := svc.PromoteToAgent(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if view.Role != enums.UserRoleAgent {
		t.Fatalf("expected agent role, got %s", view.Role)
	}

	// Promoting again is a no-op.
	view, err = svc.PromoteToAgent(context.Background(), session.User.ID)
	if err != nil {
		t.Fatalf("promote twice: %v", err)
	}
	if view.Role != enums.UserRoleAgent {
		t.Fatalf("expected agent role after replay, got %s", view.Role)
	}

	_, err = svc.PromoteToAgent(context.Background(), uuid.New())
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
