package service

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/civil-registry-api/internal/models"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
)

type mockUserRepo struct {
	users map[string]*models.User
	logs  []*models.AuditLog
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		found := *u
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + strconv.Itoa(len(m.users)+1)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newUserService(repo *mockUserRepo) *UserService {
	return NewUserService(repo, fakeHasher{}, validator.New(), zap.NewNop())
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserService(repo)

	user, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{
		Email:    "baru@registry.go.id",
		Password: "rahasia-negara",
		FullName: "Petugas Baru",
	})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Equal(t, "hashed:rahasia-negara", user.PasswordHash)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.logs[0].Action)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserService(repo)

	req := models.CreateUserRequest{Email: "baru@registry.go.id", Password: "rahasia-negara", FullName: "Petugas Baru"}
	_, err := svc.Create(context.Background(), "admin-1", req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "admin-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateShortPassword(t *testing.T) {
	svc := newUserService(newMockUserRepo())

	_, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{
		Email:    "baru@registry.go.id",
		Password: "pendek",
		FullName: "Petugas Baru",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdateRehashesPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserService(repo)

	user, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{
		Email:    "baru@registry.go.id",
		Password: "rahasia-negara",
		FullName: "Petugas Baru",
	})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), user.ID, "admin-1", models.UpdateUserRequest{
		FullName: "Petugas Diubah",
		Active:   &inactive,
		Password: "rahasia-baru",
	})
	require.NoError(t, err)
	assert.Equal(t, "Petugas Diubah", updated.FullName)
	assert.False(t, updated.Active)
	assert.Equal(t, "hashed:rahasia-baru", updated.PasswordHash)
}

func TestUserServiceDeleteDeactivates(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserService(repo)

	user, err := svc.Create(context.Background(), "admin-1", models.CreateUserRequest{
		Email:    "baru@registry.go.id",
		Password: "rahasia-negara",
		FullName: "Petugas Baru",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), user.ID, "admin-1"))

	got, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestUserServiceDeleteMissingUser(t *testing.T) {
	svc := newUserService(newMockUserRepo())

	err := svc.Delete(context.Background(), "ghost", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
