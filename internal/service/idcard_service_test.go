package service

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/civil-registry-api/internal/models"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
)

type mockIDCardRepo struct {
	cards map[string]*models.IDCard
}

func newMockIDCardRepo() *mockIDCardRepo {
	return &mockIDCardRepo{cards: make(map[string]*models.IDCard)}
}

func (m *mockIDCardRepo) Create(ctx context.Context, card *models.IDCard) error {
	if card.ID == "" {
		card.ID = "card-" + strconv.Itoa(len(m.cards)+1)
	}
	stored := *card
	m.cards[card.ID] = &stored
	return nil
}

func (m *mockIDCardRepo) FindByID(ctx context.Context, id string) (*models.IDCard, error) {
	if c, ok := m.cards[id]; ok {
		found := *c
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIDCardRepo) FindByNIK(ctx context.Context, nik string) (*models.IDCard, error) {
	for _, c := range m.cards {
		if c.NIK == nik {
			found := *c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockIDCardRepo) NIKExists(ctx context.Context, nik string, excludeID string) (bool, error) {
	for _, c := range m.cards {
		if c.NIK == nik && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockIDCardRepo) List(ctx context.Context, filter models.IDCardFilter) ([]models.IDCard, int, error) {
	var out []models.IDCard
	for _, c := range m.cards {
		if filter.Religion != nil && c.Religion != *filter.Religion {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockIDCardRepo) Update(ctx context.Context, card *models.IDCard) error {
	stored := *card
	m.cards[card.ID] = &stored
	return nil
}

func (m *mockIDCardRepo) Delete(ctx context.Context, id string) error {
	delete(m.cards, id)
	return nil
}

func newIDCardService(repo *mockIDCardRepo) *IDCardService {
	return NewIDCardService(repo, &mockAudit{}, nil, validator.New(), zap.NewNop(), IDCardConfig{})
}

func createCardRequest() models.CreateIDCardRequest {
	return models.CreateIDCardRequest{
		NIK:           "3201011501900001",
		Address:       "Jl. Merdeka No. 1",
		BirthPlace:    "Bogor",
		BirthDate:     time.Date(1990, time.January, 15, 0, 0, 0, 0, time.UTC),
		Sex:           models.SexMale,
		Religion:      models.ReligionIslam,
		MaritalStatus: models.MaritalMarried,
		BloodType:     models.BloodO,
		Occupation:    "Karyawan",
		IssuerID:      "user-1",
	}
}

func TestIDCardServiceCreateAndGetByNIK(t *testing.T) {
	repo := newMockIDCardRepo()
	svc := newIDCardService(repo)

	card, err := svc.Create(context.Background(), createCardRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "WNI", card.Nationality)

	found, err := svc.GetByNIK(context.Background(), card.NIK)
	require.NoError(t, err)
	assert.Equal(t, card.ID, found.ID)
}

func TestIDCardServiceCreateDuplicateNIK(t *testing.T) {
	repo := newMockIDCardRepo()
	svc := newIDCardService(repo)

	_, err := svc.Create(context.Background(), createCardRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createCardRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestIDCardServiceCreateRejectsUnknownEnum(t *testing.T) {
	svc := newIDCardService(newMockIDCardRepo())

	req := createCardRequest()
	req.Religion = "jedi"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIDCardServiceUpdateKeepsUniqueNIK(t *testing.T) {
	repo := newMockIDCardRepo()
	svc := newIDCardService(repo)

	first, err := svc.Create(context.Background(), createCardRequest())
	require.NoError(t, err)

	secondReq := createCardRequest()
	secondReq.NIK = "3201011501900002"
	second, err := svc.Create(context.Background(), secondReq)
	require.NoError(t, err)

	update := models.UpdateIDCardRequest{
		NIK:           first.NIK,
		Address:       second.Address,
		BirthPlace:    second.BirthPlace,
		BirthDate:     second.BirthDate,
		Sex:           second.Sex,
		Religion:      second.Religion,
		MaritalStatus: second.MaritalStatus,
		BloodType:     second.BloodType,
	}
	_, err = svc.Update(context.Background(), second.ID, "user-1", update)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Re-submitting a card's own NIK is not a conflict.
	update.NIK = second.NIK
	updated, err := svc.Update(context.Background(), second.ID, "user-1", update)
	require.NoError(t, err)
	assert.Equal(t, second.NIK, updated.NIK)
}

func TestIDCardServiceDelete(t *testing.T) {
	repo := newMockIDCardRepo()
	svc := newIDCardService(repo)

	card, err := svc.Create(context.Background(), createCardRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), card.ID, "user-1"))

	_, err = svc.Get(context.Background(), card.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIDCardServiceListFiltersByReligion(t *testing.T) {
	repo := newMockIDCardRepo()
	svc := newIDCardService(repo)

	_, err := svc.Create(context.Background(), createCardRequest())
	require.NoError(t, err)

	other := createCardRequest()
	other.NIK = "3201011501900002"
	other.Religion = models.ReligionHindu
	_, err = svc.Create(context.Background(), other)
	require.NoError(t, err)

	religion := models.ReligionHindu
	cards, pagination, err := svc.List(context.Background(), models.IDCardFilter{Religion: &religion})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, models.ReligionHindu, cards[0].Religion)
	assert.Equal(t, 1, pagination.TotalCount)
}
