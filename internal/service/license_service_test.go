package service

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/civil-registry-api/internal/models"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
)

type mockLicenseRepo struct {
	licenses    map[string]*models.License
	findCalls   int
	findErr     error
	maxOverride *int
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{licenses: make(map[string]*models.License)}
}

func (m *mockLicenseRepo) Create(ctx context.Context, license *models.License) error {
	if license.ID == "" {
		license.ID = "lic-" + strconv.Itoa(len(m.licenses)+1)
	}
	stored := *license
	m.licenses[license.ID] = &stored
	return nil
}

func (m *mockLicenseRepo) FindByID(ctx context.Context, id string) (*models.License, error) {
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if l, ok := m.licenses[id]; ok {
		found := *l
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLicenseRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	for _, l := range m.licenses {
		if l.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLicenseRepo) HolderClassExists(ctx context.Context, nik string, class models.LicenseClass, excludeID string) (bool, error) {
	for _, l := range m.licenses {
		if l.NIK == nik && l.Class == class && l.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLicenseRepo) MaxSequence(ctx context.Context, basePattern string) (int, error) {
	if m.maxOverride != nil {
		return *m.maxOverride, nil
	}
	max := 0
	for _, l := range m.licenses {
		if strings.HasPrefix(l.Number, basePattern) {
			seq, _ := strconv.Atoi(l.Number[12:])
			if seq > max {
				max = seq
			}
		}
	}
	return max, nil
}

func (m *mockLicenseRepo) List(ctx context.Context, filter models.LicenseFilter) ([]models.License, int, error) {
	var out []models.License
	for _, l := range m.licenses {
		if filter.Class != nil && l.Class != *filter.Class {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *mockLicenseRepo) Update(ctx context.Context, license *models.License) error {
	stored := *license
	m.licenses[license.ID] = &stored
	return nil
}

func (m *mockLicenseRepo) Delete(ctx context.Context, id string) error {
	delete(m.licenses, id)
	return nil
}

type mockAudit struct {
	logs []*models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type mockCache struct {
	entries map[string][]byte
	deleted []string
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	license := dest.(*models.License)
	license.ID = string(raw)
	return nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = []byte(value.(*models.License).ID)
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newLicenseService(repo *mockLicenseRepo, audit *mockAudit, cache recordCache) *LicenseService {
	return NewLicenseService(repo, audit, cache, validator.New(), zap.NewNop(), LicenseConfig{})
}

func issueRequest() models.IssueLicenseRequest {
	return models.IssueLicenseRequest{
		FullName:   "Budi Santoso",
		NIK:        "3201011501900001",
		RT:         "001",
		RW:         "002",
		District:   "Bogor Utara",
		Regency:    "Bogor",
		Province:   "Jawa Barat",
		Class:      models.ClassC,
		Sex:        models.SexMale,
		BloodType:  "O",
		BirthPlace: "Bogor",
		BirthDate:  time.Date(1990, time.January, 15, 0, 0, 0, 0, time.UTC),
		Occupation: "Karyawan",
		IssuerID:   "user-1",
	}
}

func TestLicenseServiceIssueFirstSequence(t *testing.T) {
	repo := newMockLicenseRepo()
	audit := &mockAudit{}
	svc := newLicenseService(repo, audit, nil)

	license, err := svc.Issue(context.Background(), issueRequest())
	require.NoError(t, err)
	assert.Equal(t, "3201011501900001", license.Number)
	assert.False(t, license.ExpiryDate.IsZero())
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLicenseIssue, audit.logs[0].Action)
}

func TestLicenseServiceIssueIncrementsSequencePerPrefix(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newLicenseService(repo, &mockAudit{}, nil)

	first, err := svc.Issue(context.Background(), issueRequest())
	require.NoError(t, err)

	second := issueRequest()
	second.NIK = "3201011501900002"
	second.Class = models.ClassA
	got, err := svc.Issue(context.Background(), second)
	require.NoError(t, err)

	// Same region, birth date and sex share a prefix, so the sequence
	// advances.
	assert.Equal(t, first.Number[:12], got.Number[:12])
	assert.Equal(t, "0001", first.Number[12:])
	assert.Equal(t, "0002", got.Number[12:])
}

func TestLicenseServiceIssueUnderageHolder(t *testing.T) {
	svc := newLicenseService(newMockLicenseRepo(), &mockAudit{}, nil)

	req := issueRequest()
	req.Class = models.ClassBIIUmum // minimum 23
	req.BirthDate = time.Now().UTC().AddDate(-20, 0, 0)

	_, err := svc.Issue(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "20")
	assert.Contains(t, appErr.Message, "23")
}

func TestLicenseServiceIssueDuplicateHolderClass(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newLicenseService(repo, &mockAudit{}, nil)

	_, err := svc.Issue(context.Background(), issueRequest())
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), issueRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLicenseServiceIssueCapacityExhausted(t *testing.T) {
	repo := newMockLicenseRepo()
	max := 9999
	repo.maxOverride = &max
	svc := newLicenseService(repo, &mockAudit{}, nil)

	_, err := svc.Issue(context.Background(), issueRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExhausted.Code, appErrors.FromError(err).Code)
}

func TestLicenseServiceIssueCollisionAfterAllocation(t *testing.T) {
	repo := newMockLicenseRepo()
	// A record with sequence 0001 exists but MaxSequence reports stale
	// zero, as a concurrent writer would produce.
	repo.licenses["lic-x"] = &models.License{ID: "lic-x", Number: "3201011501900001", NIK: "9999999999999999", Class: models.ClassA}
	zero := 0
	repo.maxOverride = &zero
	svc := newLicenseService(repo, &mockAudit{}, nil)

	_, err := svc.Issue(context.Background(), issueRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestLicenseServiceUpdateKeepsNumber(t *testing.T) {
	repo := newMockLicenseRepo()
	svc := newLicenseService(repo, &mockAudit{}, nil)

	license, err := svc.Issue(context.Background(), issueRequest())
	require.NoError(t, err)

	update := models.UpdateLicenseRequest{
		FullName:   "Budi Santoso Baru",
		NIK:        license.NIK,
		RT:         "005",
		RW:         "006",
		District:   license.District,
		Regency:    license.Regency,
		Province:   license.Province,
		Class:      license.Class,
		Sex:        license.Sex,
		BirthPlace: license.BirthPlace,
		BirthDate:  license.BirthDate,
	}
	updated, err := svc.Update(context.Background(), license.ID, "user-2", update)
	require.NoError(t, err)
	assert.Equal(t, license.Number, updated.Number)
	assert.Equal(t, "Budi Santoso Baru", updated.FullName)
}

func TestLicenseServiceGetUsesCache(t *testing.T) {
	repo := newMockLicenseRepo()
	cache := &mockCache{}
	svc := newLicenseService(repo, &mockAudit{}, cache)

	license, err := svc.Issue(context.Background(), issueRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), license.ID)
	require.NoError(t, err)
	callsAfterMiss := repo.findCalls

	cached, err := svc.Get(context.Background(), license.ID)
	require.NoError(t, err)
	assert.Equal(t, license.ID, cached.ID)
	assert.Equal(t, callsAfterMiss, repo.findCalls)
}

func TestLicenseServiceDeleteInvalidatesCache(t *testing.T) {
	repo := newMockLicenseRepo()
	cache := &mockCache{}
	svc := newLicenseService(repo, &mockAudit{}, cache)

	license, err := svc.Issue(context.Background(), issueRequest())
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), license.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), license.ID, "user-1"))
	assert.Contains(t, cache.deleted, "license:id:"+license.ID)

	_, err = svc.Get(context.Background(), license.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLicenseServiceDecodeNumber(t *testing.T) {
	svc := newLicenseService(newMockLicenseRepo(), &mockAudit{}, nil)

	breakdown, err := svc.DecodeNumber("3171237112040042")
	require.NoError(t, err)
	assert.Equal(t, "317123", breakdown.Region)
	assert.Equal(t, 31, breakdown.BirthDay)
	assert.Equal(t, 12, breakdown.BirthMonth)
	assert.Equal(t, 2004, breakdown.BirthYear)
	assert.Equal(t, models.SexFemale, breakdown.Sex)
	assert.Equal(t, 42, breakdown.Sequence)

	_, err = svc.DecodeNumber("12345")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
