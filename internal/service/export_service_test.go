package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aditpras/civil-registry-api/internal/models"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
	"github.com/aditpras/civil-registry-api/pkg/storage"
)

func newExportFixture(t *testing.T) (*ExportService, *mockLicenseRepo) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	repo := newMockLicenseRepo()
	svc := NewExportService(repo, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil)
	return svc, repo
}

func storedLicense() *models.License {
	return &models.License{
		ID:         "lic-1",
		Number:     "3201011501900001",
		FullName:   "Budi Santoso",
		NIK:        "3201011501900001",
		RT:         "001",
		RW:         "002",
		District:   "Bogor Utara",
		Regency:    "Bogor",
		Province:   "Jawa Barat",
		Class:      models.ClassC,
		ExpiryDate: time.Date(2030, time.January, 15, 0, 0, 0, 0, time.UTC),
		Sex:        models.SexMale,
		BloodType:  "O",
		BirthPlace: "Bogor",
		BirthDate:  time.Date(1990, time.January, 15, 0, 0, 0, 0, time.UTC),
		Occupation: "Karyawan",
	}
}

func TestExportServiceGenerateCardAndDownload(t *testing.T) {
	svc, repo := newExportFixture(t)
	repo.licenses["lic-1"] = storedLicense()

	result, err := svc.GenerateCard(context.Background(), "lic-1")
	require.NoError(t, err)
	assert.Equal(t, "lic-1", result.LicenseID)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	assert.True(t, result.ExpiresAt.After(time.Now()))

	file, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()

	header := make([]byte, 5)
	_, err = io.ReadFull(file, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(header))
}

func TestExportServiceGenerateCardMissingLicense(t *testing.T) {
	svc, _ := newExportFixture(t)

	_, err := svc.GenerateCard(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGenerateCardStoreFailure(t *testing.T) {
	svc, repo := newExportFixture(t)
	repo.findErr = errors.New("connection reset")

	// A failing lookup is a server-side fault, not a missing record.
	_, err := svc.GenerateCard(context.Background(), "lic-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestExportServiceOpenRejectsTamperedToken(t *testing.T) {
	svc, repo := newExportFixture(t)
	repo.licenses["lic-1"] = storedLicense()

	result, err := svc.GenerateCard(context.Background(), "lic-1")
	require.NoError(t, err)

	_, err = svc.Open(result.Token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportServiceCleanupRemovesStaleFiles(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	repo := newMockLicenseRepo()
	repo.licenses["lic-1"] = storedLicense()
	// Zero-ish TTL makes freshly written files immediately stale.
	svc := NewExportService(repo, store, signer, ExportConfig{ResultTTL: time.Nanosecond}, zap.NewNop(), nil)

	_, err = svc.GenerateCard(context.Background(), "lic-1")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
