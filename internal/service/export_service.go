package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aditpras/civil-registry-api/internal/models"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
	"github.com/aditpras/civil-registry-api/pkg/export"
	"github.com/aditpras/civil-registry-api/pkg/storage"
)

type exportLicenseRepository interface {
	FindByID(ctx context.Context, id string) (*models.License, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type cardRenderer interface {
	Render(title string, fields []export.CardField) ([]byte, error)
}

// ExportConfig tunes card export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	LicenseID    string    `json:"license_id"`
	RelativePath string    `json:"-"`
	Token        string    `json:"-"`
	URL          string    `json:"url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExportService renders printable license-card PDFs and hands out
// signed, short-lived download URLs for them.
type ExportService struct {
	licenses exportLicenseRepository
	storage  fileStorage
	card     cardRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(licenses exportLicenseRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, card cardRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if card == nil {
		card = export.NewCardPDF()
	}
	return &ExportService{
		licenses: licenses,
		storage:  store,
		card:     card,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// GenerateCard renders the license card and stores the PDF, returning a
// signed URL for download.
func (s *ExportService) GenerateCard(ctx context.Context, licenseID string) (*ExportResult, error) {
	license, err := s.licenses.FindByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "license not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load license")
	}

	payload, err := s.card.Render("Surat Izin Mengemudi", cardFields(license))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render license card")
	}

	filename := fmt.Sprintf("licenses/%s-%d.pdf", license.ID, time.Now().UTC().Unix())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store license card")
	}

	token, expiresAt, err := s.signer.Generate(license.ID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		LicenseID:    license.ID,
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns a handle to the file.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	return file, nil
}

// Cleanup removes stored exports older than the result TTL. Wired to a
// background ticker.
func (s *ExportService) Cleanup() (int, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("stale exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

func cardFields(license *models.License) []export.CardField {
	return []export.CardField{
		{Label: "Nomor SIM", Value: license.Number},
		{Label: "Nama Lengkap", Value: license.FullName},
		{Label: "NIK", Value: license.NIK},
		{Label: "Golongan", Value: string(license.Class)},
		{Label: "Tempat / Tanggal Lahir", Value: fmt.Sprintf("%s, %s", license.BirthPlace, license.BirthDate.Format("02-01-2006"))},
		{Label: "Jenis Kelamin", Value: string(license.Sex)},
		{Label: "Golongan Darah", Value: license.BloodType},
		{Label: "Alamat", Value: fmt.Sprintf("RT %s RW %s, %s, %s, %s", license.RT, license.RW, license.District, license.Regency, license.Province)},
		{Label: "Pekerjaan", Value: license.Occupation},
		{Label: "Berlaku Hingga", Value: license.ExpiryDate.Format("02-01-2006")},
	}
}
