package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aditpras/civil-registry-api/internal/models"
	appErrors "github.com/aditpras/civil-registry-api/pkg/errors"
	"github.com/aditpras/civil-registry-api/pkg/licensenumber"
)

type licenseRepository interface {
	Create(ctx context.Context, license *models.License) error
	FindByID(ctx context.Context, id string) (*models.License, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	HolderClassExists(ctx context.Context, nik string, class models.LicenseClass, excludeID string) (bool, error)
	MaxSequence(ctx context.Context, basePattern string) (int, error)
	List(ctx context.Context, filter models.LicenseFilter) ([]models.License, int, error)
	Update(ctx context.Context, license *models.License) error
	Delete(ctx context.Context, id string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type recordCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LicenseConfig tunes license issuance behavior.
type LicenseConfig struct {
	// ValidityYears is applied when the request omits an expiry date.
	ValidityYears int
	CacheTTL      time.Duration
}

// LicenseService implements driving-license issuance and management.
// Numbers are derived from holder identity data; the only mutable input
// is the per-prefix sequence, which this service allocates.
type LicenseService struct {
	repo      licenseRepository
	audit     auditRecorder
	cache     recordCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    LicenseConfig
}

// NewLicenseService constructs a LicenseService instance. The cache is
// optional; pass nil to disable read-through caching.
func NewLicenseService(repo licenseRepository, audit auditRecorder, cache recordCache, validate *validator.Validate, logger *zap.Logger, config LicenseConfig) *LicenseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.ValidityYears <= 0 {
		config.ValidityYears = 5
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &LicenseService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger, config: config}
}

// WithMetrics attaches cache hit/miss instrumentation.
func (s *LicenseService) WithMetrics(m *MetricsService) *LicenseService {
	s.metrics = m
	return s
}

// Issue allocates a number and creates a license. Allocation is
// optimistic: the sequence comes from an advisory MAX query and a
// uniqueness re-check rejects the rare concurrent duplicate.
func (s *LicenseService) Issue(ctx context.Context, req models.IssueLicenseRequest) (*models.License, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid license payload")
	}

	if err := s.checkClassAge(req.Class, req.BirthDate); err != nil {
		return nil, err
	}

	taken, err := s.repo.HolderClassExists(ctx, req.NIK, req.Class, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing license")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("holder %s already has a class %s license", req.NIK, req.Class))
	}

	number, err := s.allocateNumber(ctx, req.NIK, licensenumber.Sex(req.Sex), req.BirthDate)
	if err != nil {
		return nil, err
	}

	expiry := req.ExpiryDate
	if expiry.IsZero() {
		expiry = time.Now().UTC().AddDate(s.config.ValidityYears, 0, 0)
	}

	license := &models.License{
		Number:     number,
		FullName:   req.FullName,
		NIK:        req.NIK,
		RT:         req.RT,
		RW:         req.RW,
		District:   req.District,
		Regency:    req.Regency,
		Province:   req.Province,
		Class:      req.Class,
		ExpiryDate: expiry,
		Sex:        req.Sex,
		BloodType:  req.BloodType,
		BirthPlace: req.BirthPlace,
		BirthDate:  req.BirthDate,
		Occupation: req.Occupation,
		PhotoPath:  req.PhotoPath,
		IssuerID:   req.IssuerID,
	}

	if err := s.repo.Create(ctx, license); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create license")
	}

	s.recordLicenseAudit(ctx, req.IssuerID, models.AuditActionLicenseIssue, license.ID, nil, license)

	return license, nil
}

// Get returns a license by id, served from cache when possible.
func (s *LicenseService) Get(ctx context.Context, id string) (*models.License, error) {
	if s.cache != nil {
		var cached models.License
		if err := s.cache.Get(ctx, licenseCacheKey(id), &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("license cache read failed", zap.String("id", id), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	license, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "license not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load license")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, licenseCacheKey(id), license, s.config.CacheTTL); err != nil {
			s.logger.Warn("license cache write failed", zap.String("id", id), zap.Error(err))
		}
	}

	return license, nil
}

// List returns licenses matching the filter with pagination metadata.
func (s *LicenseService) List(ctx context.Context, filter models.LicenseFilter) ([]models.License, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	licenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list licenses")
	}

	return licenses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update modifies an existing license. The license number is immutable:
// even when identity fields change, the number issued at creation stays.
func (s *LicenseService) Update(ctx context.Context, id string, actorID string, req models.UpdateLicenseRequest) (*models.License, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid license payload")
	}

	if err := s.checkClassAge(req.Class, req.BirthDate); err != nil {
		return nil, err
	}

	license, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "license not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load license")
	}

	taken, err := s.repo.HolderClassExists(ctx, req.NIK, req.Class, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing license")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("holder %s already has a class %s license", req.NIK, req.Class))
	}

	before := *license

	license.FullName = req.FullName
	license.NIK = req.NIK
	license.RT = req.RT
	license.RW = req.RW
	license.District = req.District
	license.Regency = req.Regency
	license.Province = req.Province
	license.Class = req.Class
	license.Sex = req.Sex
	license.BloodType = req.BloodType
	license.BirthPlace = req.BirthPlace
	license.BirthDate = req.BirthDate
	license.Occupation = req.Occupation
	license.PhotoPath = req.PhotoPath
	if !req.ExpiryDate.IsZero() {
		license.ExpiryDate = req.ExpiryDate
	}

	if err := s.repo.Update(ctx, license); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update license")
	}

	s.invalidate(ctx, id)
	s.recordLicenseAudit(ctx, actorID, models.AuditActionLicenseUpdate, id, &before, license)

	return license, nil
}

// Delete removes a license record.
func (s *LicenseService) Delete(ctx context.Context, id string, actorID string) error {
	license, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "license not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load license")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete license")
	}

	s.invalidate(ctx, id)
	s.recordLicenseAudit(ctx, actorID, models.AuditActionLicenseDelete, id, license, nil)

	return nil
}

// DecodeNumber exposes the codec as a read-only breakdown of a number.
func (s *LicenseService) DecodeNumber(number string) (*models.LicenseNumberBreakdown, error) {
	parsed, err := licensenumber.Decode(number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed license number")
	}

	return &models.LicenseNumberBreakdown{
		Number:     number,
		Region:     parsed.Region,
		BirthDay:   parsed.Day,
		BirthMonth: parsed.Month,
		BirthYear:  parsed.BirthYear(),
		Sex:        models.Sex(parsed.Sex),
		Sequence:   parsed.Sequence,
	}, nil
}

// allocateNumber picks the next sequence for the holder's base pattern
// and re-checks uniqueness after encoding. A concurrent allocation of
// the same sequence surfaces as an internal error rather than a silent
// duplicate.
func (s *LicenseService) allocateNumber(ctx context.Context, nik string, sex licensenumber.Sex, birthDate time.Time) (string, error) {
	prefix, err := licensenumber.BasePattern(nik, sex, birthDate)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot derive license number")
	}

	max, err := s.repo.MaxSequence(ctx, prefix)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate sequence")
	}
	if max >= licensenumber.MaxSequence {
		return "", appErrors.Clone(appErrors.ErrCapacityExhausted, fmt.Sprintf("no sequence left for prefix %s", prefix))
	}

	number, err := licensenumber.Encode(nik, sex, birthDate, max+1)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot derive license number")
	}

	exists, err := s.repo.NumberExists(ctx, number)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify license number")
	}
	if exists {
		return "", appErrors.Clone(appErrors.ErrInternal, "license number collision, please retry")
	}

	return number, nil
}

// checkClassAge enforces the statutory minimum age for the class at the
// time of the call.
func (s *LicenseService) checkClassAge(class models.LicenseClass, birthDate time.Time) error {
	minAge, ok := class.MinAge()
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown license class %q", class))
	}

	age := holderAge(birthDate, time.Now().UTC())
	if age < minAge {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("holder age %d is below the minimum %d for class %s", age, minAge, class))
	}

	return nil
}

func (s *LicenseService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, licenseCacheKey(id)); err != nil {
		s.logger.Warn("license cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *LicenseService) recordLicenseAudit(ctx context.Context, actorID, action, resourceID string, before, after *models.License) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "licenses",
		ResourceID: &resourceID,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if before != nil {
		if raw, err := json.Marshal(before); err == nil {
			log.OldValues = raw
		}
	}
	if after != nil {
		if raw, err := json.Marshal(after); err == nil {
			log.NewValues = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func licenseCacheKey(id string) string {
	return "license:id:" + id
}

// holderAge computes whole years between birth and ref.
func holderAge(birth, ref time.Time) int {
	age := ref.Year() - birth.Year()
	anniversary := time.Date(ref.Year(), birth.Month(), birth.Day(), 0, 0, 0, 0, time.UTC)
	if ref.Before(anniversary) {
		age--
	}
	return age
}
