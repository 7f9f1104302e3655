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
)

type idCardRepository interface {
	Create(ctx context.Context, card *models.IDCard) error
	FindByID(ctx context.Context, id string) (*models.IDCard, error)
	FindByNIK(ctx context.Context, nik string) (*models.IDCard, error)
	NIKExists(ctx context.Context, nik string, excludeID string) (bool, error)
	List(ctx context.Context, filter models.IDCardFilter) ([]models.IDCard, int, error)
	Update(ctx context.Context, card *models.IDCard) error
	Delete(ctx context.Context, id string) error
}

// IDCardConfig tunes identity-card caching.
type IDCardConfig struct {
	CacheTTL time.Duration
}

// IDCardService implements identity-card management. The NIK is the
// natural key: exactly one card may exist per NIK.
type IDCardService struct {
	repo      idCardRepository
	audit     auditRecorder
	cache     recordCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    IDCardConfig
}

// NewIDCardService constructs an IDCardService instance. The cache is
// optional; pass nil to disable read-through caching.
func NewIDCardService(repo idCardRepository, audit auditRecorder, cache recordCache, validate *validator.Validate, logger *zap.Logger, config IDCardConfig) *IDCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &IDCardService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger, config: config}
}

// WithMetrics attaches cache hit/miss instrumentation.
func (s *IDCardService) WithMetrics(m *MetricsService) *IDCardService {
	s.metrics = m
	return s
}

// Create registers a new identity card.
func (s *IDCardService) Create(ctx context.Context, req models.CreateIDCardRequest) (*models.IDCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid id card payload")
	}

	taken, err := s.repo.NIKExists(ctx, req.NIK, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check nik")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("nik %s is already registered", req.NIK))
	}

	card := &models.IDCard{
		NIK:           req.NIK,
		Address:       req.Address,
		BirthPlace:    req.BirthPlace,
		BirthDate:     req.BirthDate,
		Sex:           req.Sex,
		Religion:      req.Religion,
		MaritalStatus: req.MaritalStatus,
		BloodType:     req.BloodType,
		Occupation:    req.Occupation,
		Nationality:   req.Nationality,
		IssuerID:      req.IssuerID,
	}
	if card.Nationality == "" {
		card.Nationality = "WNI"
	}

	if err := s.repo.Create(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create id card")
	}

	s.recordCardAudit(ctx, req.IssuerID, models.AuditActionIDCardCreate, card.ID, nil, card)

	return card, nil
}

// Get returns an identity card by id, served from cache when possible.
func (s *IDCardService) Get(ctx context.Context, id string) (*models.IDCard, error) {
	if s.cache != nil {
		var cached models.IDCard
		if err := s.cache.Get(ctx, idCardCacheKey(id), &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("id card cache read failed", zap.String("id", id), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "id card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load id card")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, idCardCacheKey(id), card, s.config.CacheTTL); err != nil {
			s.logger.Warn("id card cache write failed", zap.String("id", id), zap.Error(err))
		}
	}

	return card, nil
}

// GetByNIK returns an identity card by its NIK.
func (s *IDCardService) GetByNIK(ctx context.Context, nik string) (*models.IDCard, error) {
	card, err := s.repo.FindByNIK(ctx, nik)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "id card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load id card")
	}
	return card, nil
}

// List returns identity cards matching the filter with pagination.
func (s *IDCardService) List(ctx context.Context, filter models.IDCardFilter) ([]models.IDCard, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	cards, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list id cards")
	}

	return cards, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update modifies an existing identity card.
func (s *IDCardService) Update(ctx context.Context, id string, actorID string, req models.UpdateIDCardRequest) (*models.IDCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid id card payload")
	}

	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "id card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load id card")
	}

	taken, err := s.repo.NIKExists(ctx, req.NIK, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check nik")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("nik %s is already registered", req.NIK))
	}

	before := *card

	card.NIK = req.NIK
	card.Address = req.Address
	card.BirthPlace = req.BirthPlace
	card.BirthDate = req.BirthDate
	card.Sex = req.Sex
	card.Religion = req.Religion
	card.MaritalStatus = req.MaritalStatus
	card.BloodType = req.BloodType
	card.Occupation = req.Occupation
	if req.Nationality != "" {
		card.Nationality = req.Nationality
	}

	if err := s.repo.Update(ctx, card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update id card")
	}

	s.invalidateCard(ctx, id)
	s.recordCardAudit(ctx, actorID, models.AuditActionIDCardUpdate, id, &before, card)

	return card, nil
}

// Delete removes an identity card record.
func (s *IDCardService) Delete(ctx context.Context, id string, actorID string) error {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "id card not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load id card")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete id card")
	}

	s.invalidateCard(ctx, id)
	s.recordCardAudit(ctx, actorID, models.AuditActionIDCardDelete, id, card, nil)

	return nil
}

func (s *IDCardService) invalidateCard(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, idCardCacheKey(id)); err != nil {
		s.logger.Warn("id card cache invalidation failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *IDCardService) recordCardAudit(ctx context.Context, actorID, action, resourceID string, before, after *models.IDCard) {
	log := &models.AuditLog{
		Action:     action,
		Resource:   "id_cards",
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

func idCardCacheKey(id string) string {
	return "idcard:id:" + id
}
