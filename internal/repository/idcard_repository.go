package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aditpras/civil-registry-api/internal/models"
)

const idCardColumns = `id, nik, address, birth_place, birth_date, sex, religion, marital_status, blood_type, occupation, nationality, issuer_id, created_at, updated_at`

// IDCardRepository provides database access for identity cards.
type IDCardRepository struct {
	db *sqlx.DB
}

// NewIDCardRepository creates a new instance of IDCardRepository.
func NewIDCardRepository(db *sqlx.DB) *IDCardRepository {
	return &IDCardRepository{db: db}
}

// Create inserts a new ID card record.
func (r *IDCardRepository) Create(ctx context.Context, card *models.IDCard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	const query = `INSERT INTO id_cards (id, nik, address, birth_place, birth_date, sex, religion, marital_status, blood_type, occupation, nationality, issuer_id, created_at, updated_at) VALUES (:id, :nik, :address, :birth_place, :birth_date, :sex, :religion, :marital_status, :blood_type, :occupation, :nationality, :issuer_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("create id card: %w", err)
	}
	return nil
}

// FindByID returns an ID card by identifier.
func (r *IDCardRepository) FindByID(ctx context.Context, id string) (*models.IDCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM id_cards WHERE id = $1 LIMIT 1`, idCardColumns)
	var card models.IDCard
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find id card by id: %w", err)
	}
	return &card, nil
}

// FindByNIK returns an ID card by its national identity number.
func (r *IDCardRepository) FindByNIK(ctx context.Context, nik string) (*models.IDCard, error) {
	query := fmt.Sprintf(`SELECT %s FROM id_cards WHERE nik = $1 LIMIT 1`, idCardColumns)
	var card models.IDCard
	if err := r.db.GetContext(ctx, &card, query, nik); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find id card by nik: %w", err)
	}
	return &card, nil
}

// NIKExists reports whether the NIK is already registered, optionally
// excluding one record id.
func (r *IDCardRepository) NIKExists(ctx context.Context, nik string, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM id_cards WHERE nik = $1`
	args := []interface{}{nik}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check id card nik: %w", err)
	}
	return exists, nil
}

// List returns ID cards based on filters with total count.
func (r *IDCardRepository) List(ctx context.Context, filter models.IDCardFilter) ([]models.IDCard, int, error) {
	baseQuery := `FROM id_cards WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Religion != nil {
		conditions = append(conditions, fmt.Sprintf("religion = $%d", len(args)+1))
		args = append(args, string(*filter.Religion))
	}
	if filter.MaritalStatus != nil {
		conditions = append(conditions, fmt.Sprintf("marital_status = $%d", len(args)+1))
		args = append(args, string(*filter.MaritalStatus))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(nik LIKE $%d OR LOWER(address) LIKE $%d OR LOWER(birth_place) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"nik":        true,
		"birth_date": true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page, pageSize := clampPage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", idCardColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var cards []models.IDCard
	if err := r.db.SelectContext(ctx, &cards, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list id cards: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count id cards: %w", err)
	}

	return cards, total, nil
}

// Update updates the mutable fields of an ID card.
func (r *IDCardRepository) Update(ctx context.Context, card *models.IDCard) error {
	card.UpdatedAt = time.Now().UTC()
	const query = `UPDATE id_cards SET nik = :nik, address = :address, birth_place = :birth_place, birth_date = :birth_date, sex = :sex, religion = :religion, marital_status = :marital_status, blood_type = :blood_type, occupation = :occupation, nationality = :nationality, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("update id card: %w", err)
	}
	return nil
}

// Delete removes an ID card record.
func (r *IDCardRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM id_cards WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete id card: %w", err)
	}
	return nil
}
