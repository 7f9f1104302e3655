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

const licenseColumns = `id, license_number, full_name, nik, rt, rw, district, regency, province, class, expiry_date, sex, blood_type, birth_place, birth_date, occupation, photo_path, issuer_id, created_at, updated_at`

// LicenseRepository provides database access for driving licenses.
type LicenseRepository struct {
	db *sqlx.DB
}

// NewLicenseRepository creates a new instance of LicenseRepository.
func NewLicenseRepository(db *sqlx.DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

// Create inserts a new license record.
func (r *LicenseRepository) Create(ctx context.Context, license *models.License) error {
	if license.ID == "" {
		license.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if license.CreatedAt.IsZero() {
		license.CreatedAt = now
	}
	license.UpdatedAt = now

	const query = `INSERT INTO licenses (id, license_number, full_name, nik, rt, rw, district, regency, province, class, expiry_date, sex, blood_type, birth_place, birth_date, occupation, photo_path, issuer_id, created_at, updated_at) VALUES (:id, :license_number, :full_name, :nik, :rt, :rw, :district, :regency, :province, :class, :expiry_date, :sex, :blood_type, :birth_place, :birth_date, :occupation, :photo_path, :issuer_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, license); err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

// FindByID returns a license by identifier.
func (r *LicenseRepository) FindByID(ctx context.Context, id string) (*models.License, error) {
	query := fmt.Sprintf(`SELECT %s FROM licenses WHERE id = $1 LIMIT 1`, licenseColumns)
	var license models.License
	if err := r.db.GetContext(ctx, &license, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find license by id: %w", err)
	}
	return &license, nil
}

// NumberExists reports whether a license number is already taken.
func (r *LicenseRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM licenses WHERE license_number = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, number); err != nil {
		return false, fmt.Errorf("check license number: %w", err)
	}
	return exists, nil
}

// HolderClassExists reports whether the (nik, class) natural key is
// already taken, optionally excluding one record id.
func (r *LicenseRepository) HolderClassExists(ctx context.Context, nik string, class models.LicenseClass, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM licenses WHERE nik = $1 AND class = $2`
	args := []interface{}{nik, string(class)}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check license holder/class: %w", err)
	}
	return exists, nil
}

// MaxSequence returns the highest sequence among license numbers sharing
// the 10-digit base pattern, or zero when none exist.
func (r *LicenseRepository) MaxSequence(ctx context.Context, basePattern string) (int, error) {
	const query = `SELECT COALESCE(MAX(CAST(RIGHT(license_number, 4) AS INTEGER)), 0) FROM licenses WHERE license_number LIKE $1`
	var max int
	if err := r.db.GetContext(ctx, &max, query, basePattern+"%"); err != nil {
		return 0, fmt.Errorf("max license sequence: %w", err)
	}
	return max, nil
}

// List returns licenses based on filters with total count.
func (r *LicenseRepository) List(ctx context.Context, filter models.LicenseFilter) ([]models.License, int, error) {
	baseQuery := `FROM licenses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Class != nil {
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, string(*filter.Class))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(license_number LIKE $%d OR nik LIKE $%d OR LOWER(full_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"license_number": true,
		"full_name":      true,
		"class":          true,
		"expiry_date":    true,
		"created_at":     true,
		"updated_at":     true,
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", licenseColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var licenses []models.License
	if err := r.db.SelectContext(ctx, &licenses, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list licenses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count licenses: %w", err)
	}

	return licenses, total, nil
}

// Update updates the mutable fields of a license. The license number is
// derived at issuance and never written here.
func (r *LicenseRepository) Update(ctx context.Context, license *models.License) error {
	license.UpdatedAt = time.Now().UTC()
	const query = `UPDATE licenses SET full_name = :full_name, nik = :nik, rt = :rt, rw = :rw, district = :district, regency = :regency, province = :province, class = :class, expiry_date = :expiry_date, sex = :sex, blood_type = :blood_type, birth_place = :birth_place, birth_date = :birth_date, occupation = :occupation, photo_path = :photo_path, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, license); err != nil {
		return fmt.Errorf("update license: %w", err)
	}
	return nil
}

// Delete removes a license record.
func (r *LicenseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM licenses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete license: %w", err)
	}
	return nil
}
