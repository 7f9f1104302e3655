package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/aditpras/civil-registry-api/internal/models"
)

func newLicenseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLicenseRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO licenses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	license := &models.License{
		Number:     "3201010101010001",
		FullName:   "Budi Santoso",
		NIK:        "3201011501900001",
		Class:      models.ClassC,
		ExpiryDate: time.Now().AddDate(5, 0, 0),
		Sex:        models.SexMale,
		BirthDate:  time.Date(1990, time.January, 15, 0, 0, 0, 0, time.UTC),
		IssuerID:   "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), license))
	require.NotEmpty(t, license.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepositoryMaxSequence(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(RIGHT(license_number, 4) AS INTEGER)), 0) FROM licenses WHERE license_number LIKE $1")).
		WithArgs("320101150190%").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12))

	max, err := repo.MaxSequence(context.Background(), "320101150190")
	require.NoError(t, err)
	require.Equal(t, 12, max)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepositoryMaxSequenceEmptyPrefix(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(CAST(RIGHT(license_number, 4) AS INTEGER)), 0)")).
		WithArgs("999999010199%").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	max, err := repo.MaxSequence(context.Background(), "999999010199")
	require.NoError(t, err)
	require.Zero(t, max)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepositoryNumberExists(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM licenses WHERE license_number = $1)")).
		WithArgs("3201010101010001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.NumberExists(context.Background(), "3201010101010001")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepositoryHolderClassExistsWithExclusion(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM licenses WHERE nik = $1 AND class = $2 AND id <> $3)")).
		WithArgs("3201011501900001", "C", "lic-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.HolderClassExists(context.Background(), "3201011501900001", models.ClassC, "lic-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepositoryListFiltersByClass(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "license_number", "full_name", "nik", "rt", "rw", "district", "regency", "province", "class", "expiry_date", "sex", "blood_type", "birth_place", "birth_date", "occupation", "photo_path", "issuer_id", "created_at", "updated_at"}).
		AddRow("lic-1", "3201010101010001", "Budi Santoso", "3201011501900001", "001", "002", "Bogor Utara", "Bogor", "Jawa Barat", "C", now.AddDate(5, 0, 0), "male", "O", "Bogor", now.AddDate(-30, 0, 0), "Karyawan", "", "user-1", now, now)
	class := models.ClassC
	mock.ExpectQuery(regexp.QuoteMeta("FROM licenses WHERE 1=1 AND class = $1")).
		WithArgs("C").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM licenses WHERE 1=1 AND class = $1")).
		WithArgs("C").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	licenses, total, err := repo.List(context.Background(), models.LicenseFilter{Class: &class})
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	require.Equal(t, 1, total)
	require.Equal(t, models.ClassC, licenses[0].Class)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLicenseRepositoryUpdateNeverWritesNumber(t *testing.T) {
	db, mock, cleanup := newLicenseRepoMock(t)
	defer cleanup()

	repo := NewLicenseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE licenses SET full_name")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	license := &models.License{ID: "lic-1", Number: "3201010101010001", FullName: "Budi Santoso", Class: models.ClassC}
	require.NoError(t, repo.Update(context.Background(), license))
	require.NoError(t, mock.ExpectationsWereMet())
}
