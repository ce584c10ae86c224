package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: glogger.Default.LogMode(glogger.Silent)})
	require.NoError(t, err)

	return db, mock
}

func TestGetInfoNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "name"}))

	_, err := repo.GetInfo(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInfoReturnsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "name", "gender", "age", "bmi"}).
			AddRow("1001_0_20210730", "张三", "男", 63, 24.0))

	info, err := repo.GetInfo(context.Background(), "1001_0_20210730")
	require.NoError(t, err)
	assert.Equal(t, "张三", info.Name)
	assert.Equal(t, 63, info.Age)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMedications(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM "medication_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id", "medication_date", "drug_name", "dosage"}).
			AddRow("m1", "p1", time.Date(2021, 7, 25, 0, 0, 0, 0, time.UTC), "二甲双胍", "500mg").
			AddRow("m2", "p1", time.Date(2021, 7, 10, 0, 0, 0, 0, time.UTC), "格列本脲", "5mg"))

	records, err := repo.ListMedications(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "二甲双胍", records[0].DrugName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchGuidelines(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM "guideline_recommendations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "disease_type", "recommendation_level", "content", "is_active"}).
			AddRow("g1", "diabetes", "A", "一线治疗首选二甲双胍", true))

	recommendations, err := repo.SearchGuidelines(context.Background(), "diabetes", "A", 5)
	require.NoError(t, err)
	require.Len(t, recommendations, 1)
	assert.Equal(t, "diabetes", recommendations[0].DiseaseType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
