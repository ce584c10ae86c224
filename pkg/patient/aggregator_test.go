package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProfileDegradesOnSectionFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "name", "gender", "age"}).
			AddRow("p1", "张三", "男", 63))

	// Rows deliberately out of order, plus a stray row from another patient.
	mock.ExpectQuery(`SELECT (.+) FROM "medical_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id", "visit_date", "diagnosis"}).
			AddRow("r-old", "p1", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), "高血压2级").
			AddRow("r-other", "p2", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), "无关记录").
			AddRow("r-new", "p1", time.Date(2021, 7, 20, 0, 0, 0, 0, time.UTC), "2型糖尿病"))

	mock.ExpectQuery(`SELECT (.+) FROM "lab_results"`).
		WillReturnError(errors.New("connection reset"))

	for _, table := range []string{"medication_records", "diagnosis_records", "diabetes_control_assessment", "hypertension_risk_assessment"} {
		mock.ExpectQuery(`SELECT (.+) FROM "` + table + `"`).
			WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id"}))
	}

	aggregator := NewAggregator(NewRepository(db))
	profile, err := aggregator.FetchProfile(context.Background(), "p1")
	require.NoError(t, err)

	assert.True(t, profile.Partial())
	assert.Equal(t, []string{"lab_results"}, profile.FailedSections)

	require.Len(t, profile.MedicalRecords, 2, "stray patient rows must be filtered out")
	assert.Equal(t, "r-new", profile.MedicalRecords[0].RecordID, "sections must be ordered newest first")
	assert.Equal(t, "r-old", profile.MedicalRecords[1].RecordID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchProfileNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id"}))

	aggregator := NewAggregator(NewRepository(db))
	_, err := aggregator.FetchProfile(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFetchProfileEmptySectionsAreValid(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(`SELECT (.+) FROM "patient_info"`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "name"}).AddRow("p1", "张三"))

	for _, table := range []string{"medical_records", "lab_results", "medication_records", "diagnosis_records", "diabetes_control_assessment", "hypertension_risk_assessment"} {
		mock.ExpectQuery(`SELECT (.+) FROM "` + table + `"`).
			WillReturnRows(sqlmock.NewRows([]string{"record_id", "patient_id"}))
	}

	aggregator := NewAggregator(NewRepository(db))
	profile, err := aggregator.FetchProfile(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, profile.Partial())
	assert.Empty(t, profile.MedicalRecords)
	assert.Empty(t, profile.LabResults)
}
