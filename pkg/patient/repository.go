package patient

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetInfo(ctx context.Context, patientID string) (Info, error) {
	var info Info
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, fmt.Errorf("query patient_info: %w", err)
	}
	return info, nil
}

func (r *Repository) ListMedicalRecords(ctx context.Context, patientID string, limit int) ([]MedicalRecord, error) {
	var records []MedicalRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("visit_date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query medical_records: %w", err)
	}
	return records, nil
}

func (r *Repository) ListLabResults(ctx context.Context, patientID string, limit int) ([]LabResult, error) {
	var results []LabResult
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("test_date DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("query lab_results: %w", err)
	}
	return results, nil
}

func (r *Repository) ListAbnormalLabResults(ctx context.Context, patientID string, limit int) ([]LabResult, error) {
	var results []LabResult
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND is_abnormal = ?", patientID, true).
		Order("test_date DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("query abnormal lab_results: %w", err)
	}
	return results, nil
}

func (r *Repository) ListMedications(ctx context.Context, patientID string, limit int) ([]MedicationRecord, error) {
	var records []MedicationRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("medication_date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query medication_records: %w", err)
	}
	return records, nil
}

func (r *Repository) ListDiagnoses(ctx context.Context, patientID string, limit int) ([]DiagnosisRecord, error) {
	var records []DiagnosisRecord
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("diagnosis_date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query diagnosis_records: %w", err)
	}
	return records, nil
}

func (r *Repository) ListDiabetesAssessments(ctx context.Context, patientID string, limit int) ([]DiabetesAssessment, error) {
	var records []DiabetesAssessment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("assessment_date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query diabetes_control_assessment: %w", err)
	}
	return records, nil
}

func (r *Repository) ListHypertensionAssessments(ctx context.Context, patientID string, limit int) ([]HypertensionAssessment, error) {
	var records []HypertensionAssessment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("assessment_date DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query hypertension_risk_assessment: %w", err)
	}
	return records, nil
}

func (r *Repository) SearchGuidelines(ctx context.Context, diseaseType, level string, limit int) ([]GuidelineRecommendation, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if diseaseType != "" {
		query = query.Where("disease_type = ?", diseaseType)
	}
	if level != "" {
		query = query.Where("recommendation_level = ?", level)
	}

	var recommendations []GuidelineRecommendation
	err := query.Order("update_date DESC").Limit(limit).Find(&recommendations).Error
	if err != nil {
		return nil, fmt.Errorf("query guideline_recommendations: %w", err)
	}
	return recommendations, nil
}
