package patient

import (
	"time"

	"gorm.io/datatypes"
)

type Info struct {
	PatientID string    `gorm:"primaryKey;column:patient_id" json:"patient_id"`
	Name      string    `gorm:"column:name" json:"name"`
	Gender    string    `gorm:"column:gender" json:"gender"`
	Age       int       `gorm:"column:age" json:"age"`
	HeightM   float64   `gorm:"column:height_m" json:"height_m"`
	WeightKg  float64   `gorm:"column:weight_kg" json:"weight_kg"`
	BMI       float64   `gorm:"column:bmi" json:"bmi"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Info) TableName() string { return "patient_info" }

type MedicalRecord struct {
	RecordID       string    `gorm:"primaryKey;column:record_id" json:"record_id"`
	PatientID      string    `gorm:"column:patient_id" json:"patient_id"`
	VisitDate      time.Time `gorm:"column:visit_date" json:"visit_date"`
	Department     string    `gorm:"column:department" json:"department"`
	ChiefComplaint string    `gorm:"column:chief_complaint" json:"chief_complaint"`
	Diagnosis      string    `gorm:"column:diagnosis" json:"diagnosis"`
	TreatmentPlan  string    `gorm:"column:treatment_plan" json:"treatment_plan"`
}

func (MedicalRecord) TableName() string { return "medical_records" }

type LabResult struct {
	RecordID       string    `gorm:"primaryKey;column:record_id" json:"record_id"`
	PatientID      string    `gorm:"column:patient_id" json:"patient_id"`
	TestDate       time.Time `gorm:"column:test_date" json:"test_date"`
	TestType       string    `gorm:"column:test_type" json:"test_type"`
	TestItem       string    `gorm:"column:test_item" json:"test_item"`
	ResultValue    string    `gorm:"column:result_value" json:"result_value"`
	Unit           string    `gorm:"column:unit" json:"unit"`
	ReferenceRange string    `gorm:"column:reference_range" json:"reference_range"`
	IsAbnormal     bool      `gorm:"column:is_abnormal" json:"is_abnormal"`
}

func (LabResult) TableName() string { return "lab_results" }

type MedicationRecord struct {
	RecordID       string    `gorm:"primaryKey;column:record_id" json:"record_id"`
	PatientID      string    `gorm:"column:patient_id" json:"patient_id"`
	MedicationDate time.Time `gorm:"column:medication_date" json:"medication_date"`
	DrugName       string    `gorm:"column:drug_name" json:"drug_name"`
	Dosage         string    `gorm:"column:dosage" json:"dosage"`
	Frequency      string    `gorm:"column:frequency" json:"frequency"`
	Route          string    `gorm:"column:route" json:"route"`
}

func (MedicationRecord) TableName() string { return "medication_records" }

type DiagnosisRecord struct {
	RecordID      string    `gorm:"primaryKey;column:record_id" json:"record_id"`
	PatientID     string    `gorm:"column:patient_id" json:"patient_id"`
	DiagnosisDate time.Time `gorm:"column:diagnosis_date" json:"diagnosis_date"`
	DiagnosisName string    `gorm:"column:diagnosis_name" json:"diagnosis_name"`
	DiagnosisType string    `gorm:"column:diagnosis_type" json:"diagnosis_type"`
	ICD10Code     string    `gorm:"column:icd10_code" json:"icd10_code"`
}

func (DiagnosisRecord) TableName() string { return "diagnosis_records" }

type HypertensionAssessment struct {
	RecordID       string         `gorm:"primaryKey;column:record_id" json:"record_id"`
	PatientID      string         `gorm:"column:patient_id" json:"patient_id"`
	AssessmentDate time.Time      `gorm:"column:assessment_date" json:"assessment_date"`
	SystolicBP     int            `gorm:"column:systolic_bp" json:"systolic_bp"`
	DiastolicBP    int            `gorm:"column:diastolic_bp" json:"diastolic_bp"`
	RiskLevel      string         `gorm:"column:risk_level" json:"risk_level"`
	RiskFactors    datatypes.JSON `gorm:"column:risk_factors" json:"risk_factors,omitempty"`
}

func (HypertensionAssessment) TableName() string { return "hypertension_risk_assessment" }

type DiabetesAssessment struct {
	RecordID            string         `gorm:"primaryKey;column:record_id" json:"record_id"`
	PatientID           string         `gorm:"column:patient_id" json:"patient_id"`
	AssessmentDate      time.Time      `gorm:"column:assessment_date" json:"assessment_date"`
	FastingGlucose      float64        `gorm:"column:fasting_glucose" json:"fasting_glucose"`
	PostprandialGlucose float64        `gorm:"column:postprandial_glucose" json:"postprandial_glucose"`
	HbA1c               float64        `gorm:"column:hba1c" json:"hba1c"`
	ControlStatus       string         `gorm:"column:control_status" json:"control_status"`
	Details             datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
}

func (DiabetesAssessment) TableName() string { return "diabetes_control_assessment" }

type GuidelineRecommendation struct {
	ID                  string    `gorm:"primaryKey;column:id" json:"id"`
	DiseaseType         string    `gorm:"column:disease_type" json:"disease_type"`
	RecommendationLevel string    `gorm:"column:recommendation_level" json:"recommendation_level"`
	Content             string    `gorm:"column:content" json:"content"`
	SourceGuideline     string    `gorm:"column:source_guideline" json:"source_guideline"`
	UpdateDate          time.Time `gorm:"column:update_date" json:"update_date"`
	IsActive            bool      `gorm:"column:is_active" json:"is_active"`
}

func (GuidelineRecommendation) TableName() string { return "guideline_recommendations" }

// Profile is the per-request projection of one patient across all tables.
// Sections are ordered newest first.
type Profile struct {
	Info                    Info                     `json:"patient_info"`
	MedicalRecords          []MedicalRecord          `json:"medical_records"`
	LabResults              []LabResult              `json:"lab_results"`
	Medications             []MedicationRecord       `json:"medications"`
	Diagnoses               []DiagnosisRecord        `json:"diagnoses"`
	DiabetesAssessments     []DiabetesAssessment     `json:"diabetes_assessments"`
	HypertensionAssessments []HypertensionAssessment `json:"hypertension_assessments"`

	// FailedSections lists child sections whose query failed. The profile is
	// still usable; callers decide whether partial data is acceptable.
	FailedSections []string `json:"failed_sections,omitempty"`
}

func (p *Profile) Partial() bool { return len(p.FailedSections) > 0 }
