package models

import "time"

// Chat API models
type ChatRequest struct {
	Question          string `json:"question"`
	PatientID         string `json:"patient_id,omitempty"`
	EnableSafetyCheck *bool  `json:"enable_safety_check,omitempty"`
}

type ChatResponse struct {
	Answer    string          `json:"answer"`
	Findings  []SafetyFinding `json:"findings,omitempty"`
	PatientID string          `json:"patient_id,omitempty"`
	RequestID string          `json:"request_id"`
	Degraded  []string        `json:"degraded_sections,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Safety models
type FindingCategory string

const (
	CategoryEthicsOverpromise     FindingCategory = "ethics_overpromise"
	CategoryRiskKeyword           FindingCategory = "risk_keyword"
	CategoryMedicationInteraction FindingCategory = "medication_interaction"
	CategoryDosageOutOfRange      FindingCategory = "dosage_out_of_range"
)

type FindingSeverity string

const (
	SeverityInfo    FindingSeverity = "info"
	SeverityWarning FindingSeverity = "warning"
	SeverityBlock   FindingSeverity = "block"
)

type SafetyFinding struct {
	Category    FindingCategory `json:"category"`
	Severity    FindingSeverity `json:"severity"`
	MatchedSpan string          `json:"matched_span"`
	Note        string          `json:"note"`
}

// Knowledge retrieval models
type RetrievedPassage struct {
	Text             string  `json:"text"`
	SimilarityScore  float64 `json:"similarity_score"`
	SourceDocumentID string  `json:"source_document_id"`
}

// Audit event published to Kafka for external log collection.
type AuditEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // chat, medication_check, assessment
	PatientID string                 `json:"patient_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
