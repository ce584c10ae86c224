package assistant

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/kafka"
	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/common/models"
	"github.com/glucomind-ai/assistant/pkg/knowledge"
	"github.com/glucomind-ai/assistant/pkg/patient"
	"github.com/glucomind-ai/assistant/pkg/prompt"
	"github.com/glucomind-ai/assistant/pkg/reasoning"
	"github.com/glucomind-ai/assistant/pkg/safety"
	"github.com/glucomind-ai/assistant/pkg/statistics"
	"github.com/glucomind-ai/assistant/pkg/terminology"
	"github.com/google/uuid"
)

// Service drives the full pipeline: gather patient context, compose the
// bounded prompt, invoke reasoning, validate the answer.
type Service struct {
	aggregator *patient.Aggregator
	patients   *patient.Repository
	stats      *statistics.Service
	retriever  *knowledge.Retriever
	terms      terminology.Catalog
	composer   *prompt.Composer
	reasoner   *reasoning.Client
	validator  *safety.Validator
	audit      *kafka.AuditProducer

	retrievalTopK  int
	sectionTimeout time.Duration
}

type Options struct {
	RetrievalTopK  int
	SectionTimeout time.Duration
}

func NewService(
	aggregator *patient.Aggregator,
	patients *patient.Repository,
	stats *statistics.Service,
	retriever *knowledge.Retriever,
	terms terminology.Catalog,
	composer *prompt.Composer,
	reasoner *reasoning.Client,
	validator *safety.Validator,
	audit *kafka.AuditProducer,
	opts Options,
) *Service {
	return &Service{
		aggregator:     aggregator,
		patients:       patients,
		stats:          stats,
		retriever:      retriever,
		terms:          terms,
		composer:       composer,
		reasoner:       reasoner,
		validator:      validator,
		audit:          audit,
		retrievalTopK:  opts.RetrievalTopK,
		sectionTimeout: opts.SectionTimeout,
	}
}

// Chat runs the pipeline for one question. Context-gathering sections run
// concurrently, each under its own timeout; a failing section degrades to an
// explicit marker and never cancels its siblings. Only a reasoning failure
// fails the request.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	var (
		profile  *patient.Profile
		statsRow *statistics.Row
		passages []models.RetrievedPassage

		mu       sync.Mutex
		degraded []string
		wg       sync.WaitGroup
	)

	markDegraded := func(section string, err error) {
		logger.WithComponent("assistant").WithError(err).WithField("section", section).
			Warn("context section degraded")
		mu.Lock()
		degraded = append(degraded, section)
		mu.Unlock()
	}

	if req.PatientID != "" {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, s.sectionTimeout)
			defer cancel()
			p, err := s.aggregator.FetchProfile(sctx, req.PatientID)
			switch {
			case err == nil:
				profile = p
			case errors.Is(err, patient.ErrNotFound):
				// Absence is valid; the composer renders the explicit marker.
			default:
				markDegraded("patient_profile", err)
			}
		}()
		go func() {
			defer wg.Done()
			row, err := s.stats.Lookup(req.PatientID)
			switch {
			case err == nil:
				statsRow = &row
			case errors.Is(err, statistics.ErrNotFound):
			default:
				markDegraded("statistics", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sctx, cancel := context.WithTimeout(ctx, s.sectionTimeout)
		defer cancel()
		normalized := s.terms.Normalize(req.Question)
		result, err := s.retriever.Search(sctx, normalized, s.retrievalTopK)
		if err != nil {
			// A failed search degrades to a knowledge miss, not a request error.
			markDegraded("knowledge", err)
			return
		}
		passages = result
	}()

	wg.Wait()
	sort.Strings(degraded)

	composed := s.composer.Compose(req.Question, profile, statsRow, passages)

	answer, err := s.reasoner.Reason(ctx, composed.Serialize())
	if err != nil {
		return models.ChatResponse{}, err
	}

	response := models.ChatResponse{
		PatientID: req.PatientID,
		RequestID: uuid.New().String(),
		Degraded:  degraded,
		Timestamp: time.Now(),
	}

	if req.EnableSafetyCheck == nil || *req.EnableSafetyCheck {
		validated, findings := s.validator.Validate(answer, safety.Context{
			CurrentMedications: currentMedications(profile),
		})
		response.Answer = validated
		response.Findings = findings
	} else {
		response.Answer = answer
	}

	s.publishAudit("chat", req.PatientID, map[string]interface{}{
		"request_id": response.RequestID,
		"degraded":   degraded,
		"findings":   len(response.Findings),
	})

	return response, nil
}

// CheckMedication runs only the interaction/dosage checker against the
// patient's medication records, without invoking reasoning.
func (s *Service) CheckMedication(ctx context.Context, patientID, medication string) ([]models.SafetyFinding, error) {
	records, err := s.patients.ListMedications(ctx, patientID, 10)
	if err != nil {
		return nil, err
	}

	current := make([]string, 0, len(records))
	for _, record := range records {
		current = append(current, record.DrugName)
	}

	findings := s.validator.CheckMedication(medication, current)

	s.publishAudit("medication_check", patientID, map[string]interface{}{
		"medication": medication,
		"findings":   len(findings),
	})

	return findings, nil
}

func currentMedications(profile *patient.Profile) []string {
	if profile == nil {
		return nil
	}
	drugs := make([]string, 0, len(profile.Medications))
	for _, record := range profile.Medications {
		drugs = append(drugs, record.DrugName)
	}
	return drugs
}

func (s *Service) publishAudit(eventType, patientID string, data map[string]interface{}) {
	if s.audit == nil {
		return
	}
	// Fire and forget with a detached context; the request may already be done.
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.audit.Publish(pctx, eventType, patientID, data)
	}()
}
