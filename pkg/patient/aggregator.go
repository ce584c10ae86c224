package patient

import (
	"context"
	"sort"
	"sync"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
)

// Per-section fetch limits, mirroring how much history is useful in a prompt.
const (
	medicalRecordLimit = 5
	labResultLimit     = 10
	medicationLimit    = 10
	diagnosisLimit     = 5
	assessmentLimit    = 3
)

// Aggregator merges a patient's rows across all related tables into one
// Profile. The profile is rebuilt per request; nothing is cached.
type Aggregator struct {
	repo *Repository
}

func NewAggregator(repo *Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// FetchProfile returns ErrNotFound when the base patient row is absent.
// Child sections that fail to load are reported in Profile.FailedSections
// instead of failing the whole aggregation; empty sections are valid.
func (a *Aggregator) FetchProfile(ctx context.Context, patientID string) (*Profile, error) {
	info, err := a.repo.GetInfo(ctx, patientID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Info: info}

	type section struct {
		name string
		load func(context.Context) error
	}

	sections := []section{
		{"medical_records", func(ctx context.Context) error {
			records, err := a.repo.ListMedicalRecords(ctx, patientID, medicalRecordLimit)
			if err != nil {
				return err
			}
			profile.MedicalRecords = records
			return nil
		}},
		{"lab_results", func(ctx context.Context) error {
			results, err := a.repo.ListLabResults(ctx, patientID, labResultLimit)
			if err != nil {
				return err
			}
			profile.LabResults = results
			return nil
		}},
		{"medications", func(ctx context.Context) error {
			records, err := a.repo.ListMedications(ctx, patientID, medicationLimit)
			if err != nil {
				return err
			}
			profile.Medications = records
			return nil
		}},
		{"diagnoses", func(ctx context.Context) error {
			records, err := a.repo.ListDiagnoses(ctx, patientID, diagnosisLimit)
			if err != nil {
				return err
			}
			profile.Diagnoses = records
			return nil
		}},
		{"diabetes_assessments", func(ctx context.Context) error {
			records, err := a.repo.ListDiabetesAssessments(ctx, patientID, assessmentLimit)
			if err != nil {
				return err
			}
			profile.DiabetesAssessments = records
			return nil
		}},
		{"hypertension_assessments", func(ctx context.Context) error {
			records, err := a.repo.ListHypertensionAssessments(ctx, patientID, assessmentLimit)
			if err != nil {
				return err
			}
			profile.HypertensionAssessments = records
			return nil
		}},
	}

	// Child queries are independent; one failing must not cancel the others,
	// so this is a plain WaitGroup rather than an errgroup.
	var (
		mu     sync.Mutex
		failed []string
		wg     sync.WaitGroup
	)

	for _, s := range sections {
		wg.Add(1)
		go func(s section) {
			defer wg.Done()
			if err := s.load(ctx); err != nil {
				logger.WithComponent("aggregator").WithError(err).WithField("section", s.name).
					Warn("section query failed, degrading to partial profile")
				mu.Lock()
				failed = append(failed, s.name)
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	sort.Strings(failed)
	profile.FailedSections = failed
	a.normalize(profile)

	return profile, nil
}

// normalize enforces the profile invariants regardless of what the store
// returned: children must carry the profile's patient_id, and every section
// is ordered by event timestamp descending.
func (a *Aggregator) normalize(p *Profile) {
	id := p.Info.PatientID

	p.MedicalRecords = filterSort(p.MedicalRecords,
		func(r MedicalRecord) string { return r.PatientID },
		func(i, j MedicalRecord) bool { return i.VisitDate.After(j.VisitDate) }, id)
	p.LabResults = filterSort(p.LabResults,
		func(r LabResult) string { return r.PatientID },
		func(i, j LabResult) bool { return i.TestDate.After(j.TestDate) }, id)
	p.Medications = filterSort(p.Medications,
		func(r MedicationRecord) string { return r.PatientID },
		func(i, j MedicationRecord) bool { return i.MedicationDate.After(j.MedicationDate) }, id)
	p.Diagnoses = filterSort(p.Diagnoses,
		func(r DiagnosisRecord) string { return r.PatientID },
		func(i, j DiagnosisRecord) bool { return i.DiagnosisDate.After(j.DiagnosisDate) }, id)
	p.DiabetesAssessments = filterSort(p.DiabetesAssessments,
		func(r DiabetesAssessment) string { return r.PatientID },
		func(i, j DiabetesAssessment) bool { return i.AssessmentDate.After(j.AssessmentDate) }, id)
	p.HypertensionAssessments = filterSort(p.HypertensionAssessments,
		func(r HypertensionAssessment) string { return r.PatientID },
		func(i, j HypertensionAssessment) bool { return i.AssessmentDate.After(j.AssessmentDate) }, id)
}

func filterSort[T any](records []T, patientID func(T) string, newer func(T, T) bool, id string) []T {
	kept := records[:0]
	for _, r := range records {
		if patientID(r) == id {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return newer(kept[i], kept[j]) })
	return kept
}
