package statistics

import (
	"fmt"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
)

type Service struct {
	source *Source
}

func NewService(source *Source) *Service {
	return &Service{source: source}
}

// Lookup reads the patient's row fresh from the tabular source.
func (s *Service) Lookup(patientID string) (Row, error) {
	rows, err := s.source.readAll()
	if err != nil {
		return Row{}, err
	}
	for _, row := range rows {
		if row.PatientID == patientID {
			return row, nil
		}
	}
	return Row{}, ErrNotFound
}

type GroupStats struct {
	Label        string  `json:"label"`
	Total        int     `json:"total"`
	InsulinUsers int     `json:"insulin_users"`
	UsageRate    float64 `json:"usage_rate"`
}

type InsulinStats struct {
	TotalPatients int                   `json:"total_patients"`
	InsulinUsers  int                   `json:"insulin_users"`
	UsageRate     float64               `json:"usage_rate"`
	Dimension     string                `json:"dimension"`
	Distribution  map[string]GroupStats `json:"distribution"`
}

// AggregateInsulin computes insulin usage over the whole sheet, grouped by
// the requested dimension (gender by default).
func (s *Service) AggregateInsulin(dimension string) (InsulinStats, error) {
	if dimension == "" {
		dimension = "gender"
	}
	grouper, ok := groupers[dimension]
	if !ok {
		return InsulinStats{}, fmt.Errorf("invalid dimension %q", dimension)
	}

	rows, err := s.source.readAll()
	if err != nil {
		return InsulinStats{}, err
	}

	stats := InsulinStats{
		Dimension:    dimension,
		Distribution: make(map[string]GroupStats),
	}

	for _, row := range rows {
		stats.TotalPatients++
		uses := row.UsesInsulin()
		if uses {
			stats.InsulinUsers++
		}

		label := grouper(row)
		group := stats.Distribution[label]
		group.Label = label
		group.Total++
		if uses {
			group.InsulinUsers++
		}
		stats.Distribution[label] = group
	}

	if stats.TotalPatients > 0 {
		stats.UsageRate = float64(stats.InsulinUsers) / float64(stats.TotalPatients)
	}
	for label, group := range stats.Distribution {
		if group.Total > 0 {
			group.UsageRate = float64(group.InsulinUsers) / float64(group.Total)
		}
		stats.Distribution[label] = group
	}

	logger.WithComponent("statistics").WithFields(map[string]interface{}{
		"total":     stats.TotalPatients,
		"users":     stats.InsulinUsers,
		"dimension": dimension,
	}).Debug("computed insulin statistics")

	return stats, nil
}

var groupers = map[string]func(Row) string{
	"gender": func(r Row) string {
		switch r.Sex {
		case SexMale:
			return "male"
		case SexFemale:
			return "female"
		default:
			return "unknown"
		}
	},
	"age": func(r Row) string {
		switch {
		case r.Age < 40:
			return "<40岁"
		case r.Age < 60:
			return "40-60岁"
		case r.Age < 80:
			return "60-80岁"
		default:
			return "≥80岁"
		}
	},
	"height": func(r Row) string {
		switch {
		case r.HeightM < 1.55:
			return "<1.55m"
		case r.HeightM < 1.70:
			return "1.55-1.70m"
		default:
			return "≥1.70m"
		}
	},
	"weight": func(r Row) string {
		switch {
		case r.WeightKg < 50:
			return "<50kg"
		case r.WeightKg < 70:
			return "50-70kg"
		case r.WeightKg < 90:
			return "70-90kg"
		default:
			return "≥90kg"
		}
	},
}
