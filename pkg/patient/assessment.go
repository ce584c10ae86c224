package patient

import (
	"context"
	"fmt"
	"strings"
)

// DiabetesReport is the derived control assessment for one patient.
type DiabetesReport struct {
	PatientID        string              `json:"patient_id"`
	Summary          string              `json:"summary"`
	LatestAssessment *DiabetesAssessment `json:"latest_assessment,omitempty"`
	AbnormalResults  []LabResult         `json:"abnormal_results,omitempty"`
	Guidelines       []GuidelineRecommendation `json:"guidelines,omitempty"`
}

// AssessDiabetes builds the risk/control report from the latest control
// assessment, abnormal lab results, and active diabetes guidelines.
func (a *Aggregator) AssessDiabetes(ctx context.Context, patientID string) (*DiabetesReport, error) {
	info, err := a.repo.GetInfo(ctx, patientID)
	if err != nil {
		return nil, err
	}

	assessments, err := a.repo.ListDiabetesAssessments(ctx, patientID, 1)
	if err != nil {
		return nil, err
	}

	abnormal, err := a.repo.ListAbnormalLabResults(ctx, patientID, 10)
	if err != nil {
		return nil, err
	}

	guidelines, err := a.repo.SearchGuidelines(ctx, "糖尿病", "", 5)
	if err != nil {
		// Guidelines enrich the report but are not required for it.
		guidelines = nil
	}

	report := &DiabetesReport{
		PatientID:       patientID,
		AbnormalResults: abnormal,
		Guidelines:      guidelines,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "患者: %s, 年龄: %d岁, BMI: %.1f\n", info.Name, info.Age, info.BMI)

	if len(assessments) > 0 {
		latest := assessments[0]
		report.LatestAssessment = &latest
		fmt.Fprintf(&b, "\n最新评估(%s):\n", latest.AssessmentDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "- 空腹血糖: %.1f mmol/L\n", latest.FastingGlucose)
		fmt.Fprintf(&b, "- 餐后血糖: %.1f mmol/L\n", latest.PostprandialGlucose)
		fmt.Fprintf(&b, "- HbA1c: %.1f%%\n", latest.HbA1c)
		fmt.Fprintf(&b, "- 控制状态: %s\n", latest.ControlStatus)
	}

	if len(abnormal) > 0 {
		fmt.Fprintf(&b, "\n异常检验结果(%d项):\n", len(abnormal))
		for i, result := range abnormal {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s: %s %s (参考范围: %s)\n",
				result.TestItem, result.ResultValue, result.Unit, result.ReferenceRange)
		}
	}

	report.Summary = b.String()
	return report, nil
}
