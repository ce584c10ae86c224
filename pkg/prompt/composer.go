package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glucomind-ai/assistant/pkg/common/models"
	"github.com/glucomind-ai/assistant/pkg/knowledge"
	"github.com/glucomind-ai/assistant/pkg/patient"
	"github.com/glucomind-ai/assistant/pkg/statistics"
)

// Section labels, in the only order sections ever appear in.
const (
	SectionPatientSummary    = "patient_summary"
	SectionStatisticsSummary = "statistics_summary"
	SectionKnowledgePassages = "knowledge_passages"
)

const (
	markerNoPatient    = "（未提供患者信息）"
	markerNoStatistics = "（暂无统计档案）"
)

type Section struct {
	Label string
	Text  string
}

// ComposedContext is the bounded prompt handed to the reasoning model.
// Section order is fixed; truncation never reorders.
type ComposedContext struct {
	Sections []Section
	Question string
}

// Serialize renders the context in the prompt-template layout the reasoning
// model was tuned for.
func (c ComposedContext) Serialize() string {
	var b strings.Builder
	for _, section := range c.Sections {
		switch section.Label {
		case SectionPatientSummary:
			b.WriteString("【患者信息】\n")
		case SectionStatisticsSummary:
			b.WriteString("【统计档案】\n")
		case SectionKnowledgePassages:
			b.WriteString("【参考知识】\n")
		}
		b.WriteString(section.Text)
		b.WriteString("\n\n")
	}
	b.WriteString("【问题】\n")
	b.WriteString(c.Question)
	return b.String()
}

func (c ComposedContext) Size() int {
	return len([]rune(c.Serialize()))
}

// Composer assembles the bounded context. budgetChars counts runes of the
// serialized prompt, not bytes, since most content is CJK.
type Composer struct {
	budgetChars int
}

func NewComposer(budgetChars int) *Composer {
	return &Composer{budgetChars: budgetChars}
}

// Compose builds the context from whatever subset of inputs is available.
// Missing inputs become explicit markers so the model can tell "absent" from
// "not asked". When the serialized size exceeds the budget, the lowest-ranked
// passages are dropped first, then the oldest patient lines; the question is
// never touched.
func (c *Composer) Compose(question string, profile *patient.Profile, stats *statistics.Row, passages []models.RetrievedPassage) ComposedContext {
	patientLines := buildPatientLines(profile)
	passageLines := buildPassageLines(passages)

	build := func() ComposedContext {
		return ComposedContext{
			Sections: []Section{
				{Label: SectionPatientSummary, Text: renderLines(patientLines, markerNoPatient)},
				{Label: SectionStatisticsSummary, Text: renderStatistics(stats)},
				{Label: SectionKnowledgePassages, Text: renderLines(passageLines, knowledge.MissFallback)},
			},
			Question: question,
		}
	}

	ctx := build()
	for ctx.Size() > c.budgetChars && len(passageLines) > 0 {
		passageLines = passageLines[:len(passageLines)-1]
		ctx = build()
	}
	for ctx.Size() > c.budgetChars && len(patientLines) > 1 {
		patientLines = patientLines[:len(patientLines)-1]
		ctx = build()
	}

	return ctx
}

type datedLine struct {
	date time.Time
	text string
}

// buildPatientLines renders the profile with the demographics line leading
// and every dated record after it, newest first across all sections, so
// trimming from the tail always discards the oldest information.
func buildPatientLines(profile *patient.Profile) []string {
	if profile == nil {
		return nil
	}

	var dated []datedLine
	for _, d := range profile.Diagnoses {
		dated = append(dated, datedLine{d.DiagnosisDate,
			fmt.Sprintf("诊断(%s): %s", d.DiagnosisDate.Format("2006-01-02"), d.DiagnosisName)})
	}
	for _, m := range profile.Medications {
		dated = append(dated, datedLine{m.MedicationDate,
			fmt.Sprintf("用药(%s): %s %s %s", m.MedicationDate.Format("2006-01-02"), m.DrugName, m.Dosage, m.Frequency)})
	}
	for _, r := range profile.MedicalRecords {
		dated = append(dated, datedLine{r.VisitDate,
			fmt.Sprintf("病历(%s): %s; %s", r.VisitDate.Format("2006-01-02"), r.ChiefComplaint, r.Diagnosis)})
	}
	for _, l := range profile.LabResults {
		flag := ""
		if l.IsAbnormal {
			flag = " [异常]"
		}
		dated = append(dated, datedLine{l.TestDate,
			fmt.Sprintf("检验(%s): %s %s %s%s", l.TestDate.Format("2006-01-02"), l.TestItem, l.ResultValue, l.Unit, flag)})
	}
	sort.SliceStable(dated, func(i, j int) bool { return dated[i].date.After(dated[j].date) })

	lines := []string{fmt.Sprintf("患者: %s, 性别: %s, 年龄: %d岁, BMI: %.1f",
		profile.Info.Name, profile.Info.Gender, profile.Info.Age, profile.Info.BMI)}
	for _, dl := range dated {
		lines = append(lines, dl.text)
	}

	for _, failed := range profile.FailedSections {
		lines = insertAfterHead(lines, fmt.Sprintf("（%s数据暂不可用）", sectionDisplayName(failed)))
	}

	return lines
}

// Degradation markers stay near the demographics line so they survive
// oldest-first truncation.
func insertAfterHead(lines []string, line string) []string {
	if len(lines) == 0 {
		return []string{line}
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[0], line)
	out = append(out, lines[1:]...)
	return out
}

func sectionDisplayName(section string) string {
	switch section {
	case "medical_records":
		return "病历"
	case "lab_results":
		return "检验结果"
	case "medications":
		return "用药记录"
	case "diagnoses":
		return "诊断记录"
	case "diabetes_assessments":
		return "糖尿病评估"
	case "hypertension_assessments":
		return "高血压评估"
	default:
		return section
	}
}

func buildPassageLines(passages []models.RetrievedPassage) []string {
	lines := make([]string, 0, len(passages))
	for i, p := range passages {
		lines = append(lines, fmt.Sprintf("[%d] (%s) %s", i+1, p.SourceDocumentID, p.Text))
	}
	return lines
}

func renderLines(lines []string, fallback string) string {
	if len(lines) == 0 {
		return fallback
	}
	return strings.Join(lines, "\n")
}

func renderStatistics(stats *statistics.Row) string {
	if stats == nil {
		return markerNoStatistics
	}

	usage := "未使用胰岛素"
	if stats.UsesInsulin() {
		usage = "使用胰岛素"
	}
	parts := []string{usage}
	if stats.FastingInsulin != nil {
		parts = append(parts, fmt.Sprintf("空腹胰岛素: %.1f pmol/L", *stats.FastingInsulin))
	}
	if stats.PostprandialInsulin != nil {
		parts = append(parts, fmt.Sprintf("餐后2小时胰岛素: %.1f pmol/L", *stats.PostprandialInsulin))
	}
	return strings.Join(parts, ", ")
}
