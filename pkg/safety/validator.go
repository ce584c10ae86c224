package safety

import (
	"strings"

	"github.com/glucomind-ai/assistant/pkg/common/logger"
	"github.com/glucomind-ai/assistant/pkg/common/models"
)

// Validator runs the ordered checker pipeline over a raw answer. It is a
// pure function of its inputs and the static rule table: no network, no
// database, safe to call concurrently.
type Validator struct {
	rules    *Rules
	checkers []Checker
}

func NewValidator(rules *Rules) *Validator {
	return &Validator{
		rules: rules,
		checkers: []Checker{
			EthicsChecker(rules),
			RiskKeywordChecker(rules),
			MedicationChecker(rules),
		},
	}
}

// Validate transforms a raw answer into the final answer. Checker order is
// fixed and findings are additive: each stage sees the text as rewritten by
// the previous one, so block-severity spans are already stripped before the
// risk and medication stages run. The disclaimer is always appended exactly
// once, findings or not.
func (v *Validator) Validate(rawAnswer string, ctx Context) (string, []models.SafetyFinding) {
	// Re-validating an already-validated answer must not double-append the
	// disclaimer or scan its boilerplate for risk keywords.
	text := v.stripDisclaimer(rawAnswer)

	var findings []models.SafetyFinding
	for _, checker := range v.checkers {
		stageFindings, rewritten := checker.Check(text, ctx)
		findings = append(findings, stageFindings...)
		text = rewritten
	}

	if len(findings) > 0 {
		logger.WithComponent("safety").WithField("findings", len(findings)).Info("safety findings recorded")
	}

	return text + "\n\n" + v.rules.Disclaimer, findings
}

// CheckMedication runs only the medication-interaction/dosage stage, for the
// standalone safety endpoint that never invokes reasoning.
func (v *Validator) CheckMedication(medication string, currentMedications []string) []models.SafetyFinding {
	ctx := Context{
		RequestedMedication: medication,
		CurrentMedications:  currentMedications,
	}
	return checkMedications(v.rules, "", ctx)
}

func (v *Validator) stripDisclaimer(text string) string {
	stripped := strings.ReplaceAll(text, v.rules.Disclaimer, "")
	return strings.TrimRight(stripped, "\n ")
}
