package safety

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/glucomind-ai/assistant/pkg/common/models"
)

// Context carries the request-scoped inputs a checker may consult. Checkers
// are pure: text and context in, findings and possibly-rewritten text out.
type Context struct {
	RequestedMedication string
	CurrentMedications  []string
}

type CheckFunc func(text string, ctx Context) ([]models.SafetyFinding, string)

type Checker struct {
	Name  string
	Check CheckFunc
}

// EthicsChecker strips or rephrases over-promising claims. Matches are
// block severity: the offending span never reaches the caller.
func EthicsChecker(rules *Rules) Checker {
	return Checker{
		Name: "ethics_overpromise",
		Check: func(text string, _ Context) ([]models.SafetyFinding, string) {
			var findings []models.SafetyFinding

			for _, p := range rules.ForbiddenPhrases {
				if !strings.Contains(text, p.Phrase) {
					continue
				}
				findings = append(findings, models.SafetyFinding{
					Category:    models.CategoryEthicsOverpromise,
					Severity:    models.SeverityBlock,
					MatchedSpan: p.Phrase,
					Note:        fmt.Sprintf("包含不当承诺: %q", p.Phrase),
				})
				text = strings.ReplaceAll(text, p.Phrase, p.Replacement)
			}

			for i, re := range rules.compiledPatterns {
				if match := re.FindString(text); match != "" {
					findings = append(findings, models.SafetyFinding{
						Category:    models.CategoryEthicsOverpromise,
						Severity:    models.SeverityBlock,
						MatchedSpan: match,
						Note:        "存在过度承诺疗效的表述",
					})
					text = re.ReplaceAllString(text, rules.OverpromisePatterns[i].Replacement)
				}
			}

			return findings, text
		},
	}
}

// RiskKeywordChecker flags high-risk clinical actions. Warning severity:
// the text is kept, a mandatory physician-consultation notice is prepended.
func RiskKeywordChecker(rules *Rules) Checker {
	return Checker{
		Name: "risk_keyword",
		Check: func(text string, _ Context) ([]models.SafetyFinding, string) {
			var findings []models.SafetyFinding
			for _, keyword := range rules.RiskKeywords {
				if strings.Contains(text, keyword) {
					findings = append(findings, models.SafetyFinding{
						Category:    models.CategoryRiskKeyword,
						Severity:    models.SeverityWarning,
						MatchedSpan: keyword,
						Note:        fmt.Sprintf("涉及高风险操作: %q", keyword),
					})
				}
			}

			if len(findings) > 0 && !strings.Contains(text, rules.RiskNotice) {
				text = rules.RiskNotice + "\n\n" + text
			}

			return findings, text
		},
	}
}

// dosageUnitRe captures "<drug> ... 500mg / 0.5g / 500毫克" style mentions.
var dosageUnitRe = `[^\d]{0,12}?(\d+(?:\.\d+)?)\s*(mg|毫克|g|克)`

// MedicationChecker looks mentioned drugs up against the static interaction
// table and dosage ranges. It only acts when a medication is named in the
// request or recognized in the answer; no match is a silent pass.
func MedicationChecker(rules *Rules) Checker {
	return Checker{
		Name: "medication",
		Check: func(text string, ctx Context) ([]models.SafetyFinding, string) {
			return checkMedications(rules, text, ctx), text
		},
	}
}

func checkMedications(rules *Rules, text string, ctx Context) []models.SafetyFinding {
	mentioned := mentionedDrugs(rules, text, ctx)
	if len(mentioned) == 0 {
		return nil
	}

	var findings []models.SafetyFinding
	seenPairs := make(map[string]struct{})

	for _, drug := range mentioned {
		for _, current := range ctx.CurrentMedications {
			if current == drug {
				continue
			}
			rule, ok := rules.Interacting(drug, current)
			if !ok {
				continue
			}
			pair := rule.DrugA + "+" + rule.DrugB
			if _, dup := seenPairs[pair]; dup {
				continue
			}
			seenPairs[pair] = struct{}{}
			findings = append(findings, models.SafetyFinding{
				Category:    models.CategoryMedicationInteraction,
				Severity:    models.SeverityWarning,
				MatchedSpan: fmt.Sprintf("%s + %s", drug, current),
				Note:        rule.Note,
			})
		}

		if finding, ok := checkDosage(rules, text, drug); ok {
			findings = append(findings, finding)
		}
	}

	return findings
}

// mentionedDrugs returns the requested medication plus any rule-table drug
// named in the answer text, deduplicated in stable order.
func mentionedDrugs(rules *Rules, text string, ctx Context) []string {
	seen := make(map[string]struct{})
	var drugs []string
	add := func(drug string) {
		if drug == "" {
			return
		}
		if _, dup := seen[drug]; dup {
			return
		}
		seen[drug] = struct{}{}
		drugs = append(drugs, drug)
	}

	add(ctx.RequestedMedication)
	for _, rule := range rules.Interactions {
		if strings.Contains(text, rule.DrugA) {
			add(rule.DrugA)
		}
		if strings.Contains(text, rule.DrugB) {
			add(rule.DrugB)
		}
	}
	for _, rule := range rules.Dosages {
		if strings.Contains(text, rule.Drug) {
			add(rule.Drug)
		}
	}

	return drugs
}

func checkDosage(rules *Rules, text, drug string) (models.SafetyFinding, bool) {
	dosage, ok := rules.DosageFor(drug)
	if !ok {
		return models.SafetyFinding{}, false
	}

	re, err := regexp.Compile(regexp.QuoteMeta(drug) + dosageUnitRe)
	if err != nil {
		return models.SafetyFinding{}, false
	}

	for _, match := range re.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		mg := value
		if match[2] == "g" || match[2] == "克" {
			mg = value * 1000
		}
		if mg < dosage.MinMg || mg > dosage.MaxMg {
			return models.SafetyFinding{
				Category:    models.CategoryDosageOutOfRange,
				Severity:    models.SeverityWarning,
				MatchedSpan: match[0],
				Note: fmt.Sprintf("%s剂量 %.1fmg 超出常规范围 [%.1f, %.1f]mg",
					drug, mg, dosage.MinMg, dosage.MaxMg),
			}, true
		}
	}

	return models.SafetyFinding{}, false
}
