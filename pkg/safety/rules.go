package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ValidationRuleError marks a malformed rule table. It is fatal at startup:
// running with partial safety rules is worse than not starting.
type ValidationRuleError struct {
	Detail string
}

func (e *ValidationRuleError) Error() string {
	return fmt.Sprintf("safety rule table invalid: %s", e.Detail)
}

type ForbiddenPhrase struct {
	Phrase      string `yaml:"phrase" json:"phrase"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

type OverpromisePattern struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

type InteractionRule struct {
	DrugA string `yaml:"drug_a" json:"drug_a"`
	DrugB string `yaml:"drug_b" json:"drug_b"`
	Note  string `yaml:"note" json:"note"`
}

type DosageRule struct {
	Drug  string  `yaml:"drug" json:"drug"`
	MinMg float64 `yaml:"min_mg" json:"min_mg"`
	MaxMg float64 `yaml:"max_mg" json:"max_mg"`
}

// Rules is the static safety rule table, loaded once at startup and shared
// read-only across requests.
type Rules struct {
	ForbiddenPhrases    []ForbiddenPhrase    `yaml:"forbidden_phrases"`
	OverpromisePatterns []OverpromisePattern `yaml:"overpromise_patterns"`
	RiskKeywords        []string             `yaml:"risk_keywords"`
	RiskNotice          string               `yaml:"risk_notice"`
	Disclaimer          string               `yaml:"disclaimer"`
	Interactions        []InteractionRule    `yaml:"interactions"`
	Dosages             []DosageRule         `yaml:"dosages"`

	compiledPatterns []*regexp.Regexp
}

func LoadRules(path string) (*Rules, error) {
	if path == "" {
		rules := DefaultRules()
		if err := rules.validate(); err != nil {
			return nil, err
		}
		return rules, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read safety rules: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return nil, &ValidationRuleError{Detail: fmt.Sprintf("parse %s: %v", path, err)}
	}

	if err := rules.validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *Rules) validate() error {
	if len(r.ForbiddenPhrases) == 0 {
		return &ValidationRuleError{Detail: "no forbidden phrases configured"}
	}
	if r.RiskNotice == "" {
		return &ValidationRuleError{Detail: "risk notice is empty"}
	}
	if r.Disclaimer == "" {
		return &ValidationRuleError{Detail: "disclaimer is empty"}
	}

	for i, p := range r.ForbiddenPhrases {
		if p.Phrase == "" {
			return &ValidationRuleError{Detail: fmt.Sprintf("forbidden phrase %d is empty", i)}
		}
	}

	r.compiledPatterns = r.compiledPatterns[:0]
	for i, p := range r.OverpromisePatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return &ValidationRuleError{Detail: fmt.Sprintf("overpromise pattern %d: %v", i, err)}
		}
		r.compiledPatterns = append(r.compiledPatterns, re)
	}

	for i, rule := range r.Interactions {
		if rule.DrugA == "" || rule.DrugB == "" {
			return &ValidationRuleError{Detail: fmt.Sprintf("interaction rule %d missing drug name", i)}
		}
	}
	for i, rule := range r.Dosages {
		if rule.Drug == "" {
			return &ValidationRuleError{Detail: fmt.Sprintf("dosage rule %d missing drug name", i)}
		}
		if rule.MinMg < 0 || rule.MaxMg <= 0 || rule.MinMg > rule.MaxMg {
			return &ValidationRuleError{Detail: fmt.Sprintf("dosage rule %d (%s): invalid range [%.1f, %.1f]", i, rule.Drug, rule.MinMg, rule.MaxMg)}
		}
	}

	return nil
}

// Interacting returns the rule covering the drug pair, in either order.
func (r *Rules) Interacting(drugA, drugB string) (InteractionRule, bool) {
	for _, rule := range r.Interactions {
		if (rule.DrugA == drugA && rule.DrugB == drugB) || (rule.DrugA == drugB && rule.DrugB == drugA) {
			return rule, true
		}
	}
	return InteractionRule{}, false
}

func (r *Rules) DosageFor(drug string) (DosageRule, bool) {
	for _, rule := range r.Dosages {
		if rule.Drug == drug {
			return rule, true
		}
	}
	return DosageRule{}, false
}

func DefaultRules() *Rules {
	return &Rules{
		ForbiddenPhrases: []ForbiddenPhrase{
			{Phrase: "保证治愈", Replacement: "有助于病情控制"},
			{Phrase: "完全治愈", Replacement: "长期良好控制"},
			{Phrase: "根治", Replacement: "规范治疗"},
			{Phrase: "绝对安全", Replacement: "总体安全性较好"},
			{Phrase: "没有副作用", Replacement: "副作用相对较少"},
			{Phrase: "最好的药", Replacement: "常用的药物之一"},
			{Phrase: "唯一的选择", Replacement: "可选方案之一"},
		},
		OverpromisePatterns: []OverpromisePattern{
			{
				Pattern:     `(100%|百分之百|一定|必然)[^。，]*?(治愈|康复|痊愈)`,
				Replacement: "在规范治疗下病情通常可以得到良好控制",
			},
		},
		RiskKeywords: []string{
			"立即", "紧急", "危险", "严重", "致命",
			"停药", "加量", "减量", "换药",
			"手术", "住院", "急诊",
		},
		RiskNotice: "⚠️ 本建议涉及重要医疗决策，请务必咨询主治医生后再执行。",
		Disclaimer: "⚠️ 【重要声明】本建议仅供医疗专业人员参考，不能替代医生的临床判断。所有诊疗决策请在医生指导下进行。如有紧急情况，请立即就医或拨打120急救电话。",
		Interactions: []InteractionRule{
			{DrugA: "二甲双胍", DrugB: "碘造影剂", Note: "造影检查前后48小时应停用二甲双胍，警惕乳酸酸中毒"},
			{DrugA: "格列本脲", DrugB: "阿司匹林", Note: "水杨酸类增强磺脲类降糖作用，警惕低血糖"},
			{DrugA: "卡托普利", DrugB: "螺内酯", Note: "ACEI与保钾利尿剂合用警惕高钾血症"},
			{DrugA: "胰岛素", DrugB: "普萘洛尔", Note: "β受体阻滞剂可掩盖低血糖症状"},
		},
		Dosages: []DosageRule{
			{Drug: "二甲双胍", MinMg: 500, MaxMg: 2550},
			{Drug: "格列本脲", MinMg: 2.5, MaxMg: 15},
			{Drug: "卡托普利", MinMg: 12.5, MaxMg: 150},
			{Drug: "氨氯地平", MinMg: 2.5, MaxMg: 10},
		},
	}
}
