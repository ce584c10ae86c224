package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog maps colloquial or abbreviated medical terms to canonical ones,
// e.g. 心梗 → 心肌梗死. Questions are normalized before retrieval so the
// knowledge index is queried with the terms its passages actually use.
type Catalog struct {
	Terms map[string]string `yaml:"terms" json:"terms"`

	// keys sorted longest first so 急性心梗 wins over 心梗.
	ordered []string
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Terms) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	cat.buildOrder()
	return cat, nil
}

func (c *Catalog) buildOrder() {
	c.ordered = make([]string, 0, len(c.Terms))
	for term := range c.Terms {
		c.ordered = append(c.ordered, term)
	}
	sort.Slice(c.ordered, func(i, j int) bool {
		if len(c.ordered[i]) != len(c.ordered[j]) {
			return len(c.ordered[i]) > len(c.ordered[j])
		}
		return c.ordered[i] < c.ordered[j]
	})
}

// Normalize rewrites every known colloquial term in text to its canonical
// form. Longer terms are replaced first.
func (c Catalog) Normalize(text string) string {
	for _, term := range c.ordered {
		canonical := c.Terms[term]
		if term == canonical {
			continue
		}
		text = strings.ReplaceAll(text, term, canonical)
	}
	return text
}

func (c Catalog) Lookup(term string) (string, bool) {
	canonical, ok := c.Terms[term]
	return canonical, ok
}

func DefaultCatalog() Catalog {
	cat := Catalog{Terms: map[string]string{
		// 心血管疾病
		"急性心梗": "急性心肌梗死",
		"心梗":   "心肌梗死",
		"心衰":   "心力衰竭",
		"房颤":   "心房颤动",
		"冠心病":  "冠状动脉粥样硬化性心脏病",

		// 高血压相关
		"血压高":   "高血压",
		"高血压危象": "高血压急症",

		// 糖尿病相关
		"T1DM": "1型糖尿病",
		"T2DM": "2型糖尿病",
		"血糖高":  "高血糖",
		"糖化血红蛋白": "糖化血红蛋白",
		"HbA1c":  "糖化血红蛋白",

		// 肾脏疾病
		"肾衰":  "肾功能衰竭",
		"尿毒症": "慢性肾功能衰竭尿毒症期",

		// 脑血管疾病
		"脑梗塞": "脑梗死",
		"脑梗":  "脑梗死",
		"中风":  "脑卒中",

		// 症状
		"头疼":  "头痛",
		"气短":  "呼吸困难",
		"心慌":  "心悸",
		"心跳快": "心动过速",
	}}
	cat.buildOrder()
	return cat
}
