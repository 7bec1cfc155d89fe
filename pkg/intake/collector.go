// Package intake decides whether a trip request carries enough information
// to plan against, extracts fields from free text, and drives the
// clarification question sequence for whatever is missing.
package intake

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Context keys the collector knows about.
const (
	KeyDestination = "destination"
	KeyDays        = "days"
	KeyBudget      = "budget"
	KeyInterests   = "interests"
)

// FieldDef describes one collectable field.
type FieldDef struct {
	Key      string
	Required bool
	Prompt   string
	Type     QuestionType
	Options  []string
	Order    int
}

// MissingField is one absent entry in the validation result, required fields
// sorted first.
type MissingField struct {
	Key      string `json:"key"`
	Required bool   `json:"required"`
	Prompt   string `json:"prompt"`
}

// Result is the outcome of one validation pass.
type Result struct {
	IsComplete bool                   `json:"isComplete"`
	Missing    []MissingField         `json:"missingInfo"`
	Merged     map[string]interface{} `json:"mergedContext"`
}

// Collector validates trip context completeness.
type Collector struct {
	fields       []FieldDef
	destinations []string
	interests    map[string]string
}

var (
	daysPattern   = regexp.MustCompile(`(\d+)\s*(?:days?|天|日)`)
	budgetPattern = regexp.MustCompile(`(?:budget|预算)\D{0,10}(\d+)|[$¥€](\d+)`)
)

// NewCollector builds a collector with the built-in field definitions and
// destination vocabulary.
func NewCollector() *Collector {
	return &Collector{
		fields: []FieldDef{
			{Key: KeyDestination, Required: true, Order: 1, Type: QuestionText,
				Prompt: "Where would you like to go?"},
			{Key: KeyDays, Required: true, Order: 2, Type: QuestionNumber,
				Prompt: "How many days will you be traveling?"},
			{Key: KeyBudget, Required: false, Order: 3, Type: QuestionNumber,
				Prompt: "What is your budget for this trip?"},
			{Key: KeyInterests, Required: false, Order: 4, Type: QuestionMultiChoice,
				Options: []string{"food", "culture", "nature", "shopping", "nightlife"},
				Prompt:  "What are you most interested in?"},
		},
		destinations: []string{
			"Tokyo", "Kyoto", "Osaka", "Paris", "London", "Rome", "Barcelona",
			"New York", "Bangkok", "Singapore", "Seoul", "Sydney", "Bali",
			"Beijing", "Shanghai", "Chengdu", "Xi'an", "Hangzhou", "Sanya",
			"东京", "京都", "大阪", "巴黎", "伦敦", "北京", "上海", "成都", "西安", "杭州", "三亚",
		},
		interests: map[string]string{
			"food": "food", "美食": "food", "eat": "food",
			"culture": "culture", "文化": "culture", "history": "culture", "历史": "culture",
			"nature": "nature", "自然": "nature", "hiking": "nature",
			"shopping": "shopping", "购物": "shopping",
			"nightlife": "nightlife", "夜生活": "nightlife",
		},
	}
}

// Validate extracts candidate fields from the message, merges them under the
// caller's accumulated context, and reports what is still missing.
//
// Precedence, highest first: the caller's existing context (answers the user
// already confirmed), the current message's extraction, then stored
// preferences as gap fillers. A fresh extraction never overrides an existing
// value; re-planning with a new destination requires the caller to drop the
// old one explicitly.
func (c *Collector) Validate(message string, existing, preferences map[string]interface{}) Result {
	merged := make(map[string]interface{})

	for key, value := range preferences {
		if !isEmptyValue(value) {
			merged[key] = value
		}
	}
	for key, value := range c.extract(message) {
		merged[key] = value
	}
	for key, value := range existing {
		if !isEmptyValue(value) {
			merged[key] = value
		}
	}

	var missing []MissingField
	for _, field := range c.fields {
		if c.fieldPresent(field.Key, merged) {
			continue
		}
		missing = append(missing, MissingField{
			Key:      field.Key,
			Required: field.Required,
			Prompt:   field.Prompt,
		})
	}

	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Required && !missing[j].Required
	})

	isComplete := true
	for _, m := range missing {
		if m.Required {
			isComplete = false
			break
		}
	}

	return Result{
		IsComplete: isComplete,
		Missing:    missing,
		Merged:     merged,
	}
}

// BuildQuestions derives an ordered question sequence covering exactly the
// missing fields, required questions first.
func (c *Collector) BuildQuestions(missing []MissingField) *QuestionSequence {
	var defs []FieldDef
	for _, m := range missing {
		for _, field := range c.fields {
			if field.Key == m.Key {
				defs = append(defs, field)
			}
		}
	}

	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Required != defs[j].Required {
			return defs[i].Required
		}
		return defs[i].Order < defs[j].Order
	})

	return NewQuestionSequence(defs)
}

// extract pulls candidate fields out of free text with lightweight pattern
// matching against the known vocabulary.
func (c *Collector) extract(message string) map[string]interface{} {
	extracted := make(map[string]interface{})
	if message == "" {
		return extracted
	}

	lower := strings.ToLower(message)

	for _, dest := range c.destinations {
		if strings.Contains(lower, strings.ToLower(dest)) {
			extracted[KeyDestination] = dest
			break
		}
	}

	if m := daysPattern.FindStringSubmatch(message); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil && days > 0 {
			extracted[KeyDays] = days
		}
	}

	if m := budgetPattern.FindStringSubmatch(message); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if budget, err := strconv.Atoi(raw); err == nil && budget > 0 {
			extracted[KeyBudget] = budget
		}
	}

	var found []string
	seen := make(map[string]bool)
	for keyword, canonical := range c.interests {
		if strings.Contains(lower, keyword) && !seen[canonical] {
			seen[canonical] = true
			found = append(found, canonical)
		}
	}
	if len(found) > 0 {
		sort.Strings(found)
		extracted[KeyInterests] = found
	}

	return extracted
}

// fieldPresent applies the per-field completeness rule: destination must be
// a non-empty string, days a positive number, everything else just set.
func (c *Collector) fieldPresent(key string, ctx map[string]interface{}) bool {
	value, ok := ctx[key]
	if !ok || value == nil {
		return false
	}

	switch key {
	case KeyDestination:
		s, ok := value.(string)
		return ok && strings.TrimSpace(s) != ""
	case KeyDays:
		return numericValue(value) > 0
	default:
		return !isEmptyValue(value)
	}
}

func numericValue(value interface{}) float64 {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	}
	return false
}
