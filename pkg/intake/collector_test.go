package intake

import (
	"testing"
)

func TestValidateExtractsFromMessage(t *testing.T) {
	c := NewCollector()

	result := c.Validate("I want to spend 5 days in Tokyo, love food and culture", nil, nil)

	if !result.IsComplete {
		t.Error("expected complete context")
	}
	if got := result.Merged[KeyDestination]; got != "Tokyo" {
		t.Errorf("destination = %v, want Tokyo", got)
	}
	if got := result.Merged[KeyDays]; got != 5 {
		t.Errorf("days = %v, want 5", got)
	}
	interests, ok := result.Merged[KeyInterests].([]string)
	if !ok || len(interests) != 2 {
		t.Fatalf("interests = %v, want [culture food]", result.Merged[KeyInterests])
	}
	if interests[0] != "culture" || interests[1] != "food" {
		t.Errorf("interests = %v, want [culture food]", interests)
	}
}

// Two-turn flow: the first turn collects the destination, the second supplies
// only the day count and must keep the accumulated context.
func TestValidateAcrossTurns(t *testing.T) {
	c := NewCollector()

	first := c.Validate("Tokyo", map[string]interface{}{}, map[string]interface{}{})
	if first.IsComplete {
		t.Error("first turn should be incomplete")
	}
	if got := first.Merged[KeyDestination]; got != "Tokyo" {
		t.Fatalf("destination = %v, want Tokyo", got)
	}
	if len(first.Missing) == 0 || first.Missing[0].Key != KeyDays {
		t.Fatalf("first missing = %v, want days first", first.Missing)
	}

	second := c.Validate("5 days", map[string]interface{}{"destination": "Tokyo"}, map[string]interface{}{})
	if !second.IsComplete {
		t.Error("second turn should be complete")
	}
	if got := second.Merged[KeyDestination]; got != "Tokyo" {
		t.Errorf("destination = %v, want Tokyo", got)
	}
	if got := second.Merged[KeyDays]; got != 5 {
		t.Errorf("days = %v, want 5", got)
	}
}

func TestValidateExistingWinsOverExtraction(t *testing.T) {
	c := NewCollector()

	result := c.Validate("actually Paris for 3 days",
		map[string]interface{}{"destination": "Tokyo"}, nil)

	if got := result.Merged[KeyDestination]; got != "Tokyo" {
		t.Errorf("destination = %v, want Tokyo (existing context wins)", got)
	}
	if got := result.Merged[KeyDays]; got != 3 {
		t.Errorf("days = %v, want 3 (extraction fills the gap)", got)
	}
}

func TestValidatePreferencesFillGapsOnly(t *testing.T) {
	c := NewCollector()

	result := c.Validate("4 days in Kyoto", nil,
		map[string]interface{}{"budget": 2000, "interests": []string{"nature"}})

	if got := result.Merged[KeyBudget]; got != 2000 {
		t.Errorf("budget = %v, want 2000 from preferences", got)
	}

	overridden := c.Validate("4 days in Kyoto, budget 500", nil,
		map[string]interface{}{"budget": 2000})
	if got := overridden.Merged[KeyBudget]; got != 500 {
		t.Errorf("budget = %v, want 500 (message beats preferences)", got)
	}
}

func TestValidateChineseInput(t *testing.T) {
	c := NewCollector()

	result := c.Validate("去北京玩3天，喜欢美食和历史", nil, nil)
	if !result.IsComplete {
		t.Error("expected complete context")
	}
	if got := result.Merged[KeyDestination]; got != "北京" {
		t.Errorf("destination = %v, want 北京", got)
	}
	if got := result.Merged[KeyDays]; got != 3 {
		t.Errorf("days = %v, want 3", got)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	c := NewCollector()

	tests := []struct {
		name     string
		existing map[string]interface{}
	}{
		{"empty_destination", map[string]interface{}{"destination": "   ", "days": 5}},
		{"zero_days", map[string]interface{}{"destination": "Tokyo", "days": 0}},
		{"negative_days", map[string]interface{}{"destination": "Tokyo", "days": -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Validate("", tt.existing, nil)
			if result.IsComplete {
				t.Errorf("context %v should be incomplete", tt.existing)
			}
		})
	}
}

func TestMissingSortedRequiredFirst(t *testing.T) {
	c := NewCollector()

	result := c.Validate("", nil, nil)
	if len(result.Missing) != 4 {
		t.Fatalf("len(Missing) = %d, want 4", len(result.Missing))
	}
	if !result.Missing[0].Required || !result.Missing[1].Required {
		t.Error("required fields must sort first")
	}
	if result.Missing[2].Required || result.Missing[3].Required {
		t.Error("optional fields must sort last")
	}
}

func TestRecommendedMissingStillComplete(t *testing.T) {
	c := NewCollector()

	result := c.Validate("", map[string]interface{}{"destination": "Tokyo", "days": 5}, nil)
	if !result.IsComplete {
		t.Error("missing optional fields must not block completeness")
	}
	if len(result.Missing) != 2 {
		t.Errorf("len(Missing) = %d, want 2 (budget, interests)", len(result.Missing))
	}
}

func TestBuildQuestionsCoversMissing(t *testing.T) {
	c := NewCollector()

	result := c.Validate("Tokyo", nil, nil)
	seq := c.BuildQuestions(result.Missing)

	questions := seq.Questions()
	if len(questions) != len(result.Missing) {
		t.Fatalf("len(questions) = %d, want %d", len(questions), len(result.Missing))
	}
	if questions[0].ContextKey != KeyDays {
		t.Errorf("first question key = %v, want days", questions[0].ContextKey)
	}
	if questions[0].Status != QuestionActive {
		t.Errorf("first question status = %v, want active", questions[0].Status)
	}
}
