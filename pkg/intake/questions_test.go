package intake

import (
	"testing"
)

func fullSequence(t *testing.T) *QuestionSequence {
	t.Helper()
	c := NewCollector()
	result := c.Validate("", nil, nil)
	return c.BuildQuestions(result.Missing)
}

func TestSequenceOrdering(t *testing.T) {
	seq := fullSequence(t)

	keys := make([]string, 0, 4)
	for _, q := range seq.Questions() {
		keys = append(keys, q.ContextKey)
	}
	want := []string{KeyDestination, KeyDays, KeyBudget, KeyInterests}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("question order = %v, want %v", keys, want)
		}
	}
}

func TestAnswerAdvancesCursor(t *testing.T) {
	seq := fullSequence(t)

	first := seq.Current()
	if first == nil || first.ContextKey != KeyDestination {
		t.Fatalf("Current() = %v, want destination", first)
	}

	if err := seq.Answer(first.ID, "Tokyo"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	second := seq.Current()
	if second == nil || second.ContextKey != KeyDays {
		t.Fatalf("Current() after answer = %v, want days", second)
	}
	if second.Status != QuestionActive {
		t.Errorf("status = %v, want active", second.Status)
	}
}

func TestAnswerUnknownQuestion(t *testing.T) {
	seq := fullSequence(t)
	if err := seq.Answer("nope", "x"); err == nil {
		t.Error("expected error for unknown question id")
	}
}

func TestAnswerTwiceRejected(t *testing.T) {
	seq := fullSequence(t)
	q := seq.Current()

	if err := seq.Answer(q.ID, "Tokyo"); err != nil {
		t.Fatalf("first Answer() error = %v", err)
	}
	if err := seq.Answer(q.ID, "Paris"); err == nil {
		t.Error("expected error answering the same question twice")
	}
	if got := seq.CompletedContext()[KeyDestination]; got != "Tokyo" {
		t.Errorf("destination = %v, want Tokyo", got)
	}
}

func TestSkipRequiredRejected(t *testing.T) {
	seq := fullSequence(t)
	q := seq.Current()

	if err := seq.Skip(q.ID); err == nil {
		t.Fatal("expected error skipping a required question")
	}

	// No state change: the question is still current and unanswered.
	after := seq.Current()
	if after == nil || after.ID != q.ID {
		t.Error("cursor moved after rejected skip")
	}
	if after.Status != QuestionActive {
		t.Errorf("status = %v, want active", after.Status)
	}
	if _, ok := seq.CompletedContext()[q.ContextKey]; ok {
		t.Error("rejected skip wrote into context")
	}
}

func TestSkipOptionalLeavesContextAbsent(t *testing.T) {
	seq := fullSequence(t)

	if err := seq.Answer(seq.Current().ID, "Tokyo"); err != nil {
		t.Fatal(err)
	}
	if err := seq.Answer(seq.Current().ID, 5); err != nil {
		t.Fatal(err)
	}

	budget := seq.Current()
	if budget.ContextKey != KeyBudget {
		t.Fatalf("current = %v, want budget", budget.ContextKey)
	}
	if err := seq.Skip(budget.ID); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}

	ctx := seq.CompletedContext()
	if _, ok := ctx[KeyBudget]; ok {
		t.Error("skipped question must not appear in completed context")
	}
	if ctx[KeyDestination] != "Tokyo" || ctx[KeyDays] != 5 {
		t.Errorf("completed context = %v, want destination and days", ctx)
	}
}

func TestDoneAfterAllAnsweredOrSkipped(t *testing.T) {
	seq := fullSequence(t)

	if err := seq.Answer(seq.Current().ID, "Tokyo"); err != nil {
		t.Fatal(err)
	}
	if err := seq.Answer(seq.Current().ID, 5); err != nil {
		t.Fatal(err)
	}
	if seq.Done() {
		t.Error("sequence done with optional questions outstanding")
	}
	if err := seq.Skip(seq.Current().ID); err != nil {
		t.Fatal(err)
	}
	if err := seq.Answer(seq.Current().ID, []string{"food"}); err != nil {
		t.Fatal(err)
	}

	if !seq.Done() {
		t.Error("sequence should be done")
	}
	if seq.Current() != nil {
		t.Error("Current() should be nil when done")
	}
}

func TestEmptySequence(t *testing.T) {
	seq := NewQuestionSequence(nil)
	if !seq.Done() {
		t.Error("empty sequence should be done")
	}
	if seq.Current() != nil {
		t.Error("Current() on empty sequence should be nil")
	}
}
