package intake

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// QuestionType classifies how an answer should be collected.
type QuestionType string

const (
	QuestionText        QuestionType = "text"
	QuestionChoice      QuestionType = "choice"
	QuestionMultiChoice QuestionType = "multi-choice"
	QuestionDate        QuestionType = "date"
	QuestionNumber      QuestionType = "number"
)

// QuestionStatus is the lifecycle state of one question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionActive   QuestionStatus = "active"
	QuestionAnswered QuestionStatus = "answered"
)

// Question is one outstanding clarification.
type Question struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Type       QuestionType   `json:"type"`
	Options    []string       `json:"options,omitempty"`
	Required   bool           `json:"required"`
	Status     QuestionStatus `json:"status"`
	Answer     interface{}    `json:"answer,omitempty"`
	ContextKey string         `json:"contextKey"`
	Order      int            `json:"order"`

	answered bool // distinguishes a nil answer from no answer
}

// QuestionSequence is an ordered, steppable list of clarification questions
// plus the context fragment their answers build up.
type QuestionSequence struct {
	mu        sync.Mutex
	questions []*Question
	current   int
	context   map[string]interface{}
}

// NewQuestionSequence builds a sequence from field definitions, already
// sorted by the caller. The first question starts active.
func NewQuestionSequence(defs []FieldDef) *QuestionSequence {
	seq := &QuestionSequence{
		context: make(map[string]interface{}),
	}
	for i, def := range defs {
		q := &Question{
			ID:         uuid.NewString(),
			Text:       def.Prompt,
			Type:       def.Type,
			Options:    def.Options,
			Required:   def.Required,
			Status:     QuestionPending,
			ContextKey: def.Key,
			Order:      i,
		}
		seq.questions = append(seq.questions, q)
	}
	if len(seq.questions) > 0 {
		seq.questions[0].Status = QuestionActive
	}
	return seq
}

// Current returns the question awaiting an answer, or nil when the sequence
// is exhausted.
func (s *QuestionSequence) Current() *Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current >= len(s.questions) {
		return nil
	}
	q := *s.questions[s.current]
	return &q
}

// Questions returns a copy of all questions in order.
func (s *QuestionSequence) Questions() []Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = *q
	}
	return out
}

// Answer stores the answer, marks the question answered, writes the value
// into the sequence context at the question's context key, and advances.
func (s *QuestionSequence) Answer(id string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findLocked(id)
	if q == nil {
		return fmt.Errorf("question '%s' not found", id)
	}
	if q.Status == QuestionAnswered {
		return fmt.Errorf("question '%s' already answered", id)
	}

	q.Answer = value
	q.answered = true
	q.Status = QuestionAnswered
	s.context[q.ContextKey] = value

	s.advanceLocked()
	return nil
}

// Skip passes over a non-required question without touching context. Skipping
// a required question is rejected with no state change.
func (s *QuestionSequence) Skip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findLocked(id)
	if q == nil {
		return fmt.Errorf("question '%s' not found", id)
	}
	if q.Required {
		return fmt.Errorf("cannot skip required question '%s'", q.ContextKey)
	}
	if q.Status == QuestionAnswered {
		return fmt.Errorf("question '%s' already answered", id)
	}

	q.Answer = nil
	q.answered = false
	q.Status = QuestionAnswered

	s.advanceLocked()
	return nil
}

// Done reports whether every question has been answered or skipped.
func (s *QuestionSequence) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current >= len(s.questions)
}

// CompletedContext yields only the fields whose backing question was answered
// with a defined value; skipped questions contribute nothing.
func (s *QuestionSequence) CompletedContext() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]interface{})
	for _, q := range s.questions {
		if q.answered {
			out[q.ContextKey] = q.Answer
		}
	}
	return out
}

func (s *QuestionSequence) findLocked(id string) *Question {
	for _, q := range s.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// advanceLocked moves the cursor past answered questions and activates the
// next pending one.
func (s *QuestionSequence) advanceLocked() {
	for s.current < len(s.questions) && s.questions[s.current].Status == QuestionAnswered {
		s.current++
	}
	if s.current < len(s.questions) {
		s.questions[s.current].Status = QuestionActive
	}
}
