// Package quiz holds the bank/test/question model shared by the authoring
// and delivery workflows and the scoring rules applied to completed runs.
package quiz

import "fmt"

// Label identifies one of the four answer options of a question.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
	LabelD Label = "D"
)

// Labels lists the option labels in presentation order.
var Labels = [4]Label{LabelA, LabelB, LabelC, LabelD}

// ParseLabel validates a raw choice token coming from the transport layer.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelA, LabelB, LabelC, LabelD:
		return Label(s), nil
	}
	return "", fmt.Errorf("%w: answer label %q", ErrMalformed, s)
}

// AnswerOption is one labelled choice of a question.
type AnswerOption struct {
	Label Label  `json:"label"`
	Text  string `json:"text"`
}

// Question is a prompt with exactly four labelled options and one correct label.
type Question struct {
	Prompt  string         `json:"prompt"`
	Options []AnswerOption `json:"options"`
	Correct Label          `json:"correct"`
}

// Validate checks the structural invariant required before a question may be
// appended to a draft test: four options labelled A-D and a valid correct label.
func (q Question) Validate() error {
	if len(q.Options) != len(Labels) {
		return fmt.Errorf("%w: question has %d options, want %d", ErrMalformed, len(q.Options), len(Labels))
	}
	for i, opt := range q.Options {
		if opt.Label != Labels[i] {
			return fmt.Errorf("%w: option %d labelled %q, want %q", ErrMalformed, i, opt.Label, Labels[i])
		}
	}
	if _, err := ParseLabel(string(q.Correct)); err != nil {
		return err
	}
	return nil
}

// TestDefinition is one quiz inside a bank. ID is bank-local, 1-based, and
// equals the bank length at the moment the test was finalized.
type TestDefinition struct {
	ID        int        `json:"id"`
	Questions []Question `json:"questions"`
}

// TestBank is a named, ordered collection of test definitions.
type TestBank struct {
	Name  string           `json:"name"`
	Tests []TestDefinition `json:"tests"`
}

// FlatQuestion is a question positioned in the concatenated sequence of a bank.
type FlatQuestion struct {
	TestID   int
	Question Question
}

// Flatten concatenates all test definitions of the bank into one ordered
// question sequence: definition order first, in-definition order second.
// Delivery presents this sequence with global 1-based numbering.
func (b TestBank) Flatten() []FlatQuestion {
	var out []FlatQuestion
	for _, t := range b.Tests {
		for _, q := range t.Questions {
			out = append(out, FlatQuestion{TestID: t.ID, Question: q})
		}
	}
	return out
}

// AnswerKey extracts the correct labels of a flattened sequence, in order.
func AnswerKey(seq []FlatQuestion) []Label {
	key := make([]Label, len(seq))
	for i, fq := range seq {
		key[i] = fq.Question.Correct
	}
	return key
}
