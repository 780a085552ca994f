// Package session keeps one in-memory conversation state per user id.
// A session records which workflow step the user is on plus the scratch data
// accumulated so far; it is replaced wholesale when a new workflow starts.
package session

import (
	"sync"

	"github.com/quizdesk/quizbot/internal/quiz"
)

// Step identifies a finite-state-machine step inside a workflow.
type Step string

const (
	// StepIdle indicates there is no active conversation with the user.
	StepIdle Step = "idle"

	// Authoring workflow.
	StepAwaitingBankName       Step = "authoring_awaiting_bank_name"
	StepSelectingBank          Step = "authoring_selecting_bank"
	StepAwaitingQuestion       Step = "authoring_awaiting_question"
	StepAwaitingAnswerA        Step = "authoring_awaiting_answer_a"
	StepAwaitingAnswerB        Step = "authoring_awaiting_answer_b"
	StepAwaitingAnswerC        Step = "authoring_awaiting_answer_c"
	StepAwaitingAnswerD        Step = "authoring_awaiting_answer_d"
	StepAwaitingCorrectChoice  Step = "authoring_awaiting_correct_choice"
	StepAwaitingContinueChoice Step = "authoring_awaiting_continue_choice"

	// Registration workflow.
	StepAwaitingFirstName Step = "registration_awaiting_first_name"
	StepAwaitingLastName  Step = "registration_awaiting_last_name"

	// Assignment workflow (admin hands a bank to a student).
	StepSelectingAssignBank    Step = "assigning_selecting_bank"
	StepSelectingAssignStudent Step = "assigning_selecting_student"

	// Delivery workflow.
	StepSelectingAssignment Step = "delivery_selecting_assignment"
	StepAnsweringQuestion   Step = "delivery_answering_question"
)

// AuthoringDraft accumulates a test definition under construction.
type AuthoringDraft struct {
	Bank      string
	Questions []quiz.Question
	// Current is the partially entered question: prompt first, then options
	// A through D, then the correct label.
	Current quiz.Question
}

// DeliveryRun tracks a student's pass over a flattened bank.
type DeliveryRun struct {
	Bank      string
	StudentID int64
	Sequence  []quiz.FlatQuestion
	Cursor    int
	Answers   []quiz.Label
}

// RegistrationDraft accumulates the student's name inputs.
type RegistrationDraft struct {
	FirstName string
}

// AssignmentDraft tracks the admin's bank pick while choosing a student.
type AssignmentDraft struct {
	Bank string
}

// Session is the per-user workflow state. Exactly one scratch field is
// non-nil while the matching workflow is in progress.
type Session struct {
	UserID       int64
	Step         Step
	Authoring    *AuthoringDraft
	Delivery     *DeliveryRun
	Registration *RegistrationDraft
	Assigning    *AssignmentDraft
}

// clone duplicates the session's scratch so callers never alias the stored
// drafts through the pointer fields.
func (s Session) clone() Session {
	if s.Authoring != nil {
		a := *s.Authoring
		a.Questions = cloneQuestions(s.Authoring.Questions)
		a.Current.Options = append([]quiz.AnswerOption(nil), s.Authoring.Current.Options...)
		s.Authoring = &a
	}
	if s.Delivery != nil {
		d := *s.Delivery
		d.Sequence = append([]quiz.FlatQuestion(nil), s.Delivery.Sequence...)
		for i := range d.Sequence {
			d.Sequence[i].Question.Options = append([]quiz.AnswerOption(nil), d.Sequence[i].Question.Options...)
		}
		d.Answers = append([]quiz.Label(nil), s.Delivery.Answers...)
		s.Delivery = &d
	}
	if s.Registration != nil {
		r := *s.Registration
		s.Registration = &r
	}
	if s.Assigning != nil {
		a := *s.Assigning
		s.Assigning = &a
	}
	return s
}

func cloneQuestions(qs []quiz.Question) []quiz.Question {
	if qs == nil {
		return nil
	}
	out := append([]quiz.Question(nil), qs...)
	for i := range out {
		out[i].Options = append([]quiz.AnswerOption(nil), out[i].Options...)
	}
	return out
}

// Store holds one active session per user id, safe for concurrent access
// from independent user handlers.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewStore constructs an empty in-memory session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]Session)}
}

// Get returns the user's session and whether one exists. The returned value
// is a copy down to the workflow scratch; mutations become visible only
// through Put.
func (s *Store) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess.clone(), ok
}

// Put stores the session, replacing any previous one for the user. The
// caller keeps ownership of the passed value: later mutations through its
// scratch pointers do not reach the store.
func (s *Store) Put(userID int64, sess Session) {
	sess.UserID = userID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess.clone()
}

// Clear removes the user's session entirely, discarding scratch data.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// InProgress reports whether the user has an active non-idle session.
func (s *Store) InProgress(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return ok && sess.Step != StepIdle
}
