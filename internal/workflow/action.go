// Package workflow implements the per-user conversational state machines:
// test authoring, student registration, assignment hand-out and test
// delivery, plus the dispatcher that routes typed actions to the active step.
// It is transport-free: the chat layer converts updates into Actions and
// renders the returned Prompts.
package workflow

import "github.com/quizdesk/quizbot/internal/quiz"

// Action is the closed set of inputs the engine accepts. The transport layer
// produces exactly one variant per inbound event; anything it cannot map is
// never forwarded.
type Action interface{ isAction() }

// Entry actions. They start a workflow or run a one-shot operation and are
// only accepted when no other workflow step is pending (Cancel aside).

// BeginBankCreate starts bank creation (admin).
type BeginBankCreate struct{}

// BeginAuthoring starts test authoring with a bank pick (admin).
type BeginAuthoring struct{}

// BeginAssignment starts handing a bank to a student (admin).
type BeginAssignment struct{}

// ShowBanks lists banks with their sizes (admin).
type ShowBanks struct{}

// ShowBankResults shows one bank's standings (admin).
type ShowBankResults struct{ Bank string }

// DeleteBank removes a whole bank (admin).
type DeleteBank struct{ Bank string }

// DeleteTest removes one test definition from a bank (admin).
type DeleteTest struct {
	Bank   string
	TestID int
}

// BeginRegistration starts student registration.
type BeginRegistration struct{}

// BeginDelivery starts a test run with an assignment pick (student).
type BeginDelivery struct{}

// ShowMyResults shows the student's recent results.
type ShowMyResults struct{}

// Step inputs. They advance the workflow the session is currently in.

// Input carries free text for the step awaiting it.
type Input struct{ Text string }

// SelectBank picks a bank while authoring or assigning.
type SelectBank struct{ Name string }

// SelectStudent picks the assignment target.
type SelectStudent struct{ StudentID int64 }

// SelectAssignment picks which pending assignment to run.
type SelectAssignment struct{ Bank string }

// ChooseCorrect records the correct label of the drafted question.
type ChooseCorrect struct{ Label quiz.Label }

// Decide answers the "add another question?" prompt.
type Decide struct{ Yes bool }

// SubmitAnswer records the student's choice for the current question.
type SubmitAnswer struct{ Label quiz.Label }

// Cancel aborts the active workflow, discarding scratch data. It is accepted
// at every step, including mid-question.
type Cancel struct{}

func (BeginBankCreate) isAction()   {}
func (BeginAuthoring) isAction()    {}
func (BeginAssignment) isAction()   {}
func (ShowBanks) isAction()         {}
func (ShowBankResults) isAction()   {}
func (DeleteBank) isAction()        {}
func (DeleteTest) isAction()        {}
func (BeginRegistration) isAction() {}
func (BeginDelivery) isAction()     {}
func (ShowMyResults) isAction()     {}
func (Input) isAction()             {}
func (SelectBank) isAction()        {}
func (SelectStudent) isAction()     {}
func (SelectAssignment) isAction()  {}
func (ChooseCorrect) isAction()     {}
func (Decide) isAction()            {}
func (SubmitAnswer) isAction()      {}
func (Cancel) isAction()            {}
