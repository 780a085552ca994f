package workflow

import (
	"context"
	"fmt"

	"github.com/quizdesk/quizbot/internal/session"
)

// beginAssignment opens the bank pick of the assignment workflow.
func (e *Engine) beginAssignment(user User) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}
	names, err := e.banks.List()
	if err != nil {
		return Prompt{}, err
	}
	if len(names) == 0 {
		return Prompt{Text: "There are no test banks to assign yet."}, nil
	}

	e.sessions.Put(user.ID, session.Session{
		Step:      session.StepSelectingAssignBank,
		Assigning: &session.AssignmentDraft{},
	})
	return Prompt{
		Text:    "Which bank do you want to assign?",
		Choices: bankChoices(names, func(n string) Action { return SelectBank{Name: n} }),
	}, nil
}

func (e *Engine) assignmentStep(ctx context.Context, user User, sess session.Session, act Action) (Prompt, error) {
	switch sess.Step {
	case session.StepSelectingAssignBank:
		sel, ok := act.(SelectBank)
		if !ok {
			return mismatch(sess.Step, act)
		}
		if _, err := e.banks.Load(sel.Name); err != nil {
			return Prompt{}, err
		}

		students, err := e.results.ListStudents(ctx)
		if err != nil {
			return Prompt{}, err
		}
		if len(students) == 0 {
			e.sessions.Clear(user.ID)
			return Prompt{Text: "No students have registered yet."}, nil
		}

		sess.Assigning.Bank = sel.Name
		sess.Step = session.StepSelectingAssignStudent
		e.sessions.Put(user.ID, sess)

		choices := make([]Choice, 0, len(students))
		for _, st := range students {
			choices = append(choices, Choice{
				Text:   fmt.Sprintf("%s %s", st.FirstName, st.LastName),
				Action: SelectStudent{StudentID: st.ID},
			})
		}
		return Prompt{Text: "Which student should take it?", Choices: choices}, nil

	case session.StepSelectingAssignStudent:
		sel, ok := act.(SelectStudent)
		if !ok {
			return mismatch(sess.Step, act)
		}
		bankName := sess.Assigning.Bank
		if err := e.results.UpsertAssignment(ctx, sel.StudentID, bankName); err != nil {
			return Prompt{}, err
		}
		e.sessions.Clear(user.ID)

		e.notifyAssigned(ctx, sel.StudentID, bankName)
		return Prompt{Text: fmt.Sprintf("Bank %q assigned.", bankName)}, nil
	}
	return mismatch(sess.Step, act)
}

// notifyAssigned tells the student a new test is waiting. Delivery of the
// notification is best effort; the assignment is already persisted.
func (e *Engine) notifyAssigned(ctx context.Context, studentID int64, bankName string) {
	if e.notify == nil {
		return
	}
	st, err := e.results.StudentByID(ctx, studentID)
	if err != nil {
		return
	}
	_ = e.notify.Notify(st.UserID, Prompt{
		Text:    "You have been assigned a new test!",
		Choices: []Choice{{Text: "Start the test", Action: BeginDelivery{}}},
	})
}
