package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/session"
)

// beginRegistration opens the name dialogue unless the user is already
// registered, in which case no session is created.
func (e *Engine) beginRegistration(ctx context.Context, user User) (Prompt, error) {
	if st, err := e.results.StudentByUserID(ctx, user.ID); err == nil {
		return Prompt{}, fmt.Errorf("%w: user %d is %s %s", quiz.ErrIntegrityViolation, user.ID, st.FirstName, st.LastName)
	}
	e.sessions.Put(user.ID, session.Session{
		Step:         session.StepAwaitingFirstName,
		Registration: &session.RegistrationDraft{},
	})
	return Prompt{Text: "Enter your first name:"}, nil
}

func (e *Engine) registrationStep(ctx context.Context, user User, sess session.Session, act Action) (Prompt, error) {
	in, ok := act.(Input)
	if !ok {
		return mismatch(sess.Step, act)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Prompt{Text: "The name cannot be empty. Try again:"}, nil
	}

	switch sess.Step {
	case session.StepAwaitingFirstName:
		sess.Registration.FirstName = text
		sess.Step = session.StepAwaitingLastName
		e.sessions.Put(user.ID, sess)
		return Prompt{Text: "Now enter your last name:"}, nil

	case session.StepAwaitingLastName:
		st, err := e.results.RegisterStudent(ctx, sess.Registration.FirstName, text, user.ID)
		// Whether the insert succeeded or raced a concurrent registration,
		// the dialogue is over.
		e.sessions.Clear(user.ID)
		if err != nil {
			return Prompt{}, err
		}
		return Prompt{Text: fmt.Sprintf("Thanks, %s! You are registered.", st.FirstName)}, nil
	}
	return mismatch(sess.Step, act)
}
