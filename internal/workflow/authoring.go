package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quizdesk/quizbot/internal/bank"
	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/session"
)

// beginBankCreate enters the bank-name step of the authoring workflow.
func (e *Engine) beginBankCreate(user User) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}
	e.sessions.Put(user.ID, session.Session{Step: session.StepAwaitingBankName})
	return Prompt{Text: "Enter a name for the new test bank:"}, nil
}

// beginAuthoring lists existing banks and asks which one to add a test to.
func (e *Engine) beginAuthoring(user User) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}

	names, err := e.banks.List()
	if err != nil {
		return Prompt{}, err
	}
	if len(names) == 0 {
		return Prompt{
			Text:    "There are no test banks yet. Create one first.",
			Choices: []Choice{{Text: "Create a bank", Action: BeginBankCreate{}}},
		}, nil
	}

	e.sessions.Put(user.ID, session.Session{Step: session.StepSelectingBank})
	return Prompt{
		Text:    "Which bank do you want to add a test to?",
		Choices: bankChoices(names, func(n string) Action { return SelectBank{Name: n} }),
	}, nil
}

func (e *Engine) authoringStep(ctx context.Context, user User, sess session.Session, act Action) (Prompt, error) {
	switch sess.Step {
	case session.StepAwaitingBankName:
		in, ok := act.(Input)
		if !ok {
			return mismatch(sess.Step, act)
		}
		return e.createBank(user, strings.TrimSpace(in.Text))

	case session.StepSelectingBank:
		sel, ok := act.(SelectBank)
		if !ok {
			return mismatch(sess.Step, act)
		}
		if _, err := e.banks.Load(sel.Name); err != nil {
			// Bank vanished between listing and picking; leave the pick open.
			return Prompt{}, err
		}
		e.sessions.Put(user.ID, session.Session{
			Step:      session.StepAwaitingQuestion,
			Authoring: &session.AuthoringDraft{Bank: sel.Name},
		})
		return questionPrompt("Enter the question text:"), nil

	case session.StepAwaitingQuestion:
		switch a := act.(type) {
		case Input:
			sess.Authoring.Current = quiz.Question{Prompt: a.Text}
			sess.Step = session.StepAwaitingAnswerA
			e.sessions.Put(user.ID, sess)
			return Prompt{Text: "Enter answer A:"}, nil
		case Decide:
			// Finishing here is legal even with zero questions collected.
			if !a.Yes {
				return e.finalizeTest(user, sess)
			}
		}
		return mismatch(sess.Step, act)

	case session.StepAwaitingAnswerA, session.StepAwaitingAnswerB,
		session.StepAwaitingAnswerC, session.StepAwaitingAnswerD:
		in, ok := act.(Input)
		if !ok {
			return mismatch(sess.Step, act)
		}
		return e.collectOption(user, sess, in.Text)

	case session.StepAwaitingCorrectChoice:
		choice, ok := act.(ChooseCorrect)
		if !ok {
			return mismatch(sess.Step, act)
		}
		sess.Authoring.Current.Correct = choice.Label
		if err := sess.Authoring.Current.Validate(); err != nil {
			return Prompt{}, err
		}
		sess.Authoring.Questions = append(sess.Authoring.Questions, sess.Authoring.Current)
		sess.Authoring.Current = quiz.Question{}
		sess.Step = session.StepAwaitingContinueChoice
		e.sessions.Put(user.ID, sess)
		return Prompt{
			Text: "Correct answer saved. Add another question?",
			Choices: []Choice{
				{Text: "Yes", Action: Decide{Yes: true}},
				{Text: "No", Action: Decide{Yes: false}},
			},
		}, nil

	case session.StepAwaitingContinueChoice:
		dec, ok := act.(Decide)
		if !ok {
			return mismatch(sess.Step, act)
		}
		if dec.Yes {
			sess.Step = session.StepAwaitingQuestion
			e.sessions.Put(user.ID, sess)
			return questionPrompt("Enter the question text:"), nil
		}
		return e.finalizeTest(user, sess)
	}
	return mismatch(sess.Step, act)
}

// createBank normalizes the proposed name and creates an empty bank. On a
// duplicate the session stays at the name step so the admin can retry.
func (e *Engine) createBank(user User, proposed string) (Prompt, error) {
	if proposed == "" {
		return Prompt{Text: "The bank name cannot be empty. Enter a name:"}, nil
	}
	name := bank.Normalize(proposed)
	if err := e.banks.Create(name); err != nil {
		return Prompt{}, err
	}

	e.sessions.Put(user.ID, session.Session{
		Step:      session.StepAwaitingQuestion,
		Authoring: &session.AuthoringDraft{Bank: name},
	})
	return questionPrompt(fmt.Sprintf("Bank %q created. Enter the first question text:", name)), nil
}

// questionPrompt asks for the next question and always offers to finish the
// test instead, which is how a zero-question test gets finalized.
func questionPrompt(text string) Prompt {
	return Prompt{
		Text:    text,
		Choices: []Choice{{Text: "Finish the test", Action: Decide{Yes: false}}},
	}
}

// collectOption appends the next answer option in label order.
func (e *Engine) collectOption(user User, sess session.Session, text string) (Prompt, error) {
	order := map[session.Step]int{
		session.StepAwaitingAnswerA: 0,
		session.StepAwaitingAnswerB: 1,
		session.StepAwaitingAnswerC: 2,
		session.StepAwaitingAnswerD: 3,
	}
	idx := order[sess.Step]
	sess.Authoring.Current.Options = append(sess.Authoring.Current.Options, quiz.AnswerOption{
		Label: quiz.Labels[idx],
		Text:  text,
	})

	if idx < len(quiz.Labels)-1 {
		next := []session.Step{
			session.StepAwaitingAnswerB,
			session.StepAwaitingAnswerC,
			session.StepAwaitingAnswerD,
		}[idx]
		sess.Step = next
		e.sessions.Put(user.ID, sess)
		return Prompt{Text: fmt.Sprintf("Enter answer %s:", quiz.Labels[idx+1])}, nil
	}

	sess.Step = session.StepAwaitingCorrectChoice
	e.sessions.Put(user.ID, sess)
	choices := make([]Choice, 0, len(quiz.Labels))
	for _, l := range quiz.Labels {
		choices = append(choices, Choice{Text: string(l), Action: ChooseCorrect{Label: l}})
	}
	return Prompt{Text: "Pick the correct answer:", Choices: choices}, nil
}

// finalizeTest appends the draft as a new test definition, id = current bank
// length + 1, inside the bank's serialized update section. A draft with zero
// questions is a legal, empty test. On a failed save the session is kept at
// the continue step so finishing can be retried.
func (e *Engine) finalizeTest(user User, sess session.Session) (Prompt, error) {
	draft := sess.Authoring
	var assigned int
	err := e.banks.Update(draft.Bank, func(b *quiz.TestBank) error {
		assigned = len(b.Tests) + 1
		questions := draft.Questions
		if questions == nil {
			questions = []quiz.Question{}
		}
		b.Tests = append(b.Tests, quiz.TestDefinition{ID: assigned, Questions: questions})
		return nil
	})
	if err != nil {
		return Prompt{}, err
	}

	e.sessions.Clear(user.ID)
	e.log.Info("test finalized",
		slog.String("event", "wf.authoring.finalize"),
		slog.String("bank", draft.Bank),
		slog.Int("test_id", assigned),
		slog.Int("questions", len(draft.Questions)),
	)
	return Prompt{Text: fmt.Sprintf("Test %d with %d question(s) saved to %q.", assigned, len(draft.Questions), draft.Bank)}, nil
}

// showBanks lists every bank with its test and question counts.
func (e *Engine) showBanks(user User) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}
	names, err := e.banks.List()
	if err != nil {
		return Prompt{}, err
	}
	if len(names) == 0 {
		return Prompt{Text: "There are no test banks yet."}, nil
	}

	var sb strings.Builder
	sb.WriteString("Test banks:\n")
	for _, n := range names {
		b, err := e.banks.Load(n)
		if err != nil {
			fmt.Fprintf(&sb, "%s — unreadable\n", n)
			continue
		}
		questions := 0
		for _, t := range b.Tests {
			questions += len(t.Questions)
		}
		fmt.Fprintf(&sb, "%s — %d test(s), %d question(s)\n", n, len(b.Tests), questions)
	}
	return Prompt{Text: sb.String()}, nil
}

// deleteBank removes a bank outright.
func (e *Engine) deleteBank(user User, name string) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}
	if err := e.banks.Delete(name); err != nil {
		return Prompt{}, err
	}
	return Prompt{Text: fmt.Sprintf("Bank %q deleted.", name)}, nil
}

// deleteTest removes one test definition from a bank inside its serialized
// update section.
func (e *Engine) deleteTest(user User, name string, testID int) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}
	err := e.banks.Update(name, func(b *quiz.TestBank) error {
		kept := b.Tests[:0]
		found := false
		for _, t := range b.Tests {
			if t.ID == testID {
				found = true
				continue
			}
			kept = append(kept, t)
		}
		if !found {
			return fmt.Errorf("%w: test %d in bank %q", quiz.ErrNotFound, testID, name)
		}
		b.Tests = kept
		return nil
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{Text: fmt.Sprintf("Test %d deleted from %q.", testID, name)}, nil
}

func bankChoices(names []string, mk func(string) Action) []Choice {
	out := make([]Choice, 0, len(names))
	for _, n := range names {
		out = append(out, Choice{Text: n, Action: mk(n)})
	}
	return out
}
