package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/results"
	"github.com/quizdesk/quizbot/internal/session"
)

// beginDelivery lists the student's pending assignments. Unregistered users
// and students with nothing pending get a message and no session.
func (e *Engine) beginDelivery(ctx context.Context, user User) (Prompt, error) {
	st, err := e.results.StudentByUserID(ctx, user.ID)
	if err != nil {
		return Prompt{
			Text:    "Please register first.",
			Choices: []Choice{{Text: "Register", Action: BeginRegistration{}}},
		}, err
	}

	pending, err := e.results.ListPendingAssignments(ctx, st.ID)
	if err != nil {
		return Prompt{}, err
	}
	if len(pending) == 0 {
		return Prompt{Text: "You have no new tests right now. Check back later."}, nil
	}

	e.sessions.Put(user.ID, session.Session{
		Step:     session.StepSelectingAssignment,
		Delivery: &session.DeliveryRun{StudentID: st.ID},
	})
	choices := make([]Choice, 0, len(pending))
	for _, a := range pending {
		choices = append(choices, Choice{Text: a.Bank, Action: SelectAssignment{Bank: a.Bank}})
	}
	return Prompt{Text: "Pick a test to take:", Choices: choices}, nil
}

func (e *Engine) deliveryStep(ctx context.Context, user User, sess session.Session, act Action) (Prompt, error) {
	switch sess.Step {
	case session.StepSelectingAssignment:
		sel, ok := act.(SelectAssignment)
		if !ok {
			return mismatch(sess.Step, act)
		}
		return e.startRun(ctx, user, sess, sel.Bank)

	case session.StepAnsweringQuestion:
		ans, ok := act.(SubmitAnswer)
		if !ok {
			return mismatch(sess.Step, act)
		}
		run := sess.Delivery
		// Only record while questions remain; a retried completion after a
		// failed submit must not grow the answer log.
		if run.Cursor < len(run.Sequence) {
			run.Answers = append(run.Answers, ans.Label)
			run.Cursor++
		}
		if run.Cursor < len(run.Sequence) {
			e.sessions.Put(user.ID, sess)
			return presentQuestion(run), nil
		}
		return e.completeRun(ctx, user, sess)
	}
	return mismatch(sess.Step, act)
}

// startRun verifies the pick is actually pending, flattens the bank into one
// question sequence and presents the first question. Missing, unreadable and
// empty banks report the condition and return the user to idle with no
// partial state.
func (e *Engine) startRun(ctx context.Context, user User, sess session.Session, bankName string) (Prompt, error) {
	run := sess.Delivery

	pending, err := e.results.ListPendingAssignments(ctx, run.StudentID)
	if err != nil {
		return Prompt{}, err
	}
	assigned := false
	for _, a := range pending {
		if a.Bank == bankName {
			assigned = true
			break
		}
	}
	if !assigned {
		e.sessions.Clear(user.ID)
		return Prompt{}, fmt.Errorf("%w: assignment for bank %q", quiz.ErrNotFound, bankName)
	}

	b, err := e.banks.Load(bankName)
	if err != nil {
		e.sessions.Clear(user.ID)
		return Prompt{}, err
	}
	seq := b.Flatten()
	if len(seq) == 0 {
		e.sessions.Clear(user.ID)
		return Prompt{}, fmt.Errorf("%w: bank %q has no questions", quiz.ErrNotFound, bankName)
	}

	run.Bank = bankName
	run.Sequence = seq
	run.Cursor = 0
	run.Answers = nil
	sess.Step = session.StepAnsweringQuestion
	e.sessions.Put(user.ID, sess)
	return presentQuestion(run), nil
}

// completeRun scores the answer log and persists the run: the result row,
// the completed flag and the rank rewrite commit as one store transaction.
// On a failed submit nothing is persisted and the session is kept so the
// completion can be retried.
func (e *Engine) completeRun(ctx context.Context, user User, sess session.Session) (Prompt, error) {
	run := sess.Delivery
	out := quiz.Score(run.Answers, quiz.AnswerKey(run.Sequence))

	rec, err := e.results.SubmitResult(ctx, results.ResultRecord{
		StudentID: run.StudentID,
		Bank:      run.Bank,
		Correct:   out.Correct,
		Wrong:     out.Wrong,
		Total:     out.Total,
	})
	if err != nil {
		e.sessions.Put(user.ID, sess)
		return Prompt{}, err
	}
	e.sessions.Clear(user.ID)

	rank := 0
	if rec.Rank != nil {
		rank = *rec.Rank
	}
	return Prompt{Text: fmt.Sprintf(
		"Test finished!\n\nQuestions: %d\nCorrect: %d\nWrong: %d\nScore: %.2f%%\nYour rank: %d",
		out.Total, out.Correct, out.Wrong, out.Percentage()*100, rank,
	)}, nil
}

// presentQuestion renders the current question with its global 1-based
// position across the whole flattened sequence.
func presentQuestion(run *session.DeliveryRun) Prompt {
	fq := run.Sequence[run.Cursor]
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question %d of %d:\n%s\n", run.Cursor+1, len(run.Sequence), fq.Question.Prompt)
	for _, opt := range fq.Question.Options {
		fmt.Fprintf(&sb, "%s) %s\n", opt.Label, opt.Text)
	}

	choices := make([]Choice, 0, len(fq.Question.Options))
	for _, opt := range fq.Question.Options {
		choices = append(choices, Choice{Text: string(opt.Label), Action: SubmitAnswer{Label: opt.Label}})
	}
	return Prompt{Text: sb.String(), Choices: choices}
}

// showMyResults lists the student's most recent persisted results.
func (e *Engine) showMyResults(ctx context.Context, user User) (Prompt, error) {
	st, err := e.results.StudentByUserID(ctx, user.ID)
	if err != nil {
		return Prompt{Text: "You have not registered yet."}, err
	}
	recent, err := e.results.ListResultsByStudent(ctx, st.ID, 5)
	if err != nil {
		return Prompt{}, err
	}
	if len(recent) == 0 {
		return Prompt{Text: "You have not finished any tests yet."}, nil
	}

	var sb strings.Builder
	sb.WriteString("Your recent results:\n\n")
	for _, r := range recent {
		rank := "-"
		if r.Rank != nil {
			rank = fmt.Sprintf("%d", *r.Rank)
		}
		fmt.Fprintf(&sb, "%s: %d/%d correct, rank %s\n", r.Bank, r.Correct, r.Total, rank)
	}
	return Prompt{Text: sb.String()}, nil
}

// showBankResults prints one bank's standings for an admin.
func (e *Engine) showBankResults(ctx context.Context, user User, bankName string) (Prompt, error) {
	if err := e.requireAdmin(user); err != nil {
		return Prompt{}, err
	}
	recs, err := e.results.ListResultsByBank(ctx, bankName)
	if err != nil {
		return Prompt{}, err
	}
	if len(recs) == 0 {
		return Prompt{Text: fmt.Sprintf("No results for %q yet.", bankName)}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Results for %q:\n\n", bankName)
	for _, r := range recs {
		name := fmt.Sprintf("student %d", r.StudentID)
		if st, err := e.results.StudentByID(ctx, r.StudentID); err == nil {
			name = fmt.Sprintf("%s %s", st.FirstName, st.LastName)
		}
		rank := "-"
		if r.Rank != nil {
			rank = fmt.Sprintf("%d", *r.Rank)
		}
		fmt.Fprintf(&sb, "%s. %s — %d/%d correct\n", rank, name, r.Correct, r.Total)
	}
	return Prompt{Text: sb.String()}, nil
}
