package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizdesk/quizbot/core/logger"
	"github.com/quizdesk/quizbot/internal/bank"
	"github.com/quizdesk/quizbot/internal/quiz"
	"github.com/quizdesk/quizbot/internal/results"
	"github.com/quizdesk/quizbot/internal/session"
)

// Engine is the dispatcher: it looks up the sender's session, routes the
// action to the active workflow step, and recovers step errors so one user's
// failure never affects another's session.
type Engine struct {
	sessions *session.Store
	banks    bank.Repository
	results  results.Store
	notify   Notifier
	log      *slog.Logger
}

// NewEngine wires the engine over its collaborators. notify may be nil when
// out-of-band notifications are not available.
func NewEngine(sessions *session.Store, banks bank.Repository, res results.Store, notify Notifier) *Engine {
	return &Engine{
		sessions: sessions,
		banks:    banks,
		results:  res,
		notify:   notify,
		log:      logger.WF,
	}
}

// Handle routes one inbound (user, action) event. The returned Prompt always
// carries user-presentable text; a non-nil error reports the classified
// failure for logging and tests. Known error kinds leave the session in the
// state documented on the step that raised them; unexpected errors surface a
// generic message without touching other sessions.
func (e *Engine) Handle(ctx context.Context, user User, act Action) (Prompt, error) {
	prompt, err := e.route(ctx, user, act)
	if err != nil {
		e.log.Warn("step failed",
			slog.String("event", "wf.step"),
			slog.Int64("user_id", user.ID),
			slog.String("action", fmt.Sprintf("%T", act)),
			slog.String("err", err.Error()),
		)
		if prompt.Text == "" {
			prompt.Text = userMessage(err)
		}
		return prompt, err
	}
	return prompt, nil
}

func (e *Engine) route(ctx context.Context, user User, act Action) (Prompt, error) {
	// Cancel is accepted everywhere, even mid-question: scratch data is
	// dropped wholesale and the user lands back on the main menu.
	if _, ok := act.(Cancel); ok {
		e.sessions.Clear(user.ID)
		return Prompt{Text: "Cancelled. Back to the main menu."}, nil
	}

	sess, active := e.sessions.Get(user.ID)
	if !active || sess.Step == session.StepIdle {
		return e.routeEntry(ctx, user, act)
	}

	switch sess.Step {
	case session.StepAwaitingBankName,
		session.StepSelectingBank,
		session.StepAwaitingQuestion,
		session.StepAwaitingAnswerA,
		session.StepAwaitingAnswerB,
		session.StepAwaitingAnswerC,
		session.StepAwaitingAnswerD,
		session.StepAwaitingCorrectChoice,
		session.StepAwaitingContinueChoice:
		if user.Role != RoleAdmin {
			return Prompt{}, fmt.Errorf("%w: authoring requires admin", quiz.ErrUnauthorized)
		}
		return e.authoringStep(ctx, user, sess, act)

	case session.StepSelectingAssignBank, session.StepSelectingAssignStudent:
		if user.Role != RoleAdmin {
			return Prompt{}, fmt.Errorf("%w: assigning requires admin", quiz.ErrUnauthorized)
		}
		return e.assignmentStep(ctx, user, sess, act)

	case session.StepAwaitingFirstName, session.StepAwaitingLastName:
		return e.registrationStep(ctx, user, sess, act)

	case session.StepSelectingAssignment, session.StepAnsweringQuestion:
		return e.deliveryStep(ctx, user, sess, act)
	}

	// Unknown step tag: drop the broken session rather than wedge the user.
	e.sessions.Clear(user.ID)
	return Prompt{}, fmt.Errorf("%w: unknown step %q", quiz.ErrStateMismatch, sess.Step)
}

func (e *Engine) routeEntry(ctx context.Context, user User, act Action) (Prompt, error) {
	switch a := act.(type) {
	case BeginBankCreate:
		return e.beginBankCreate(user)
	case BeginAuthoring:
		return e.beginAuthoring(user)
	case BeginAssignment:
		return e.beginAssignment(user)
	case ShowBanks:
		return e.showBanks(user)
	case ShowBankResults:
		return e.showBankResults(ctx, user, a.Bank)
	case DeleteBank:
		return e.deleteBank(user, a.Bank)
	case DeleteTest:
		return e.deleteTest(user, a.Bank, a.TestID)
	case BeginRegistration:
		return e.beginRegistration(ctx, user)
	case BeginDelivery:
		return e.beginDelivery(ctx, user)
	case ShowMyResults:
		return e.showMyResults(ctx, user)
	}
	return Prompt{}, fmt.Errorf("%w: no active session for %T", quiz.ErrStateMismatch, act)
}

func (e *Engine) requireAdmin(user User) error {
	if user.Role != RoleAdmin {
		return fmt.Errorf("%w: user %d is not an admin", quiz.ErrUnauthorized, user.ID)
	}
	return nil
}

// mismatch reports an action the current step does not accept. The session
// is deliberately left untouched.
func mismatch(step session.Step, act Action) (Prompt, error) {
	return Prompt{}, fmt.Errorf("%w: %T not accepted at step %s", quiz.ErrStateMismatch, act, step)
}

// userMessage converts classified error kinds into the text shown to users.
func userMessage(err error) string {
	switch {
	case errors.Is(err, quiz.ErrUnauthorized):
		return "Sorry, this action is for admins only."
	case errors.Is(err, quiz.ErrDuplicateName):
		return "A bank with this name already exists. Pick another name."
	case errors.Is(err, quiz.ErrIntegrityViolation):
		return "You are already registered."
	case errors.Is(err, quiz.ErrNotFound):
		return "Nothing found for that. Back to the main menu."
	case errors.Is(err, quiz.ErrMalformed):
		return "That test bank cannot be read. Back to the main menu."
	case errors.Is(err, quiz.ErrStateMismatch):
		return "You cannot do that right now."
	default:
		return "Something went wrong. Please try again."
	}
}
