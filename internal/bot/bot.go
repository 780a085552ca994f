// Package bot binds the workflow engine to Telegram: commands, inline
// buttons and free text all funnel into engine actions, and prompts come
// back out as messages with inline keyboards.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/quizdesk/quizbot/core/logger"
	"github.com/quizdesk/quizbot/core/telegram"
	"github.com/quizdesk/quizbot/core/telegram/callbacks"
	"github.com/quizdesk/quizbot/core/telegram/keyboard"
	"github.com/quizdesk/quizbot/core/telegram/middleware"
	"github.com/quizdesk/quizbot/internal/bank"
	"github.com/quizdesk/quizbot/internal/session"
	"github.com/quizdesk/quizbot/internal/workflow"
)

// Bot routes Telegram updates into the workflow engine.
type Bot struct {
	tele     *tele.Bot
	engine   *workflow.Engine
	sessions *session.Store
	banks    bank.Repository
	adminIDs []int64
	log      *slog.Logger
}

// New wires the transport over an already constructed telebot instance.
func New(tg *tele.Bot, engine *workflow.Engine, sessions *session.Store, banks bank.Repository, adminIDs []int64) *Bot {
	return &Bot{
		tele:     tg,
		engine:   engine,
		sessions: sessions,
		banks:    banks,
		adminIDs: adminIDs,
		log:      logger.TG,
	}
}

// Middlewares returns the global middleware chain in application order.
func (b *Bot) Middlewares() []telegram.Middleware {
	return []telegram.Middleware{
		{Name: "recover", Use: middleware.Recover},
		{Name: "roles", Use: middleware.ResolveRole(b.adminIDs)},
		{Name: "logging", Use: middleware.Logging},
	}
}

// Routes returns every endpoint binding of the bot.
func (b *Bot) Routes() []telegram.Route {
	return []telegram.Route{
		{Endpoint: "/start", Handler: b.onStart},
		{Endpoint: "/help", Handler: b.onStart},
		{Endpoint: "/cancel", Handler: func(c tele.Context) error { return b.dispatch(c, workflow.Cancel{}) }},
		{Endpoint: "/results", Handler: b.onResults},
		{Endpoint: "/delbank", Handler: b.onDelBank},
		{Endpoint: "/deltest", Handler: b.onDelTest},
		{Endpoint: tele.OnText, Handler: b.onText},
		{Endpoint: tele.OnCallback, Handler: b.onCallback},
	}
}

// SetupCommands publishes the command menu shown by Telegram clients.
func (b *Bot) SetupCommands() {
	cmds := []tele.Command{
		{Text: "start", Description: "Show the main menu"},
		{Text: "cancel", Description: "Abort the current dialogue"},
		{Text: "results", Description: "Show standings for a bank (admins)"},
	}
	if err := b.tele.SetCommands(cmds); err != nil {
		b.log.Warn("set commands failed",
			slog.String("event", "tg.commands"),
			slog.String("err", err.Error()),
		)
	}
}

func (b *Bot) user(c tele.Context) workflow.User {
	u := workflow.User{Role: workflow.RoleStudent}
	if sender := c.Sender(); sender != nil {
		u.ID = sender.ID
	}
	if isAdmin, ok := c.Get(middleware.IsAdminKey).(bool); ok && isAdmin {
		u.Role = workflow.RoleAdmin
	}
	return u
}

// dispatch feeds one action into the engine and renders the resulting prompt.
// Engine errors are already classified into the prompt text, so the update is
// answered either way.
func (b *Bot) dispatch(c tele.Context, act workflow.Action) error {
	prompt, _ := b.engine.Handle(context.Background(), b.user(c), act)
	if prompt.Text == "" {
		return nil
	}
	return sendPrompt(c, prompt)
}

func (b *Bot) onStart(c tele.Context) error {
	user := b.user(c)
	if user.Role == workflow.RoleAdmin {
		return sendPrompt(c, workflow.Prompt{
			Text: "Quiz admin menu:",
			Choices: []workflow.Choice{
				{Text: "Create a test bank", Action: workflow.BeginBankCreate{}},
				{Text: "Add a test", Action: workflow.BeginAuthoring{}},
				{Text: "Assign a test", Action: workflow.BeginAssignment{}},
				{Text: "List banks", Action: workflow.ShowBanks{}},
			},
		})
	}
	return sendPrompt(c, workflow.Prompt{
		Text: "Welcome! What would you like to do?",
		Choices: []workflow.Choice{
			{Text: "Register", Action: workflow.BeginRegistration{}},
			{Text: "Take a test", Action: workflow.BeginDelivery{}},
			{Text: "My results", Action: workflow.ShowMyResults{}},
		},
	})
}

func (b *Bot) onText(c tele.Context) error {
	if !b.sessions.InProgress(b.user(c).ID) {
		return b.onStart(c)
	}
	return b.dispatch(c, workflow.Input{Text: c.Text()})
}

func (b *Bot) onCallback(c tele.Context) error {
	defer func() { _ = c.Respond() }()

	unique := callbacks.Key(c)
	act, err := decodeAction(unique, callbacks.Payload(c))
	if err != nil {
		b.log.Warn("callback rejected",
			slog.String("event", "tg.callback"),
			slog.String("cb_key", unique),
			slog.String("err", err.Error()),
		)
		return c.Send("That button is no longer valid.")
	}
	return b.dispatch(c, act)
}

// onResults lets an admin pick a bank and see its standings.
func (b *Bot) onResults(c tele.Context) error {
	return b.bankPicker(c, "Standings for which bank?", func(name string) workflow.Action {
		return workflow.ShowBankResults{Bank: name}
	})
}

// onDelBank lets an admin pick a bank to delete.
func (b *Bot) onDelBank(c tele.Context) error {
	return b.bankPicker(c, "Delete which bank?", func(name string) workflow.Action {
		return workflow.DeleteBank{Bank: name}
	})
}

// onDelTest deletes one test by bank name and id: /deltest <bank> <id>.
func (b *Bot) onDelTest(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /deltest <bank> <test id>")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return c.Send("Usage: /deltest <bank> <test id>")
	}
	return b.dispatch(c, workflow.DeleteTest{Bank: bank.Normalize(args[0]), TestID: id})
}

func (b *Bot) bankPicker(c tele.Context, title string, mk func(string) workflow.Action) error {
	if b.user(c).Role != workflow.RoleAdmin {
		return c.Send("Sorry, this action is for admins only.")
	}
	names, err := b.banks.List()
	if err != nil {
		return c.Send("Something went wrong. Please try again.")
	}
	if len(names) == 0 {
		return c.Send("There are no test banks yet.")
	}
	choices := make([]workflow.Choice, 0, len(names))
	for _, n := range names {
		choices = append(choices, workflow.Choice{Text: n, Action: mk(n)})
	}
	return sendPrompt(c, workflow.Prompt{Text: title, Choices: choices})
}

// sendPrompt renders a workflow prompt as a message with an inline keyboard.
func sendPrompt(c tele.Context, p workflow.Prompt) error {
	markup := renderMarkup(p)
	if markup == nil {
		return c.Send(p.Text)
	}
	return c.Send(p.Text, markup)
}

func renderMarkup(p workflow.Prompt) *tele.ReplyMarkup {
	if len(p.Choices) == 0 {
		return nil
	}
	btns := make([]keyboard.InlineBtn, 0, len(p.Choices))
	compact := true
	for _, ch := range p.Choices {
		unique, payload, ok := encodeAction(ch.Action)
		if !ok {
			continue
		}
		if len(strings.TrimSpace(ch.Text)) > 3 {
			compact = false
		}
		btns = append(btns, keyboard.InlineBtn{Text: ch.Text, Unique: unique, Data: payload})
	}
	if len(btns) == 0 {
		return nil
	}
	// Short labels, like the A-D answer row, fit side by side.
	perRow := 1
	if compact {
		perRow = len(btns)
	}
	return keyboard.InlineButtonsNPerRow(btns, perRow)
}
