package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/quizdesk/quizbot/core/telegram/sender"
	"github.com/quizdesk/quizbot/internal/workflow"
)

// Notifier delivers out-of-band messages, like "you have a new test",
// through the async sender so assignment handling never blocks on the
// Telegram API.
type Notifier struct {
	tele       *tele.Bot
	dispatcher *sender.Dispatcher
}

// NewNotifier wires a notifier over the bot and its outbound dispatcher.
func NewNotifier(tg *tele.Bot, d *sender.Dispatcher) *Notifier {
	return &Notifier{tele: tg, dispatcher: d}
}

// Notify sends the prompt to the user's private chat.
func (n *Notifier) Notify(userID int64, p workflow.Prompt) error {
	recipient := tele.ChatID(userID)
	text := p.Text
	markup := renderMarkup(p)

	run := func() error {
		if markup != nil {
			_, err := n.tele.Send(recipient, text, markup)
			return err
		}
		_, err := n.tele.Send(recipient, text)
		return err
	}
	if n.dispatcher == nil {
		return run()
	}
	if err := n.dispatcher.Enqueue(context.Background(), "notify", run); err != nil {
		// Queue saturation degrades to a synchronous send.
		return run()
	}
	return nil
}
