package middleware

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/quizdesk/quizbot/core/logger"
	"github.com/quizdesk/quizbot/core/telegram/callbacks"
)

// Logging logs one receipt line per update and stamps the context with a
// request id downstream handlers can pick up via c.Get("rid").
func Logging(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()

		chatID, userID := int64(0), int64(0)
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		attrs := []any{
			slog.String("event", "tg.update"),
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			attrs = append(attrs, slog.String("kind", "callback"), slog.String("cb_key", key))
			if payload != "" {
				attrs = append(attrs, slog.String("payload", payload))
			}
		case upd.Message != nil:
			attrs = append(attrs, slog.String("kind", "message"))
		}

		start := time.Now()
		err := next(c)
		attrs = append(attrs,
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
			logger.TG.Warn("update handled", attrs...)
			return err
		}
		logger.TG.Debug("update handled", attrs...)
		return nil
	}
}
