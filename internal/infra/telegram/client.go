// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const requestTimeout = 10 * time.Second

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

// NewBot creates a send-only bot and checks the token with getMe.
// No poller is started: the site only posts to a channel.
func NewBot(token string, logger *logrus.Entry) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Client: &http.Client{Timeout: requestTimeout},
		OnError: func(err error, _ telebot.Context) {
			logger.WithError(err).Error("Telegram bot error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.WithField("bot", b.Me.Username).Info("Telegram bot authorized")
	return b, nil
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the given chat. Channel ids are negative.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	_, err := tba.bot.Send(&telebot.Chat{ID: chatID}, text, options)
	return err
}
