package telegram

import "gopkg.in/telebot.v3"

// Client defines an interface for posting messages to a Telegram chat or channel.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
