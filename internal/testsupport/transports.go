package testsupport

import (
	"context"
	"sync"

	"newsportal/internal/domain/mail"
	"newsportal/internal/domain/task"

	"gopkg.in/telebot.v3"
)

// RecordingSender implements mail.Sender by remembering every message.
// When Err is set, the message is still recorded and Err is returned.
type RecordingSender struct {
	mu       sync.Mutex
	Messages []*mail.Message
	Err      error
}

func (r *RecordingSender) Send(_ context.Context, msg *mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	cp.To = append([]string{}, msg.To...)
	r.Messages = append(r.Messages, &cp)
	return r.Err
}

// Count returns the number of Send calls so far.
func (r *RecordingSender) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Messages)
}

// TelegramMessage is one recorded Telegram send.
type TelegramMessage struct {
	ChatID int64
	Text   string
}

// RecordingTelegram implements the telegram Client port.
type RecordingTelegram struct {
	mu       sync.Mutex
	Messages []TelegramMessage
	Err      error
}

func (r *RecordingTelegram) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, TelegramMessage{ChatID: chatID, Text: text})
	return r.Err
}

// EnqueueCall is one recorded Enqueue.
type EnqueueCall struct {
	Name string
	Args []any
}

// RecordingEnqueuer implements task.Enqueuer without running anything.
type RecordingEnqueuer struct {
	mu    sync.Mutex
	Calls []EnqueueCall
}

var _ task.Enqueuer = (*RecordingEnqueuer)(nil)

func (r *RecordingEnqueuer) Enqueue(_ context.Context, name string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, EnqueueCall{Name: name, Args: args})
	return nil
}
