// internal/app/notification_service.go
package app

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"newsportal/internal/domain/category"
	"newsportal/internal/domain/mail"
	"newsportal/internal/domain/post"
	domainTelegram "newsportal/internal/domain/telegram"
	"newsportal/internal/domain/task"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	postCreatedTemplate  = "post_created_send.html"
	weeklyDigestTemplate = "weekly_digest.html"
	digestWindow         = 7 * 24 * time.Hour
	digestPostLimit      = 50

	TaskNotifyPost   = "notify_post"
	TaskWeeklyDigest = "weekly_digest"
)

//go:embed templates/*.html
var mailTemplatesFS embed.FS

var mailTemplates = template.Must(template.ParseFS(mailTemplatesFS, "templates/*.html"))

// CategoryHook is fired by PostService.SetCategories whenever at least one category
// was newly attached to a post.
type CategoryHook interface {
	CategoriesAdded(ctx context.Context, postID int64) error
}

// NotificationSettings carries the process-wide values read at send time.
type NotificationSettings struct {
	SiteURL           string
	FromEmail         string
	Deduplicate       bool  // off by default: overlapping subscriptions yield repeated addresses
	TelegramChannelID int64 // 0 disables channel announcements
}

// NotificationService renders and sends new-post emails to category subscribers.
type NotificationService struct {
	postRepo     post.Repository
	categoryRepo category.Repository
	sender       mail.Sender
	announcer    domainTelegram.Client // may be nil
	settings     NotificationSettings
	logger       *logrus.Entry
	now          func() time.Time
}

func NewNotificationService(
	pr post.Repository,
	cr category.Repository,
	sender mail.Sender,
	announcer domainTelegram.Client,
	settings NotificationSettings,
	logger *logrus.Entry,
) *NotificationService {
	return &NotificationService{
		postRepo:     pr,
		categoryRepo: cr,
		sender:       sender,
		announcer:    announcer,
		settings:     settings,
		logger:       logger,
		now:          time.Now,
	}
}

// CategoriesAdded sends the notification inline, inside the caller's request.
func (s *NotificationService) CategoriesAdded(ctx context.Context, postID int64) error {
	return s.NotifyPost(ctx, postID)
}

// NotifyPost emails every subscriber of every category currently attached to the post.
// Render and send failures are returned to the caller; nothing is retried.
func (s *NotificationService) NotifyPost(ctx context.Context, postID int64) error {
	p, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post %d for notification: %w", postID, err)
	}

	recipients, err := s.recipients(ctx, postID)
	if err != nil {
		return err
	}

	link := s.PostLink(p.ID)
	var body bytes.Buffer
	err = mailTemplates.ExecuteTemplate(&body, postCreatedTemplate, map[string]any{
		"text": p.Preview(),
		"link": link,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", postCreatedTemplate, err)
	}

	msg := &mail.Message{
		Subject:  p.Title,
		From:     s.settings.FromEmail,
		To:       recipients,
		TextBody: "",
		HTMLBody: body.String(),
	}

	logCtx := s.logger.WithFields(logrus.Fields{
		"post_id":    p.ID,
		"recipients": len(recipients),
	})
	if err := s.sender.Send(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to send new post notification")
		return fmt.Errorf("failed to send notification for post %d: %w", p.ID, err)
	}
	logCtx.Info("New post notification sent")

	s.announce(p, link)
	return nil
}

// recipients concatenates subscriber emails across the post's categories in category order.
func (s *NotificationService) recipients(ctx context.Context, postID int64) ([]string, error) {
	categories, err := s.categoryRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories of post %d: %w", postID, err)
	}

	recipients := make([]string, 0)
	for _, c := range categories {
		subscribers, err := s.categoryRepo.Subscribers(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscribers of category %d: %w", c.ID, err)
		}
		for _, u := range subscribers {
			recipients = append(recipients, u.Email)
		}
	}

	if s.settings.Deduplicate {
		recipients = uniqueStrings(recipients)
	}
	return recipients, nil
}

func (s *NotificationService) announce(p *post.Post, link string) {
	if s.announcer == nil || s.settings.TelegramChannelID == 0 {
		return
	}
	text := fmt.Sprintf("<b>%s</b>\n%s", template.HTMLEscapeString(p.Title), link)
	err := s.announcer.SendMessage(s.settings.TelegramChannelID, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	if err != nil {
		s.logger.WithError(err).WithField("post_id", p.ID).Warn("Failed to announce post in Telegram channel")
	}
}

// PostLink builds the absolute URL of a post's detail page.
func (s *NotificationService) PostLink(postID int64) string {
	return fmt.Sprintf("%s/news/%d", s.settings.SiteURL, postID)
}

type digestItem struct {
	Title   string
	Preview string
	Link    string
}

// SendWeeklyDigest mails each category's subscribers the posts published in that
// category during the last seven days. Categories without new posts or subscribers are skipped.
func (s *NotificationService) SendWeeklyDigest(ctx context.Context) error {
	categories, err := s.categoryRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories for digest: %w", err)
	}
	since := s.now().Add(-digestWindow)

	var sent int
	for _, c := range categories {
		subscribers, err := s.categoryRepo.Subscribers(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to list subscribers of category %d: %w", c.ID, err)
		}
		if len(subscribers) == 0 {
			continue
		}

		posts, _, err := s.postRepo.List(ctx, post.Filter{CategoryID: c.ID, After: since}, digestPostLimit, 0)
		if err != nil {
			return fmt.Errorf("failed to list recent posts of category %d: %w", c.ID, err)
		}
		if len(posts) == 0 {
			continue
		}

		items := make([]digestItem, 0, len(posts))
		for _, p := range posts {
			items = append(items, digestItem{Title: p.Title, Preview: p.Preview(), Link: s.PostLink(p.ID)})
		}
		var body bytes.Buffer
		err = mailTemplates.ExecuteTemplate(&body, weeklyDigestTemplate, map[string]any{
			"category": c.Name,
			"posts":    items,
		})
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", weeklyDigestTemplate, err)
		}

		to := make([]string, 0, len(subscribers))
		for _, u := range subscribers {
			to = append(to, u.Email)
		}
		msg := &mail.Message{
			Subject:  fmt.Sprintf("Weekly digest: %s", c.Name),
			From:     s.settings.FromEmail,
			To:       to,
			HTMLBody: body.String(),
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to send digest for category %d: %w", c.ID, err)
		}
		sent++
	}

	s.logger.WithField("digests_sent", sent).Info("Weekly digest finished")
	return nil
}

// AsyncCategoryHook defers the notification to the background worker.
type AsyncCategoryHook struct {
	enqueuer task.Enqueuer
}

func NewAsyncCategoryHook(e task.Enqueuer) *AsyncCategoryHook {
	return &AsyncCategoryHook{enqueuer: e}
}

func (h *AsyncCategoryHook) CategoriesAdded(ctx context.Context, postID int64) error {
	if err := h.enqueuer.Enqueue(ctx, TaskNotifyPost, postID); err != nil {
		return fmt.Errorf("failed to enqueue notification for post %d: %w", postID, err)
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
