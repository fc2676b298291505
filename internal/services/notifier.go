package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fishbox/internal/core"
	applog "fishbox/internal/log"
	"fishbox/internal/ports"
)

// LogNotifier records notifications in the log. It is used when no message
// broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(applog.FieldComponent, applog.ComponentSocial)}
}

func (n *LogNotifier) Notify(ctx context.Context, msg core.Notification) error {
	n.logger.InfoContext(ctx, "Notification",
		applog.FieldUserID, msg.UserID,
		applog.FieldKind, string(msg.Kind),
		"title", msg.Title,
		"tag", msg.Tag)
	return nil
}

// dispatch sends n in the background. Failures are logged and dropped.
func dispatch(ctx context.Context, bg *Background, notifier ports.Notifier, n core.Notification) {
	if notifier == nil || n.UserID == "" {
		return
	}
	bg.Go(ctx, func(ctx context.Context) {
		if err := notifier.Notify(ctx, n); err != nil {
			slog.WarnContext(ctx, "Failed to dispatch notification",
				applog.FieldUserID, n.UserID,
				applog.FieldKind, string(n.Kind),
				applog.FieldError, err)
		}
	})
}

func commentNotification(to, from string, c core.Catch, now time.Time) core.Notification {
	return core.Notification{
		UserID:    to,
		Kind:      core.NotifyComment,
		Title:     "💬 Neuer Kommentar",
		Body:      fmt.Sprintf("%s hat deinen %s-Fang kommentiert", from, c.Species),
		Tag:       "comment",
		CreatedAt: now,
	}
}

func likeNotification(to, from string, c core.Catch, now time.Time) core.Notification {
	return core.Notification{
		UserID:    to,
		Kind:      core.NotifyLike,
		Title:     "❤️ Neuer Like",
		Body:      fmt.Sprintf("%s gefällt dein %s-Fang", from, c.Species),
		Tag:       "like",
		CreatedAt: now,
	}
}

func friendRequestNotification(to, from string, now time.Time) core.Notification {
	return core.Notification{
		UserID:    to,
		Kind:      core.NotifyFriendRequest,
		Title:     "👥 Neue Freundschaftsanfrage",
		Body:      fmt.Sprintf("%s möchte mit dir befreundet sein", from),
		Tag:       "friend_request",
		CreatedAt: now,
	}
}

func friendAcceptedNotification(to, from string, now time.Time) core.Notification {
	return core.Notification{
		UserID:    to,
		Kind:      core.NotifyFriendAccepted,
		Title:     "✅ Freundschaftsanfrage angenommen",
		Body:      fmt.Sprintf("%s hat deine Freundschaftsanfrage angenommen", from),
		Tag:       "friend_accepted",
		CreatedAt: now,
	}
}

func catchSharedNotification(c core.Catch, now time.Time) core.Notification {
	return core.Notification{
		UserID:    c.OwnerID,
		Kind:      core.NotifyCatchShared,
		Title:     "🎣 Fang geteilt",
		Body:      fmt.Sprintf("%s - %d cm", c.Species, c.Length),
		Tag:       "catch_shared",
		CreatedAt: now,
	}
}
