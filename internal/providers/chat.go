package providers

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/utils"
)

const (
	chatAttempts   = 3
	chatRetryDelay = time.Second
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// Chat posts alerts to Telegram chats. The contact target is a numeric chat
// id or an @channel username.
type Chat struct {
	sender     messageSender
	limiter    *rate.Limiter
	logger     *logging.Logger
	retryDelay time.Duration
}

func NewChat(token string, ratePerSecond int, logger *logging.Logger) (*Chat, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return newChat(b, ratePerSecond, logger), nil
}

func newChat(sender messageSender, ratePerSecond int, logger *logging.Logger) *Chat {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	return &Chat{
		sender:     sender,
		limiter:    rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:     logger,
		retryDelay: chatRetryDelay,
	}
}

func (c *Chat) Handle(ctx context.Context, d channels.Delivery) error {
	chatID, err := parseChatID(d.Contact.Target)
	if err != nil {
		return err
	}
	// Telegram's own flood limit, separate from the per-channel alert quota.
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      chatText(d),
		ParseMode: tgmodels.ParseModeHTML,
	}
	return utils.Retry(ctx, c.logger, chatAttempts, c.retryDelay, func() error {
		if _, err := c.sender.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to %v: %w", chatID, err)
		}
		return nil
	})
}

func chatText(d channels.Delivery) string {
	return "<b>" + html.EscapeString(Subject(d.Alert)) + "</b>\n" + html.EscapeString(Body(d))
}

func parseChatID(target string) (any, error) {
	if target == "" {
		return nil, fmt.Errorf("empty chat target")
	}
	if target[0] == '@' {
		return target, nil
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat target %q: %w", target, err)
	}
	return id, nil
}
