package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"swapwatch/internal/metrics"
)

const (
	kindMedia = "media"
	kindText  = "text"
)

// Sender is the subset of *tgbotapi.BotAPI used by the publisher.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot authenticates against the Bot API with the given token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}

// PublisherConfig holds the broadcast destination.
type PublisherConfig struct {
	// ChannelID is a numeric chat id or a public @channel username.
	ChannelID string
}

// Publisher delivers notifications to a single Telegram channel.
type Publisher struct {
	bot     Sender
	chat    tgbotapi.BaseChat
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewPublisher(bot Sender, cfg PublisherConfig, logger *zap.Logger, m *metrics.Metrics) (*Publisher, error) {
	if bot == nil {
		return nil, fmt.Errorf("telegram sender is nil")
	}
	chat, err := parseChat(cfg.ChannelID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{bot: bot, chat: chat, logger: logger, metrics: m}, nil
}

// Publish sends the media preamble, then the text. The two sends are
// independent: a media failure is logged and the text is still attempted.
// Nothing is retried. The returned error joins every failed send.
func (p *Publisher) Publish(n Notification) error {
	var errs []error

	video := tgbotapi.NewVideo(0, tgbotapi.FileURL(n.MediaURL))
	video.BaseChat = p.chat
	if err := p.send(kindMedia, video); err != nil {
		errs = append(errs, err)
	}

	if n.Text == "" {
		p.logger.Debug("no text message for notification")
		return errors.Join(errs...)
	}

	msg := tgbotapi.NewMessage(0, n.Text)
	msg.BaseChat = p.chat
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if err := p.send(kindText, msg); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (p *Publisher) send(kind string, c tgbotapi.Chattable) error {
	_, err := p.bot.Send(c)
	p.metrics.IncNotification(kind, err)
	if err != nil {
		p.logger.Error("telegram send failed", zap.String("kind", kind), zap.Error(err))
		return fmt.Errorf("send %s: %w", kind, err)
	}
	return nil
}

func parseChat(channel string) (tgbotapi.BaseChat, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return tgbotapi.BaseChat{}, fmt.Errorf("channel id is required")
	}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		return tgbotapi.BaseChat{ChatID: id}, nil
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return tgbotapi.BaseChat{ChannelUsername: channel}, nil
}
