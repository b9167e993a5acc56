// Package bot is the Telegram front end of the quoter.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aluiziolira/tire-quoter/config"
	"github.com/aluiziolira/tire-quoter/pipeline"
)

// Fixed replies.
const (
	WelcomeMessage     = "👋 ¡Bot activo! Pasame la medida."
	GateMessage        = "✍️ Pasame la medida completa, por ejemplo: 175 65 14"
	RateLimitedMessage = "⏳ Esperá un momento antes de pedir otra cotización."
	Separator          = "➖➖➖➖➖➖"
)

const minSizeNumbers = 2

var digitRun = regexp.MustCompile(`\d+`)

// Sender delivers outbound chat messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Quoter produces quotes for size queries.
type Quoter interface {
	Quote(ctx context.Context, query string) (*pipeline.Quote, error)
}

// Bot routes chat updates to the quoter.
type Bot struct {
	api          *tgbotapi.BotAPI
	sender       Sender
	quoter       Quoter
	limiter      *ChatLimiter
	pollTimeout  time.Duration
	quoteTimeout time.Duration

	wg sync.WaitGroup
}

// New connects to the Telegram API with the configured token.
func New(cfg config.BotConfig, quoter Quoter) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	b, err := NewWithSender(cfg, api, quoter)
	if err != nil {
		return nil, err
	}
	b.api = api
	slog.Info("telegram bot authorized", slog.String("username", api.Self.UserName))
	return b, nil
}

// NewWithSender builds a bot that replies through sender. It cannot poll
// for updates; feed it with HandleUpdate.
func NewWithSender(cfg config.BotConfig, sender Sender, quoter Quoter) (*Bot, error) {
	limiter, err := NewChatLimiter(cfg.QuotesPerMinute, cfg.QuoteBurst, cfg.TrackedChats)
	if err != nil {
		return nil, fmt.Errorf("create chat limiter: %w", err)
	}
	return &Bot{
		sender:       sender,
		quoter:       quoter,
		limiter:      limiter,
		pollTimeout:  cfg.PollTimeout,
		quoteTimeout: cfg.QuoteTimeout,
	}, nil
}

// Run long-polls for updates until ctx is done, handling each message on
// its own goroutine so one slow quote never blocks other chats. It waits
// for in-flight handlers before returning.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot has no telegram connection")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(u)

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate answers one update. It is safe to call concurrently.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	logger := slog.With(slog.Int64("chat_id", chatID))

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(logger, chatID, WelcomeMessage, false)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if !HasSize(text) {
		b.reply(logger, chatID, GateMessage, false)
		return
	}
	if !b.limiter.Allow(chatID) {
		logger.Info("quote throttled")
		b.reply(logger, chatID, RateLimitedMessage, false)
		return
	}

	b.reply(logger, chatID, fmt.Sprintf("🔎 Buscando '%s'...", text), false)

	quoteCtx := ctx
	if b.quoteTimeout > 0 {
		var cancel context.CancelFunc
		quoteCtx, cancel = context.WithTimeout(ctx, b.quoteTimeout)
		defer cancel()
	}

	quote, err := b.quoter.Quote(quoteCtx, text)
	if err != nil {
		b.reply(logger, chatID, pipeline.UserMessage(err), false)
		return
	}

	logger = logger.With(slog.String("quote_id", quote.ID))
	if !b.reply(logger, chatID, quote.Internal, true) {
		return
	}
	if !b.reply(logger, chatID, Separator, false) {
		return
	}
	b.reply(logger, chatID, quote.Customer, true)
}

// HasSize reports whether text carries at least two numbers, the minimum
// for a tire size.
func HasSize(text string) bool {
	return len(digitRun.FindAllString(text, -1)) >= minSizeNumbers
}

func (b *Bot) reply(logger *slog.Logger, chatID int64, text string, markdown bool) bool {
	out := tgbotapi.NewMessage(chatID, text)
	if markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.sender.Send(out); err != nil {
		logger.Error("send message failed", slog.Any("error", err))
		return false
	}
	return true
}
