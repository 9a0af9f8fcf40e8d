package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"bybit-ticker-bot/internal/api"
	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/types"
)

const (
	maxBareTickerLen = 10
	retryDelay       = 3 * time.Second
)

type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int    `json:"reply_to_message_id,omitempty"`
}

type apiEnvelope[T any] struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

type Options struct {
	APIURL      string
	PollTimeout time.Duration
}

// Bot answers ticker lookups over the Telegram Bot API using long polling.
type Bot struct {
	client      *api.Client
	facade      interfaces.QueryFacade
	token       string
	pollTimeout time.Duration
	offset      int
}

// New builds a bot for token. Zero options fall back to the public API and a 60s poll.
func New(token string, facade interfaces.QueryFacade, opts Options) *Bot {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.telegram.org"
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	// request logging stays off: every URL carries the token
	client := api.NewClient(
		api.WithBaseURL(strings.TrimRight(opts.APIURL, "/")+"/bot"+token),
		api.WithTimeout(opts.PollTimeout+10*time.Second),
		api.WithLogging(false),
	)
	return &Bot{
		client:      client,
		facade:      facade,
		token:       token,
		pollTimeout: opts.PollTimeout,
	}
}

// Run polls for updates until ctx is done. Poll failures are logged and
// retried after a short delay.
func (b *Bot) Run(ctx context.Context) error {
	logger.Info(ctx, "Telegram bot started", "poll_timeout", b.pollTimeout.String())

	for {
		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn(ctx, "Telegram poll failed", "error", b.redact(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			b.handle(ctx, u)
		}
	}
}

func (b *Bot) getUpdates(ctx context.Context) ([]Update, error) {
	resp, err := b.client.GET(ctx, "/getUpdates", url.Values{
		"offset":          {strconv.Itoa(b.offset)},
		"timeout":         {strconv.Itoa(int(b.pollTimeout.Seconds()))},
		"allowed_updates": {`["message"]`},
	})
	if err != nil {
		return nil, err
	}

	var env apiEnvelope[[]Update]
	if err := resp.ParseJSON(&env); err != nil {
		return nil, err
	}
	if !env.OK {
		return nil, fmt.Errorf("getUpdates: %s", env.Description)
	}
	return env.Result, nil
}

func (b *Bot) handle(ctx context.Context, u Update) {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		return
	}

	text := b.reply(ctx, msg)
	if text == "" {
		return
	}
	if err := b.send(ctx, msg.Chat.ID, msg.MessageID, text); err != nil {
		logger.Warn(ctx, "Telegram reply failed", "chat_id", msg.Chat.ID, "error", b.redact(err))
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, replyTo int, text string) error {
	resp, err := b.client.POST(ctx, "/sendMessage", sendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyTo,
	})
	if err != nil {
		return err
	}
	var env apiEnvelope[Message]
	if err := resp.ParseJSON(&env); err != nil {
		return err
	}
	if !env.OK {
		return fmt.Errorf("sendMessage: %s", env.Description)
	}
	return nil
}

// reply builds the answer for one inbound message.
func (b *Bot) reply(ctx context.Context, msg *Message) string {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		if isBareTicker(text) {
			return b.ticker(ctx, msg, text)
		}
		return "Send a ticker to get its data, e.g. BTC, ETH, ADA."
	}

	fields := strings.Fields(text)
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	switch cmd {
	case "/start":
		return startText(firstName(msg))
	case "/help":
		return helpText
	case "/stats":
		return statsText(b.facade.Stats())
	case "/ticker":
		if len(fields) < 2 {
			return "Usage: /ticker <symbol>\nFor example: /ticker BTC or /ticker ETHUSDT"
		}
		return b.ticker(ctx, msg, fields[1])
	default:
		return "Unknown command. Try /help."
	}
}

func (b *Bot) ticker(ctx context.Context, msg *Message, symbol string) string {
	req := types.QueryRequest{Text: symbol, Origin: types.OriginTelegram}
	if msg.From != nil {
		req.RequesterID = strconv.FormatInt(msg.From.ID, 10)
		req.RequesterName = msg.From.FirstName
	}
	return tickerText(b.facade.Query(ctx, req))
}

func (b *Bot) redact(err error) string {
	if b.token == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), b.token, "<token>")
}

// isBareTicker accepts short alphanumeric input; inner spaces are allowed.
func isBareTicker(text string) bool {
	if text == "" || len([]rune(text)) > maxBareTickerLen {
		return false
	}
	letters := 0
	for _, r := range text {
		switch {
		case r == ' ':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			letters++
		default:
			return false
		}
	}
	return letters > 0
}

func firstName(msg *Message) string {
	if msg.From == nil || msg.From.FirstName == "" {
		return "there"
	}
	return msg.From.FirstName
}
