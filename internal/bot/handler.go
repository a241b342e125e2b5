package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/config"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/service"
)

// Analyst serves analysis and price requests.
type Analyst interface {
	Analyze(ctx context.Context, req service.Request) (*analysis.AnalysisResult, error)
	Quote(ctx context.Context, req service.Request) (*service.Quote, error)
}

// Handler turns updates into replies. Commands and button presses build the
// same service.Request.
type Handler struct {
	analyst   Analyst
	messenger Messenger
	symbols   []string
	defaultTF string
	allowed   map[int64]bool
	logger    zerolog.Logger
}

// NewHandler creates a handler. An empty allow list admits every chat.
func NewHandler(analyst Analyst, messenger Messenger, cfg config.TelegramConfig) *Handler {
	allowed := make(map[int64]bool, len(cfg.AllowedChats))
	for _, id := range cfg.AllowedChats {
		allowed[id] = true
	}
	defaultTF := cfg.DefaultTimeframe
	if defaultTF == "" {
		defaultTF = "1h"
	}
	return &Handler{
		analyst:   analyst,
		messenger: messenger,
		symbols:   cfg.Symbols,
		defaultTF: defaultTF,
		allowed:   allowed,
		logger:    zerolog.Nop(),
	}
}

// WithLogger sets the logger.
func (h *Handler) WithLogger(logger zerolog.Logger) *Handler {
	h.logger = logger
	return h
}

func (h *Handler) chatAllowed(chatID int64) bool {
	return len(h.allowed) == 0 || h.allowed[chatID]
}

// HandleUpdate dispatches one update. Errors are logged, never returned:
// a failing chat must not stop the polling loop.
func (h *Handler) HandleUpdate(ctx context.Context, u Update) {
	switch {
	case u.CallbackQuery != nil:
		h.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.Text != "":
		h.handleMessage(ctx, u.Message)
	}
}

// Busy tells the chat the bot is saturated.
func (h *Handler) Busy(ctx context.Context, u Update) {
	const text = "⏳ The bot is busy, please try again in a moment"
	switch {
	case u.CallbackQuery != nil:
		h.answer(ctx, u.CallbackQuery.ID, text)
	case u.Message != nil:
		h.send(ctx, u.Message.Chat.ID, text, nil)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *Message) {
	chatID := msg.Chat.ID
	if !h.chatAllowed(chatID) {
		h.logger.Warn().Int64("chat_id", chatID).Msg("message from chat not in allow list")
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at] // "/price@MyBot"
	}
	args := fields[1:]
	logging.LogCommand(h.logger, chatID, string(service.SourceCommand), command)

	switch command {
	case "/start", "/menu":
		h.send(ctx, chatID, welcomeText, MainMenu(h.symbols))
	case "/help":
		h.send(ctx, chatID, helpText, backMenu())
	case "/price":
		if len(args) == 0 {
			h.send(ctx, chatID, "⚠️ Type a symbol. Example: <code>/price AAPL</code>", nil)
			return
		}
		req := h.request(args, service.SourceCommand, chatID, msg.MessageID)
		h.replyQuote(ctx, req)
	case "/analyze":
		if len(args) == 0 {
			h.send(ctx, chatID, "⚠️ Type a symbol. Example: <code>/analyze AAPL 1h</code>", nil)
			return
		}
		req := h.request(args, service.SourceCommand, chatID, 0)
		placeholder, err := h.messenger.SendMessage(ctx, chatID, analyzingText(req), nil)
		if err != nil {
			h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send placeholder")
			return
		}
		req.MessageID = placeholder.MessageID
		h.runAnalysis(ctx, req)
	default:
		if strings.HasPrefix(command, "/") || len(fields) > 1 || len(fields[0]) > 20 {
			h.send(ctx, chatID, "🤔 Unknown command. Send /help for the list.", nil)
			return
		}
		// a bare symbol opens its timeframe menu
		symbol := strings.ToUpper(fields[0])
		h.send(ctx, chatID, chooseTimeframeText(symbol), TimeframeMenu(symbol))
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.Message == nil {
		h.answer(ctx, cb.ID, "")
		return
	}
	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID
	if !h.chatAllowed(chatID) {
		h.logger.Warn().Int64("chat_id", chatID).Msg("button press from chat not in allow list")
		h.answer(ctx, cb.ID, "")
		return
	}
	logging.LogCommand(h.logger, chatID, string(service.SourceButton), cb.Data)

	action, rest, _ := strings.Cut(cb.Data, ":")
	switch action {
	case "menu":
		h.answer(ctx, cb.ID, "")
		h.edit(ctx, chatID, messageID, welcomeText, MainMenu(h.symbols))
	case "help":
		h.answer(ctx, cb.ID, "")
		h.edit(ctx, chatID, messageID, helpText, backMenu())
	case "all":
		h.answer(ctx, cb.ID, "Loading prices…")
		h.edit(ctx, chatID, messageID, h.overview(ctx, chatID), MainMenu(h.symbols))
	case "tf":
		h.answer(ctx, cb.ID, "")
		h.edit(ctx, chatID, messageID, chooseTimeframeText(rest), TimeframeMenu(rest))
	case "an":
		symbol, tf, _ := strings.Cut(rest, ":")
		req := service.NewRequest(symbol, tf, service.SourceButton)
		req.ChatID, req.MessageID = chatID, messageID
		h.answer(ctx, cb.ID, "Analyzing…")
		h.edit(ctx, chatID, messageID, analyzingText(req), nil)
		h.runAnalysis(ctx, req)
	default:
		h.answer(ctx, cb.ID, "Unknown action")
	}
}

// request builds a Request from command arguments "SYMBOL [timeframe]".
func (h *Handler) request(args []string, source service.Source, chatID int64, messageID int) service.Request {
	tf := h.defaultTF
	if len(args) > 1 {
		tf = args[1]
	}
	req := service.NewRequest(args[0], tf, source)
	req.ChatID, req.MessageID = chatID, messageID
	return req
}

// runAnalysis edits req.MessageID with the report or the failure.
func (h *Handler) runAnalysis(ctx context.Context, req service.Request) {
	logger := logging.WithChat(h.logger, req.ChatID)

	result, err := h.analyst.Analyze(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Str("symbol", req.Symbol).Str("source", string(req.Source)).Msg("analysis request failed")
		h.edit(ctx, req.ChatID, req.MessageID, FormatError(req, err), TimeframeMenu(req.Symbol))
		return
	}
	h.edit(ctx, req.ChatID, req.MessageID, FormatAnalysis(result), ResultMenu(req.Symbol, req.Timeframe))
}

func (h *Handler) replyQuote(ctx context.Context, req service.Request) {
	q, err := h.analyst.Quote(ctx, req)
	if err != nil {
		h.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("price request failed")
		h.send(ctx, req.ChatID, FormatError(req, err), nil)
		return
	}
	h.send(ctx, req.ChatID, FormatQuote(q), ResultMenu(req.Symbol, req.Timeframe))
}

// overview fetches a quote for every menu symbol concurrently, keeping the
// menu order.
func (h *Handler) overview(ctx context.Context, chatID int64) string {
	lines := make([]string, len(h.symbols))
	var wg sync.WaitGroup
	for i, s := range h.symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			req := service.NewRequest(symbol, "1d", service.SourceButton)
			req.ChatID = chatID
			q, err := h.analyst.Quote(ctx, req)
			if err != nil {
				lines[i] = fmt.Sprintf("⚪ <b>%s</b> unavailable", html.EscapeString(symbol))
				return
			}
			lines[i] = FormatQuoteLine(q)
		}(i, s)
	}
	wg.Wait()

	return "📋 <b>Popular symbols</b> · daily\n\n" + strings.Join(lines, "\n")
}

func analyzingText(req service.Request) string {
	return fmt.Sprintf("🔎 Analyzing <b>%s</b> on %s…", html.EscapeString(req.Symbol), html.EscapeString(req.Timeframe))
}

func chooseTimeframeText(symbol string) string {
	return fmt.Sprintf("⏱ Choose a timeframe for <b>%s</b>", html.EscapeString(symbol))
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) {
	if _, err := h.messenger.SendMessage(ctx, chatID, text, markup); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (h *Handler) edit(ctx context.Context, chatID int64, messageID int, text string, markup *InlineKeyboardMarkup) {
	if err := h.messenger.EditMessageText(ctx, chatID, messageID, text, markup); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to edit message")
	}
}

func (h *Handler) answer(ctx context.Context, callbackID, text string) {
	if err := h.messenger.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		h.logger.Debug().Err(err).Msg("failed to answer callback")
	}
}
