package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"stock-analyst/internal/analysis"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/service"
	"stock-analyst/pkg/utils"
)

var recommendationLabels = map[analysis.Recommendation]string{
	analysis.StrongBuy:   "🟢 Strong buy",
	analysis.ModerateBuy: "🟡 Moderate buy",
	analysis.Wait:        "⏳ Wait",
	analysis.AvoidSell:   "🔴 Avoid / sell",
}

var trendLabels = map[analysis.Trend]string{
	analysis.TrendUp:       "📈 up",
	analysis.TrendDown:     "📉 down",
	analysis.TrendSideways: "↔️ sideways",
}

var patternLabels = map[analysis.ChartPattern]string{
	analysis.PatternHeadAndShoulders: "head and shoulders",
	analysis.PatternTriangle:         "triangle",
	analysis.PatternAscendingFlag:    "ascending flag",
}

const insufficientLine = "<i>not enough data</i>\n"

// FormatAnalysis renders a full report in Telegram HTML.
func FormatAnalysis(r *analysis.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>%s</b> · %s\n", html.EscapeString(r.Symbol), r.Timeframe)
	fmt.Fprintf(&b, "💰 Price: <b>%s</b>\n", utils.FormatPrice(r.LastClose))
	if !r.AsOf.IsZero() {
		fmt.Fprintf(&b, "🕒 %s UTC · %d bars\n", r.AsOf.UTC().Format("2006-01-02 15:04"), r.Bars)
	}

	b.WriteString("\n<b>Classical</b>\n")
	writeClassical(&b, r.Classical)

	b.WriteString("\n<b>Elliott Wave</b>\n")
	writeElliott(&b, r.Elliott)

	b.WriteString("\n<b>ICT</b>\n")
	writeICT(&b, r.ICT)

	b.WriteString("\n<b>Harmonic</b>\n")
	writeHarmonic(&b, r.Harmonic)

	fmt.Fprintf(&b, "\n🎯 <b>Score</b> %s · confidence %.0f%%\n", formatScore(r.Score), r.ConfidencePercent)
	fmt.Fprintf(&b, "%s\n", recommendationLabel(r.Recommendation))
	if r.Advice != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(r.Advice))
	}

	return b.String()
}

func writeClassical(b *strings.Builder, c analysis.ClassicalResult) {
	if c.Insufficient() {
		b.WriteString(insufficientLine)
		return
	}
	fmt.Fprintf(b, "Pivot: %s\n", utils.FormatPrice(c.Pivot))
	if len(c.Resistance) > 0 {
		fmt.Fprintf(b, "Resistance: %s\n", formatLevels(c.Resistance))
	}
	if len(c.Support) > 0 {
		fmt.Fprintf(b, "Support: %s\n", formatLevels(c.Support))
	}
	fmt.Fprintf(b, "Trend: %s\n", trendLabel(c.Trend))
	if len(c.Patterns) > 0 {
		names := make([]string, len(c.Patterns))
		for i, p := range c.Patterns {
			names[i] = patternLabels[p]
		}
		fmt.Fprintf(b, "Patterns: %s\n", strings.Join(names, ", "))
	}
}

func writeElliott(b *strings.Builder, e analysis.ElliottResult) {
	if e.Status == analysis.StatusInsufficientData {
		b.WriteString(insufficientLine)
		return
	}
	if len(e.Waves) == 0 {
		b.WriteString("No waves identified\n")
		return
	}

	waves := make([]string, len(e.Waves))
	for i, w := range e.Waves {
		arrow := "↑"
		if w.Type == analysis.WaveCorrection {
			arrow = "↓"
		}
		waves[i] = fmt.Sprintf("%d%s", w.Ordinal, arrow)
	}
	fmt.Fprintf(b, "Waves: %s (%s)\n", strings.Join(waves, " "), e.Pattern)
	for _, t := range e.Targets {
		fmt.Fprintf(b, "Wave %d target: %s\n", t.Wave, utils.FormatPrice(t.Price))
	}
}

func writeICT(b *strings.Builder, r analysis.ICTResult) {
	if r.Status == analysis.StatusInsufficientData {
		b.WriteString(insufficientLine)
		return
	}
	if r.MarketStructure != analysis.TrendUndefined {
		fmt.Fprintf(b, "Structure: %s\n", trendLabel(r.MarketStructure))
	}
	if n := len(r.FairValueGaps); n > 0 {
		g := r.FairValueGaps[n-1]
		fmt.Fprintf(b, "FVG: %s %s – %s (%d found)\n", g.Direction, utils.FormatPrice(g.Lower), utils.FormatPrice(g.Upper), n)
	}
	if ob, ok := r.LatestOrderBlock(); ok {
		fmt.Fprintf(b, "Order block: %s @ %s (%s)\n", ob.Direction, utils.FormatPrice(ob.Price), ob.Strength)
	}
	for _, l := range r.Liquidity {
		side := "buy-side"
		if l.Kind == analysis.LevelLiquiditySellSide {
			side = "sell-side"
		}
		fmt.Fprintf(b, "Liquidity %s: %s\n", side, utils.FormatPrice(l.Price))
	}
}

func writeHarmonic(b *strings.Builder, h analysis.HarmonicResult) {
	if h.Status == analysis.StatusInsufficientData {
		b.WriteString(insufficientLine)
		return
	}
	if len(h.Active) == 0 {
		fmt.Fprintf(b, "No active pattern (%d historical)\n", len(h.Patterns))
		return
	}
	for _, p := range h.Active {
		fmt.Fprintf(b, "%s %s → %s\n", p.Name, p.Direction, utils.FormatPrice(p.Target))
	}
}

func formatLevels(levels []analysis.Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%s (%s)", utils.FormatPrice(l.Price), l.Strength)
	}
	return strings.Join(parts, ", ")
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.1f", score)
}

func trendLabel(t analysis.Trend) string {
	if label, ok := trendLabels[t]; ok {
		return label
	}
	return "undefined"
}

func recommendationLabel(r analysis.Recommendation) string {
	if label, ok := recommendationLabels[r]; ok {
		return label
	}
	return string(r)
}

// FormatQuote renders a price lookup with the floor-trader pivot and its
// first resistance and support.
func FormatQuote(q *service.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 <b>%s</b> · %s\n", html.EscapeString(q.Symbol), q.Timeframe)
	fmt.Fprintf(&b, "Price: <b>%s</b> (%s)\n", utils.FormatPrice(q.Price), utils.FormatPercent(q.ChangePercent))
	fmt.Fprintf(&b, "High / Low: %s / %s\n", utils.FormatPrice(q.High), utils.FormatPrice(q.Low))
	fmt.Fprintf(&b, "Pivot: %s\n", utils.FormatPrice(q.Pivot))
	fmt.Fprintf(&b, "Resistance: %s · Support: %s\n",
		utils.FormatPrice(2*q.Pivot-q.Low), utils.FormatPrice(2*q.Pivot-q.High))
	fmt.Fprintf(&b, "Volume: %s\n", utils.FormatCompact(q.Volume))
	bias := service.BiasFromChange(q.ChangePercent)
	fmt.Fprintf(&b, "\n%s <b>%s</b> · %s\n", biasIcon(bias), biasLabel(bias), bias.Action())
	return b.String()
}

func biasIcon(b service.QuoteBias) string {
	switch b {
	case service.BiasUp:
		return "🟢"
	case service.BiasDown:
		return "🔴"
	}
	return "🟡"
}

func biasLabel(b service.QuoteBias) string {
	switch b {
	case service.BiasUp:
		return "Uptrend"
	case service.BiasDown:
		return "Downtrend"
	}
	return "Sideways market"
}

// FormatQuoteLine renders a one-line summary for the overview list.
func FormatQuoteLine(q *service.Quote) string {
	icon := "🟢"
	if q.Change < 0 {
		icon = "🔴"
	}
	return fmt.Sprintf("%s <b>%s</b> %s (%s)", icon, html.EscapeString(q.Symbol), utils.FormatPrice(q.Price), utils.FormatPercent(q.ChangePercent))
}

// FormatError turns a request failure into a user-facing message.
func FormatError(req service.Request, err error) string {
	symbol := html.EscapeString(req.Symbol)
	switch {
	case errors.Is(err, apperrors.ErrUnknownTimeframe):
		return "⚠️ Unknown timeframe. Use one of: " + timeframeList()
	case errors.Is(err, apperrors.ErrInputValidation):
		return "⚠️ Invalid symbol. Example: <code>/analyze AAPL 1h</code>"
	case errors.Is(err, apperrors.ErrSymbolNotFound):
		return fmt.Sprintf("⚠️ Symbol <b>%s</b> not found", symbol)
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("⌛ Analysis of <b>%s</b> timed out, try again", symbol)
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return fmt.Sprintf("📡 Price data for <b>%s</b> is unavailable right now, try again later", symbol)
	case errors.Is(err, apperrors.ErrMalformedSeries):
		return fmt.Sprintf("⚠️ Received malformed price data for <b>%s</b>", symbol)
	}
	return "❌ Something went wrong, try again later"
}

func timeframeList() string {
	tfs := models.AllTimeframes()
	names := make([]string, len(tfs))
	for i, tf := range tfs {
		names[i] = tf.String()
	}
	return strings.Join(names, ", ")
}

// MainMenu lists the popular symbols three per row.
func MainMenu(symbols []string) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	var row []InlineKeyboardButton
	for _, s := range symbols {
		row = append(row, InlineKeyboardButton{Text: s, CallbackData: "tf:" + s})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []InlineKeyboardButton{
		{Text: "📋 All prices", CallbackData: "all"},
		{Text: "❓ Help", CallbackData: "help"},
	})
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

// TimeframeMenu offers every timeframe for a symbol.
func TimeframeMenu(symbol string) *InlineKeyboardMarkup {
	var row []InlineKeyboardButton
	for _, tf := range models.AllTimeframes() {
		row = append(row, InlineKeyboardButton{Text: tf.String(), CallbackData: analyzeData(symbol, tf.String())})
	}
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		row,
		{{Text: "⬅️ Menu", CallbackData: "menu"}},
	}}
}

// ResultMenu is attached to a finished report.
func ResultMenu(symbol, timeframe string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
		{Text: "🔄 Refresh", CallbackData: analyzeData(symbol, timeframe)},
		{Text: "⏱ Timeframe", CallbackData: "tf:" + symbol},
		{Text: "⬅️ Menu", CallbackData: "menu"},
	}}}
}

func backMenu() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "⬅️ Menu", CallbackData: "menu"}},
	}}
}

func analyzeData(symbol, timeframe string) string {
	return "an:" + symbol + ":" + timeframe
}

const welcomeText = "👋 <b>Stock Analyst</b>\n\n" +
	"Pick a symbol for a multi-school technical analysis " +
	"(classical, Elliott wave, ICT, harmonic), or type a command.\n" +
	"Example: <code>/analyze AAPL 1h</code>"

const helpText = "❓ <b>Help</b>\n\n" +
	"/start - symbol menu\n" +
	"/analyze SYMBOL [timeframe] - full analysis\n" +
	"/price SYMBOL [timeframe] - latest price and pivot\n" +
	"/help - this message\n\n" +
	"Timeframes: 15m, 30m, 1h, 4h, 1d\n" +
	"Typing a bare symbol opens its timeframe menu.\n\n" +
	"<i>Analysis is informational only and not financial advice.</i>"
