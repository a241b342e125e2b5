package cli

import (
	"fmt"
	"strings"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/service"
	"stock-analyst/pkg/utils"
)

// printAnalysis renders a full report for the terminal.
func printAnalysis(output *Output, r *analysis.AnalysisResult) {
	output.Println()
	output.Bold("📊 %s · %s", r.Symbol, r.Timeframe)
	output.Printf("  Price: %s", output.BoldText(utils.FormatPrice(r.LastClose)))
	if !r.AsOf.IsZero() {
		output.Printf("  %s", output.DimText(fmt.Sprintf("as of %s UTC, %d bars", r.AsOf.UTC().Format("2006-01-02 15:04"), r.Bars)))
	}
	output.Println()

	section(output, "Classical", r.Classical.Insufficient())
	if !r.Classical.Insufficient() {
		printClassical(output, r.Classical)
	}

	section(output, "Elliott Wave", r.Elliott.Status == analysis.StatusInsufficientData)
	if r.Elliott.Status != analysis.StatusInsufficientData {
		printElliott(output, r.Elliott)
	}

	section(output, "ICT", r.ICT.Status == analysis.StatusInsufficientData)
	if r.ICT.Status != analysis.StatusInsufficientData {
		printICT(output, r.ICT)
	}

	section(output, "Harmonic", r.Harmonic.Status == analysis.StatusInsufficientData)
	if r.Harmonic.Status != analysis.StatusInsufficientData {
		printHarmonic(output, r.Harmonic)
	}

	output.Println()
	output.Printf("🎯 Score %s · confidence %.0f%%\n", output.BoldText(formatScore(r.Score)), r.ConfidencePercent)
	output.Printf("   %s\n", output.Recommendation(r.Recommendation))
	if r.Advice != "" {
		output.Dim("   %s", r.Advice)
	}
}

func section(output *Output, title string, insufficient bool) {
	output.Println()
	output.Bold(title)
	if insufficient {
		output.Dim("  not enough data")
	}
}

func printClassical(output *Output, c analysis.ClassicalResult) {
	output.Printf("  Pivot:  %s\n", utils.FormatPrice(c.Pivot))
	output.Printf("  Trend:  %s\n", output.Trend(c.Trend))
	if len(c.Patterns) > 0 {
		names := make([]string, len(c.Patterns))
		for i, p := range c.Patterns {
			names[i] = strings.ReplaceAll(string(p), "_", " ")
		}
		output.Printf("  Patterns: %s\n", strings.Join(names, ", "))
	}
	if len(c.Resistance)+len(c.Support) == 0 {
		return
	}

	table := NewTable(output, "  Level", "Price", "Strength")
	for _, l := range c.Resistance {
		table.AddRow("  "+output.Red("resistance"), utils.FormatPrice(l.Price), string(l.Strength))
	}
	for _, l := range c.Support {
		table.AddRow("  "+output.Green("support"), utils.FormatPrice(l.Price), string(l.Strength))
	}
	table.Render()
}

func printElliott(output *Output, e analysis.ElliottResult) {
	if len(e.Waves) == 0 {
		output.Println("  No waves identified")
		return
	}
	labels := make([]string, len(e.Waves))
	for i, w := range e.Waves {
		if w.Type == analysis.WavePush {
			labels[i] = output.Green(fmt.Sprintf("%d↑", w.Ordinal))
		} else {
			labels[i] = output.Red(fmt.Sprintf("%d↓", w.Ordinal))
		}
	}
	output.Printf("  Waves:  %s (%s)\n", strings.Join(labels, " "), e.Pattern)
	for _, t := range e.Targets {
		output.Printf("  Wave %d target: %s\n", t.Wave, utils.FormatPrice(t.Price))
	}
}

func printICT(output *Output, r analysis.ICTResult) {
	if r.MarketStructure != analysis.TrendUndefined {
		output.Printf("  Structure: %s\n", output.Trend(r.MarketStructure))
	}
	for _, g := range r.FairValueGaps {
		text := fmt.Sprintf("%s FVG %s – %s", g.Direction, utils.FormatPrice(g.Lower), utils.FormatPrice(g.Upper))
		if g.Direction == analysis.BiasBullish {
			text = output.Green(text)
		} else {
			text = output.Red(text)
		}
		output.Printf("  %s %s\n", text, output.DimText(fmt.Sprintf("(bar %d)", g.Index)))
	}
	if ob, ok := r.LatestOrderBlock(); ok {
		output.Printf("  Order block: %s @ %s (%s, %d total)\n", ob.Direction, utils.FormatPrice(ob.Price), ob.Strength, len(r.OrderBlocks))
	}
	for _, l := range r.Liquidity {
		output.Printf("  Liquidity: %s %s\n", strings.ReplaceAll(string(l.Kind), "_", " "), utils.FormatPrice(l.Price))
	}
}

func printHarmonic(output *Output, h analysis.HarmonicResult) {
	if len(h.Active) == 0 {
		output.Printf("  No active pattern (%d historical)\n", len(h.Patterns))
		return
	}
	for _, p := range h.Active {
		output.Printf("  %s %s → %s %s\n", p.Name, p.Direction, utils.FormatPrice(p.Target),
			output.DimText(fmt.Sprintf("(AB/XA %.3f, BC/AB %.3f)", p.ABXA, p.BCAB)))
	}
}

// printQuote renders a price lookup with the floor-trader pivot.
func printQuote(output *Output, q *service.Quote) {
	output.Bold("💰 %s · %s", q.Symbol, q.Timeframe)
	output.Printf("  Price:      %s %s\n", output.BoldText(utils.FormatPrice(q.Price)),
		output.Signed(q.Change, utils.FormatPercent(q.ChangePercent)))
	output.Printf("  High / Low: %s / %s\n", utils.FormatPrice(q.High), utils.FormatPrice(q.Low))
	output.Printf("  Pivot:      %s\n", utils.FormatPrice(q.Pivot))
	output.Printf("  R1 / S1:    %s / %s\n", utils.FormatPrice(2*q.Pivot-q.Low), utils.FormatPrice(2*q.Pivot-q.High))
	output.Printf("  Volume:     %s\n", utils.FormatCompact(q.Volume))
	bias := service.BiasFromChange(q.ChangePercent)
	output.Printf("  Bias:       %s (%s)\n", output.Bias(bias), bias.Action())
	if !q.AsOf.IsZero() {
		output.Dim("  as of %s UTC", q.AsOf.UTC().Format("2006-01-02 15:04"))
	}
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.1f", score)
}
