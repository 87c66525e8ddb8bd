// Package assemble merges the restaurant profile, derived facts, history, and
// confidence into the structured context document a generation call consumes.
package assemble

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/covercount/insights-cli/internal/model"
)

// Input carries everything one generation's context is assembled from. All
// pieces are read once at the start of the call; the assembler never refreshes
// them mid-call.
type Input struct {
	Profile    *model.RestaurantProfile
	Facts      *model.DataFacts
	Insights   []model.Insight
	Feedback   []model.FeedbackRecord
	Confidence model.Confidence

	// Caller-supplied pre-aggregated summaries for the current period,
	// passed through verbatim.
	SalesSummary string
	CostSummary  string
}

// History limits applied when loading input for assembly.
const (
	MaxPriorInsights = 10
	MaxPriorFeedback = 20
	previewChars     = 100
	requiredInsights = 3
)

// printer formats revenue figures with locale-aware digit grouping.
var printer = message.NewPrinter(language.English)

// SystemInstruction is the fixed system prompt for insight generation.
const SystemInstruction = `You are a restaurant business analyst generating grounded, actionable insights from connected data sources. Respect every instruction in the context document, especially the required hedging language and the operator's own context. Return a valid JSON object:
{"title": "<short title>", "summary": "<one paragraph>", "insights": ["<insight 1>", "<insight 2>", "<insight 3>"], "recommendations": ["<recommendation>", ...], "dataQuality": "<good|fair|limited>"}`

// BuildContext renders the labeled context document. Missing profile or facts
// degrade to omitted sections; the hedge instructions and the closing task
// directive are always present.
func BuildContext(in Input) string {
	var sections []string

	if s := profileSection(in.Profile); s != "" {
		sections = append(sections, s)
	}
	if s := typeVsConceptSection(in.Profile); s != "" {
		sections = append(sections, s)
	}
	if s := operatorContextSection(in.Profile); s != "" {
		sections = append(sections, s)
	}
	if s := factsSection(in.Facts); s != "" {
		sections = append(sections, s)
	}
	if in.SalesSummary != "" {
		sections = append(sections, "=== CURRENT PERIOD SALES ===\n"+in.SalesSummary)
	}
	if in.CostSummary != "" {
		sections = append(sections, "=== CURRENT PERIOD COSTS ===\n"+in.CostSummary)
	}
	if s := previousInsightsSection(in.Insights); s != "" {
		sections = append(sections, s)
	}
	if s := negativeFeedbackSection(in.Feedback, in.Insights); s != "" {
		sections = append(sections, s)
	}

	sections = append(sections, confidenceSection(in.Confidence))
	sections = append(sections, taskDirective(in.Confidence))

	return strings.Join(sections, "\n\n")
}

func profileSection(p *model.RestaurantProfile) string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== RESTAURANT PROFILE ===\n")
	writeField(&b, "Name", p.Name)
	writeField(&b, "Type", p.Type)
	writeField(&b, "Cuisine", p.Cuisine)
	writeField(&b, "Price Range", p.PriceRange)
	if p.Seating > 0 {
		fmt.Fprintf(&b, "Seating Capacity: %d\n", p.Seating)
	}
	writeField(&b, "Neighborhood", p.Neighborhood)
	writeField(&b, "Target Demographic", p.TargetDemographic)
	return strings.TrimRight(b.String(), "\n")
}

// typeVsConceptSection is emitted only when both the categorical type and the
// free-text concept are present. The type anchors financial benchmarks; the
// concept anchors tone and strategy, and recommendations must not contradict it.
func typeVsConceptSection(p *model.RestaurantProfile) string {
	if p == nil || p.Type == "" || p.Concept == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== BUSINESS TYPE VS CONCEPT ===\n")
	fmt.Fprintf(&b, "Business type: %s\n", p.Type)
	fmt.Fprintf(&b, "Concept: %s\n", p.Concept)
	b.WriteString("Use the business type for financial benchmarks and industry comparisons. ")
	b.WriteString("Use the concept for tone and strategy. ")
	b.WriteString("Never make a recommendation that contradicts the stated concept.")
	return b.String()
}

// operatorContextSection surfaces the operator's own words verbatim; they
// override any assumption the generator would otherwise make.
func operatorContextSection(p *model.RestaurantProfile) string {
	if p == nil || p.OperatorContext == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== OPERATOR CONTEXT (GROUND TRUTH) ===\n")
	b.WriteString(p.OperatorContext)
	b.WriteString("\nTreat the above as ground truth from the operator. It overrides any assumption you would otherwise generate.")
	return b.String()
}

func factsSection(f *model.DataFacts) string {
	if f == nil || f.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== DERIVED PERFORMANCE FACTS ===\n")
	if f.AvgMonthlyRevenue > 0 {
		printer.Fprintf(&b, "Average monthly revenue: $%.2f\n", f.AvgMonthlyRevenue)
	}
	if f.AvgDailyRevenue > 0 {
		printer.Fprintf(&b, "Average daily revenue: $%.2f\n", f.AvgDailyRevenue)
	}
	if f.AvgCheck > 0 {
		printer.Fprintf(&b, "Average check: $%.2f\n", f.AvgCheck)
	}
	if f.TotalOrders > 0 {
		printer.Fprintf(&b, "Total orders in window: %d\n", f.TotalOrders)
	}
	if len(f.PeakDays) > 0 {
		fmt.Fprintf(&b, "Peak days: %s\n", strings.Join(f.PeakDays, ", "))
	}
	if len(f.WeakestDays) > 0 {
		fmt.Fprintf(&b, "Weakest days (weakest first): %s\n", strings.Join(f.WeakestDays, ", "))
	}
	if len(f.RevenueMix) > 0 {
		b.WriteString("Revenue mix: ")
		b.WriteString(formatMix(f.RevenueMix))
		b.WriteString("\n")
	}
	if len(f.MonthlyTrend) > 0 {
		b.WriteString("Monthly revenue trend:\n")
		for _, m := range f.MonthlyTrend {
			printer.Fprintf(&b, "  %s: $%.0f (%d orders)\n", m.Month, m.Revenue, m.Orders)
		}
	}
	fmt.Fprintf(&b, "Month-over-month growth: %.1f%%\n", f.MonthOverMonthGrowth)
	if f.SeasonalPeak != "" {
		fmt.Fprintf(&b, "Seasonal peak month: %s\n", f.SeasonalPeak)
	}
	return strings.TrimRight(b.String(), "\n")
}

func previousInsightsSection(insights []model.Insight) string {
	if len(insights) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== PREVIOUS INSIGHTS (DO NOT REPEAT) ===\n")
	for _, in := range insights {
		fmt.Fprintf(&b, "- %s: %s\n", in.Title, preview(in.Content))
	}
	b.WriteString("Do not repeat these insights or restate them in different words.")
	return b.String()
}

// negativeFeedbackSection surfaces only rejected content; positive feedback is
// deliberately not shown to the generator.
func negativeFeedbackSection(feedback []model.FeedbackRecord, insights []model.Insight) string {
	titles := make(map[string]string, len(insights))
	for _, in := range insights {
		titles[in.ID] = in.Title
	}

	var lines []string
	for _, f := range feedback {
		if !f.Rating.Negative() {
			continue
		}
		line := fmt.Sprintf("- [%s]", f.Rating)
		if title, ok := titles[f.InsightID]; ok {
			line += " " + title
		}
		if f.Comment != "" {
			line += " — operator said: " + f.Comment
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== REJECTED SUGGESTIONS (AVOID SIMILAR) ===\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\nAvoid suggestions similar to the rejected ones above.")
	return b.String()
}

func confidenceSection(c model.Confidence) string {
	var b strings.Builder
	b.WriteString("=== DATA CONFIDENCE ===\n")
	fmt.Fprintf(&b, "Confidence score: %d/100 (%s)\n", c.Score, c.Level)
	fmt.Fprintf(&b, "Disclaimer: %s\n", c.Disclaimer)
	b.WriteString(HedgeInstruction(c.HedgeLevel))
	return b.String()
}

// HedgeInstruction returns the required language-strength instruction for a
// hedge tier. Assembly always includes one of these; the generator is never
// left to choose its own epistemic register.
func HedgeInstruction(level model.HedgeLevel) string {
	switch level {
	case model.HedgeNone:
		return "Required language: confident attribution is permitted, including profit-level recommendations."
	case model.HedgeLow:
		return "Required language: confident attribution is allowed, but every analysis must still name at least one remaining data gap."
	case model.HedgeMedium:
		return "Required language: attribute changes only partially, and for each attribution name at least one alternative cause that is not observed in the connected data."
	default:
		return "Required language: describe correlations only, never causation. Frame anything without direct evidence as \"unexplained with current data\"."
	}
}

// taskDirective closes every context document. The final insight must point
// at a concrete data gap and the layer that would close it.
func taskDirective(c model.Confidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== TASK ===\nGenerate exactly %d new insights. Each must be actionable, respect the operator context, and be distinct from all previous insights listed above.\n", requiredInsights)
	b.WriteString("The final insight must name one specific data gap in the current picture and state which missing data layer would close it")
	if c.NextRecommended != "" {
		fmt.Fprintf(&b, " (the highest-value missing source is %s)", c.NextRecommended)
	}
	b.WriteString(".")
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= previewChars {
		return content
	}
	return string(runes[:previewChars]) + "..."
}

func formatMix(mix map[string]int) string {
	// Fixed category order keeps output deterministic.
	order := []string{model.CategoryFood, model.CategoryWine, model.CategoryBeer, model.CategoryLiquor}
	var parts []string
	for _, c := range order {
		if pct, ok := mix[c]; ok {
			parts = append(parts, fmt.Sprintf("%s %d%%", c, pct))
		}
	}
	var extra []string
	for c := range mix {
		known := false
		for _, o := range order {
			if c == o {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		parts = append(parts, fmt.Sprintf("%s %d%%", c, mix[c]))
	}
	return strings.Join(parts, ", ")
}
