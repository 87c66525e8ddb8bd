// Package facts derives statistically meaningful summaries from raw
// transaction history so generated narratives are grounded in real numbers.
package facts

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/covercount/insights-cli/internal/model"
)

// DefaultWindowMonths is the trailing derivation window.
const DefaultWindowMonths = 7

// SalesReader reads transaction-summary records for a restaurant.
type SalesReader interface {
	ListDailySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.DailySales, error)
	ListCategorySales(ctx context.Context, restaurantID string, from, to time.Time) ([]model.CategorySales, error)
}

// FactsWriter persists recomputed facts onto the restaurant profile.
type FactsWriter interface {
	UpdateFacts(ctx context.Context, restaurantID string, facts model.DataFacts, updatedAt time.Time) error
}

// Pipeline aggregates a trailing window of sales records into DataFacts.
// Derivation is deterministic for a fixed record set, so recomputation is
// idempotent and lost concurrent refreshes are harmless.
type Pipeline struct {
	sales        SalesReader
	writer       FactsWriter
	windowMonths int
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWindowMonths overrides the trailing window length.
func WithWindowMonths(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.windowMonths = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a Pipeline over the given reader and writer.
func NewPipeline(sales SalesReader, writer FactsWriter, opts ...Option) *Pipeline {
	p := &Pipeline{
		sales:        sales,
		writer:       writer,
		windowMonths: DefaultWindowMonths,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Window returns the derivation window ending now. The start is truncated to
// the first day of the oldest included month; the end is the current instant,
// not the calendar month end.
func (p *Pipeline) Window() (from, to time.Time) {
	to = p.now().UTC()
	from = time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(p.windowMonths - 1), 0)
	return from, to
}

// Derive computes DataFacts for the restaurant over the trailing window.
// An empty window yields empty facts, never an error.
func (p *Pipeline) Derive(ctx context.Context, restaurantID string) (model.DataFacts, error) {
	from, to := p.Window()

	daily, err := p.sales.ListDailySales(ctx, restaurantID, from, to)
	if err != nil {
		return model.DataFacts{}, eris.Wrap(err, "facts: list daily sales")
	}
	if len(daily) == 0 {
		return model.DataFacts{}, nil
	}

	facts := deriveDaily(daily)

	categories, err := p.sales.ListCategorySales(ctx, restaurantID, from, to)
	if err != nil {
		return model.DataFacts{}, eris.Wrap(err, "facts: list category sales")
	}
	facts.RevenueMix = deriveMix(categories)

	return facts, nil
}

// Refresh recomputes facts and persists them with a fresh timestamp. It is
// the only writer of DataFacts.
func (p *Pipeline) Refresh(ctx context.Context, restaurantID string) (model.DataFacts, error) {
	facts, err := p.Derive(ctx, restaurantID)
	if err != nil {
		return model.DataFacts{}, err
	}

	updatedAt := p.now().UTC()
	if err := p.writer.UpdateFacts(ctx, restaurantID, facts, updatedAt); err != nil {
		return model.DataFacts{}, eris.Wrap(err, "facts: persist")
	}

	zap.L().Info("facts: refreshed",
		zap.String("restaurant_id", restaurantID),
		zap.Int("months", len(facts.MonthlyTrend)),
		zap.Int("total_orders", facts.TotalOrders),
	)
	return facts, nil
}

// deriveDaily computes every fact that depends only on daily summaries.
func deriveDaily(daily []model.DailySales) model.DataFacts {
	var totalRevenue float64
	var totalOrders int
	for _, d := range daily {
		totalRevenue += d.Revenue
		totalOrders += d.Orders
	}

	facts := model.DataFacts{
		AvgDailyRevenue: totalRevenue / float64(len(daily)),
		TotalOrders:     totalOrders,
	}
	if totalOrders > 0 {
		facts.AvgCheck = totalRevenue / float64(totalOrders)
	}

	facts.DayOfWeekAverages = dayOfWeekAverages(daily)
	facts.PeakDays, facts.WeakestDays = rankDays(facts.DayOfWeekAverages)

	facts.MonthlyTrend = monthlyTrend(daily)
	facts.MonthOverMonthGrowth = monthGrowth(facts.MonthlyTrend)
	facts.SeasonalPeak = seasonalPeak(facts.MonthlyTrend)
	if n := len(facts.MonthlyTrend); n > 0 {
		facts.AvgMonthlyRevenue = totalRevenue / float64(n)
	}

	return facts
}

// dayOfWeekAverages buckets revenue into the 7 weekdays and averages each
// bucket over the days it actually has data for.
func dayOfWeekAverages(daily []model.DailySales) map[string]float64 {
	sums := make(map[string]float64, 7)
	counts := make(map[string]int, 7)
	for _, d := range daily {
		day := d.Date.Weekday().String()
		sums[day] += d.Revenue
		counts[day]++
	}

	avgs := make(map[string]float64, len(sums))
	for day, sum := range sums {
		avgs[day] = sum / float64(counts[day])
	}
	return avgs
}

// weekdayOrder fixes the iteration order for deterministic tie-breaking.
var weekdayOrder = []string{
	time.Monday.String(), time.Tuesday.String(), time.Wednesday.String(),
	time.Thursday.String(), time.Friday.String(), time.Saturday.String(),
	time.Sunday.String(),
}

// rankDays sorts weekday averages descending and returns the top 3 as peak
// days and the bottom 2, reversed, as weakest days (weakest first).
func rankDays(avgs map[string]float64) (peak, weakest []string) {
	type dayAvg struct {
		day string
		avg float64
	}
	ranked := make([]dayAvg, 0, len(avgs))
	for _, day := range weekdayOrder {
		if avg, ok := avgs[day]; ok {
			ranked = append(ranked, dayAvg{day: day, avg: avg})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].avg > ranked[j].avg
	})

	for i := 0; i < len(ranked) && i < 3; i++ {
		peak = append(peak, ranked[i].day)
	}
	for i := len(ranked) - 1; i >= 0 && i >= len(ranked)-2; i-- {
		weakest = append(weakest, ranked[i].day)
	}
	return peak, weakest
}

// monthlyTrend groups records by the calendar month of the record date
// (YYYY-MM) and returns the series sorted ascending by key.
func monthlyTrend(daily []model.DailySales) []model.MonthRevenue {
	byMonth := make(map[string]*model.MonthRevenue)
	for _, d := range daily {
		key := d.Date.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &model.MonthRevenue{Month: key}
			byMonth[key] = m
		}
		m.Revenue += d.Revenue
		m.Orders += d.Orders
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	trend := make([]model.MonthRevenue, 0, len(keys))
	for _, k := range keys {
		trend = append(trend, *byMonth[k])
	}
	return trend
}

// monthGrowth computes month-over-month revenue growth in percent, rounded
// to one decimal. Fewer than two months, or a zero previous month, yields 0.
func monthGrowth(trend []model.MonthRevenue) float64 {
	if len(trend) < 2 {
		return 0
	}
	latest := trend[len(trend)-1].Revenue
	previous := trend[len(trend)-2].Revenue
	if previous == 0 {
		return 0
	}
	growth := (latest - previous) / previous * 100
	return math.Round(growth*10) / 10
}

// seasonalPeak returns the month key with the highest revenue; the first
// encountered wins on ties.
func seasonalPeak(trend []model.MonthRevenue) string {
	peak := ""
	var best float64
	for _, m := range trend {
		if peak == "" || m.Revenue > best {
			peak = m.Month
			best = m.Revenue
		}
	}
	return peak
}

// deriveMix sums category revenue and converts each positive category into a
// rounded percentage of the category total. Zero categories are omitted; a
// zero total omits the whole mix.
func deriveMix(categories []model.CategorySales) map[string]int {
	sums := make(map[string]float64)
	var total float64
	for _, c := range categories {
		sums[c.Category] += c.Revenue
		total += c.Revenue
	}
	if total <= 0 {
		return nil
	}

	mix := make(map[string]int)
	for category, sum := range sums {
		if sum <= 0 {
			continue
		}
		mix[category] = int(math.Round(sum / total * 100))
	}
	return mix
}
