package model

import "time"

// Sales categories tracked for the revenue mix.
const (
	CategoryFood   = "food"
	CategoryWine   = "wine"
	CategoryBeer   = "beer"
	CategoryLiquor = "liquor"
)

// DailySales is a transaction summary for one business day, read from the
// store. Ingestion of raw transactions is external to this system.
type DailySales struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
	Orders  int       `json:"orders"`
}

// CategorySales is a per-category revenue record for one business day.
type CategorySales struct {
	Date     time.Time `json:"date"`
	Category string    `json:"category"`
	Revenue  float64   `json:"revenue"`
}

// MonthRevenue is one point in the monthly trend series, keyed by YYYY-MM.
type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// DataFacts is the derived statistical summary computed from transaction
// history. It is persisted on the restaurant profile with a refresh timestamp
// and recomputed when stale; only the fact pipeline writes it.
type DataFacts struct {
	AvgMonthlyRevenue    float64            `json:"avg_monthly_revenue"`
	AvgDailyRevenue      float64            `json:"avg_daily_revenue"`
	AvgCheck             float64            `json:"avg_check"`
	TotalOrders          int                `json:"total_orders"`
	PeakDays             []string           `json:"peak_days,omitempty"`
	WeakestDays          []string           `json:"weakest_days,omitempty"`
	DayOfWeekAverages    map[string]float64 `json:"day_of_week_averages,omitempty"`
	RevenueMix           map[string]int     `json:"revenue_mix,omitempty"`
	MonthlyTrend         []MonthRevenue     `json:"monthly_trend,omitempty"`
	MonthOverMonthGrowth float64            `json:"month_over_month_growth"`
	SeasonalPeak         string             `json:"seasonal_peak,omitempty"`
}

// Empty reports whether the facts carry no derived data at all.
func (f DataFacts) Empty() bool {
	return f.TotalOrders == 0 && len(f.MonthlyTrend) == 0 && f.AvgDailyRevenue == 0
}
