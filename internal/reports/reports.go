// Package reports defines the four aggregate reports computed over the
// cleaned review table.
//
//	product_rating_summary  average rating and review count per product
//	daily_review_trends     reviews per known review date
//	top_active_customers    five customers with the most reviews
//	rating_distribution     share of each rating in [1,5]
//
// Ties are broken by the group key ascending so every report is fully
// deterministic.
package reports

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"reviewetl/internal/engine"
	"reviewetl/internal/normalize"
	"reviewetl/internal/table"
)

// Report names. They double as the destination keys.
const (
	ProductRatingSummary = "product_rating_summary"
	DailyReviewTrends    = "daily_review_trends"
	TopActiveCustomers   = "top_active_customers"
	RatingDistribution   = "rating_distribution"
)

// Names lists the reports in execution and output order.
var Names = []string{ProductRatingSummary, DailyReviewTrends, TopActiveCustomers, RatingDistribution}

// AnonymousCustomer is the placeholder id excluded from customer rankings.
const AnonymousCustomer = "ANONYMOUS_USER"

// TopCustomers is the size of the customer ranking.
const TopCustomers = 5

// Options tunes the engine. Results never depend on it.
type Options struct {
	Workers int
}

// Result is one computed report.
type Result struct {
	Name  string
	Table *table.Table
}

type query func(*table.Table, Options) (*table.Table, error)

var queries = map[string]query{
	ProductRatingSummary: productRatingSummary,
	DailyReviewTrends:    dailyReviewTrends,
	TopActiveCustomers:   topActiveCustomers,
	RatingDistribution:   ratingDistribution,
}

// Run computes a single report by name.
func Run(name string, cleaned *table.Table, opt Options) (*table.Table, error) {
	q, ok := queries[name]
	if !ok {
		return nil, fmt.Errorf("unknown report %q", name)
	}
	t, err := q(cleaned, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// RunAll computes every report concurrently and returns them in Names order.
// The first failure is returned.
func RunAll(cleaned *table.Table, opt Options) ([]Result, error) {
	out := make([]Result, len(Names))
	var g errgroup.Group
	for i, name := range Names {
		i, name := i, name
		g.Go(func() error {
			t, err := Run(name, cleaned, opt)
			if err != nil {
				return err
			}
			out[i] = Result{Name: name, Table: t}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// productRatingSummary: AVG(rating), COUNT(*) per product_id_upper, highest
// average first. Ratings defaulted to 0 count as real zeros.
func productRatingSummary(t *table.Table, opt Options) (*table.Table, error) {
	g, err := engine.GroupBy(t, normalize.ColProductIDUpper, []engine.Agg{
		engine.Avg(normalize.ColRating, "average_rating"),
		engine.Count("review_count"),
	}, engine.GroupOptions{Workers: opt.Workers})
	if err != nil {
		return nil, err
	}
	return engine.OrderBy(g, engine.Desc("average_rating"), engine.Asc(normalize.ColProductIDUpper))
}

// dailyReviewTrends: COUNT(*) per non-NULL review_date, oldest first.
func dailyReviewTrends(t *table.Table, opt Options) (*table.Table, error) {
	f, err := engine.Filter(t, engine.NotNull(normalize.ColReviewDate))
	if err != nil {
		return nil, err
	}
	g, err := engine.GroupBy(f, normalize.ColReviewDate, []engine.Agg{
		engine.Count("daily_review_count"),
	}, engine.GroupOptions{Workers: opt.Workers})
	if err != nil {
		return nil, err
	}
	return engine.OrderBy(g, engine.Asc(normalize.ColReviewDate))
}

// topActiveCustomers: COUNT(*) per customer_id other than the anonymous
// placeholder (NULL ids are excluded too), busiest five.
func topActiveCustomers(t *table.Table, opt Options) (*table.Table, error) {
	f, err := engine.Filter(t, engine.NotEqual(normalize.ColCustomerID, AnonymousCustomer))
	if err != nil {
		return nil, err
	}
	g, err := engine.GroupBy(f, normalize.ColCustomerID, []engine.Agg{
		engine.Count("total_reviews_submitted"),
	}, engine.GroupOptions{Workers: opt.Workers})
	if err != nil {
		return nil, err
	}
	s, err := engine.OrderBy(g, engine.Desc("total_reviews_submitted"), engine.Asc(normalize.ColCustomerID))
	if err != nil {
		return nil, err
	}
	return engine.Limit(s, TopCustomers), nil
}

// ratingDistribution: COUNT(*) per rating in [1,5] and its percentage of
// all rows in that range, so the percentages sum to 100.
func ratingDistribution(t *table.Table, opt Options) (*table.Table, error) {
	f, err := engine.Filter(t, engine.Between(normalize.ColRating, int64(1), int64(5)))
	if err != nil {
		return nil, err
	}
	total := f.Len()

	g, err := engine.GroupBy(f, normalize.ColRating, []engine.Agg{
		engine.Count("rating_count"),
	}, engine.GroupOptions{Workers: opt.Workers})
	if err != nil {
		return nil, err
	}
	countIdx, err := g.Lookup("rating_count")
	if err != nil {
		return nil, err
	}
	p, err := engine.WithColumn(g, "percentage", table.Float, func(r table.Row) any {
		return float64(r[countIdx].(int64)) * 100.0 / float64(total)
	})
	if err != nil {
		return nil, err
	}
	return engine.OrderBy(p, engine.Asc(normalize.ColRating))
}
