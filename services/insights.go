package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"ali-crawler/models"
	"ali-crawler/utils"
)

const topRatedCount = 5

type InsightService struct {
	logger  *utils.Logger
	cleaner *Cleaner
	out     io.Writer
}

func NewInsightService(logger *utils.Logger, cleaner *Cleaner) *InsightService {
	return &InsightService{logger: logger, cleaner: cleaner, out: os.Stdout}
}

// WithOutput redirects Print to w.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	s.out = w
	return s
}

func (s *InsightService) Generate(details []models.ProductDetail, reviews []models.Review) *models.InsightReport {
	report := &models.InsightReport{
		TotalProducts:    len(details),
		TotalReviews:     len(reviews),
		ReviewsByCountry: make(map[string]int),
	}

	var (
		priced   []*models.ProductDetail
		prices   []float64
		rated    []*models.ProductDetail
		maxPrice float64
	)

	for i := range details {
		d := &details[i]
		if p := s.cleaner.ParsePrice(d.PriceCurrent); p > 0 {
			priced = append(priced, d)
			prices = append(prices, p)
			if p > maxPrice {
				maxPrice = p
				report.MostExpensive = d
			}
		}
		if d.Rating != nil && *d.Rating > 0 {
			rated = append(rated, d)
		}
	}

	// Price stats (only products with a parseable price)
	if len(priced) > 0 {
		report.MinPrice = prices[0]
		var total float64
		for _, p := range prices {
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
		}
		report.AveragePrice = round2(total / float64(len(prices)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(maxPrice)
	}

	sort.SliceStable(rated, func(i, j int) bool {
		return *rated[i].Rating > *rated[j].Rating
	})
	if len(rated) > topRatedCount {
		rated = rated[:topRatedCount]
	}
	report.TopRated = rated

	// Review stars are reported by the service on a 0-100 scale.
	var stars int64
	for _, r := range reviews {
		stars += r.Rating
		if r.Country != "" {
			report.ReviewsByCountry[r.Country]++
		}
	}
	if len(reviews) > 0 {
		report.AverageReviewStar = round2(float64(stars) / float64(len(reviews)) / 20)
	}

	s.logger.Debug("[insights] %d products, %d priced, %d rated, %d reviews",
		len(details), len(priced), len(rated), len(reviews))
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 ALIEXPRESS CRAWL INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Products crawled : \033[1m%d\033[0m\n", r.TotalProducts)
	fmt.Fprintf(w, "  Reviews crawled  : \033[1m%d\033[0m\n", r.TotalReviews)
	if r.TotalReviews > 0 {
		fmt.Fprintf(w, "  Average stars    : \033[1m%.2f ★\033[0m\n", r.AverageReviewStar)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%.2f\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%.2f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Product\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Price : \033[1;31m%s\033[0m\n", r.MostExpensive.PriceCurrent)
		fmt.Fprintln(w)
	}

	// ── TOP 5 HIGHEST RATED ──────────────────────────────────────────────
	fmt.Fprintf(w, "\033[1;33m  Top %d Highest Rated Products\033[0m\n", topRatedCount)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated products found\n")
	} else {
		for i, d := range r.TopRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.1f ★\033[0m\n",
				i+1, truncate(d.Title, 38), *d.Rating)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Reviews by Country\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ReviewsByCountry) == 0 {
		fmt.Fprintf(w, "  No country data\n")
	} else {
		type countryCount struct {
			country string
			count   int
		}
		var counts []countryCount
		for c, n := range r.ReviewsByCountry {
			counts = append(counts, countryCount{c, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count == counts[j].count {
				return counts[i].country < counts[j].country
			}
			return counts[i].count > counts[j].count
		})
		for _, cc := range counts {
			bar := strings.Repeat("█", min(cc.count, 40))
			fmt.Fprintf(w, "  %-6s %s (%d)\n", cc.country, bar, cc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
