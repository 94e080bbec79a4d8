package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"slot-scraper/models"
)

// PrintBatchReport formats and prints the batch report
func PrintBatchReport(w io.Writer, report *models.BatchReport) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("BOOKING SLOT EXTRACTION SUMMARY", 55))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n SESSIONS\n%s\n", thin)
	fmt.Fprintf(w, "  Target URLs             : %d\n", report.Sessions)
	fmt.Fprintf(w, "  Completed               : %d\n", report.OK)
	fmt.Fprintf(w, "  Not bookable online     : %d\n", report.Unbookable)
	fmt.Fprintf(w, "  Skipped (duplicate URL) : %d\n", report.Skipped)
	fmt.Fprintf(w, "  Failed                  : %d\n", report.Failed)

	fmt.Fprintf(w, "\n RECORDS\n%s\n", thin)
	fmt.Fprintf(w, "  Total slots             : %d\n", report.TotalRecords)
	fmt.Fprintf(w, "  Without provider        : %d\n", report.WithoutProvider)
	fmt.Fprintf(w, "  Without price           : %d\n", report.WithoutPrice)
	if report.Cheapest != nil {
		fmt.Fprintf(w, "  Price range             : %s – %s\n", formatPrice(report.MinPrice), formatPrice(report.MaxPrice))
		fmt.Fprintf(w, "  Cheapest slot           : %s %s %s (%s)\n",
			report.Cheapest.Date, report.Cheapest.Time, truncate(report.Cheapest.Provider, 25), report.Cheapest.Price)
	}

	if len(report.RecordsByProvider) > 0 {
		fmt.Fprintf(w, "\n SLOTS PER PROVIDER\n%s\n", thin)
		type providerCount struct {
			name  string
			count int
		}
		var rows []providerCount
		for name, cnt := range report.RecordsByProvider {
			rows = append(rows, providerCount{name, cnt})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].count != rows[j].count {
				return rows[i].count > rows[j].count
			}
			return rows[i].name < rows[j].name
		})
		for _, r := range rows {
			fmt.Fprintf(w, "  %-30s %4d\n", truncate(r.name, 29)+":", r.count)
		}
	}

	if len(report.StrategyUsage) > 0 {
		fmt.Fprintf(w, "\n SELECTOR STRATEGY HITS\n%s\n", thin)
		targets := make([]string, 0, len(report.StrategyUsage))
		for t := range report.StrategyUsage {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		for _, t := range targets {
			idx := make([]int, 0, len(report.StrategyUsage[t]))
			for i := range report.StrategyUsage[t] {
				idx = append(idx, i)
			}
			sort.Ints(idx)
			parts := make([]string, 0, len(idx))
			for _, i := range idx {
				parts = append(parts, fmt.Sprintf("#%d×%d", i, report.StrategyUsage[t][i]))
			}
			fmt.Fprintf(w, "  %-22s %s\n", t+":", strings.Join(parts, "  "))
		}
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "\n FAILED SESSIONS\n%s\n", thin)
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s\n    %s\n", truncate(f.URL, 50), f.Reason)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func formatPrice(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
