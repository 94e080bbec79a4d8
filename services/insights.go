package services

import (
	"slot-scraper/models"
	"slot-scraper/utils"
)

// InsightService computes batch statistics from session results
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate aggregates statuses, records and selector usage across a batch
func (s *InsightService) Generate(results []*models.SessionResult) *models.BatchReport {
	report := &models.BatchReport{
		RecordsByProvider: make(map[string]int),
		StrategyUsage:     make(map[string]map[int]int),
	}

	if len(results) == 0 {
		s.logger.Warn("No sessions to generate insights from")
		return report
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		report.Sessions++
		switch res.Status {
		case models.StatusOK:
			report.OK++
		case models.StatusUnbookable:
			report.Unbookable++
		case models.StatusSkipped:
			report.Skipped++
		default:
			report.Failed++
			report.Failures = append(report.Failures, res)
		}

		for target, byIndex := range res.StrategyUsage {
			if report.StrategyUsage[target] == nil {
				report.StrategyUsage[target] = make(map[int]int)
			}
			for idx, n := range byIndex {
				report.StrategyUsage[target][idx] += n
			}
		}

		for _, r := range res.Records {
			report.TotalRecords++

			if r.HasProvider() {
				report.RecordsByProvider[r.Provider]++
			} else {
				report.WithoutProvider++
			}

			if r.PriceAmount == nil {
				if !r.HasPrice() {
					report.WithoutPrice++
				}
				continue
			}
			price := *r.PriceAmount
			if report.Cheapest == nil || price < report.MinPrice {
				report.MinPrice = price
				report.Cheapest = r
			}
			if price > report.MaxPrice {
				report.MaxPrice = price
			}
		}
	}

	return report
}
