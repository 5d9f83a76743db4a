package usage

import (
	"context"
	"time"
)

// Period selects the reporting window.
type Period string

const (
	// PeriodDay reports today's token consumption.
	PeriodDay Period = "day"
	// PeriodMonth reports this month's token consumption.
	PeriodMonth Period = "month"
)

// Window is one budget window's state.
type Window struct {
	Limit     int64 // 0 = unlimited
	Used      int64
	Remaining int64 // -1 = unlimited
	Exhausted bool
	ResetsAt  time.Time
}

// Report is the usage snapshot for a period.
type Report struct {
	Period Period
	Start  time.Time
	End    time.Time
	Tokens Window
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := time.Now().UTC()

	var start, end time.Time
	var w Window

	switch period {
	case PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			w.Limit = s.br.MonthlyLimit()
			w.Used = s.br.MonthlyUsed()
			w.Remaining = s.br.RemainingMonthly()
		}
	default:
		period = PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
		if s.br != nil {
			w.Limit = s.br.DailyLimit()
			w.Used = s.br.DailyUsed()
			w.Remaining = s.br.RemainingDaily()
		}
	}

	if s.br == nil {
		w.Remaining = -1
	}
	w.Exhausted = w.Limit > 0 && w.Remaining == 0
	w.ResetsAt = end

	return Report{Period: period, Start: start, End: end, Tokens: w}
}
