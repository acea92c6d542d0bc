package service

import (
	"time"

	"driverops/internal/model"
	"driverops/internal/state"
)

// metEpsilon is the tolerance for comparing earnings against a target
const metEpsilon = 0.01

// TargetService turns monthly costs and the work schedule into daily goals
type TargetService struct {
	state    *state.Store
	clock    Clock
	costs    *CostService
	earnings *EarningsService
}

// NewTargetService creates a new target service
func NewTargetService(st *state.Store, clock Clock, costs *CostService, earnings *EarningsService) *TargetService {
	return &TargetService{state: st, clock: clock, costs: costs, earnings: earnings}
}

// CostPerHour is the month's cost spread over the scheduled hours; 0 if either is 0
func (s *TargetService) CostPerHour(year int, month time.Month) float64 {
	total := s.costs.MonthlyCostTotal(year, month)
	hours := ScheduleSummary(s.state.Schedule()).HoursPerMonth
	if total == 0 || hours == 0 {
		return 0
	}
	return div(total, hours)
}

// DailyTarget is the cost share of the day's work hours plus the optional profit premium
func (s *TargetService) DailyTarget(date time.Time) model.DailyTarget {
	date = s.clock.Local(date)
	out := model.DailyTarget{Date: date.Format(model.DateLayout)}

	day := s.state.Schedule().Day(date.Weekday())
	if !day.Enabled || day.Hours <= 0 {
		return out
	}
	costPerHour := s.CostPerHour(date.Year(), date.Month())
	costTarget := mul(costPerHour, day.Hours)

	var premium float64
	if profit := s.state.Profit(); profit.Enabled {
		premium = div(mul(costTarget, profit.Percentage), 100)
	}

	out.Hours = day.Hours
	out.CostPerHour = round2(costPerHour)
	out.CostTarget = round2(costTarget)
	out.ProfitTarget = round2(premium)
	out.Total = round2(sum(costTarget, premium))
	return out
}

// DailyAccount splits today's net earnings into cost recovery, capped at the cost
// target, and profit, the non-negative remainder
func (s *TargetService) DailyAccount(now time.Time) model.DailyAccount {
	target := s.DailyTarget(now)
	net := s.earnings.NetForDay(now)

	recovered := net
	if recovered > target.CostTarget {
		recovered = target.CostTarget
	}
	if recovered < 0 {
		recovered = 0
	}
	profit := sum(net, -target.CostTarget)
	if profit < 0 {
		profit = 0
	}

	return model.DailyAccount{
		Date:          target.Date,
		NetEarnings:   round2(net),
		CostTarget:    target.CostTarget,
		CostRecovered: round2(recovered),
		CostMet:       recovered >= target.CostTarget-metEpsilon,
		ProfitTarget:  target.ProfitTarget,
		Profit:        round2(profit),
		ProfitMet:     profit >= target.ProfitTarget-metEpsilon,
	}
}

// TargetProgress reports how much of today's target is earned, capped at 100%
func (s *TargetService) TargetProgress(now time.Time) model.TargetProgress {
	target := s.DailyTarget(now)
	net := s.earnings.NetForDay(now)

	out := model.TargetProgress{Date: target.Date, Target: target.Total, Earned: round2(net)}
	if target.Total == 0 {
		return out
	}
	pct := mul(div(net, target.Total), 100)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	out.Percentage = round2(pct)
	out.Achieved = net >= target.Total
	return out
}
