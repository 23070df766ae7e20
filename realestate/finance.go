package realestate

import (
	"math"

	"github.com/jonwraymond/realestate/toolerr"
)

// livingCostShare is the share of income assumed for living costs when the
// caller gives none.
const livingCostShare = 0.4

// LoanPayment is the answer of the loan payment calculator.
type LoanPayment struct {
	MonthlyPayment10k float64 `json:"monthly_payment_10k"`
	TotalPayment10k   float64 `json:"total_payment_10k"`
	TotalInterest10k  float64 `json:"total_interest_10k"`
	Principal10k      int     `json:"principal_10k"`
	AnnualRatePct     float64 `json:"annual_rate_pct"`
	Years             int     `json:"years"`
}

// CalculateLoanPayment amortizes principal10k over years at a fixed annual
// rate with equal monthly installments.
func CalculateLoanPayment(principal10k int, annualRatePct float64, years int) (*LoanPayment, *toolerr.Envelope) {
	switch {
	case principal10k < 1:
		return nil, toolerr.InvalidInput("principal_10k", "must be >= 1", "10000")
	case annualRatePct < 0:
		return nil, toolerr.InvalidInput("annual_rate_pct", "must be >= 0", "3.5")
	case years < 1:
		return nil, toolerr.InvalidInput("years", "must be >= 1", "30")
	}

	r := annualRatePct / 100 / 12
	n := float64(years * 12)
	p := float64(principal10k)

	monthly := p / n
	if r > 0 {
		growth := math.Pow(1+r, n)
		monthly = p * r * growth / (growth - 1)
	}
	total := monthly * n

	return &LoanPayment{
		MonthlyPayment10k: round2(monthly),
		TotalPayment10k:   round2(total),
		TotalInterest10k:  round2(total - p),
		Principal10k:      principal10k,
		AnnualRatePct:     annualRatePct,
		Years:             years,
	}, nil
}

// CompoundGrowth is the answer of the savings growth calculator.
type CompoundGrowth struct {
	FinalValue10k          float64 `json:"final_value_10k"`
	TotalContributed10k    float64 `json:"total_contributed_10k"`
	TotalGain10k           float64 `json:"total_gain_10k"`
	Initial10k             int     `json:"initial_10k"`
	MonthlyContribution10k float64 `json:"monthly_contribution_10k"`
	AnnualRatePct          float64 `json:"annual_rate_pct"`
	Years                  int     `json:"years"`
}

// CalculateCompoundGrowth compounds monthly an initial amount plus a fixed
// monthly contribution.
func CalculateCompoundGrowth(initial10k int, monthly10k, annualRatePct float64, years int) (*CompoundGrowth, *toolerr.Envelope) {
	switch {
	case initial10k < 0:
		return nil, toolerr.InvalidInput("initial_10k", "must be >= 0", "1000")
	case monthly10k < 0:
		return nil, toolerr.InvalidInput("monthly_contribution_10k", "must be >= 0", "50")
	case annualRatePct < 0:
		return nil, toolerr.InvalidInput("annual_rate_pct", "must be >= 0", "5.0")
	case years < 1:
		return nil, toolerr.InvalidInput("years", "must be >= 1", "10")
	}

	r := annualRatePct / 100 / 12
	n := float64(years * 12)
	initial := float64(initial10k)

	final := initial + monthly10k*n
	if r > 0 {
		growth := math.Pow(1+r, n)
		final = initial*growth + monthly10k*(growth-1)/r
	}
	contributed := initial + monthly10k*n

	return &CompoundGrowth{
		FinalValue10k:          round2(final),
		TotalContributed10k:    round2(contributed),
		TotalGain10k:           round2(final - contributed),
		Initial10k:             initial10k,
		MonthlyContribution10k: monthly10k,
		AnnualRatePct:          annualRatePct,
		Years:                  years,
	}, nil
}

// Cashflow is the answer of the monthly cashflow calculator.
type Cashflow struct {
	MonthlyCashflow10k    float64 `json:"monthly_cashflow_10k"`
	MonthlyIncome10k      float64 `json:"monthly_income_10k"`
	MonthlyLoanPayment10k float64 `json:"monthly_loan_payment_10k"`
	MonthlyLivingCost10k  float64 `json:"monthly_living_cost_10k"`
	OtherMonthlyCosts10k  float64 `json:"other_monthly_costs_10k"`
	LivingCostAutoApplied bool    `json:"living_cost_auto_applied"`
}

// CalculateCashflow subtracts debt service and costs from monthly income. A
// zero living cost is replaced by 40% of income.
func CalculateCashflow(income10k, loan10k, living10k, other10k float64) (*Cashflow, *toolerr.Envelope) {
	switch {
	case income10k <= 0:
		return nil, toolerr.InvalidInput("monthly_income_10k", "must be > 0", "500")
	case loan10k < 0:
		return nil, toolerr.InvalidInput("monthly_loan_payment_10k", "must be >= 0", "100")
	}

	auto := living10k == 0
	if auto {
		living10k = income10k * livingCostShare
	}

	return &Cashflow{
		MonthlyCashflow10k:    round2(income10k - loan10k - living10k - other10k),
		MonthlyIncome10k:      income10k,
		MonthlyLoanPayment10k: loan10k,
		MonthlyLivingCost10k:  round2(living10k),
		OtherMonthlyCosts10k:  other10k,
		LivingCostAutoApplied: auto,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
