package service

import (
	"testing"
	"time"

	"tripfluence-api/modules/space/entity"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(kind entity.PricingRuleKind, amountCents int64) entity.PricingRule {
	return entity.PricingRule{Kind: kind, AmountCents: amountCents, Currency: "USD"}
}

func window(startHour, hours int) (time.Time, time.Time) {
	// A Wednesday.
	start := time.Date(2026, 9, 16, startHour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(hours) * time.Hour)
}

func TestPriceSpaceRequestHourly(t *testing.T) {
	start, end := window(9, 3)
	result := PriceSpaceRequest([]entity.PricingRule{rule(entity.RuleKindHourly, 2000)}, start, end)

	assert.Equal(t, int64(6000), result.SubtotalCents)
	assert.Equal(t, int64(6000), result.TotalCents)
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, 3, result.DurationHours)
	require.Len(t, result.LineItems, 1)
	assert.Equal(t, entity.RuleKindHourly, result.LineItems[0].Kind)
}

func TestPriceSpaceRequestPartialHourRoundsUp(t *testing.T) {
	start, _ := window(9, 0)
	end := start.Add(2*time.Hour + 30*time.Minute)

	result := PriceSpaceRequest([]entity.PricingRule{rule(entity.RuleKindHourly, 2000)}, start, end)

	assert.Equal(t, 3, result.DurationHours)
	assert.Equal(t, int64(6000), result.SubtotalCents)
}

func TestPriceSpaceRequestDailyBranchAtEightHours(t *testing.T) {
	rules := []entity.PricingRule{
		rule(entity.RuleKindHourly, 2000),
		rule(entity.RuleKindDaily, 12000),
	}

	start, end := window(9, 8)
	result := PriceSpaceRequest(rules, start, end)
	assert.Equal(t, int64(12000), result.SubtotalCents, "eight hours should hit the daily rate, not 8x hourly")
	require.Len(t, result.LineItems, 1)
	assert.Equal(t, entity.RuleKindDaily, result.LineItems[0].Kind)

	start, end = window(9, 7)
	result = PriceSpaceRequest(rules, start, end)
	assert.Equal(t, int64(14000), result.SubtotalCents, "under eight hours stays on the hourly rate")
	assert.Equal(t, entity.RuleKindHourly, result.LineItems[0].Kind)

	start, _ = window(9, 0)
	end = start.Add(7*time.Hour + 59*time.Minute)
	result = PriceSpaceRequest(rules, start, end)
	assert.Equal(t, entity.RuleKindHourly, result.LineItems[0].Kind, "7h59m is still an hourly booking")
	assert.Equal(t, 8, result.DurationHours)
	assert.Equal(t, int64(16000), result.SubtotalCents, "rounded up to 8 billed hours on the hourly rate")
}

func TestPriceSpaceRequestNoBaseRate(t *testing.T) {
	start, end := window(9, 3)
	result := PriceSpaceRequest([]entity.PricingRule{rule(entity.RuleKindCleaningFee, 5000)}, start, end)

	assert.Equal(t, int64(0), result.Breakdown.BaseCents)
	assert.Equal(t, int64(5000), result.SubtotalCents)
}

func TestPriceSpaceRequestPeakSurcharge(t *testing.T) {
	startHour, endHour := 17, 22
	peak := entity.PricingRule{
		Kind:        entity.RuleKindPeak,
		AmountCents: 3000,
		Currency:    "USD",
		DaysOfWeek:  pq.Int64Array{int64(time.Wednesday)},
		StartHour:   &startHour,
		EndHour:     &endHour,
	}
	rules := []entity.PricingRule{rule(entity.RuleKindHourly, 2000), peak}

	start, end := window(18, 3)
	result := PriceSpaceRequest(rules, start, end)

	// (3000 - 2000) per hour over three hours, on top of the base.
	assert.Equal(t, int64(6000), result.Breakdown.BaseCents)
	assert.Equal(t, int64(3000), result.Breakdown.PeakCents)
	assert.Equal(t, int64(9000), result.SubtotalCents)
}

func TestPriceSpaceRequestPeakClampedAtZero(t *testing.T) {
	startHour, endHour := 0, 24
	peak := entity.PricingRule{
		Kind:        entity.RuleKindPeak,
		AmountCents: 1500,
		Currency:    "USD",
		StartHour:   &startHour,
		EndHour:     &endHour,
	}
	rules := []entity.PricingRule{rule(entity.RuleKindHourly, 2000), peak}

	start, end := window(9, 3)
	result := PriceSpaceRequest(rules, start, end)

	assert.Equal(t, int64(0), result.Breakdown.PeakCents, "peak below base hourly must never credit")
	assert.Equal(t, int64(6000), result.SubtotalCents)
}

func TestPriceSpaceRequestPeakDayMismatch(t *testing.T) {
	peak := entity.PricingRule{
		Kind:        entity.RuleKindPeak,
		AmountCents: 5000,
		Currency:    "USD",
		DaysOfWeek:  pq.Int64Array{int64(time.Saturday), int64(time.Sunday)},
	}
	rules := []entity.PricingRule{rule(entity.RuleKindHourly, 2000), peak}

	start, end := window(9, 3) // Wednesday
	result := PriceSpaceRequest(rules, start, end)

	assert.Equal(t, int64(0), result.Breakdown.PeakCents)
}

func TestPriceSpaceRequestPeakWeekWraparound(t *testing.T) {
	peak := entity.PricingRule{
		Kind:        entity.RuleKindPeak,
		AmountCents: 5000,
		Currency:    "USD",
		DaysOfWeek:  pq.Int64Array{int64(time.Sunday)},
	}
	rules := []entity.PricingRule{rule(entity.RuleKindHourly, 2000), peak}

	// Saturday evening into Sunday morning wraps past the end of the week.
	start := time.Date(2026, 9, 19, 22, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	result := PriceSpaceRequest(rules, start, end)

	assert.Equal(t, int64(18000), result.Breakdown.PeakCents)
}

func TestPriceSpaceRequestDepositOutsideSubtotal(t *testing.T) {
	rules := []entity.PricingRule{
		rule(entity.RuleKindHourly, 2000),
		rule(entity.RuleKindCleaningFee, 5000),
		rule(entity.RuleKindSecurityDeposit, 10000),
	}

	start, end := window(9, 2)
	result := PriceSpaceRequest(rules, start, end)

	assert.Equal(t, int64(9000), result.SubtotalCents)
	assert.Equal(t, int64(19000), result.TotalCents)
	assert.Equal(t, int64(10000), result.Breakdown.DepositCents)
}

func TestPriceSpaceRequestFullDayScenario(t *testing.T) {
	rules := []entity.PricingRule{
		rule(entity.RuleKindDaily, 12000),
		rule(entity.RuleKindCleaningFee, 5000),
	}

	start, end := window(9, 9)
	result := PriceSpaceRequest(rules, start, end)

	assert.Equal(t, 9, result.DurationHours)
	assert.Equal(t, 1, result.DurationDays)
	assert.Equal(t, int64(12000), result.Breakdown.BaseCents)
	assert.Equal(t, int64(17000), result.SubtotalCents)
	assert.Equal(t, int64(17000), result.TotalCents)
}

func TestPriceSpaceRequestDeterministic(t *testing.T) {
	startHour, endHour := 17, 22
	rules := []entity.PricingRule{
		rule(entity.RuleKindHourly, 2350),
		rule(entity.RuleKindDaily, 15000),
		{
			Kind:        entity.RuleKindPeak,
			AmountCents: 4100,
			Currency:    "USD",
			DaysOfWeek:  pq.Int64Array{int64(time.Wednesday), int64(time.Friday)},
			StartHour:   &startHour,
			EndHour:     &endHour,
		},
		rule(entity.RuleKindCleaningFee, 3300),
		rule(entity.RuleKindSecurityDeposit, 20000),
	}
	start, end := window(16, 5)

	first := PriceSpaceRequest(rules, start, end)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, PriceSpaceRequest(rules, start, end))
	}
}

func TestValidatePricingRules(t *testing.T) {
	assert.Contains(t, ValidatePricingRules(nil), "at least one base rate (HOURLY or DAILY) is required")

	assert.Empty(t, ValidatePricingRules([]entity.PricingRule{rule(entity.RuleKindHourly, 2000)}))

	duplicates := ValidatePricingRules([]entity.PricingRule{
		rule(entity.RuleKindHourly, 2000),
		rule(entity.RuleKindHourly, 2500),
	})
	require.Len(t, duplicates, 1)
	assert.Contains(t, duplicates[0], "duplicate")

	unconstrained := ValidatePricingRules([]entity.PricingRule{
		rule(entity.RuleKindHourly, 2000),
		{Kind: entity.RuleKindPeak, AmountCents: 3000, Currency: "USD"},
	})
	require.Len(t, unconstrained, 1)
	assert.Contains(t, unconstrained[0], "PEAK")
}
