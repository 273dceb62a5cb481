package service

import (
	"fmt"
	"time"

	"tripfluence-api/core/constants"
	"tripfluence-api/modules/space/entity"
)

// PricingLineItem is one labeled charge on a quote.
type PricingLineItem struct {
	Kind        entity.PricingRuleKind `json:"kind"`
	Label       string                 `json:"label"`
	AmountCents int64                  `json:"amount_cents"`
}

// PricingBreakdown splits the quote by charge category. Deposit sits
// outside the subtotal.
type PricingBreakdown struct {
	BaseCents     int64 `json:"base_cents"`
	PeakCents     int64 `json:"peak_cents"`
	CleaningCents int64 `json:"cleaning_cents"`
	DepositCents  int64 `json:"deposit_cents"`
}

// PricingResult is the full quote for a requested window.
type PricingResult struct {
	LineItems     []PricingLineItem `json:"line_items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	TotalCents    int64             `json:"total_cents"`
	Currency      string            `json:"currency"`
	Breakdown     PricingBreakdown  `json:"breakdown"`
	DurationHours int               `json:"duration_hours"`
	DurationDays  int               `json:"duration_days"`
}

// PriceSpaceRequest computes a quote from a space's pricing rules and a
// requested window. Pure and deterministic: identical inputs always
// produce identical output.
//
// Rate selection: with a DAILY rule present and a duration of at least
// eight hours the daily branch wins, otherwise hourly. Durations round up
// to whole hours and whole days. A PEAK rule adds
// max(0, peakRate-baseHourlyRate) per hour when its day-of-week set and
// hour range both match the window. Cleaning fee and security deposit are
// flat line items; the deposit is excluded from the subtotal.
func PriceSpaceRequest(rules []entity.PricingRule, start, end time.Time) PricingResult {
	durationHours := ceilHours(start, end)
	durationDays := ceilDays(start, end)

	var hourly, daily, cleaning, deposit *entity.PricingRule
	var peaks []entity.PricingRule
	for i := range rules {
		rule := rules[i]
		switch rule.Kind {
		case entity.RuleKindHourly:
			if hourly == nil {
				hourly = &rules[i]
			}
		case entity.RuleKindDaily:
			if daily == nil {
				daily = &rules[i]
			}
		case entity.RuleKindCleaningFee:
			if cleaning == nil {
				cleaning = &rules[i]
			}
		case entity.RuleKindSecurityDeposit:
			if deposit == nil {
				deposit = &rules[i]
			}
		case entity.RuleKindPeak:
			peaks = append(peaks, rules[i])
		}
	}

	result := PricingResult{
		DurationHours: durationHours,
		DurationDays:  durationDays,
	}
	if len(rules) > 0 {
		result.Currency = rules[0].Currency
	}

	var baseHourlyRate int64
	if hourly != nil {
		baseHourlyRate = hourly.AmountCents
	}

	// Base rate: daily branch when the raw duration reaches 8 hours, else
	// hourly. Rounding up only affects billed quantity, not branch choice,
	// so 7h59m stays hourly. A missing rule for the chosen branch means
	// the base line is simply omitted.
	if daily != nil && end.Sub(start) >= time.Duration(constants.DailyRateThresholdHours)*time.Hour {
		amount := daily.AmountCents * int64(durationDays)
		result.LineItems = append(result.LineItems, PricingLineItem{
			Kind:        entity.RuleKindDaily,
			Label:       fmt.Sprintf("Daily rate x %d", durationDays),
			AmountCents: amount,
		})
		result.Breakdown.BaseCents = amount
	} else if hourly != nil {
		amount := hourly.AmountCents * int64(durationHours)
		result.LineItems = append(result.LineItems, PricingLineItem{
			Kind:        entity.RuleKindHourly,
			Label:       fmt.Sprintf("Hourly rate x %d", durationHours),
			AmountCents: amount,
		})
		result.Breakdown.BaseCents = amount
	}

	// Peak surcharge: first rule whose day set and hour range both match.
	// Clamped so a peak rate below the base hourly rate never credits.
	for _, peak := range peaks {
		if !peakRuleMatches(peak, start, end) {
			continue
		}
		surchargePerHour := peak.AmountCents - baseHourlyRate
		if surchargePerHour < 0 {
			surchargePerHour = 0
		}
		amount := surchargePerHour * int64(durationHours)
		if amount > 0 {
			result.LineItems = append(result.LineItems, PricingLineItem{
				Kind:        entity.RuleKindPeak,
				Label:       fmt.Sprintf("Peak surcharge x %d", durationHours),
				AmountCents: amount,
			})
			result.Breakdown.PeakCents = amount
		}
		break
	}

	if cleaning != nil {
		result.LineItems = append(result.LineItems, PricingLineItem{
			Kind:        entity.RuleKindCleaningFee,
			Label:       "Cleaning fee",
			AmountCents: cleaning.AmountCents,
		})
		result.Breakdown.CleaningCents = cleaning.AmountCents
	}

	if deposit != nil {
		result.LineItems = append(result.LineItems, PricingLineItem{
			Kind:        entity.RuleKindSecurityDeposit,
			Label:       "Security deposit",
			AmountCents: deposit.AmountCents,
		})
		result.Breakdown.DepositCents = deposit.AmountCents
	}

	result.SubtotalCents = result.Breakdown.BaseCents + result.Breakdown.PeakCents + result.Breakdown.CleaningCents
	result.TotalCents = result.SubtotalCents + result.Breakdown.DepositCents

	return result
}

// ValidatePricingRules returns human-readable problems with a rule set.
// An empty slice means the set is publishable.
func ValidatePricingRules(rules []entity.PricingRule) []string {
	var problems []string

	counts := map[entity.PricingRuleKind]int{}
	for _, rule := range rules {
		counts[rule.Kind]++
	}

	if counts[entity.RuleKindHourly] == 0 && counts[entity.RuleKindDaily] == 0 {
		problems = append(problems, "at least one base rate (HOURLY or DAILY) is required")
	}
	for _, kind := range []entity.PricingRuleKind{
		entity.RuleKindHourly, entity.RuleKindDaily,
		entity.RuleKindCleaningFee, entity.RuleKindSecurityDeposit,
	} {
		if counts[kind] > 1 {
			problems = append(problems, fmt.Sprintf("duplicate %s rule: at most one allowed", kind))
		}
	}

	for _, rule := range rules {
		if rule.Kind == entity.RuleKindPeak && len(rule.DaysOfWeek) == 0 && (rule.StartHour == nil || rule.EndHour == nil) {
			problems = append(problems, "PEAK rule needs a day-of-week set or an hour range")
		}
	}

	return problems
}

func ceilHours(start, end time.Time) int {
	d := end.Sub(start)
	hours := int(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

func ceilDays(start, end time.Time) int {
	d := end.Sub(start)
	day := 24 * time.Hour
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

// peakRuleMatches reports whether a PEAK rule applies to the window: the
// rule's day set must contain one of the days the window touches, and the
// rule's hour range must overlap the window's hours of day. A rule without
// a day set matches every day; one without an hour range matches all hours.
func peakRuleMatches(rule entity.PricingRule, start, end time.Time) bool {
	if len(rule.DaysOfWeek) > 0 {
		matched := false
		for _, day := range windowDays(start, end) {
			for _, ruleDay := range rule.DaysOfWeek {
				if int64(day) == ruleDay {
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			return false
		}
	}

	if rule.StartHour != nil && rule.EndHour != nil {
		reqStart, reqEnd, allHours := windowHours(start, end)
		if !allHours && !(reqStart < *rule.EndHour && *rule.StartHour < reqEnd) {
			return false
		}
	}

	return true
}

// windowDays lists the weekdays a window touches, walking forward from the
// start day so a window wrapping past Saturday still covers Sunday onward.
func windowDays(start, end time.Time) []time.Weekday {
	if end.Sub(start) >= 7*24*time.Hour {
		return []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}
	}

	days := []time.Weekday{}
	seen := map[time.Weekday]bool{}
	startDay := start.Weekday()
	span := int(end.Truncate(24*time.Hour).Sub(start.Truncate(24*time.Hour)) / (24 * time.Hour))
	for i := 0; i <= span; i++ {
		day := time.Weekday((int(startDay) + i) % 7)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days
}

// windowHours returns the half-open hour-of-day range the window covers.
// Windows of a day or more, or ones crossing midnight, cover all hours.
func windowHours(start, end time.Time) (int, int, bool) {
	if end.Sub(start) >= 24*time.Hour {
		return 0, 24, true
	}
	startHour := start.Hour()
	endHour := end.Hour()
	if end.Minute() > 0 || end.Second() > 0 {
		endHour++
	}
	if endHour <= startHour {
		// Crosses midnight.
		return 0, 24, true
	}
	return startHour, endHour, false
}
