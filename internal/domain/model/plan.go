package model

import "subscription-activation/internal/domain"

// Plan is a subscription tier. Tiers carry a fixed day grant and a total
// order used by the upgrade policy.
type Plan string

const (
	Plan3Days   Plan = "3days"
	Plan3Months Plan = "3months"
	Plan6Months Plan = "6months"
	Plan1Year   Plan = "1year"
)

// planDays is the single source of truth for plan durations. Both batch
// generation and redemption consult it.
var planDays = map[Plan]int{
	Plan3Days:   3,
	Plan3Months: 91,
	Plan6Months: 182,
	Plan1Year:   365,
}

var planPriority = map[Plan]int{
	Plan3Days:   1,
	Plan3Months: 2,
	Plan6Months: 3,
	Plan1Year:   4,
}

// ParsePlan validates a plan string received from the outside.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", domain.ErrInvalidArgument
	}
	return p, nil
}

func (p Plan) Valid() bool {
	_, ok := planDays[p]
	return ok
}

// Days returns the duration granted by one activation of this plan.
func (p Plan) Days() int { return planDays[p] }

// Priority returns the tier's position in the upgrade order.
func (p Plan) Priority() int { return planPriority[p] }
