package leave

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Tier int

const (
	TierStandard Tier = iota + 1
	TierManagerial
)

func (t Tier) String() string {
	switch t {
	case TierManagerial:
		return "managerial"
	case TierStandard:
		return "standard"
	default:
		return "unknown"
	}
}

var roleTiers = map[string]Tier{
	"super_admin": TierManagerial,
	"admin":       TierManagerial,
	"manager":     TierManagerial,
	"team_lead":   TierManagerial,
	"supervisor":  TierManagerial,
	"agent":       TierStandard,
	"employee":    TierStandard,
	"hr":          TierStandard,
	"it":          TierStandard,
	"utility":     TierStandard,
	"staff":       TierStandard,
}

// NormalizeRole lowercases a role and joins words with underscores, so
// "Team Lead" and "team-lead" both become "team_lead".
func NormalizeRole(role string) string {
	fields := strings.FieldsFunc(strings.ToLower(role), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "_")
}

func RoleTier(role string) (Tier, error) {
	tier, ok := roleTiers[NormalizeRole(role)]
	if !ok {
		return 0, &ValidationError{Field: "role", Reason: fmt.Sprintf("%q has no accrual tier", role), Err: ErrUnknownRole}
	}
	return tier, nil
}

// RateTable holds the monthly credits earned per tier.
type RateTable struct {
	Managerial decimal.Decimal
	Standard   decimal.Decimal
}

func DefaultRates() RateTable {
	return RateTable{
		Managerial: decimal.RequireFromString("1.5"),
		Standard:   decimal.RequireFromString("1.25"),
	}
}

func (r RateTable) For(tier Tier) (decimal.Decimal, error) {
	switch tier {
	case TierManagerial:
		return r.Managerial, nil
	case TierStandard:
		return r.Standard, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: tier %d", ErrUnknownRole, tier)
	}
}
