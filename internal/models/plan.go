package models

import "time"

type PurchaseType string

const (
	PurchaseTypeCredits PurchaseType = "credits"
	PurchaseTypeMonthly PurchaseType = "subscription_month"
	PurchaseTypeYearly  PurchaseType = "subscription_year"
)

const (
	PlanMonthly    = "monthly"
	PlanYearly     = "yearly"
	PlanCreditPack = "credit-pack"
)

// Plan is one entry of the closed billing catalog. Price IDs come from the
// environment; everything else is a fixed server-side policy.
type Plan struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	PriceID string       `json:"-"`
	Type    PurchaseType `json:"type"`
	Credits int          `json:"credits"`
	Amount  int64        `json:"amount"` // minor units, display only
}

// SubscriptionWindow returns the period granted by this plan starting at now.
// Credit packs have no window.
func (p Plan) SubscriptionWindow(now time.Time) (*time.Time, *time.Time) {
	switch p.Type {
	case PurchaseTypeMonthly:
		end := now.AddDate(0, 1, 0)
		return &now, &end
	case PurchaseTypeYearly:
		end := now.AddDate(1, 0, 0)
		return &now, &end
	default:
		return nil, nil
	}
}

type PlanCatalog struct {
	plans   []Plan
	byID    map[string]Plan
	byPrice map[string]Plan
}

func NewPlanCatalog(monthlyPriceID, yearlyPriceID, creditPackPriceID string) *PlanCatalog {
	plans := []Plan{
		{
			ID:      PlanMonthly,
			Name:    "Pro Monthly",
			PriceID: monthlyPriceID,
			Type:    PurchaseTypeMonthly,
			Credits: 50,
			Amount:  999,
		},
		{
			ID:      PlanYearly,
			Name:    "Pro Yearly",
			PriceID: yearlyPriceID,
			Type:    PurchaseTypeYearly,
			Credits: 600,
			Amount:  7999,
		},
		{
			ID:      PlanCreditPack,
			Name:    "Credit Pack",
			PriceID: creditPackPriceID,
			Type:    PurchaseTypeCredits,
			Credits: 100,
			Amount:  1999,
		},
	}

	catalog := &PlanCatalog{
		plans:   plans,
		byID:    make(map[string]Plan),
		byPrice: make(map[string]Plan),
	}
	for _, p := range plans {
		catalog.byID[p.ID] = p
		catalog.byPrice[p.PriceID] = p
	}
	return catalog
}

func (c *PlanCatalog) ByID(id string) (Plan, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *PlanCatalog) ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	p, ok := c.byPrice[priceID]
	return p, ok
}

func (c *PlanCatalog) All() []Plan {
	return c.plans
}
