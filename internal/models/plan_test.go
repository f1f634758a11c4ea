package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailorcv/tailorcv-backend/internal/models"
)

func TestPlanCatalog(t *testing.T) {
	catalog := models.NewPlanCatalog("price_m", "price_y", "price_p")

	t.Run("lookup by id", func(t *testing.T) {
		plan, ok := catalog.ByID(models.PlanMonthly)
		require.True(t, ok)
		assert.Equal(t, 50, plan.Credits)
		assert.Equal(t, models.PurchaseTypeMonthly, plan.Type)

		plan, ok = catalog.ByID(models.PlanYearly)
		require.True(t, ok)
		assert.Equal(t, 600, plan.Credits)

		plan, ok = catalog.ByID(models.PlanCreditPack)
		require.True(t, ok)
		assert.Equal(t, 100, plan.Credits)
		assert.Equal(t, models.PurchaseTypeCredits, plan.Type)

		_, ok = catalog.ByID("lifetime")
		assert.False(t, ok)
	})

	t.Run("lookup by price id", func(t *testing.T) {
		plan, ok := catalog.ByPriceID("price_y")
		require.True(t, ok)
		assert.Equal(t, models.PlanYearly, plan.ID)

		_, ok = catalog.ByPriceID("price_unknown")
		assert.False(t, ok)

		// An empty price id must never match, even if a catalog entry was
		// built from an unset environment variable.
		_, ok = catalog.ByPriceID("")
		assert.False(t, ok)
	})

	t.Run("all preserves order", func(t *testing.T) {
		plans := catalog.All()
		require.Len(t, plans, 3)
		assert.Equal(t, models.PlanMonthly, plans[0].ID)
		assert.Equal(t, models.PlanYearly, plans[1].ID)
		assert.Equal(t, models.PlanCreditPack, plans[2].ID)
	})
}

func TestSubscriptionWindow(t *testing.T) {
	catalog := models.NewPlanCatalog("price_m", "price_y", "price_p")
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	monthly, _ := catalog.ByID(models.PlanMonthly)
	start, end := monthly.SubscriptionWindow(now)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, now, *start)
	assert.Equal(t, now.AddDate(0, 1, 0), *end)

	yearly, _ := catalog.ByID(models.PlanYearly)
	start, end = yearly.SubscriptionWindow(now)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, now.AddDate(1, 0, 0), *end)

	pack, _ := catalog.ByID(models.PlanCreditPack)
	start, end = pack.SubscriptionWindow(now)
	assert.Nil(t, start)
	assert.Nil(t, end)
}
