package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntitlementIsPremiumActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		ent  Entitlement
		want bool
	}{
		{
			"Active premium inside period",
			Entitlement{Plan: "premium", Status: EntitlementStatusActive, CurrentPeriodEnd: &future},
			true,
		},
		{
			"Active premium without period end",
			Entitlement{Plan: "premium", Status: EntitlementStatusActive},
			true,
		},
		{
			"Premium with lapsed period is stale",
			Entitlement{Plan: "premium", Status: EntitlementStatusActive, CurrentPeriodEnd: &past},
			false,
		},
		{
			"Period end is exclusive",
			Entitlement{Plan: "premium", Status: EntitlementStatusActive, CurrentPeriodEnd: &now},
			false,
		},
		{
			"Past due premium",
			Entitlement{Plan: "premium", Status: EntitlementStatusPastDue, CurrentPeriodEnd: &future},
			false,
		},
		{
			"Canceled premium",
			Entitlement{Plan: "premium", Status: EntitlementStatusCanceled, CurrentPeriodEnd: &future},
			false,
		},
		{
			"Free plan",
			Entitlement{Plan: "free", Status: EntitlementStatusActive, CurrentPeriodEnd: &future},
			false,
		},
		{
			"Zero value",
			Entitlement{},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ent.IsPremiumActive(now))
		})
	}
}
