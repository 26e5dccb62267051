package controllers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/clipscout/clipscout/app/repository"
	"github.com/clipscout/clipscout/internal/pkg/billing"
	"github.com/clipscout/clipscout/internal/pkg/entitlements"
	"github.com/clipscout/clipscout/internal/pkg/quota"
	"github.com/clipscout/clipscout/internal/pkg/usercontext"
)

// HandleGetEntitlement returns the caller's entitlement, creating the
// free/inactive default on first read.
func HandleGetEntitlement(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	ent, err := repos.Entitlement.GetOrCreateByUserID(uc.UserID)
	if err != nil {
		log.Printf("entitlement load failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load entitlement")
	}

	return c.JSON(fiber.Map{
		"plan":                 ent.Plan,
		"status":               ent.Status,
		"premium_active":       ent.IsPremiumActive(nowUTC()),
		"current_period_end":   formatTimePtr(ent.CurrentPeriodEnd),
		"cancel_at_period_end": ent.CancelAtPeriodEnd,
		"search_count":         ent.SearchCount,
	})
}

// HandleGetQuota returns the caller's current-month usage together with the
// permission decision the next search would get.
func HandleGetQuota(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	decision, err := newResolver(repos).CanSearch(uc.UserID, nowUTC())
	if err != nil {
		log.Printf("quota resolve failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load quota")
	}

	return c.JSON(decision)
}

// HandleQuotaIncrement consumes one unit of free-tier quota. Premium callers
// get an unlimited response without touching the counter. The search endpoint
// increments internally; this exists for clients that execute searches
// out-of-band.
func HandleQuotaIncrement(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()
	now := nowUTC()

	decision, err := newResolver(repos).CanSearch(uc.UserID, now)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load quota")
	}
	if decision.Plan == entitlements.PlanPremium {
		return c.JSON(fiber.Map{"usage": quota.UnlimitedUsage()})
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "quota_exhausted",
			"message": decision.Reason,
			"usage":   decision.Usage,
		})
	}

	newCount, err := quota.NewCounter(repos.Quota).Increment(uc.UserID, now)
	if err != nil {
		log.Printf("quota increment failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update quota")
	}

	remaining := int64(quota.FreeMonthlyLimit) - newCount
	if remaining < 0 {
		remaining = 0
	}
	return c.JSON(fiber.Map{
		"usage": quota.Usage{
			Count:     newCount,
			Limit:     quota.FreeMonthlyLimit,
			Remaining: remaining,
		},
	})
}

// HandleListSearches returns the caller's recent search history, newest first.
func HandleListSearches(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	logs, err := repos.SearchLog.ListByUserID(uc.UserID, limit)
	if err != nil {
		log.Printf("search history load failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load search history")
	}
	total, err := repos.SearchLog.CountByUserID(uc.UserID)
	if err != nil {
		total = int64(len(logs))
	}

	return c.JSON(fiber.Map{
		"searches":    logs,
		"total_count": total,
	})
}

// HandleAccountCancel schedules the caller's subscription to end at the
// current period boundary. Access stays premium until the period end; the
// final downgrade arrives later via the processor's deletion event.
func HandleAccountCancel(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	ent, err := repos.Entitlement.GetOrCreateByUserID(uc.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load entitlement")
	}
	if ent.ProcessorSubscriptionRef == "" {
		return jsonError(c, fiber.StatusNotFound, "no_subscription", "no active subscription to cancel")
	}
	if ent.CancelAtPeriodEnd {
		return c.JSON(fiber.Map{
			"cancel_at_period_end": true,
			"current_period_end":   formatTimePtr(ent.CurrentPeriodEnd),
		})
	}

	if err := billing.CancelAtPeriodEnd(ent.ProcessorSubscriptionRef); err != nil {
		log.Printf("stripe cancel failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "billing provider is unavailable, please try again")
	}

	// Mirror the flag locally; the webhook will confirm it as well.
	if err := repos.Entitlement.ApplyTransition(uc.UserID, map[string]interface{}{
		"cancel_at_period_end": true,
	}); err != nil {
		log.Printf("cancel flag write failed for user %d: %v", uc.UserID, err)
	}

	return c.JSON(fiber.Map{
		"cancel_at_period_end": true,
		"current_period_end":   formatTimePtr(ent.CurrentPeriodEnd),
	})
}
