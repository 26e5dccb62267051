package controllers

import (
	"log"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/app/repository"
	"github.com/clipscout/clipscout/internal/pkg/entitlements"
	"github.com/clipscout/clipscout/internal/pkg/quota"
	"github.com/clipscout/clipscout/internal/pkg/search"
	"github.com/clipscout/clipscout/internal/pkg/usercontext"
)

var (
	searchSvc     *search.Service
	searchSvcOnce sync.Once
)

func getSearchService() *search.Service {
	searchSvcOnce.Do(func() {
		searchSvc = search.NewServiceFromEnv()
	})
	return searchSvc
}

func newResolver(repos *repository.Repositories) *entitlements.Resolver {
	return entitlements.NewResolver(repos.Entitlement, quota.NewCounter(repos.Quota))
}

// HandleSearch runs a caption search for the logged-in user. The flow is
// strict: resolve permission first, execute the upstream search, and only
// after a confirmed success consume free-tier quota and append the usage
// ledger entry. Results are truncated to the plan's cap at the very end.
func HandleSearch(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return jsonError(c, fiber.StatusBadRequest, "missing_query", "query parameter q is required")
	}
	opts := search.Options{
		Language:  strings.TrimSpace(c.Query("lang")),
		ChannelID: strings.TrimSpace(c.Query("channel_id")),
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	now := nowUTC()

	decision, err := newResolver(repos).CanSearch(uc.UserID, now)
	if err != nil {
		log.Printf("entitlement resolve failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not resolve search permission")
	}
	if !decision.Allowed {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "quota_exhausted",
			"message": decision.Reason,
			"plan":    decision.Plan,
			"usage":   decision.Usage,
		})
	}

	resp, err := getSearchService().Search(c.Context(), query, opts)
	if err != nil {
		// Upstream failure must not burn quota.
		log.Printf("caption search failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "search_unavailable", "search backend is unavailable, please try again")
	}

	usage := decision.Usage
	if decision.Plan == entitlements.PlanFree {
		newCount, err := quota.NewCounter(repos.Quota).Increment(uc.UserID, now)
		if err != nil {
			log.Printf("quota increment failed for user %d: %v", uc.UserID, err)
		} else {
			usage.Count = newCount
			usage.Remaining = int64(quota.FreeMonthlyLimit) - newCount
			if usage.Remaining < 0 {
				usage.Remaining = 0
			}
		}
	}

	out := search.Truncate(resp, decision.ResultCap)

	logEntry := &models.SearchLog{
		UserID:      uc.UserID,
		Query:       query,
		ResultCount: len(out.Results),
		Truncated:   out.Truncated,
	}
	if err := repos.SearchLog.Create(logEntry); err != nil {
		log.Printf("search log write failed for user %d: %v", uc.UserID, err)
	}
	if err := repos.Entitlement.IncrementSearchCount(uc.UserID); err != nil {
		log.Printf("lifetime search count bump failed for user %d: %v", uc.UserID, err)
	}

	return c.JSON(fiber.Map{
		"query_id":    logEntry.QueryID,
		"query":       query,
		"results":     out.Results,
		"total_count": out.TotalCount,
		"truncated":   out.Truncated,
		"plan":        decision.Plan,
		"usage":       usage,
	})
}
