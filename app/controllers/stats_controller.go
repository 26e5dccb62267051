package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clipscout/clipscout/internal/pkg/statistics"
)

// HandleStats returns public service-level numbers for the landing page.
func HandleStats(c *fiber.Ctx) error {
	stats := statistics.GetStatistics()

	return c.JSON(fiber.Map{
		"total_users":    stats.TotalUsers,
		"total_searches": stats.TotalSearches,
		"today_searches": stats.TodaySearches,
	})
}
