package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/clipscout/clipscout/app/controllers"
	apiv1 "github.com/clipscout/clipscout/internal/api/v1"
	"github.com/clipscout/clipscout/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Public service statistics
	api.Get("/stats", controllers.HandleStats)

	// API v1 routes; ping stays public, everything else needs a session
	apiServer := apiv1.NewAPIServer()
	api.Get("/v1/ping", apiServer.GetPing)

	v1 := api.Group("/v1", middleware.RequireAPISessionAuth)
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
