package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clipscout/clipscout/app/controllers"
	"github.com/clipscout/clipscout/internal/pkg/constants"
	"github.com/clipscout/clipscout/internal/pkg/middleware"
	"github.com/clipscout/clipscout/internal/pkg/oauth"
	"github.com/clipscout/clipscout/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Auth
	app.Post("/register", controllers.HandleAuthRegister)
	app.Post("/login", controllers.HandleAuthLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no session, signature-verified in controller)
	app.Post(constants.WebhookRoute, controllers.HandleStripeWebhook)
}
