package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/clipscout/clipscout/app/controllers"
)

// Pong is the ping endpoint's response body.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the public v1 surface.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetEntitlement returns the caller's plan and billing status.
// Security is enforced via session middleware attached in the router.
func (s *APIServer) GetEntitlement(c *fiber.Ctx) error {
	return controllers.HandleGetEntitlement(c)
}

// GetQuota returns the caller's current-month usage and next-search decision.
func (s *APIServer) GetQuota(c *fiber.Ctx) error {
	return controllers.HandleGetQuota(c)
}

// PostQuotaIncrement consumes one unit of free-tier quota.
func (s *APIServer) PostQuotaIncrement(c *fiber.Ctx) error {
	return controllers.HandleQuotaIncrement(c)
}

// GetSearch runs a caption search gated by the caller's entitlement.
func (s *APIServer) GetSearch(c *fiber.Ctx) error {
	return controllers.HandleSearch(c)
}

// GetSearches returns the caller's recent search history.
func (s *APIServer) GetSearches(c *fiber.Ctx) error {
	return controllers.HandleListSearches(c)
}

// PostBillingCheckout creates a checkout session for the premium plan.
func (s *APIServer) PostBillingCheckout(c *fiber.Ctx) error {
	return controllers.HandleBillingCheckout(c)
}

// PostBillingPortal returns a customer portal URL for self-service billing.
func (s *APIServer) PostBillingPortal(c *fiber.Ctx) error {
	return controllers.HandleBillingPortal(c)
}

// PostAccountCancel schedules the subscription to end at the period boundary.
func (s *APIServer) PostAccountCancel(c *fiber.Ctx) error {
	return controllers.HandleAccountCancel(c)
}

// RegisterHandlers wires the session-protected v1 routes onto the given
// group. Ping is registered separately by the router so it stays public.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/entitlement", s.GetEntitlement)
	router.Get("/quota", s.GetQuota)
	router.Post("/quota/increment", s.PostQuotaIncrement)
	router.Get("/search", s.GetSearch)
	router.Get("/searches", s.GetSearches)
	router.Post("/billing/checkout", s.PostBillingCheckout)
	router.Post("/billing/portal", s.PostBillingPortal)
	router.Post("/account/cancel", s.PostAccountCancel)
}
