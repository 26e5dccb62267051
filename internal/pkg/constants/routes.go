package constants

// Static route constants
const (
	PublicRoute  = "/"
	LoginRoute   = "/login"
	APIBasePath  = "/api/v1"
	WebhookRoute = "/webhooks/stripe"
)
