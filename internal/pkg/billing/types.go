package billing

import (
	"errors"
	"time"
)

// EventType enumerates the processor lifecycle events the reconciler handles.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventInvoicePaid         EventType = "invoice_paid"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventPaymentFailed       EventType = "payment_failed"
)

// Event is the provider-neutral shape of a billing lifecycle event after the
// raw processor payload has been verified and parsed at the boundary.
type Event struct {
	ID                string
	Type              EventType
	CustomerRef       string
	SubscriptionRef   string
	Status            string
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

var (
	// ErrEventIgnored marks processor event types the reconciler does not
	// consume; the webhook endpoint acknowledges them without state changes.
	ErrEventIgnored = errors.New("billing: event type ignored")

	// ErrEntitlementNotFound means no entitlement matches the event's
	// customer or subscription reference. Webhooks never create
	// entitlements, so this surfaces as a 404 to the processor.
	ErrEntitlementNotFound = errors.New("billing: no entitlement for processor reference")

	// ErrInvalidPayload marks an event body that failed to parse into the
	// expected processor object.
	ErrInvalidPayload = errors.New("billing: invalid event payload")
)
