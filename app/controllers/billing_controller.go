package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/app/repository"
	"github.com/clipscout/clipscout/internal/pkg/billing"
	"github.com/clipscout/clipscout/internal/pkg/database"
	"github.com/clipscout/clipscout/internal/pkg/env"
	"github.com/clipscout/clipscout/internal/pkg/usercontext"
)

// HandleBillingCheckout creates a Stripe Checkout session for the premium
// plan and returns its URL. The processor customer is created on first use
// and its reference stored on the entitlement.
func HandleBillingCheckout(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	ent, err := repos.Entitlement.GetOrCreateByUserID(uc.UserID)
	if err != nil {
		log.Printf("entitlement load failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not start checkout")
	}
	if ent.IsPremiumActive(nowUTC()) {
		return jsonError(c, fiber.StatusConflict, "already_premium", "this account already has an active premium subscription")
	}

	customerRef := ent.ProcessorCustomerRef
	if customerRef == "" {
		user, err := repos.User.GetByID(uc.UserID)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not start checkout")
		}
		customerRef, err = billing.CreateCustomer(user.ID, user.Email, user.Name)
		if err != nil {
			log.Printf("stripe customer create failed for user %d: %v", uc.UserID, err)
			return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "billing provider is unavailable, please try again")
		}
		if err := repos.Entitlement.ApplyTransition(uc.UserID, map[string]interface{}{
			"processor_customer_ref": customerRef,
		}); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not start checkout")
		}
	}

	url, err := billing.NewCheckoutURL(customerRef)
	if err != nil {
		log.Printf("stripe checkout session failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "billing provider is unavailable, please try again")
	}

	return c.JSON(fiber.Map{"checkout_url": url})
}

// HandleBillingPortal returns a Stripe customer portal URL so subscribers can
// manage payment methods and invoices themselves.
func HandleBillingPortal(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	ent, err := repos.Entitlement.GetOrCreateByUserID(uc.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not open billing portal")
	}
	if ent.ProcessorCustomerRef == "" {
		return jsonError(c, fiber.StatusNotFound, "no_billing_account", "no billing account exists for this user yet")
	}

	url, err := billing.NewPortalURL(ent.ProcessorCustomerRef)
	if err != nil {
		log.Printf("stripe portal session failed for user %d: %v", uc.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "billing provider is unavailable, please try again")
	}

	return c.JSON(fiber.Map{"portal_url": url})
}

// HandleStripeWebhook is the single entry point for processor lifecycle
// events: verify the signature, persist the delivery idempotently, parse the
// payload into the neutral event shape, and reconcile it into the
// entitlement store.
//
// Status contract: 400 for signature failures, 200 for already-processed
// duplicates and ignored event types, 404 when no entitlement matches the
// processor reference, 500 for reconciliation failures so the processor
// retries. A retried delivery of a previously failed event is reprocessed,
// not acknowledged as a duplicate.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	sigHeader := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	stripeEvent, err := billing.VerifyWebhookEvent(payload, sigHeader, secret)
	if err != nil {
		log.Printf("stripe webhook signature verification failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
	}

	svc := billing.NewServiceFromDB(database.GetDB())

	created, record, err := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: stripeEvent.ID,
		EventType:       string(stripeEvent.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		log.Printf("stripe webhook persist failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not persist webhook event")
	}
	if !created && record.Processed() {
		// Redelivery of an event we already reconciled; acknowledge without
		// reprocessing. Deliveries whose earlier attempt failed fall through
		// and run again, otherwise a retried event would be lost.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	ev, err := billing.ParseStripeEvent(stripeEvent)
	if errors.Is(err, billing.ErrEventIgnored) {
		_ = svc.MarkWebhookProcessed(c.Context(), record.ID, nil)
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	}
	if err != nil {
		_ = svc.MarkWebhookProcessed(c.Context(), record.ID, err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "webhook payload could not be parsed")
	}

	// Checkout sessions do not carry the period end; fetch it from the
	// subscription so the entitlement starts with a bounded period.
	if ev.Type == billing.EventCheckoutCompleted && ev.PeriodEnd == nil && strings.TrimSpace(ev.SubscriptionRef) != "" {
		if periodEnd, ferr := billing.FetchPeriodEnd(ev.SubscriptionRef); ferr == nil {
			ev.PeriodEnd = periodEnd
		} else {
			log.Printf("stripe period end lookup failed for %s: %v", ev.SubscriptionRef, ferr)
		}
	}

	if err := svc.Apply(c.Context(), ev); err != nil {
		_ = svc.MarkWebhookProcessed(c.Context(), record.ID, err)
		if errors.Is(err, billing.ErrEntitlementNotFound) {
			return jsonError(c, fiber.StatusNotFound, "entitlement_not_found", "no entitlement matches the processor reference")
		}
		log.Printf("stripe webhook apply failed for event %s: %v", stripeEvent.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "webhook processing failed")
	}

	if err := svc.MarkWebhookProcessed(c.Context(), record.ID, nil); err != nil {
		log.Printf("stripe webhook mark processed failed: %v", err)
	}

	return c.JSON(fiber.Map{"received": true})
}
