package billing

import (
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// VerifyWebhookEvent authenticates the raw webhook body against the signature
// header before anything in the payload is trusted. A failure here must be
// answered with a 4xx so the processor stops retrying.
func VerifyWebhookEvent(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
}

// ParseStripeEvent maps a verified Stripe event onto the provider-neutral
// Event the reconciler consumes. Event types outside the subscription
// lifecycle return ErrEventIgnored.
func ParseStripeEvent(event stripe.Event) (Event, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Event{}, ErrInvalidPayload
		}
		ev := Event{ID: event.ID, Type: EventCheckoutCompleted}
		if sess.Customer != nil {
			ev.CustomerRef = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionRef = sess.Subscription.ID
		}
		if ev.CustomerRef == "" {
			return Event{}, ErrInvalidPayload
		}
		return ev, nil

	case "invoice.paid", "invoice.payment_succeeded":
		inv, err := unmarshalInvoice(event.Data.Raw)
		if err != nil {
			return Event{}, err
		}
		inv.Type = EventInvoicePaid
		inv.ID = event.ID
		return inv, nil

	case "invoice.payment_failed":
		inv, err := unmarshalInvoice(event.Data.Raw)
		if err != nil {
			return Event{}, err
		}
		inv.Type = EventPaymentFailed
		inv.ID = event.ID
		return inv, nil

	case "customer.subscription.updated":
		return unmarshalSubscription(event, EventSubscriptionUpdated)

	case "customer.subscription.deleted":
		return unmarshalSubscription(event, EventSubscriptionDeleted)

	default:
		return Event{}, ErrEventIgnored
	}
}

func unmarshalInvoice(raw []byte) (Event, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return Event{}, ErrInvalidPayload
	}
	ev := Event{}
	if inv.Subscription != nil {
		ev.SubscriptionRef = inv.Subscription.ID
	}
	if inv.Customer != nil {
		ev.CustomerRef = inv.Customer.ID
	}
	if ev.SubscriptionRef == "" {
		return Event{}, ErrInvalidPayload
	}
	// The subscription period travels on the invoice lines.
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line != nil && line.Period != nil && line.Period.End > 0 {
				end := time.Unix(line.Period.End, 0).UTC()
				if ev.PeriodEnd == nil || end.After(*ev.PeriodEnd) {
					ev.PeriodEnd = &end
				}
			}
		}
	}
	return ev, nil
}

func unmarshalSubscription(event stripe.Event, typ EventType) (Event, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return Event{}, ErrInvalidPayload
	}
	if sub.ID == "" {
		return Event{}, ErrInvalidPayload
	}
	ev := Event{
		ID:                event.ID,
		Type:              typ,
		SubscriptionRef:   sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		ev.CustomerRef = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		ev.PeriodEnd = &end
	}
	return ev, nil
}
