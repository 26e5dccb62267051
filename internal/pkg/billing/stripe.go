package billing

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/clipscout/clipscout/internal/pkg/env"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
)

// InitStripe wires the Stripe API key from the environment. Called once at
// startup before any handler can reach the Stripe client.
func InitStripe() {
	stripe.Key = env.GetEnv("STRIPE_SECRET_KEY", "")
}

// CreateCustomer creates a processor customer carrying the local user ID in
// its metadata so support can map records both ways.
func CreateCustomer(userID uint, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(strings.TrimSpace(email)),
		Name:  stripe.String(strings.TrimSpace(name)),
	}
	params.AddMetadata("user_id", strconv.FormatUint(uint64(userID), 10))

	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

// NewCheckoutURL creates a hosted checkout session for the premium price and
// returns its URL.
func NewCheckoutURL(customerRef string) (string, error) {
	priceID := strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", ""))
	baseURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if priceID == "" || baseURL == "" {
		return "", errors.New("STRIPE_PRICE_ID/PUBLIC_DOMAIN are not configured")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(baseURL + "/billing/success"),
		CancelURL:  stripe.String(baseURL + "/billing/cancel"),
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// NewPortalURL creates a billing-portal session so the customer can manage
// the subscription on the processor's hosted pages.
func NewPortalURL(customerRef string) (string, error) {
	baseURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if baseURL == "" {
		return "", errors.New("PUBLIC_DOMAIN is not configured")
	}

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(baseURL + "/account"),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CancelAtPeriodEnd flags the processor subscription for cancellation at the
// end of the current billing period. The eventual state change arrives back
// through the webhook.
func CancelAtPeriodEnd(subscriptionRef string) error {
	_, err := subscription.Update(subscriptionRef, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	return err
}

// FetchPeriodEnd reads the current period end of a processor subscription.
// Checkout-completed events do not carry it, so the webhook handler fills the
// gap with one extra API read.
func FetchPeriodEnd(subscriptionRef string) (*time.Time, error) {
	sub, err := subscription.Get(subscriptionRef, nil)
	if err != nil {
		return nil, err
	}
	if sub.CurrentPeriodEnd <= 0 {
		return nil, nil
	}
	end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	return &end, nil
}
