package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Service is the billing event reconciler: it translates verified processor
// lifecycle events into entitlement transitions. It is the sole writer of the
// plan/status/period fields. Transitions are last-write-wins per field, which
// accepts out-of-order processor deliveries without extra locking.
type Service struct {
	repo Repository
}

// provisionalPeriod bounds a fresh premium entitlement when neither the
// checkout event nor the subscription lookup yielded a period end.
const provisionalPeriod = 72 * time.Hour

// NewService creates a billing service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// Apply reconciles one parsed event into the entitlement store. Replaying the
// same event produces the same end state: every transition writes absolute
// target values derived from the event, never accumulated ones.
func (s *Service) Apply(ctx context.Context, ev Event) error {
	_ = ctx
	switch ev.Type {
	case EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ev)
	case EventInvoicePaid:
		return s.applyInvoicePaid(ev)
	case EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(ev)
	case EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ev)
	case EventPaymentFailed:
		return s.applyPaymentFailed(ev)
	default:
		return ErrEventIgnored
	}
}

func (s *Service) applyCheckoutCompleted(ev Event) error {
	if strings.TrimSpace(ev.CustomerRef) == "" {
		return ErrInvalidPayload
	}
	ent, err := s.repo.GetEntitlementByCustomerRef(ev.CustomerRef)
	if err != nil {
		return notFoundOr(err)
	}

	fields := map[string]interface{}{
		"plan":                       string(entitlements.PlanPremium),
		"status":                     models.EntitlementStatusActive,
		"processor_subscription_ref": strings.TrimSpace(ev.SubscriptionRef),
		"cancel_at_period_end":       false,
	}
	if ev.PeriodEnd != nil {
		fields["current_period_end"] = ev.PeriodEnd
	} else {
		// The real period end arrives with the first invoice event. Until
		// then a short provisional period keeps premium access bounded
		// instead of open-ended.
		provisional := time.Now().UTC().Add(provisionalPeriod)
		fields["current_period_end"] = &provisional
	}
	return s.repo.ApplyTransition(ent.UserID, fields)
}

func (s *Service) applyInvoicePaid(ev Event) error {
	ent, err := s.entitlementForSubscription(ev.SubscriptionRef)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"status": models.EntitlementStatusActive,
	}
	if ev.PeriodEnd != nil {
		fields["current_period_end"] = ev.PeriodEnd
	}
	return s.repo.ApplyTransition(ent.UserID, fields)
}

func (s *Service) applySubscriptionUpdated(ev Event) error {
	ent, err := s.entitlementForSubscription(ev.SubscriptionRef)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"status":               normalizeStatus(ev.Status),
		"cancel_at_period_end": ev.CancelAtPeriodEnd,
	}
	if ev.PeriodEnd != nil {
		fields["current_period_end"] = ev.PeriodEnd
	}
	return s.repo.ApplyTransition(ent.UserID, fields)
}

func (s *Service) applySubscriptionDeleted(ev Event) error {
	ent, err := s.entitlementForSubscription(ev.SubscriptionRef)
	if err != nil {
		return err
	}

	return s.repo.ApplyTransition(ent.UserID, map[string]interface{}{
		"plan":                 string(entitlements.PlanFree),
		"status":               models.EntitlementStatusCanceled,
		"cancel_at_period_end": false,
	})
}

func (s *Service) applyPaymentFailed(ev Event) error {
	ent, err := s.entitlementForSubscription(ev.SubscriptionRef)
	if err != nil {
		return err
	}

	return s.repo.ApplyTransition(ent.UserID, map[string]interface{}{
		"status": models.EntitlementStatusPastDue,
	})
}

func (s *Service) entitlementForSubscription(subscriptionRef string) (*models.Entitlement, error) {
	if strings.TrimSpace(subscriptionRef) == "" {
		return nil, ErrInvalidPayload
	}
	ent, err := s.repo.GetEntitlementBySubscriptionRef(subscriptionRef)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ent, nil
}

// normalizeStatus maps a processor subscription status onto the internal
// entitlement status enum.
func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return models.EntitlementStatusActive
	case "past_due":
		return models.EntitlementStatusPastDue
	case "canceled", "unpaid", "incomplete_expired":
		return models.EntitlementStatusCanceled
	default:
		return models.EntitlementStatusInactive
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntitlementNotFound
	}
	return err
}

// RecordWebhookEvent persists webhook payloads idempotently. The boolean
// result reports whether this delivery was the first one; duplicates are
// acknowledged without reprocessing.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
