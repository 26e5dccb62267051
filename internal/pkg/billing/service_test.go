package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/internal/pkg/entitlements"
)

type fakeRepository struct {
	entitlements map[uint]*models.Entitlement
	byCustomer   map[string]uint
	bySub        map[string]uint
	webhooks     map[string]*models.BillingWebhookEvent
	nextID       uint
	processed    map[uint]string
	applyErr     error // returned by the next ApplyTransition, then cleared
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		entitlements: make(map[uint]*models.Entitlement),
		byCustomer:   make(map[string]uint),
		bySub:        make(map[string]uint),
		webhooks:     make(map[string]*models.BillingWebhookEvent),
		processed:    make(map[uint]string),
	}
}

func (f *fakeRepository) addEntitlement(ent *models.Entitlement) {
	f.entitlements[ent.UserID] = ent
	if ent.ProcessorCustomerRef != "" {
		f.byCustomer[ent.ProcessorCustomerRef] = ent.UserID
	}
	if ent.ProcessorSubscriptionRef != "" {
		f.bySub[ent.ProcessorSubscriptionRef] = ent.UserID
	}
}

func (f *fakeRepository) GetEntitlementByCustomerRef(customerRef string) (*models.Entitlement, error) {
	userID, ok := f.byCustomer[customerRef]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.entitlements[userID], nil
}

func (f *fakeRepository) GetEntitlementBySubscriptionRef(subscriptionRef string) (*models.Entitlement, error) {
	userID, ok := f.bySub[subscriptionRef]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.entitlements[userID], nil
}

func (f *fakeRepository) ApplyTransition(userID uint, fields map[string]interface{}) error {
	if f.applyErr != nil {
		err := f.applyErr
		f.applyErr = nil
		return err
	}
	ent, ok := f.entitlements[userID]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "plan":
			ent.Plan = v.(string)
		case "status":
			ent.Status = v.(string)
		case "processor_customer_ref":
			ent.ProcessorCustomerRef = v.(string)
			f.byCustomer[ent.ProcessorCustomerRef] = userID
		case "processor_subscription_ref":
			ent.ProcessorSubscriptionRef = v.(string)
			f.bySub[ent.ProcessorSubscriptionRef] = userID
		case "current_period_end":
			ent.CurrentPeriodEnd = v.(*time.Time)
		case "cancel_at_period_end":
			ent.CancelAtPeriodEnd = v.(bool)
		}
	}
	return nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + ":" + event.ProviderEventID
	if existing, ok := f.webhooks[key]; ok {
		return false, existing, nil
	}
	f.nextID++
	event.ID = f.nextID
	f.webhooks[key] = event
	return true, event, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	f.processed[id] = processingError
	now := time.Now()
	for _, event := range f.webhooks {
		if event.ID == id {
			event.ProcessedAt = &now
			event.ProcessingError = processingError
		}
	}
	return nil
}

func premiumEntitlement(userID uint) *models.Entitlement {
	return &models.Entitlement{
		UserID:                   userID,
		Plan:                     string(entitlements.PlanPremium),
		Status:                   models.EntitlementStatusActive,
		ProcessorCustomerRef:     "cus_123",
		ProcessorSubscriptionRef: "sub_123",
	}
}

func TestApplyCheckoutCompleted(t *testing.T) {
	repo := newFakeRepository()
	repo.addEntitlement(&models.Entitlement{
		UserID:               1,
		Plan:                 string(entitlements.PlanFree),
		Status:               models.EntitlementStatusInactive,
		ProcessorCustomerRef: "cus_123",
	})

	periodEnd := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	err := NewService(repo).Apply(context.Background(), Event{
		ID:              "evt_1",
		Type:            EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_123",
		PeriodEnd:       &periodEnd,
	})

	assert.NoError(t, err)
	ent := repo.entitlements[1]
	assert.Equal(t, string(entitlements.PlanPremium), ent.Plan)
	assert.Equal(t, models.EntitlementStatusActive, ent.Status)
	assert.Equal(t, "sub_123", ent.ProcessorSubscriptionRef)
	assert.False(t, ent.CancelAtPeriodEnd)
	assert.True(t, ent.CurrentPeriodEnd.Equal(periodEnd))
}

func TestApplyCheckoutCompletedWithoutPeriodEndBoundsAccess(t *testing.T) {
	repo := newFakeRepository()
	repo.addEntitlement(&models.Entitlement{
		UserID:               1,
		Plan:                 string(entitlements.PlanFree),
		Status:               models.EntitlementStatusInactive,
		ProcessorCustomerRef: "cus_123",
	})

	err := NewService(repo).Apply(context.Background(), Event{
		Type:            EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_123",
	})

	assert.NoError(t, err)
	ent := repo.entitlements[1]
	assert.Equal(t, string(entitlements.PlanPremium), ent.Plan)
	if assert.NotNil(t, ent.CurrentPeriodEnd) {
		assert.True(t, ent.IsPremiumActive(time.Now().UTC()))
		assert.False(t, ent.IsPremiumActive(time.Now().UTC().Add(provisionalPeriod+time.Minute)))
	}
}

func TestApplyCheckoutCompletedUnknownCustomer(t *testing.T) {
	repo := newFakeRepository()

	err := NewService(repo).Apply(context.Background(), Event{
		Type:        EventCheckoutCompleted,
		CustomerRef: "cus_unknown",
	})

	assert.ErrorIs(t, err, ErrEntitlementNotFound)
}

func TestApplyCheckoutCompletedMissingCustomerRef(t *testing.T) {
	err := NewService(newFakeRepository()).Apply(context.Background(), Event{
		Type: EventCheckoutCompleted,
	})

	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestApplyInvoicePaidExtendsPeriod(t *testing.T) {
	repo := newFakeRepository()
	ent := premiumEntitlement(1)
	ent.Status = models.EntitlementStatusPastDue
	repo.addEntitlement(ent)

	periodEnd := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	err := NewService(repo).Apply(context.Background(), Event{
		Type:            EventInvoicePaid,
		SubscriptionRef: "sub_123",
		PeriodEnd:       &periodEnd,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.EntitlementStatusActive, ent.Status)
	assert.True(t, ent.CurrentPeriodEnd.Equal(periodEnd))
}

func TestApplySubscriptionUpdated(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		cancel     bool
		wantStatus string
	}{
		{"Active stays active", "active", false, models.EntitlementStatusActive},
		{"Trialing maps to active", "trialing", false, models.EntitlementStatusActive},
		{"Past due", "past_due", false, models.EntitlementStatusPastDue},
		{"Canceled", "canceled", false, models.EntitlementStatusCanceled},
		{"Unpaid maps to canceled", "unpaid", false, models.EntitlementStatusCanceled},
		{"Unknown maps to inactive", "paused", false, models.EntitlementStatusInactive},
		{"Scheduled cancel keeps status", "active", true, models.EntitlementStatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			ent := premiumEntitlement(1)
			repo.addEntitlement(ent)

			err := NewService(repo).Apply(context.Background(), Event{
				Type:              EventSubscriptionUpdated,
				SubscriptionRef:   "sub_123",
				Status:            tt.status,
				CancelAtPeriodEnd: tt.cancel,
			})

			assert.NoError(t, err)
			assert.Equal(t, tt.wantStatus, ent.Status)
			assert.Equal(t, tt.cancel, ent.CancelAtPeriodEnd)
		})
	}
}

func TestApplySubscriptionDeletedDowngrades(t *testing.T) {
	repo := newFakeRepository()
	ent := premiumEntitlement(1)
	ent.CancelAtPeriodEnd = true
	repo.addEntitlement(ent)

	err := NewService(repo).Apply(context.Background(), Event{
		Type:            EventSubscriptionDeleted,
		SubscriptionRef: "sub_123",
	})

	assert.NoError(t, err)
	assert.Equal(t, string(entitlements.PlanFree), ent.Plan)
	assert.Equal(t, models.EntitlementStatusCanceled, ent.Status)
	assert.False(t, ent.CancelAtPeriodEnd)
}

func TestApplyPaymentFailedMarksPastDue(t *testing.T) {
	repo := newFakeRepository()
	ent := premiumEntitlement(1)
	repo.addEntitlement(ent)

	err := NewService(repo).Apply(context.Background(), Event{
		Type:            EventPaymentFailed,
		SubscriptionRef: "sub_123",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.EntitlementStatusPastDue, ent.Status)
	assert.Equal(t, string(entitlements.PlanPremium), ent.Plan)
}

func TestApplyUnknownEventIgnored(t *testing.T) {
	err := NewService(newFakeRepository()).Apply(context.Background(), Event{Type: "something_else"})
	assert.ErrorIs(t, err, ErrEventIgnored)
}

func TestApplyIsIdempotentOnReplay(t *testing.T) {
	repo := newFakeRepository()
	repo.addEntitlement(&models.Entitlement{
		UserID:               1,
		Plan:                 string(entitlements.PlanFree),
		Status:               models.EntitlementStatusInactive,
		ProcessorCustomerRef: "cus_123",
	})

	periodEnd := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	ev := Event{
		Type:            EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_123",
		PeriodEnd:       &periodEnd,
	}

	svc := NewService(repo)
	assert.NoError(t, svc.Apply(context.Background(), ev))
	first := *repo.entitlements[1]
	assert.NoError(t, svc.Apply(context.Background(), ev))
	assert.Equal(t, first, *repo.entitlements[1])
}

func TestFullLifecycleRoundTrip(t *testing.T) {
	repo := newFakeRepository()
	repo.addEntitlement(&models.Entitlement{
		UserID:               1,
		Plan:                 string(entitlements.PlanFree),
		Status:               models.EntitlementStatusInactive,
		ProcessorCustomerRef: "cus_123",
	})
	svc := NewService(repo)
	ctx := context.Background()

	periodEnd := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, svc.Apply(ctx, Event{
		Type:            EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_123",
		PeriodEnd:       &periodEnd,
	}))
	assert.True(t, repo.entitlements[1].IsPremiumActive(periodEnd.Add(-time.Hour)))

	assert.NoError(t, svc.Apply(ctx, Event{
		Type:              EventSubscriptionUpdated,
		SubscriptionRef:   "sub_123",
		Status:            "active",
		CancelAtPeriodEnd: true,
	}))
	assert.True(t, repo.entitlements[1].CancelAtPeriodEnd)
	assert.True(t, repo.entitlements[1].IsPremiumActive(periodEnd.Add(-time.Hour)))

	assert.NoError(t, svc.Apply(ctx, Event{
		Type:            EventSubscriptionDeleted,
		SubscriptionRef: "sub_123",
	}))
	assert.False(t, repo.entitlements[1].IsPremiumActive(periodEnd.Add(-time.Hour)))
	assert.Equal(t, string(entitlements.PlanFree), repo.entitlements[1].Plan)
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "invoice.paid",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, first, err := svc.RecordWebhookEvent(ctx, in)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, first)

	created, second, err := svc.RecordWebhookEvent(ctx, in)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRedeliveryAfterFailedApplyIsReprocessed(t *testing.T) {
	repo := newFakeRepository()
	repo.addEntitlement(&models.Entitlement{
		UserID:               1,
		Plan:                 string(entitlements.PlanFree),
		Status:               models.EntitlementStatusInactive,
		ProcessorCustomerRef: "cus_123",
	})
	svc := NewService(repo)
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_retry",
		EventType:       "checkout.session.completed",
		PayloadJSON:     `{"id":"evt_retry"}`,
		SignatureValid:  true,
	}
	periodEnd := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	ev := Event{
		Type:            EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_123",
		PeriodEnd:       &periodEnd,
	}

	// First delivery records the event but reconciliation fails.
	repo.applyErr = assert.AnError
	created, record, err := svc.RecordWebhookEvent(ctx, in)
	assert.NoError(t, err)
	assert.True(t, created)
	err = svc.Apply(ctx, ev)
	assert.Error(t, err)
	assert.NoError(t, svc.MarkWebhookProcessed(ctx, record.ID, err))
	assert.Equal(t, string(entitlements.PlanFree), repo.entitlements[1].Plan)

	// The retry is a known event, but its stored record shows the failed
	// attempt, so it must not be acknowledged as a duplicate.
	created, retried, err := svc.RecordWebhookEvent(ctx, in)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.False(t, retried.Processed())

	assert.NoError(t, svc.Apply(ctx, ev))
	assert.NoError(t, svc.MarkWebhookProcessed(ctx, retried.ID, nil))

	assert.True(t, retried.Processed())
	assert.Equal(t, string(entitlements.PlanPremium), repo.entitlements[1].Plan)
	assert.Equal(t, models.EntitlementStatusActive, repo.entitlements[1].Status)
}

func TestRecordWebhookEventHashFallback(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    models.BillingProviderStripe,
		PayloadJSON: `{"no":"id"}`,
	})

	assert.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, stored.ProviderEventID, "hash:")
}

func TestRecordWebhookEventRequiresProvider(t *testing.T) {
	_, _, err := NewService(newFakeRepository()).RecordWebhookEvent(context.Background(), WebhookEventInput{})
	assert.Error(t, err)
}

func TestMarkWebhookProcessed(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	assert.Error(t, svc.MarkWebhookProcessed(context.Background(), 0, nil))

	assert.NoError(t, svc.MarkWebhookProcessed(context.Background(), 5, nil))
	assert.Equal(t, "", repo.processed[5])

	assert.NoError(t, svc.MarkWebhookProcessed(context.Background(), 6, assert.AnError))
	assert.NotEmpty(t, repo.processed[6])
}
