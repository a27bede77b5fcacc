package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storekit/storekit/core"
	"github.com/storekit/storekit/modules/api"
	"github.com/storekit/storekit/svc/billing"
	"github.com/storekit/storekit/svc/entitlement"
	"github.com/storekit/storekit/svc/notifications"
	"github.com/storekit/storekit/svc/plans"
	"github.com/storekit/storekit/svc/subscription"
	"github.com/storekit/storekit/svc/tenant"
	"github.com/storekit/storekit/svc/usage"
)

type fakeProvider struct {
	event *billing.Event
	err   error
}

func (f *fakeProvider) CreateCheckoutLink(context.Context, billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	return &billing.CheckoutLink{URL: "https://pay.example/txn_1", SessionID: "txn_1"}, nil
}

func (f *fakeProvider) ParseWebhook(context.Context, []byte, string) (*billing.Event, error) {
	return f.event, f.err
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testAPI struct {
	srv      *httptest.Server
	tenant   *tenant.Tenant
	subs     *subscription.Service
	clock    *testClock
	provider *fakeProvider
}

func apiPlans() []plans.Plan {
	return []plans.Plan{
		{
			ID:        "free",
			Name:      "Free",
			Interval:  plans.IntervalMonthly,
			TrialDays: 14,
			Limits: map[plans.Resource]int64{
				plans.ResourceProducts:                 10,
				plans.ResourceCategories:               3,
				plans.ResourceSubcategoriesPerCategory: 3,
				plans.ResourceOrders:                   20,
			},
			Active: true,
		},
		{
			ID:       "pro",
			Name:     "Pro",
			Price:    plans.Money{Amount: 1900, Currency: "USD"},
			Interval: plans.IntervalMonthly,
			Limits: map[plans.Resource]int64{
				plans.ResourceProducts:                 100,
				plans.ResourceCategories:               10,
				plans.ResourceSubcategoriesPerCategory: 5,
				plans.ResourceOrders:                   500,
			},
			Active:          true,
			ProviderPriceID: "pri_pro",
		},
	}
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	catalog := plans.NewCatalog(plans.NewMemoryStore())
	require.NoError(t, catalog.Seed(context.Background(), plans.StaticSource(apiPlans())))

	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{}
	subs := subscription.NewService(subscription.NewMemoryStore(), catalog,
		subscription.WithClock(clock.Now),
		subscription.WithBilling(provider))
	usageSvc := usage.NewService(usage.NewMemoryStore())
	engine := entitlement.NewEngine(subs, usageSvc, catalog,
		entitlement.WithClock(clock.Now))
	notifs := notifications.NewService(notifications.NewMemoryStorage())

	owner := &tenant.Tenant{
		ID:         uuid.New(),
		Subdomain:  "acme",
		Name:       "Acme",
		OwnerName:  "Jordan",
		OwnerEmail: "jordan@acme.test",
		Active:     true,
		CreatedAt:  clock.Now(),
	}
	tenants := tenant.NewMemoryStore()
	require.NoError(t, tenants.Save(context.Background(), owner))

	module := api.New(engine, subs, catalog,
		api.WithBilling(provider),
		api.WithNotifications(notifs))

	r := chi.NewRouter()
	r.Use(tenant.Middleware(tenant.NewHeaderResolver("X-Tenant-ID"), tenants))
	r.Group(module.Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, tenant: owner, subs: subs, clock: clock, provider: provider}
}

// do issues a request as the seeded tenant and decodes the envelope.
func (a *testAPI) do(t *testing.T, method, path string, body any) (int, core.JSONResponse) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, buf)
	require.NoError(t, err)
	req.Header.Set("X-Tenant-ID", a.tenant.ID.String())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope core.JSONResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	}
	return resp.StatusCode, envelope
}

func (a *testAPI) startTrial(t *testing.T) {
	t.Helper()
	status, _ := a.do(t, http.MethodPost, "/subscriptions/activate-trial", map[string]string{"plan_id": "free"})
	require.Equal(t, http.StatusCreated, status)
}

func dataField(t *testing.T, envelope core.JSONResponse, key string) any {
	t.Helper()
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok, "data is not an object")
	return data[key]
}

func TestSessionEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the full gating bundle", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.startTrial(t)

		status, _ := a.do(t, http.MethodPost, "/products", nil)
		require.Equal(t, http.StatusCreated, status)

		status, envelope := a.do(t, http.MethodGet, "/session", nil)
		require.Equal(t, http.StatusOK, status)

		sub := dataField(t, envelope, "subscription").(map[string]any)
		assert.Equal(t, "trialing", sub["status"])

		access := dataField(t, envelope, "access").(map[string]any)
		assert.Equal(t, true, access["has_access"])
		assert.Contains(t, access["message"], "Trial ends in")

		usageData := dataField(t, envelope, "usage").(map[string]any)
		products := usageData["products"].(map[string]any)
		assert.Equal(t, float64(1), products["used"])
		assert.Equal(t, float64(10), products["limit"])

		user := dataField(t, envelope, "user").(map[string]any)
		assert.Equal(t, "Jordan", user["name"])
		assert.Equal(t, float64(0), dataField(t, envelope, "unread_notifications"))
	})

	t.Run("unsubscribed tenant still gets 200", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)

		status, envelope := a.do(t, http.MethodGet, "/session", nil)
		require.Equal(t, http.StatusOK, status)

		assert.Nil(t, dataField(t, envelope, "subscription"))
		access := dataField(t, envelope, "access").(map[string]any)
		assert.Equal(t, false, access["has_access"])
		assert.Equal(t, "No active subscription", access["message"])
	})

	t.Run("requires a tenant", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)

		resp, err := http.Get(a.srv.URL + "/session")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestResourceQuotaGate(t *testing.T) {
	t.Parallel()

	t.Run("refuses past the product limit with the exact message", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.startTrial(t)

		for range 10 {
			status, _ := a.do(t, http.MethodPost, "/products", nil)
			require.Equal(t, http.StatusCreated, status)
		}

		status, envelope := a.do(t, http.MethodPost, "/products", nil)
		require.Equal(t, http.StatusForbidden, status)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "quota_exceeded", envelope.Error.Code)
		assert.Contains(t, envelope.Error.Message, "Plan limit reached: 10/10 products")
	})

	t.Run("subcategory limits follow the parent category", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.startTrial(t)

		status, envelope := a.do(t, http.MethodPost, "/categories", nil)
		require.Equal(t, http.StatusCreated, status)
		catA := dataField(t, envelope, "id").(string)

		status, envelope = a.do(t, http.MethodPost, "/categories", nil)
		require.Equal(t, http.StatusCreated, status)
		catB := dataField(t, envelope, "id").(string)

		for range 3 {
			status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/categories/%s/subcategories", catA), nil)
			require.Equal(t, http.StatusCreated, status)
		}

		status, envelope = a.do(t, http.MethodPost, fmt.Sprintf("/categories/%s/subcategories", catA), nil)
		require.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "quota_exceeded", envelope.Error.Code)
		assert.Contains(t, envelope.Error.Message, "3/3 subcategories")

		status, _ = a.do(t, http.MethodPost, fmt.Sprintf("/categories/%s/subcategories", catB), nil)
		assert.Equal(t, http.StatusCreated, status, "the other category still has room")
	})

	t.Run("grace period blocks creates but not updates or deletes", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.startTrial(t)

		status, _ := a.do(t, http.MethodPost, "/products", nil)
		require.Equal(t, http.StatusCreated, status)

		a.clock.Advance(16 * 24 * time.Hour)

		status, envelope := a.do(t, http.MethodPost, "/products", nil)
		require.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "access_denied", envelope.Error.Code)

		status, _ = a.do(t, http.MethodPut, "/products/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusOK, status)

		status, _ = a.do(t, http.MethodDelete, "/products/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNoContent, status)
	})
}

func TestSubscriptionEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("priced plan selection answers 402 with a checkout link", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)

		status, envelope := a.do(t, http.MethodPost, "/subscriptions/select-plan", map[string]string{"plan_id": "pro"})
		require.Equal(t, http.StatusPaymentRequired, status)

		assert.Equal(t, true, dataField(t, envelope, "requires_payment"))
		assert.Equal(t, "https://pay.example/txn_1", dataField(t, envelope, "checkout_url"))
		assert.Nil(t, dataField(t, envelope, "subscription"), "nothing is written before payment")

		status, envelope = a.do(t, http.MethodGet, "/session", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Nil(t, dataField(t, envelope, "subscription"))
	})

	t.Run("free plan selection activates immediately", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)

		status, envelope := a.do(t, http.MethodPost, "/subscriptions/select-plan", map[string]string{"plan_id": "free"})
		require.Equal(t, http.StatusOK, status)

		assert.Equal(t, false, dataField(t, envelope, "requires_payment"))
		sub := dataField(t, envelope, "subscription").(map[string]any)
		assert.Equal(t, "active", sub["status"])
	})

	t.Run("second trial answers 409 trial_already_used", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.startTrial(t)

		status, envelope := a.do(t, http.MethodPost, "/subscriptions/activate-trial", map[string]string{"plan_id": "free"})
		require.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "trial_already_used", envelope.Error.Code)
	})

	t.Run("cancel keeps access until the period end", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.startTrial(t)

		status, _ := a.do(t, http.MethodPost, "/subscriptions/cancel", nil)
		require.Equal(t, http.StatusOK, status)

		status, envelope := a.do(t, http.MethodGet, "/session", nil)
		require.Equal(t, http.StatusOK, status)
		access := dataField(t, envelope, "access").(map[string]any)
		assert.Equal(t, true, access["has_access"])
		assert.Contains(t, access["message"], "cancelled")
	})

	t.Run("invalid transitions answer 409", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)

		status, envelope := a.do(t, http.MethodPost, "/subscriptions/upgrade", map[string]string{"plan_id": "pro"})
		require.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "invalid_transition", envelope.Error.Code)
	})
}

func TestBillingWebhook(t *testing.T) {
	t.Parallel()

	t.Run("payment confirmation activates the plan", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.provider.event = &billing.Event{
			Type:          billing.EventPaymentSucceeded,
			ProviderEvent: "transaction.completed",
			TenantID:      a.tenant.ID.String(),
			PlanID:        "pro",
		}

		status, envelope := a.do(t, http.MethodPost, "/webhooks/billing", map[string]string{"ok": "true"})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, dataField(t, envelope, "received"))

		status, envelope = a.do(t, http.MethodGet, "/session", nil)
		require.Equal(t, http.StatusOK, status)
		sub := dataField(t, envelope, "subscription").(map[string]any)
		assert.Equal(t, "active", sub["status"])
		assert.Equal(t, "pro", sub["plan_id"])
	})

	t.Run("unverifiable payloads answer 400", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.provider.err = billing.ErrInvalidWebhookSignature

		status, envelope := a.do(t, http.MethodPost, "/webhooks/billing", map[string]string{"ok": "false"})
		require.Equal(t, http.StatusBadRequest, status)
		require.NotNil(t, envelope.Error)
	})

	t.Run("unrecognized events are acknowledged", func(t *testing.T) {
		t.Parallel()
		a := newTestAPI(t)
		a.provider.event = &billing.Event{ProviderEvent: "subscription.updated"}

		status, envelope := a.do(t, http.MethodPost, "/webhooks/billing", map[string]string{"ok": "true"})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, dataField(t, envelope, "received"))
	})
}

func TestPlansEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	resp, err := http.Get(a.srv.URL + "/plans")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "the catalog needs no tenant")

	var envelope core.JSONResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	list, ok := envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, list, 2)
}
