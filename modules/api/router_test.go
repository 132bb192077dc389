package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseguard/clauseguard/modules/api"
	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/docstore"
	"github.com/clauseguard/clauseguard/pkg/entitlement"
)

type fakeGenerator struct {
	result string
	err    error
	calls  int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.result, nil
}

type fakeProvider struct{}

func (fakeProvider) CreateCheckoutLink(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	return &billing.CheckoutLink{URL: "https://checkout.example/" + req.PriceID, SessionID: "txn_1"}, nil
}

func (fakeProvider) GetCustomerPortalLink(ctx context.Context, sub *billing.Subscription) (*billing.PortalLink, error) {
	return &billing.PortalLink{URL: "https://portal.example"}, nil
}

func (fakeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookEvent, error) {
	if signature != "valid" {
		return nil, billing.ErrWebhookVerificationFailed
	}
	var event billing.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type testEnv struct {
	router    http.Handler
	store     billing.Store
	generator *fakeGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cat, err := catalog.New(context.Background(), catalog.NewInMemSource(catalog.DefaultPlans()))
	require.NoError(t, err)

	docs := docstore.NewMemoryStore()
	usage := entitlement.NewUsageStore(docs)
	store := billing.NewStore(docs)

	manager := billing.NewManager(cat, store,
		billing.WithProvider(fakeProvider{}, []billing.Price{
			{PriceID: "pri_pro_monthly", PlanID: catalog.PlanPro, Cycle: billing.CycleMonthly},
			{PriceID: "pri_ent_monthly", PlanID: catalog.PlanEnterprise, Cycle: billing.CycleMonthly},
		}))

	resolver := func(ctx context.Context, userID string) (catalog.PlanID, error) {
		sub, err := store.GetActive(ctx, userID)
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			return "", entitlement.ErrNoActivePlan
		}
		if err != nil {
			return "", err
		}
		return sub.PlanID, nil
	}

	generator := &fakeGenerator{result: "the indemnity clause is one-sided"}

	router := api.Router(api.Options{
		Catalog:   cat,
		Engine:    entitlement.NewEngine(cat, usage, resolver),
		Recorder:  entitlement.NewRecorder(usage),
		Usage:     usage,
		Manager:   manager,
		Generator: generator,
	})

	return &testEnv{router: router, store: store, generator: generator}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(api.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestRouter_RequiresUserHeader(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health check needs no identity")
}

func TestRouter_CheckEntitlement(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	t.Run("allowed on the free plan", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/entitlements/check", "user-1",
			map[string]any{"action": "ai_query"})
		require.Equal(t, http.StatusOK, rec.Code)

		decision := decodeBody[entitlement.Decision](t, rec)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(20), decision.Limit)
	})

	t.Run("denied feature names the upgrade", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/entitlements/check", "user-1",
			map[string]any{"action": "voice_query"})
		require.Equal(t, http.StatusOK, rec.Code)

		decision := decodeBody[entitlement.Decision](t, rec)
		assert.False(t, decision.Allowed)
		assert.True(t, decision.UpgradeRequired)
		assert.Equal(t, catalog.PlanPro, decision.RequiredPlan)
	})

	t.Run("unknown action is a client error", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/entitlements/check", "user-1",
			map[string]any{"action": "levitation"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_UsageRoundTrip(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/usage", "user-1",
		map[string]any{"action": "ai_query", "amount": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/usage", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot struct {
		Monthly map[string]int64 `json:"monthly"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	assert.Equal(t, int64(3), snapshot.Monthly["ai_queries"])
}

func TestRouter_Plans(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/plans", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []struct {
		ID    string `json:"id"`
		Price struct {
			Amount int64 `json:"amount"`
		} `json:"price"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plans))
	require.Len(t, plans, 3)
	assert.Equal(t, "free", plans[0].ID, "plans come back cheapest first")

	rec = env.do(t, http.MethodGet, "/v1/plans/pro", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/plans/platinum", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SubscriptionLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// First read materializes the free subscription.
	rec := env.do(t, http.MethodGet, "/v1/subscription/", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decodeBody[billing.Subscription](t, rec)
	assert.Equal(t, catalog.PlanFree, sub.PlanID)

	rec = env.do(t, http.MethodPost, "/v1/subscription/checkout", "user-1",
		map[string]any{"plan_id": "pro", "cycle": "monthly"})
	require.Equal(t, http.StatusOK, rec.Code)
	link := decodeBody[billing.CheckoutLink](t, rec)
	assert.Equal(t, "https://checkout.example/pri_pro_monthly", link.URL)

	// Payment confirmed by webhook.
	event := billing.WebhookEvent{
		EventID:    "evt_1",
		Type:       billing.EventSubscriptionCreated,
		CustomerID: "user-1",
		PriceID:    "pri_pro_monthly",
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", bytes.NewReader(payload))
	req.Header.Set("Paddle-Signature", "valid")
	webhookRec := httptest.NewRecorder()
	env.router.ServeHTTP(webhookRec, req)
	require.Equal(t, http.StatusOK, webhookRec.Code)

	rec = env.do(t, http.MethodGet, "/v1/subscription/", "user-1", nil)
	sub = decodeBody[billing.Subscription](t, rec)
	assert.Equal(t, catalog.PlanPro, sub.PlanID)

	// Proration preview towards enterprise.
	rec = env.do(t, http.MethodPost, "/v1/subscription/preview", "user-1",
		map[string]any{"plan_id": "enterprise", "cycle": "monthly"})
	require.Equal(t, http.StatusOK, rec.Code)
	proration := decodeBody[billing.Proration](t, rec)
	assert.Equal(t, int64(2499), proration.FullAmount)
	assert.Positive(t, proration.UnusedCredit)

	rec = env.do(t, http.MethodPost, "/v1/subscription/cancel", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sub = decodeBody[billing.Subscription](t, rec)
	assert.Equal(t, catalog.PlanFree, sub.PlanID)
}

func TestRouter_WebhookBadSignature(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/paddle", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Paddle-Signature", "forged")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AnalyzeDocument(t *testing.T) {
	t.Parallel()

	t.Run("success records usage", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/v1/documents/analyze", "user-1",
			map[string]any{"document": "The party of the first part..."})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Result string `json:"result"`
			Usage  struct {
				Monthly map[string]int64 `json:"monthly"`
			} `json:"usage"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "the indemnity clause is one-sided", resp.Result)
		assert.Equal(t, int64(1), resp.Usage.Monthly["documents_analyzed"])
	})

	t.Run("limit exhaustion short-circuits before the model", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		// Free plan allows 3 document analyses per month.
		for i := 0; i < 3; i++ {
			rec := env.do(t, http.MethodPost, "/v1/documents/analyze", "user-1",
				map[string]any{"document": "doc"})
			require.Equal(t, http.StatusOK, rec.Code)
		}
		callsBefore := env.generator.calls

		rec := env.do(t, http.MethodPost, "/v1/documents/analyze", "user-1",
			map[string]any{"document": "doc"})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, callsBefore, env.generator.calls, "denied request must not reach the model")

		body := rec.Body.String()
		decision := decodeBody[entitlement.Decision](t, rec)
		assert.Equal(t, entitlement.ReasonLimitExceeded, decision.Reason)
		assert.Equal(t, int64(3), decision.CurrentUsage)

		// An exhausted quota must render its zero, not drop the field.
		assert.Contains(t, body, `"remaining":0`)
		assert.Contains(t, body, `"current_usage":3`)
	})

	t.Run("generator failure records no usage", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.generator.err = errors.New("model down")

		rec := env.do(t, http.MethodPost, "/v1/documents/analyze", "user-1",
			map[string]any{"document": "doc"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		usage := env.do(t, http.MethodGet, "/v1/usage", "user-1", nil)
		var snapshot struct {
			Monthly map[string]int64 `json:"monthly"`
		}
		require.NoError(t, json.NewDecoder(usage.Body).Decode(&snapshot))
		assert.Zero(t, snapshot.Monthly["documents_analyzed"])
	})

	t.Run("missing document", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/v1/documents/analyze", "user-1",
			map[string]any{"document": "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
