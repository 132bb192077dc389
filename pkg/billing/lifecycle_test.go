package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauseguard/clauseguard/pkg/billing"
	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/docstore"
)

type recordingNotifier struct {
	mu       sync.Mutex
	upgraded []string
	expired  []string
	err      error
}

func (n *recordingNotifier) SubscriptionUpgraded(ctx context.Context, userID string, sub billing.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upgraded = append(n.upgraded, userID)
	return n.err
}

func (n *recordingNotifier) SubscriptionExpired(ctx context.Context, userID string, expired billing.Subscription) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, userID)
	return n.err
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(context.Background(), catalog.NewInMemSource(catalog.DefaultPlans()))
	require.NoError(t, err)
	return cat
}

func TestManager_EnsureSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewStore(docstore.NewMemoryStore())
	mgr := billing.NewManager(newTestCatalog(t), store)

	sub, err := mgr.EnsureSubscription(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanFree, sub.PlanID)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Nil(t, sub.EndDate, "free subscriptions have no term")
	assert.Zero(t, sub.Price)

	// Idempotent: the second call returns the same row.
	again, err := mgr.EnsureSubscription(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
}

func TestManager_EnsureSubscription_ConcurrentFirstContact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	docs := docstore.NewMemoryStore()
	require.NoError(t, docs.EnsureUniqueIndex(ctx, billing.SubscriptionCollection,
		[]string{"user_id"}, map[string]any{"status": string(billing.StatusActive)}))
	store := billing.NewStore(docs)
	mgr := billing.NewManager(newTestCatalog(t), store)

	const callers = 8
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := mgr.EnsureSubscription(ctx, "new-user")
			errs[i] = err
			if err == nil {
				ids[i] = sub.ID
			}
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every caller must see the same row")
	}

	// The index, not luck, is what keeps this at one: the loser of the
	// create race gets a duplicate-key error and re-reads the winner.
	var active []billing.Subscription
	require.NoError(t, docs.Query(ctx, billing.SubscriptionCollection, []docstore.Filter{
		docstore.Where("user_id", docstore.OpEqual, "new-user"),
		docstore.Where("status", docstore.OpEqual, string(billing.StatusActive)),
	}, &active))
	assert.Len(t, active, 1)
}

func TestManager_Upgrade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := billing.NewStore(docstore.NewMemoryStore())
	mgr := billing.NewManager(newTestCatalog(t), store,
		billing.WithManagerClock(func() time.Time { return now }))

	free, err := mgr.EnsureSubscription(ctx, "user-1")
	require.NoError(t, err)

	sub, err := mgr.Upgrade(ctx, "user-1", catalog.PlanPro, billing.CycleMonthly, "psub_123")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanPro, sub.PlanID)
	assert.Equal(t, int64(499), sub.Price)
	assert.Equal(t, "psub_123", sub.ProviderSubID)
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, now.Add(30*24*time.Hour), *sub.EndDate)

	// The free row is history now, the pro row is the active one.
	active, err := store.GetActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, active.ID)
	assert.NotEqual(t, free.ID, active.ID)

	t.Run("annual term", func(t *testing.T) {
		annual, err := mgr.Upgrade(ctx, "user-1", catalog.PlanEnterprise, billing.CycleAnnual, "psub_456")
		require.NoError(t, err)
		require.NotNil(t, annual.EndDate)
		assert.Equal(t, now.Add(365*24*time.Hour), *annual.EndDate)
		assert.Equal(t, int64(2499), annual.Price, "price stays the monthly rate regardless of cycle")
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := mgr.Upgrade(ctx, "user-1", "platinum", billing.CycleMonthly, "")
		require.ErrorIs(t, err, billing.ErrPlanNotFound)
	})

	t.Run("invalid cycle", func(t *testing.T) {
		_, err := mgr.Upgrade(ctx, "user-1", catalog.PlanPro, "weekly", "")
		require.ErrorIs(t, err, billing.ErrInvalidBillingCycle)
	})

	t.Run("upgrade to free is a cancellation", func(t *testing.T) {
		sub, err := mgr.Upgrade(ctx, "user-1", catalog.PlanFree, billing.CycleMonthly, "")
		require.NoError(t, err)
		assert.Equal(t, catalog.PlanFree, sub.PlanID)
		assert.Nil(t, sub.EndDate)
	})
}

func TestManager_Cancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewStore(docstore.NewMemoryStore())
	mgr := billing.NewManager(newTestCatalog(t), store)

	_, err := mgr.Upgrade(ctx, "user-1", catalog.PlanPro, billing.CycleMonthly, "psub_1")
	require.NoError(t, err)

	sub, err := mgr.Cancel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanFree, sub.PlanID)
	assert.Nil(t, sub.EndDate)

	// Cancelling an already-free subscription changes nothing.
	again, err := mgr.Cancel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
}

func TestManager_ExpireSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := billing.NewStore(docstore.NewMemoryStore())
	notifier := &recordingNotifier{}
	mgr := billing.NewManager(newTestCatalog(t), store,
		billing.WithManagerClock(func() time.Time { return now }),
		billing.WithNotifier(notifier))

	_, err := mgr.Upgrade(ctx, "expiring-user", catalog.PlanPro, billing.CycleMonthly, "psub_1")
	require.NoError(t, err)
	_, err = mgr.Upgrade(ctx, "annual-user", catalog.PlanPro, billing.CycleAnnual, "psub_2")
	require.NoError(t, err)
	_, err = mgr.EnsureSubscription(ctx, "free-user")
	require.NoError(t, err)

	// 31 days later the monthly term is over, the annual one is not.
	now = now.Add(31 * 24 * time.Hour)

	expired, err := mgr.ExpireSweep(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "expiring-user", expired[0].UserID)
	assert.Equal(t, catalog.PlanPro, expired[0].PlanID)
	assert.Equal(t, []string{"expiring-user"}, notifier.expired)
	assert.ElementsMatch(t, []string{"expiring-user", "annual-user"}, notifier.upgraded)

	active, err := store.GetActive(ctx, "expiring-user")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanFree, active.PlanID)

	active, err = store.GetActive(ctx, "annual-user")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanPro, active.PlanID)

	// A second sweep finds nothing left to do.
	expired, err = mgr.ExpireSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestManager_ExpireSweep_NotifierFailureDoesNotBlock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := billing.NewStore(docstore.NewMemoryStore())
	notifier := &recordingNotifier{err: assert.AnError}
	mgr := billing.NewManager(newTestCatalog(t), store,
		billing.WithManagerClock(func() time.Time { return now }),
		billing.WithNotifier(notifier))

	_, err := mgr.Upgrade(ctx, "user-1", catalog.PlanPro, billing.CycleMonthly, "")
	require.NoError(t, err)

	now = now.Add(31 * 24 * time.Hour)

	expired, err := mgr.ExpireSweep(ctx)
	require.NoError(t, err)
	assert.Len(t, expired, 1)

	active, err := store.GetActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, catalog.PlanFree, active.PlanID, "downgrade happens even when the email fails")
}

func TestStore_ReplaceKeepsHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	docs := docstore.NewMemoryStore()
	store := billing.NewStore(docs)
	mgr := billing.NewManager(newTestCatalog(t), store)

	_, err := mgr.EnsureSubscription(ctx, "user-1")
	require.NoError(t, err)
	_, err = mgr.Upgrade(ctx, "user-1", catalog.PlanPro, billing.CycleMonthly, "")
	require.NoError(t, err)

	var all []billing.Subscription
	err = docs.Query(ctx, billing.SubscriptionCollection, []docstore.Filter{
		docstore.Where("user_id", docstore.OpEqual, "user-1"),
	}, &all)
	require.NoError(t, err)
	require.Len(t, all, 2, "cancelled rows stay as history")

	var cancelled int
	for _, sub := range all {
		if sub.Status == billing.StatusCancelled {
			cancelled++
			assert.NotNil(t, sub.CancelledAt)
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestStore_GetActiveNotFound(t *testing.T) {
	t.Parallel()

	store := billing.NewStore(docstore.NewMemoryStore())
	_, err := store.GetActive(context.Background(), "nobody")
	require.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}
