package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/internal/deal"
	"amznerrors/dealbot/internal/matcher"
	"amznerrors/dealbot/internal/notify"
	"amznerrors/dealbot/internal/scraper"
	"amznerrors/dealbot/services/publisher"
	"amznerrors/dealbot/services/seen"
	"amznerrors/dealbot/services/store"
	"amznerrors/dealbot/services/worker"
)

// listingHTML mimics an Amazon.ca search result page with one steep
// markdown and one ordinary discount.
const listingHTML = `
<!DOCTYPE html>
<html>
<body>
    <div data-component-type="s-search-result">
        <h2><a href="/Widget-Deluxe/dp/B0WIDGET01/ref=sr_1_1"><span>Widget Deluxe</span></a></h2>
        <span class="a-price"><span class="a-price-whole">5<span class="a-price-decimal">.</span></span><span class="a-price-fraction">00</span></span>
        <span class="a-price a-text-price"><span class="a-offscreen">$100.00</span></span>
    </div>
    <div data-component-type="s-search-result">
        <h2><a href="/Gadget-Basic/dp/B0GADGET01/ref=sr_1_2"><span>Gadget Basic</span></a></h2>
        <span class="a-price"><span class="a-price-whole">50</span><span class="a-price-fraction">00</span></span>
        <span class="a-price a-text-price"><span class="a-offscreen">$55.00</span></span>
    </div>
</body>
</html>
`

func newListingServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, listingHTML)
	}))
}

// memorySeenStore implements seen.Store in memory for the parts of the
// pipeline that must run without Redis.
type memorySeenStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

// Ensure memorySeenStore implements seen.Store
var _ seen.Store = (*memorySeenStore)(nil)

func newMemorySeenStore() *memorySeenStore {
	return &memorySeenStore{keys: make(map[string]bool)}
}

func (m *memorySeenStore) Reserve(ctx context.Context, scope, link string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope + "|" + link
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memorySeenStore) Commit(ctx context.Context, scope, link string) error {
	return nil
}

func (m *memorySeenStore) Release(ctx context.Context, scope, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, scope+"|"+link)
	return nil
}

func (m *memorySeenStore) Close() error {
	return nil
}

// captureNotifier implements notify.Notifier and records every send.
type captureNotifier struct {
	mu      sync.Mutex
	channel []string
	users   map[int64][]string
}

// Ensure captureNotifier implements notify.Notifier
var _ notify.Notifier = (*captureNotifier)(nil)

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{users: make(map[int64][]string)}
}

func (c *captureNotifier) SendChannel(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel = append(c.channel, text)
	return nil
}

func (c *captureNotifier) SendUser(ctx context.Context, userID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[userID] = append(c.users[userID], text)
	return nil
}

func (c *captureNotifier) SendAdmin(ctx context.Context, text string) error {
	return nil
}

// TestPipelineEndToEnd drives fixture HTML through fetch, extraction,
// filtering, and matching without any external service.
func TestPipelineEndToEnd(t *testing.T) {
	server := newListingServer()
	defer server.Close()

	ctx := context.Background()

	cat := catalog.New(server.URL, "test-20")
	scr := scraper.New(scraper.Config{Catalog: cat, BlockTime: time.Second})
	agg := scraper.NewAggregator(scr, cat, 2)

	result, err := agg.AggregateAll(ctx, "electronics", 90)
	require.NoError(t, err)
	require.Empty(t, result.Failures)
	require.Len(t, result.Deals, 1, "only the 95%% markdown passes the floor")

	d := result.Deals[0]
	assert.Equal(t, "B0WIDGET01", d.ItemID)
	assert.Equal(t, "Widget Deluxe", d.Title)
	assert.Equal(t, 95, d.DiscountPercent)
	assert.Equal(t, server.URL+"/dp/B0WIDGET01?tag=test-20", d.Link)

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.UpsertSubscription(7, "electronics", 50))

	seenStore := newMemorySeenStore()
	m := matcher.New(st, seenStore, nil, 90)

	obs, err := m.Match(ctx, result.Deals)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, int64(0), obs[0].UserID)
	assert.Equal(t, int64(7), obs[1].UserID)

	// The same cycle's deals match nothing the second time around
	obs, err = m.Match(ctx, result.Deals)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

// TestCycleAgainstRedis runs a full worker cycle with the real seen
// store and feed publisher.
func TestCycleAgainstRedis(t *testing.T) {
	ctx := context.Background()

	redisAddr := "localhost:6379"
	client := redis.NewClient(&redis.Options{Addr: redisAddr, DB: 0})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping integration test")
	}

	server := newListingServer()
	defer server.Close()

	cat := catalog.New(server.URL, "test-20")
	scr := scraper.New(scraper.Config{Catalog: cat, BlockTime: time.Second})
	agg := scraper.NewAggregator(scr, cat, 2)

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()

	seenStore := seen.NewRedisStore(redisAddr, 0, time.Hour, time.Minute)
	defer seenStore.Close()

	const streamPrefix = "integ_deals"
	stream := streamPrefix + ":0"
	client.Del(ctx, stream)

	pub := publisher.NewRedisPublisher(ctx, redisAddr, 0, streamPrefix, 1, 10)
	defer pub.Close()

	notifier := newCaptureNotifier()
	w := worker.New(ctx, worker.Config{
		Aggregator:  agg,
		Matcher:     matcher.New(st, seenStore, nil, 90),
		Seen:        seenStore,
		Store:       st,
		Notifier:    notifier,
		Publisher:   pub,
		MinDiscount: 90,
		Interval:    time.Hour,
	})

	dealLink := server.URL + "/dp/B0WIDGET01?tag=test-20"
	t.Cleanup(func() {
		client.Del(ctx, "seen:channel:"+dealLink, stream)
	})

	stats, err := w.RunCycle(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deals)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 0, stats.FailedSends)

	require.Len(t, notifier.channel, 1)
	assert.Contains(t, notifier.channel[0], "Widget Deluxe")
	assert.Contains(t, notifier.channel[0], "95%")

	// The feed carries the base64-encoded JSON batch
	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	encoded, ok := entries[0].Values[publisher.FieldName].(string)
	require.True(t, ok, "stream entry must carry the %s field", publisher.FieldName)

	payload, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	var published []deal.Deal
	require.NoError(t, json.Unmarshal(payload, &published))
	require.Len(t, published, 1)
	assert.Equal(t, "B0WIDGET01", published[0].ItemID)
	assert.Equal(t, dealLink, published[0].Link)

	// A second cycle sees everything as already delivered
	stats, err = w.RunCycle(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deals)
	assert.Equal(t, 0, stats.Delivered)
}

// errorSeenStore fails every reservation, standing in for an
// unreachable Redis.
type errorSeenStore struct{}

var _ seen.Store = (*errorSeenStore)(nil)

func (errorSeenStore) Reserve(ctx context.Context, scope, link string) (bool, error) {
	return false, errors.New("connection refused")
}

func (errorSeenStore) Commit(ctx context.Context, scope, link string) error { return nil }
func (errorSeenStore) Release(ctx context.Context, scope, link string) error { return nil }
func (errorSeenStore) Close() error { return nil }

// TestPipelineFailsOpenWithoutSeenStore checks that a broken dedup
// store degrades to duplicate-tolerant delivery instead of silence.
func TestPipelineFailsOpenWithoutSeenStore(t *testing.T) {
	server := newListingServer()
	defer server.Close()

	ctx := context.Background()

	cat := catalog.New(server.URL, "test-20")
	scr := scraper.New(scraper.Config{Catalog: cat, BlockTime: time.Second})
	agg := scraper.NewAggregator(scr, cat, 2)

	result, err := agg.AggregateAll(ctx, "electronics", 90)
	require.NoError(t, err)

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer st.Close()

	m := matcher.New(st, errorSeenStore{}, nil, 90)

	obs, err := m.Match(ctx, result.Deals)
	require.NoError(t, err)
	assert.Len(t, obs, 1, "deals still flow when the seen store is down")
}
