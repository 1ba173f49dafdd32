package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agustinnra/turicanje-bot/internal/models"
	"github.com/Agustinnra/turicanje-bot/internal/search"
)

func makeResults(n int) []search.Result {
	out := make([]search.Result, n)
	for i := range out {
		out[i] = search.Result{
			Place: models.Place{ID: uint(i + 1), Name: fmt.Sprintf("Lugar %d", i+1)},
			Open:  true,
		}
	}
	return out
}

func TestGetOrCreateReusesLiveSession(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()

	first, created := store.GetOrCreate("5215550001", "es", now)
	require.True(t, created)
	assert.True(t, first.FirstTurn)
	assert.NotEmpty(t, first.DisplayName)

	second, created := store.GetOrCreate("5215550001", "es", now.Add(30*time.Second))
	assert.False(t, created)
	assert.Same(t, first, second)
}

func TestGetOrCreateExpiresIdleSession(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()

	first, _ := store.GetOrCreate("5215550001", "es", now)
	second, created := store.GetOrCreate("5215550001", "es", now.Add(3*time.Minute))
	assert.True(t, created)
	assert.NotSame(t, first, second)
}

func TestTouchReArmsFarewell(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()

	sess, _ := store.GetOrCreate("5215550001", "es", now)
	sess.GoodbyeSent = true
	sess.Touch(now.Add(time.Minute))
	assert.False(t, sess.GoodbyeSent)
}

func TestStartSearchFirstPage(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	page := sess.StartSearch("tacos", makeResults(10), false, 3, time.Now())

	require.Len(t, page, 3)
	assert.Equal(t, 3, sess.Search.Shown)
	assert.Equal(t, 10, sess.OptionCount())
}

func TestStartSearchFewerThanPage(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	page := sess.StartSearch("pozole", makeResults(2), false, 3, time.Now())

	require.Len(t, page, 2)
	assert.Equal(t, 2, sess.Search.Shown)
}

func TestPaginationIndexing(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	sess.StartSearch("tacos", makeResults(10), false, 3, time.Now())

	page, remaining, ok := sess.NextPage(3)
	require.True(t, ok)
	require.Len(t, page, 3)
	// Page 2 is items 4-6 of 10
	assert.Equal(t, uint(4), page[0].Place.ID)
	assert.Equal(t, uint(6), page[2].Place.ID)
	assert.Equal(t, 6, sess.Search.Shown)
	assert.Equal(t, 4, remaining)
	assert.Equal(t, 3, sess.PageOffset(len(page)))
}

func TestPaginationLastPartialPage(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	sess.StartSearch("tacos", makeResults(10), false, 3, time.Now())
	sess.Search.Shown = 9

	page, remaining, ok := sess.NextPage(3)
	require.True(t, ok)
	require.Len(t, page, 1)
	assert.Equal(t, uint(10), page[0].Place.ID)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 10, sess.Search.Shown)

	_, _, ok = sess.NextPage(3)
	assert.False(t, ok, "no further pages after exhaustion")
}

func TestNextPageWithoutSearch(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	_, _, ok := sess.NextPage(3)
	assert.False(t, ok)
}

func TestSelectUsesFullSet(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	sess.StartSearch("tacos", makeResults(10), false, 3, time.Now())

	// Only 3 displayed, but 7 must still resolve
	r, ok := sess.Select(7)
	require.True(t, ok)
	assert.Equal(t, uint(7), r.Place.ID)
}

func TestSelectOutOfRangeLeavesState(t *testing.T) {
	sess := newSession("5215550001", "es", time.Now())
	sess.StartSearch("tacos", makeResults(5), false, 3, time.Now())

	before := sess.Search.Shown
	_, ok := sess.Select(12)
	assert.False(t, ok)
	_, ok = sess.Select(0)
	assert.False(t, ok)
	assert.Equal(t, before, sess.Search.Shown)
	assert.Equal(t, 5, sess.OptionCount())
}

func TestSweepFiresFarewellOnce(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()
	store.GetOrCreate("5215550001", "es", now)

	idle := store.Sweep(now.Add(3 * time.Minute))
	require.Len(t, idle, 1)
	assert.True(t, idle[0].GoodbyeSent)

	again := store.Sweep(now.Add(4 * time.Minute))
	assert.Empty(t, again, "farewell must not fire twice for the same idle period")
}

func TestSweepReArmsAfterActivity(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()
	store.GetOrCreate("5215550001", "es", now)

	require.Len(t, store.Sweep(now.Add(3*time.Minute)), 1)

	// User writes again within the eviction horizon: goodbye re-arms
	sess, created := store.GetOrCreate("5215550001", "es", now.Add(25*time.Minute))
	require.True(t, created, "session past idle window starts fresh")
	_ = sess

	idle := store.Sweep(now.Add(28 * time.Minute))
	assert.Len(t, idle, 1)
}

func TestSweepEvictsLongDeadSessions(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()
	store.GetOrCreate("5215550001", "es", now)

	store.Sweep(now.Add(3 * time.Minute))
	assert.Equal(t, 1, store.Len())

	store.Sweep(now.Add(time.Hour))
	assert.Equal(t, 0, store.Len())
}

func TestSweepEmptyStore(t *testing.T) {
	store := NewStore(2 * time.Minute)
	assert.Empty(t, store.Sweep(time.Now()))
}

func TestSweepToleratesConcurrentWrites(t *testing.T) {
	store := NewStore(2 * time.Minute)
	now := time.Now()
	for i := 0; i < 50; i++ {
		store.GetOrCreate(fmt.Sprintf("52155500%02d", i), "es", now)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 50; i < 100; i++ {
			store.GetOrCreate(fmt.Sprintf("52155500%02d", i), "es", now.Add(4*time.Minute))
		}
	}()
	go func() {
		defer wg.Done()
		store.Sweep(now.Add(3 * time.Minute))
	}()
	wg.Wait()
}

func TestLockUserSerializes(t *testing.T) {
	store := NewStore(2 * time.Minute)
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.LockUser("5215550001")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}
