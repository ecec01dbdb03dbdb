package fstesting

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLockTests executes the lock protocol tests.
func (suite *BackendTestSuite) RunLockTests(t *testing.T) {
	t.Run("TryLock_Basic", suite.testTryLockBasic)
	t.Run("Unlock_Unheld", suite.testUnlockUnheld)
	t.Run("TryLock_Concurrent", suite.testTryLockConcurrent)
	t.Run("TryLockWithTimeout_Fresh", suite.testTryLockWithTimeoutFresh)
	t.Run("TryLockWithTimeout_Stale", suite.testTryLockWithTimeoutStale)
	t.Run("BumpLockTimeout", suite.testBumpLockTimeout)
}

func (suite *BackendTestSuite) testTryLockBasic(t *testing.T) {
	f, _ := suite.newFS(t)

	res := f.TryLock("work.lock")
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "first claim wins")

	res = f.TryLock("work.lock")
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse(), "second claim observes contention")

	require.NoError(t, f.Unlock("work.lock"))

	res = f.TryLock("work.lock")
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "claimable again after release")
}

func (suite *BackendTestSuite) testUnlockUnheld(t *testing.T) {
	f, _ := suite.newFS(t)

	// Releasing a lock nobody holds is not an error.
	require.NoError(t, f.Unlock("never-held.lock"))
}

func (suite *BackendTestSuite) testTryLockConcurrent(t *testing.T) {
	f, _ := suite.newFS(t)

	const claimants = 8
	var winners atomic.Int64
	var wg sync.WaitGroup

	start := make(chan struct{})
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if f.TryLock("contested.lock").IsTrue() {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), winners.Load(), "exactly one claimant wins")
}

func (suite *BackendTestSuite) testTryLockWithTimeoutFresh(t *testing.T) {
	f, clock := suite.newFS(t)
	if clock == nil {
		t.Skip("backend does not observe a manual clock")
	}

	require.True(t, f.TryLock("fresh.lock").IsTrue())

	clock.AdvanceMillis(500)
	res := f.TryLockWithTimeout("fresh.lock", 1000, clock)
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse(), "a claim younger than the timeout holds")
}

func (suite *BackendTestSuite) testTryLockWithTimeoutStale(t *testing.T) {
	f, clock := suite.newFS(t)
	if clock == nil {
		t.Skip("backend does not observe a manual clock")
	}

	require.True(t, f.TryLock("stale.lock").IsTrue())

	clock.AdvanceMillis(5000)
	res := f.TryLockWithTimeout("stale.lock", 1000, clock)
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "an abandoned claim is taken over")

	// The takeover refreshed the claim; it now holds again.
	res = f.TryLockWithTimeout("stale.lock", 1000, clock)
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse())
}

func (suite *BackendTestSuite) testBumpLockTimeout(t *testing.T) {
	f, clock := suite.newFS(t)
	if clock == nil {
		t.Skip("backend does not observe a manual clock")
	}

	require.True(t, f.TryLock("bumped.lock").IsTrue())

	// Almost stale, then refreshed.
	clock.AdvanceMillis(900)
	require.NoError(t, f.BumpLockTimeout("bumped.lock"))

	clock.AdvanceMillis(900)
	res := f.TryLockWithTimeout("bumped.lock", 1000, clock)
	require.False(t, res.IsError())
	assert.True(t, res.IsFalse(), "the bump reset the claim's age")

	clock.AdvanceMillis(5000)
	res = f.TryLockWithTimeout("bumped.lock", 1000, clock)
	require.False(t, res.IsError())
	assert.True(t, res.IsTrue(), "without further bumps the claim goes stale")
}
