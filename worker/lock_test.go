package worker

import (
	"path/filepath"
	"testing"
	"time"

	"roadrescue-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// LockManagerTestSuite defines a test suite for LockManager
type LockManagerTestSuite struct {
	suite.Suite
	locks *LockManager
}

// SetupTest runs before each test
func (suite *LockManagerTestSuite) SetupTest() {
	lockPath := filepath.Join(suite.T().TempDir(), "setup.lock")
	suite.locks = NewLockManager(lockPath, 30*time.Minute, "test")
}

// TestAcquireFreshLock tests taking an uncontended lock
func (suite *LockManagerTestSuite) TestAcquireFreshLock() {
	info, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "worker-a", info.Owner)
	assert.Equal(suite.T(), "test", info.Environment)
	assert.True(suite.T(), info.ExpiresAt.After(time.Now()))
}

// TestAcquireExtendsOwnLock tests that re-acquiring extends the deadline
func (suite *LockManagerTestSuite) TestAcquireExtendsOwnLock() {
	first, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	second, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), first.AcquiredAt.Unix(), second.AcquiredAt.Unix())
	assert.False(suite.T(), second.ExpiresAt.Before(first.ExpiresAt))
}

// TestAcquireHeldByOther tests contention with a live lock
func (suite *LockManagerTestSuite) TestAcquireHeldByOther() {
	_, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	_, err = suite.locks.AcquireLock("worker-b")
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "worker-a")
}

// TestAcquireExpiredLock tests takeover after the holder's lease expired
func (suite *LockManagerTestSuite) TestAcquireExpiredLock() {
	expired := &models.LockInfo{
		ID:          "infra-lock-old",
		Owner:       "worker-a",
		AcquiredAt:  time.Now().Add(-time.Hour),
		ExpiresAt:   time.Now().Add(-time.Minute),
		Environment: "test",
	}
	require.NoError(suite.T(), suite.locks.writeLockFile(expired))

	info, err := suite.locks.AcquireLock("worker-b")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "worker-b", info.Owner)
}

// TestReleaseLock tests that the owner can release and reacquire
func (suite *LockManagerTestSuite) TestReleaseLock() {
	info, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.locks.ReleaseLock(info))

	fresh, err := suite.locks.AcquireLock("worker-b")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "worker-b", fresh.Owner)
}

// TestReleaseLockWrongOwner tests that a non-owner cannot release
func (suite *LockManagerTestSuite) TestReleaseLockWrongOwner() {
	_, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	err = suite.locks.ReleaseLock(&models.LockInfo{Owner: "worker-b"})
	assert.Error(suite.T(), err)
}

// TestReleaseLockMissingFile tests releasing when no lock file exists
func (suite *LockManagerTestSuite) TestReleaseLockMissingFile() {
	err := suite.locks.ReleaseLock(&models.LockInfo{Owner: "worker-a"})
	assert.NoError(suite.T(), err)
}

// TestCleanupExpiredLocks tests stale lock removal
func (suite *LockManagerTestSuite) TestCleanupExpiredLocks() {
	expired := &models.LockInfo{
		Owner:       "worker-a",
		ExpiresAt:   time.Now().Add(-time.Minute),
		Environment: "test",
	}
	require.NoError(suite.T(), suite.locks.writeLockFile(expired))

	require.NoError(suite.T(), suite.locks.CleanupExpiredLocks())

	_, err := suite.locks.readLockFile()
	assert.Error(suite.T(), err)
}

// TestCleanupKeepsLiveLock tests that cleanup leaves an unexpired lock alone
func (suite *LockManagerTestSuite) TestCleanupKeepsLiveLock() {
	info, err := suite.locks.AcquireLock("worker-a")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.locks.CleanupExpiredLocks())

	current, err := suite.locks.readLockFile()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), info.Owner, current.Owner)
}

func TestLockManagerTestSuite(t *testing.T) {
	suite.Run(t, new(LockManagerTestSuite))
}
