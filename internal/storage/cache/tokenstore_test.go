package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-dispatch/internal/storage/cache"
	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// --- Mocks ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *MockCache) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockRealStore struct {
	mock.Mock
}

func (m *MockRealStore) Get(ctx context.Context, userID string) ([]notify.TokenRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notify.TokenRecord), args.Error(1)
}
func (m *MockRealStore) Put(ctx context.Context, userID string, record notify.TokenRecord) error {
	return m.Called(ctx, userID, record).Error(0)
}
func (m *MockRealStore) Delete(ctx context.Context, userID string, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

const cacheKey = "dispatch:tokens:u1"

func TestCachedStore_ReadPath(t *testing.T) {
	ctx := context.Background()

	t.Run("Cache hit skips the real store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		cached := []notify.TokenRecord{{Token: "t1", Platform: notify.PlatformFCM}}
		mockCache.On("Get", ctx, cacheKey, mock.Anything).Run(func(args mock.Arguments) {
			dest := args.Get(2).(*[]notify.TokenRecord)
			*dest = cached
		}).Return(true, nil)

		records, err := store.Get(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, cached, records)
		mockDB.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("Cache miss falls back and refills", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		fresh := []notify.TokenRecord{{Token: "t1"}}
		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(false, nil)
		mockDB.On("Get", ctx, "u1").Return(fresh, nil)
		mockCache.On("Set", ctx, cacheKey, fresh, time.Hour).Return(nil)

		records, err := store.Get(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, fresh, records)
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Cache error is treated as a miss", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(false, assert.AnError)
		mockDB.On("Get", ctx, "u1").Return([]notify.TokenRecord{}, nil)
		mockCache.On("Set", ctx, cacheKey, mock.Anything, mock.Anything).Return(nil)

		records, err := store.Get(ctx, "u1")

		require.NoError(t, err)
		assert.Empty(t, records)
		mockDB.AssertExpectations(t)
	})
}

func TestCachedStore_WritePathsInvalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Put invalidates the cached set", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		rec := notify.TokenRecord{Token: "t1"}
		mockDB.On("Put", ctx, "u1", rec).Return(nil)
		mockCache.On("Del", ctx, cacheKey).Return(nil)

		require.NoError(t, store.Put(ctx, "u1", rec))
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Delete invalidates the cached set immediately", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockDB.On("Delete", ctx, "u1", "t1").Return(nil)
		mockCache.On("Del", ctx, cacheKey).Return(nil)

		require.NoError(t, store.Delete(ctx, "u1", "t1"))
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Real store failure skips invalidation", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockDB.On("Put", ctx, "u1", mock.Anything).Return(assert.AnError)

		err := store.Put(ctx, "u1", notify.TokenRecord{Token: "t1"})

		require.Error(t, err)
		mockCache.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
	})
}
