package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/reconcile"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

const slot = "brandsData"

func TestStore_LoadNoData(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Absent slot", data: nil},
		{name: "Empty array", data: []byte("[]")},
		{name: "Blank value", data: []byte("  ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storage.NewMemoryStorage()
			if tt.data != nil {
				require.NoError(t, mem.Store(ctx, slot, tt.data))
			}

			store := NewStore(mem, slot)
			_, err := store.Load(ctx)
			assert.ErrorIs(t, err, ErrNoData)
			assert.Equal(t, StateNoData, store.State())

			_, err = store.View()
			assert.ErrorIs(t, err, ErrNoData)
		})
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Store(ctx, slot, []byte(`{"not":"a list"`)))

	store := NewStore(mem, slot)
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, StateError, store.State())

	_, err = mem.Retrieve(ctx, slot)
	assert.ErrorIs(t, err, storage.ErrNotFound, "corrupt slot must be cleared")

	require.NoError(t, store.Reset(ctx))
	assert.Equal(t, StateNoData, store.State())
}

func TestStore_LoadStorageError(t *testing.T) {
	ctx := context.Background()
	ms := &MockStorage{}
	ms.On("Retrieve", mock.Anything, slot).Return(nil, errors.New("network down"))

	store := NewStore(ms, slot)
	_, err := store.Load(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, StateNoData, store.State())
	ms.AssertExpectations(t)
}

func TestStore_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	store := NewStore(mem, slot)

	view, err := store.AppendAccount(ctx, models.Account{ID: "netflix", Username: "Netflix", TotalTweets: 10})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ModeSingle, view.Mode)
	assert.Equal(t, StateReady, store.State())

	backend := json.RawMessage(`{"brand":{"id":"disney","name":"Disney","total_tweets":4},"analytics":{}}`)
	view, err = store.Append(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ModeComparison, view.Mode)

	// Re-upload replaces the existing entry and moves it to the end
	view, err = store.AppendAccount(ctx, models.Account{ID: "netflix", Username: "Netflix", TotalTweets: 25})
	require.NoError(t, err)
	require.Len(t, view.Accounts, 2)
	assert.Equal(t, "disney", view.Accounts[0].ID)
	assert.Equal(t, 25, view.Accounts[1].TotalTweets)

	assert.Equal(t, []models.Brand{{ID: "disney", Name: "Disney"}, {ID: "netflix", Name: "Netflix"}}, store.Brands())

	reloaded := NewStore(mem, slot)
	view, err = reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Accounts, 2)
	assert.Equal(t, StateReady, reloaded.State())
}

func TestStore_AppendFull(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStorage(), slot)

	for i := 0; i < reconcile.MaxAccounts; i++ {
		_, err := store.AppendAccount(ctx, models.Account{ID: fmt.Sprintf("b%d", i)})
		require.NoError(t, err)
	}

	_, err := store.AppendAccount(ctx, models.Account{ID: "extra"})
	assert.ErrorIs(t, err, ErrSessionFull)

	// Replacing an existing account is still allowed
	_, err = store.AppendAccount(ctx, models.Account{ID: "b0", TotalTweets: 1})
	assert.NoError(t, err)
}

func TestStore_AppendInvalid(t *testing.T) {
	store := NewStore(storage.NewMemoryStorage(), slot)
	_, err := store.Append(context.Background(), json.RawMessage(`[1,2]`))
	assert.Error(t, err)
	assert.Equal(t, StateNoData, store.State())
}

func TestStore_AppendOverCorruptSlot(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Store(ctx, slot, []byte("garbage")))

	store := NewStore(mem, slot)
	view, err := store.AppendAccount(ctx, models.Account{ID: "a"})
	require.NoError(t, err)
	assert.Len(t, view.Accounts, 1)
}

func TestStore_AppendDropsMalformedItems(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Store(ctx, slot, []byte(`[{"id":"old","hashtags":"oops"},{"id":"keep"}]`)))

	store := NewStore(mem, slot)
	for i := 0; i < 2; i++ {
		view, err := store.AppendAccount(ctx, models.Account{ID: "new"})
		require.NoError(t, err)
		require.Len(t, view.Accounts, 2)
		assert.Equal(t, "keep", view.Accounts[0].ID)
		assert.Equal(t, "new", view.Accounts[1].ID)
	}
	assert.Equal(t, StateReady, store.State())

	data, err := mem.Retrieve(ctx, slot)
	require.NoError(t, err)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &items))
	assert.Len(t, items, 2)
	assert.NotContains(t, string(data), "oops")
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemoryStorage(), slot)

	require.NoError(t, store.Reset(ctx), "resetting an empty store is fine")

	_, err := store.AppendAccount(ctx, models.Account{ID: "a"})
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx))

	assert.Equal(t, StateNoData, store.State())
	assert.Empty(t, store.Brands())
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoData)
}
