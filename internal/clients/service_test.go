package clients

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
)

// countingStore records every storage call.
type countingStore struct {
	Store
	calls int
}

func (s *countingStore) MaxSequence(ctx context.Context, prefix string) (int, error) {
	s.calls++
	return 0, nil
}

func (s *countingStore) Insert(ctx context.Context, c *database.Client) error {
	s.calls++
	return nil
}

// staleStore reports a fixed maximum, simulating a read that raced another
// insert.
type staleStore struct {
	Store
	max int
}

func (s *staleStore) MaxSequence(ctx context.Context, prefix string) (int, error) {
	return s.max, nil
}

func newService(t *testing.T) (*Service, Store) {
	t.Helper()
	store := NewStore(database.OpenTest(t))
	return NewService(store, cache.NewCache(100, time.Minute), logger.Nop()), store
}

func seedClients(t *testing.T, store Store, prefix string, n int) {
	t.Helper()
	owner := "seed-" + prefix
	for i := 1; i <= n; i++ {
		email := fmt.Sprintf("c%d@x.com", i)
		require.NoError(t, store.Insert(context.Background(), &database.Client{
			Name:               fmt.Sprintf("Client %d", i),
			Email:              &email,
			Status:             database.ClientStatusActive,
			OrganizationPrefix: prefix,
			SequentialNumber:   i,
			ClientNumber:       fmt.Sprintf("%s/%03d", prefix, i),
			CreatedBy:          &owner,
		}))
	}
}

func TestCreateAllocatesNextNumber(t *testing.T) {
	svc, store := newService(t)
	seedClients(t, store, "ABC", 4)

	c, err := svc.Create(context.Background(), "user-1", "ABC", Input{Name: "Jane Doe", Email: "jane@x.com"})
	require.NoError(t, err)

	assert.Equal(t, "ABC/005", c.ClientNumber)
	assert.Equal(t, 5, c.SequentialNumber)
	assert.Equal(t, "ABC", c.OrganizationPrefix)
	assert.Equal(t, database.ClientStatusActive, c.Status)
	require.NotNil(t, c.CreatedBy)
	assert.Equal(t, "user-1", *c.CreatedBy)
	assert.Nil(t, c.Phone)
}

func TestCreateFirstClientUnderPrefix(t *testing.T) {
	svc, store := newService(t)
	seedClients(t, store, "XYZ", 7)

	c, err := svc.Create(context.Background(), "user-1", " abc ", Input{Name: "Acme", Phone: "555-0100"})
	require.NoError(t, err)
	assert.Equal(t, "ABC/001", c.ClientNumber)
}

func TestCreateValidatesBeforeStore(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		input  Input
		field  string
		err    error
	}{
		{name: "missing name", prefix: "ABC", input: Input{Email: "a@b.co"}, field: "name"},
		{name: "no contact", prefix: "ABC", input: Input{Name: "Jane"}, field: "contact"},
		{name: "bad email", prefix: "ABC", input: Input{Name: "Jane", Email: "jane"}, field: "email"},
		{name: "bad status", prefix: "ABC", input: Input{Name: "Jane", Phone: "1", Status: "gone"}, field: "status"},
		{name: "prefix unset", prefix: "  ", input: Input{Name: "Jane", Phone: "1"}, err: ErrPrefixNotSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{}
			svc := NewService(store, nil, logger.Nop())

			_, err := svc.Create(context.Background(), "user-1", tt.prefix, tt.input)
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				var v validation.Violations
				require.ErrorAs(t, err, &v)
				assert.Contains(t, v, tt.field)
			}
			assert.Zero(t, store.calls)
		})
	}
}

func TestCreateReportsNumberConflict(t *testing.T) {
	svc, store := newService(t)
	seedClients(t, store, "ABC", 2)

	svc.store = &staleStore{Store: store, max: 1}
	_, err := svc.Create(context.Background(), "user-1", "ABC", Input{Name: "Late", Email: "late@x.com"})
	assert.ErrorIs(t, err, ErrNumberConflict)
}

func TestNextNumber(t *testing.T) {
	svc, store := newService(t)

	n, err := svc.NextNumber(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC/001", n)

	seedClients(t, store, "ABC", 3)
	n, err = svc.NextNumber(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "ABC/004", n)

	_, err = svc.NextNumber(context.Background(), "")
	assert.ErrorIs(t, err, ErrPrefixNotSet)
}

func TestListSearchUpdateDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	jane, err := svc.Create(ctx, "u", "ABC", Input{Name: "Jane Doe", Email: "jane@x.com", Company: "Doe LLC"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u", "ABC", Input{Name: "Adam Smith", Phone: "555"})
	require.NoError(t, err)

	all, err := svc.List(ctx, "u", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Adam Smith", all[0].Name)

	found, err := svc.List(ctx, "u", "doe llc")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, jane.ID, found[0].ID)

	updated, err := svc.Update(ctx, "u", jane.ID, Input{Name: "Jane Roe", Email: "jane@x.com", Status: database.ClientStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", updated.Name)
	assert.Equal(t, "ABC/001", updated.ClientNumber)
	assert.Equal(t, database.ClientStatusInactive, updated.Status)

	require.NoError(t, svc.Delete(ctx, "u", jane.ID))
	_, err = svc.Get(ctx, "u", jane.ID)
	assert.True(t, database.IsNotFound(err))
	assert.True(t, database.IsNotFound(svc.Delete(ctx, "u", jane.ID)))
}

func TestClientsAreScopedToOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	secret, err := svc.Create(ctx, "firm-a", "AAA", Input{Name: "Secret Client", Email: "s@x.com"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "firm-b", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, "firm-b", secret.ID)
	assert.True(t, database.IsNotFound(err))
	_, err = svc.Update(ctx, "firm-b", secret.ID, Input{Name: "Taken", Email: "t@x.com"})
	assert.True(t, database.IsNotFound(err))
	assert.True(t, database.IsNotFound(svc.Delete(ctx, "firm-b", secret.ID)))

	got, err := svc.Get(ctx, "firm-a", secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret Client", got.Name)
}
