package session

import (
	"context"
	"testing"
	"time"

	"github.com/avelar/confidant/resolver"
	"github.com/stretchr/testify/require"
)

func TestCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(time.Hour)
	require.NoError(t, err)

	id := &resolver.Identity{Email: "a@x.com", Secret: "hush", Federated: true}
	token, err := m.Create(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(time.Hour)
	require.NoError(t, err)

	id := &resolver.Identity{Email: "a@x.com"}
	first, err := m.Create(ctx, id)
	require.NoError(t, err)
	second, err := m.Create(ctx, id)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestResolveUnknownToken(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(time.Hour)
	require.NoError(t, err)

	_, err = m.Resolve(ctx, "no-such-token")
	require.ErrorAs(t, err, &NotFound{})
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(time.Hour)
	require.NoError(t, err)

	token, err := m.Create(ctx, &resolver.Identity{Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(ctx, token))

	_, err = m.Resolve(ctx, token)
	require.ErrorAs(t, err, &NotFound{})

	// invalidating twice is not an error
	require.NoError(t, m.Invalidate(ctx, token))
}

func TestAbsoluteExpiry(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(time.Hour)
	require.NoError(t, err)

	start := time.Now()
	m.now = func() time.Time { return start }
	token, err := m.Create(ctx, &resolver.Identity{Email: "a@x.com"})
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(59 * time.Minute) }
	_, err = m.Resolve(ctx, token)
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(time.Hour) }
	_, err = m.Resolve(ctx, token)
	require.ErrorAs(t, err, &NotFound{})
}

func TestUpdateKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(time.Hour)
	require.NoError(t, err)

	start := time.Now()
	m.now = func() time.Time { return start }
	token, err := m.Create(ctx, &resolver.Identity{Email: "a@x.com", Secret: "old"})
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(30 * time.Minute) }
	err = m.Update(ctx, token, &resolver.Identity{Email: "a@x.com", Secret: "new"})
	require.NoError(t, err)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "new", got.Secret)

	// the rewrite did not extend the original 1h lease
	m.now = func() time.Time { return start.Add(time.Hour) }
	_, err = m.Resolve(ctx, token)
	require.ErrorAs(t, err, &NotFound{})

	err = m.Update(ctx, "no-such-token", &resolver.Identity{Email: "a@x.com"})
	require.ErrorAs(t, err, &NotFound{})
}
