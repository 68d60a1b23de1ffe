package clinicsdk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionStoreReplaysLatestOnSubscribe(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()

	// Before any login the replayed value is nil.
	ch, cancel := store.Subscribe()
	require.Nil(t, <-ch)
	cancel()

	user := &User{UserID: 1, Role: RoleAdmin}
	store.Set(user)

	// A late subscriber immediately sees the current session.
	ch, cancel = store.Subscribe()
	defer cancel()
	require.Equal(t, user, <-ch)
}

func TestSessionStorePublishesChanges(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ch, cancel := store.Subscribe()
	defer cancel()
	require.Nil(t, <-ch)

	user := &User{UserID: 2, Role: RoleNurse}
	store.Set(user)
	require.Equal(t, user, <-ch)

	store.Set(nil)
	require.Nil(t, <-ch)
	require.Nil(t, store.Current())
}

func TestSessionStoreConflatesForSlowSubscribers(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ch, cancel := store.Subscribe()
	defer cancel()
	require.Nil(t, <-ch)

	// Two updates land before the subscriber reads; only the newest
	// survives.
	store.Set(&User{UserID: 1})
	latest := &User{UserID: 2}
	store.Set(latest)

	require.Equal(t, latest, <-ch)
	select {
	case stale := <-ch:
		t.Fatalf("unexpected stale value %+v", stale)
	default:
	}
}

func TestSessionStoreCancelClosesChannel(t *testing.T) {
	t.Parallel()

	store := NewSessionStore()
	ch, cancel := store.Subscribe()
	require.Nil(t, <-ch)

	cancel()
	_, open := <-ch
	require.False(t, open)

	// Cancel is idempotent and later sets must not reach the dead channel.
	cancel()
	store.Set(&User{UserID: 3})
}
