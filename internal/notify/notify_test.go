package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopNotifier(t *testing.T) {
	var n NoopNotifier
	assert.NoError(t, n.NotifyVaultUpdate("vault1", []byte("data")))
}

func TestBusNotifierDeliversToSubscribers(t *testing.T) {
	bus := NewBusNotifier()
	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)

	require.NoError(t, bus.NotifyVaultUpdate("vault1", []byte("payload")))

	for _, sub := range []<-chan VaultUpdate{sub1, sub2} {
		select {
		case update := <-sub:
			assert.Equal(t, "vault1", update.VaultName)
			assert.Equal(t, []byte("payload"), update.VaultData)
		default:
			t.Fatal("expected a buffered update")
		}
	}
}

func TestBusNotifierDropsWhenFull(t *testing.T) {
	bus := NewBusNotifier()
	sub := bus.Subscribe(1)

	require.NoError(t, bus.NotifyVaultUpdate("vault1", []byte("first")))
	require.NoError(t, bus.NotifyVaultUpdate("vault1", []byte("second")))

	update := <-sub
	assert.Equal(t, []byte("first"), update.VaultData)

	select {
	case <-sub:
		t.Fatal("second update should have been dropped")
	default:
	}
}
