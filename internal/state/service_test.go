package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fitstate/internal/services"
)

func TestService_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)

	assert.Equal(t, "state", svc.Name())
	assert.Empty(t, svc.Dependencies())
	assert.Same(t, store, svc.Store())
	assert.Equal(t, services.HealthUnhealthy, svc.Health().Status)

	require.NoError(t, svc.Start(t.Context()))
	require.NoError(t, store.Set(t.Context(), MustPath("a"), 1))
	health := svc.Health()
	assert.Equal(t, services.HealthHealthy, health.Status)
	assert.Equal(t, "1 keys, 0 subscriptions", health.Message)

	require.NoError(t, svc.Stop(t.Context()))
	assert.Equal(t, "not started", svc.Health().Message)

	store.Dispose()
	assert.ErrorIs(t, svc.Start(t.Context()), ErrStoreDisposed)
	assert.Equal(t, "store disposed", svc.Health().Message)
}

func TestService_Orchestrated(t *testing.T) {
	store := newTestStore(t)
	orch := services.NewServiceOrchestrator()
	require.NoError(t, orch.RegisterService(NewService(store)))
	require.NoError(t, orch.StartAll(t.Context()))
	assert.Equal(t, services.StatusRunning, orch.ComponentStatuses()[ServiceName])
	require.NoError(t, orch.StopAll(t.Context()))
}
