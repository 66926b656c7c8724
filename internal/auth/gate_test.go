package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antirisk.com/intelligence-unit/internal/store"
)

func newTestSlots(t *testing.T) *store.SlotStore {
	t.Helper()
	slots, err := store.NewSlotStore(filepath.Join(t.TempDir(), "gate_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { slots.Close() })
	return slots
}

func TestValidPIN(t *testing.T) {
	assert.True(t, ValidPIN("1234"))
	assert.True(t, ValidPIN("0000"))
	assert.False(t, ValidPIN("123"))
	assert.False(t, ValidPIN("12345"))
	assert.False(t, ValidPIN("12a4"))
	assert.False(t, ValidPIN(""))
}

func TestGateSetupMatchingEntriesStoreCredential(t *testing.T) {
	slots := newTestSlots(t)
	gate, err := NewGate(slots, 0, 0)
	require.NoError(t, err)
	require.Equal(t, StatePinSetup, gate.Status().State)

	status, err := gate.SubmitPIN("1234")
	require.NoError(t, err)
	assert.Equal(t, StatePinSetup, status.State)
	assert.Equal(t, 2, status.SetupStep)
	assert.Equal(t, 0, status.InputLen)

	status, err = gate.SubmitPIN("1234")
	require.NoError(t, err)
	assert.Equal(t, StateReady, status.State)
	assert.True(t, gate.Unlocked())

	hash, err := slots.LoadPINCredential()
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.True(t, CheckPIN("1234", hash))
	assert.False(t, CheckPIN("5678", hash))
}

func TestGateSetupMismatchResetsWithoutCredential(t *testing.T) {
	slots := newTestSlots(t)
	gate, err := NewGate(slots, 0, 0)
	require.NoError(t, err)

	_, err = gate.SubmitPIN("1234")
	require.NoError(t, err)
	status, err := gate.SubmitPIN("5678")
	require.NoError(t, err)

	assert.Equal(t, StatePinSetup, status.State)
	assert.Equal(t, 1, status.SetupStep)
	assert.True(t, status.PinError)
	assert.Equal(t, 0, status.InputLen)

	hash, err := slots.LoadPINCredential()
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestGateEntryExactMatchUnlocks(t *testing.T) {
	slots := newTestSlots(t)
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	require.NoError(t, slots.SavePINCredential(hash))

	gate, err := NewGate(slots, 0, 0)
	require.NoError(t, err)
	require.Equal(t, StatePinEntry, gate.Status().State)

	status, err := gate.SubmitPIN("4321")
	require.NoError(t, err)
	assert.Equal(t, StateReady, status.State)
}

func TestGateEntryMismatchFlagsErrorAndClearsInput(t *testing.T) {
	slots := newTestSlots(t)
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	require.NoError(t, slots.SavePINCredential(hash))

	gate, err := NewGate(slots, 0, 0)
	require.NoError(t, err)

	// Infinite retries: the gate stays in PIN_ENTRY however often it is fed
	// a wrong code.
	for i := 0; i < 3; i++ {
		status, err := gate.SubmitPIN("0000")
		require.NoError(t, err)
		assert.Equal(t, StatePinEntry, status.State)
		assert.True(t, status.PinError)
		assert.Equal(t, 0, status.InputLen)
	}

	status, err := gate.SubmitPIN("4321")
	require.NoError(t, err)
	assert.Equal(t, StateReady, status.State)
}

func TestGateRejectsMalformedPIN(t *testing.T) {
	slots := newTestSlots(t)
	gate, err := NewGate(slots, 0, 0)
	require.NoError(t, err)

	_, err = gate.SubmitPIN("12")
	assert.Error(t, err)
	_, err = gate.SubmitPIN("abcd")
	assert.Error(t, err)
}

func TestGateSplashIgnoresInput(t *testing.T) {
	slots := newTestSlots(t)
	gate, err := NewGate(slots, time.Hour, 0)
	require.NoError(t, err)

	require.Equal(t, StateSplash, gate.Status().State)
	_, err = gate.PressDigit('1')
	assert.Error(t, err)
}
