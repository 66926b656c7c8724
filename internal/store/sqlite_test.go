package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SlotStore {
	t.Helper()
	s, err := NewSlotStore(filepath.Join(t.TempDir(), "slots_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSlotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("alpha", "first"))
	require.NoError(t, s.Set("alpha", "second")) // overwrite whole

	v, ok, err := s.Get("alpha")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, s.Remove("alpha"))
	_, ok, err = s.Get("alpha")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearWipesAllSlots(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set(SlotProfile, "{}"))
	require.NoError(t, s.Set(SlotPINCredential, "hash"))

	require.NoError(t, s.Clear())

	_, ok, err := s.Get(SlotProfile)
	require.NoError(t, err)
	assert.False(t, ok)
	pin, err := s.LoadPINCredential()
	require.NoError(t, err)
	assert.Empty(t, pin)
}

func TestChatLogDefaultsToWelcomeSeed(t *testing.T) {
	s := newTestStore(t)

	msgs, err := s.LoadChatLog()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].ID)
	assert.Equal(t, RoleModel, msgs[0].Role)
	assert.Equal(t, WelcomeMessageText, msgs[0].Text)
}

func TestChatLogRoundTripFidelity(t *testing.T) {
	s := newTestStore(t)

	saved := []ChatMessage{{
		ID:        "msgA",
		Role:      RoleUser,
		Text:      "status report",
		Timestamp: 1700000000000,
		IsPinned:  true,
	}}
	require.NoError(t, s.SaveChatLog(saved))
	require.NoError(t, s.SaveReports(nil))

	msgs, err := s.LoadChatLog()
	require.NoError(t, err)
	assert.Equal(t, saved, msgs)

	reports, err := s.LoadReports()
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestMalformedSlotTreatedAsAbsent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Set(SlotReportLog, "{definitely not json"))
	reports, err := s.LoadReports()
	require.NoError(t, err, "malformed JSON must not fail startup")
	assert.Empty(t, reports)

	require.NoError(t, s.Set(SlotChatLog, "[broken"))
	msgs, err := s.LoadChatLog()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].ID)
}

func TestProfileDefault(t *testing.T) {
	s := newTestStore(t)

	profile, err := s.LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, "Executive Director", profile.Name)

	profile.Name = "Director of Operations"
	profile.Email = "ops@antirisk.example"
	require.NoError(t, s.SaveProfile(profile))

	reloaded, err := s.LoadProfile()
	require.NoError(t, err)
	assert.Equal(t, profile, reloaded)
}

func TestInsightsStoredAsPlainString(t *testing.T) {
	s := newTestStore(t)

	insights, err := s.LoadInsights()
	require.NoError(t, err)
	assert.Empty(t, insights)

	require.NoError(t, s.SaveInsights("recurring gate breaches at site 7"))
	insights, err = s.LoadInsights()
	require.NoError(t, err)
	assert.Equal(t, "recurring gate breaches at site 7", insights)
}
