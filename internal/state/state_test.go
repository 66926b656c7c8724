package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"antirisk.com/intelligence-unit/internal/store"
)

func newTestState(t *testing.T) (*AppState, *store.SlotStore) {
	t.Helper()
	slots, err := store.NewSlotStore(filepath.Join(t.TempDir(), "state_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { slots.Close() })

	st, err := Load(slots)
	require.NoError(t, err)
	return st, slots
}

func TestLoadSeedsWelcomeMessage(t *testing.T) {
	st, _ := newTestState(t)

	msgs := st.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].ID)
	assert.Equal(t, store.RoleModel, msgs[0].Role)
}

func TestModelMessageLifecycle(t *testing.T) {
	st, _ := newTestState(t)

	st.AppendUserMessage("what is our exposure at site 4?")
	placeholder, token := st.BeginModelMessage()
	assert.Empty(t, placeholder.Text)

	require.NoError(t, st.ApplyChunk(placeholder.ID, token, "Site 4 "))
	require.NoError(t, st.ApplyChunk(placeholder.ID, token, "Site 4 is exposed."))
	require.NoError(t, st.CompleteModelMessage(placeholder.ID, token, "Site 4 is exposed."))

	msgs := st.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Site 4 is exposed.", msgs[2].Text)

	// Token released on completion; late chunks are stale.
	assert.ErrorIs(t, st.ApplyChunk(placeholder.ID, token, "late"), ErrStaleGeneration)
	assert.Equal(t, "Site 4 is exposed.", st.Messages()[2].Text)
}

func TestApplyChunkRejectsWrongToken(t *testing.T) {
	st, _ := newTestState(t)

	placeholder, _ := st.BeginModelMessage()
	err := st.ApplyChunk(placeholder.ID, "not-the-token", "hijacked")
	assert.ErrorIs(t, err, ErrStaleGeneration)
	assert.Empty(t, st.Messages()[1].Text)
}

func TestClearChatInvalidatesInFlightStreams(t *testing.T) {
	st, _ := newTestState(t)

	st.AppendUserMessage("first question")
	placeholder, token := st.BeginModelMessage()

	st.ClearChat()

	msgs := st.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome", msgs[0].ID)

	// The detached stream keeps running but can no longer write.
	assert.ErrorIs(t, st.ApplyChunk(placeholder.ID, token, "ghost update"), ErrStaleGeneration)
	require.Len(t, st.Messages(), 1)
}

func TestFailModelMessageOverwritesPlaceholder(t *testing.T) {
	st, _ := newTestState(t)

	placeholder, token := st.BeginModelMessage()
	require.NoError(t, st.ApplyChunk(placeholder.ID, token, "partial"))
	require.NoError(t, st.FailModelMessage(placeholder.ID, token, "⚠️ Operational failure."))

	assert.Equal(t, "⚠️ Operational failure.", st.Messages()[1].Text)
}

func TestReleaseGenerationPreservesPartialText(t *testing.T) {
	st, _ := newTestState(t)

	placeholder, token := st.BeginModelMessage()
	require.NoError(t, st.ApplyChunk(placeholder.ID, token, "partial intelligence"))

	st.ReleaseGeneration(placeholder.ID, token)

	assert.Equal(t, "partial intelligence", st.Messages()[1].Text)
	assert.ErrorIs(t, st.ApplyChunk(placeholder.ID, token, "more"), ErrStaleGeneration)
}

func TestReleaseGenerationAfterFinalizeIsNoOp(t *testing.T) {
	st, _ := newTestState(t)

	placeholder, token := st.BeginModelMessage()
	require.NoError(t, st.CompleteModelMessage(placeholder.ID, token, "final text"))

	// The token was already dropped on completion; a trailing release must
	// not disturb the finished record.
	st.ReleaseGeneration(placeholder.ID, token)
	assert.Equal(t, "final text", st.Messages()[1].Text)

	next, nextToken := st.BeginModelMessage()
	require.NoError(t, st.ApplyChunk(next.ID, nextToken, "next turn"))
}

func TestStoredReportImmutableAfterCreation(t *testing.T) {
	st, _ := newTestState(t)

	report := st.AddReport("guard absent at gate 2", "CRITICAL: staffing gap")
	st.AddReport("cctv outage", "HIGH: blind spot")

	// Mutating the returned copy must not affect stored state.
	report.Content = "tampered"
	report.Analysis = "tampered"

	reports := st.Reports()
	require.Len(t, reports, 2)
	// Newest first.
	assert.Equal(t, "cctv outage", reports[0].Content)
	assert.Equal(t, "guard absent at gate 2", reports[1].Content)
	assert.Equal(t, "CRITICAL: staffing gap", reports[1].Analysis)
}

func TestTogglePinPersistsAcrossReload(t *testing.T) {
	st, slots := newTestState(t)

	st.AppendUserMessage("pin me")
	msgs := st.Messages()
	pinned, err := st.TogglePin(msgs[1].ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	reloaded, err := Load(slots)
	require.NoError(t, err)
	assert.True(t, reloaded.Messages()[1].IsPinned)

	pinned, err = st.TogglePin(msgs[1].ID)
	require.NoError(t, err)
	assert.False(t, pinned)
}

func TestWriteThroughReloadFidelity(t *testing.T) {
	st, slots := newTestState(t)

	st.AppendUserMessage("incident at the depot")
	st.AddReport("depot log", "analysis text")
	st.AddTip("Weekly Strategic Tip", "rotate supervisors", true)
	st.AddDocument("Site SOP", "always verify credentials")
	st.SetInsights("pattern: night-shift gaps")
	st.SetProfile(store.UserProfile{Name: "Director", Email: "d@arm.example"})

	reloaded, err := Load(slots)
	require.NoError(t, err)

	assert.Equal(t, st.Messages(), reloaded.Messages())
	assert.Equal(t, st.Reports(), reloaded.Reports())
	assert.Equal(t, st.Tips(), reloaded.Tips())
	assert.Equal(t, st.KnowledgeBase(), reloaded.KnowledgeBase())
	assert.Equal(t, "pattern: night-shift gaps", reloaded.Insights())
	assert.Equal(t, "Director", reloaded.Profile().Name)
}

func TestDeleteDocument(t *testing.T) {
	st, _ := newTestState(t)

	doc := st.AddDocument("SOP One", "content one")
	st.AddDocument("SOP Two", "content two")

	require.NoError(t, st.DeleteDocument(doc.ID))
	docs := st.KnowledgeBase()
	require.Len(t, docs, 1)
	assert.Equal(t, "SOP Two", docs[0].Title)

	assert.Error(t, st.DeleteDocument("no-such-doc"))
}

func TestWipeResetsEverything(t *testing.T) {
	st, slots := newTestState(t)

	st.AppendUserMessage("to be wiped")
	st.AddReport("r", "a")
	require.NoError(t, slots.SavePINCredential("hash"))

	require.NoError(t, st.Wipe())

	require.Len(t, st.Messages(), 1)
	assert.Empty(t, st.Reports())
	assert.Equal(t, "Executive Director", st.Profile().Name)

	pin, err := slots.LoadPINCredential()
	require.NoError(t, err)
	assert.Empty(t, pin)
}
