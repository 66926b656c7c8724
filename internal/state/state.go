package state

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"antirisk.com/intelligence-unit/internal/store"
)

var (
	// ErrStaleGeneration is returned when a chunk arrives for a record whose
	// generation token has been superseded (retrigger, clear); the stream
	// keeps draining but its updates are dropped.
	ErrStaleGeneration = errors.New("stale generation token")

	ErrMessageNotFound  = errors.New("message not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// AppState owns all in-memory collections. The slot store is a lagging
// write-through mirror: every mutation rewrites the owning slot before the
// method returns. A crash between mutation and write loses that delta, which
// is accepted as best-effort.
type AppState struct {
	mu    sync.Mutex
	slots *store.SlotStore

	messages  []store.ChatMessage
	reports   []store.StoredReport
	tips      []store.WeeklyTip
	knowledge []store.KnowledgeDocument
	insights  string
	profile   store.UserProfile

	// generation token per in-flight model message ID
	generations map[string]string
}

// Load reads every slot once and builds the state. Absent or malformed slots
// fall back to their documented defaults; only I/O failures abort startup.
func Load(slots *store.SlotStore) (*AppState, error) {
	s := &AppState{slots: slots, generations: make(map[string]string)}

	var err error
	if s.messages, err = slots.LoadChatLog(); err != nil {
		return nil, fmt.Errorf("failed to load chat log: %w", err)
	}
	if s.reports, err = slots.LoadReports(); err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}
	if s.tips, err = slots.LoadTips(); err != nil {
		return nil, fmt.Errorf("failed to load weekly tips: %w", err)
	}
	if s.knowledge, err = slots.LoadKnowledgeBase(); err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	if s.insights, err = slots.LoadInsights(); err != nil {
		return nil, fmt.Errorf("failed to load insights cache: %w", err)
	}
	if s.profile, err = slots.LoadProfile(); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return s, nil
}

// Messages returns a snapshot of the chat log in conversation order.
func (s *AppState) Messages() []store.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// AppendUserMessage optimistically appends the user's turn.
func (s *AppState) AppendUserMessage(text string) store.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	s.messages = append(s.messages, msg)
	s.persistChatLocked()
	return msg
}

// BeginModelMessage creates the empty placeholder for a model turn and
// returns it with the generation token that guards subsequent writes.
func (s *AppState) BeginModelMessage() (store.ChatMessage, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleModel,
		Text:      "",
		Timestamp: time.Now().UnixMilli(),
	}
	token := uuid.NewString()
	s.messages = append(s.messages, msg)
	s.generations[msg.ID] = token
	s.persistChatLocked()
	return msg, token
}

// ApplyChunk replaces the placeholder's text with the accumulator snapshot.
// The full text is always re-derived by the caller; this never appends.
func (s *AppState) ApplyChunk(msgID, token, fullText string) error {
	return s.setModelText(msgID, token, fullText, false)
}

// CompleteModelMessage writes the final text and releases the token. The
// record is immutable afterwards (pin toggling aside).
func (s *AppState) CompleteModelMessage(msgID, token, fullText string) error {
	return s.setModelText(msgID, token, fullText, true)
}

// FailModelMessage overwrites the placeholder with the operator-facing
// failure string. Not used for quota-class failures, which must preserve
// whatever partial text accumulated.
func (s *AppState) FailModelMessage(msgID, token, failText string) error {
	return s.setModelText(msgID, token, failText, true)
}

// ReleaseGeneration drops the token without touching the record text. Used
// when a quota-class failure ends a stream mid-flight.
func (s *AppState) ReleaseGeneration(msgID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[msgID] == token {
		delete(s.generations, msgID)
	}
}

func (s *AppState) setModelText(msgID, token, text string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[msgID] != token {
		return ErrStaleGeneration
	}
	for i := range s.messages {
		if s.messages[i].ID == msgID {
			s.messages[i].Text = text
			if final {
				delete(s.generations, msgID)
			}
			s.persistChatLocked()
			return nil
		}
	}
	delete(s.generations, msgID)
	return ErrMessageNotFound
}

// TogglePin flips a message's pinned flag and returns the new value.
func (s *AppState) TogglePin(msgID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == msgID {
			s.messages[i].IsPinned = !s.messages[i].IsPinned
			s.persistChatLocked()
			return s.messages[i].IsPinned, nil
		}
	}
	return false, ErrMessageNotFound
}

// ClearChat resets the log to its first message (the welcome entry) and
// invalidates every in-flight generation token, so stale streams detach.
func (s *AppState) ClearChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) > 1 {
		s.messages = s.messages[:1]
	}
	s.generations = make(map[string]string)
	s.persistChatLocked()
}

func (s *AppState) persistChatLocked() {
	if err := s.slots.SaveChatLog(s.messages); err != nil {
		log.Printf("Failed to persist chat log: %v", err)
	}
}

// AddReport stores a completed analysis atomically, newest-first. No partial
// report entries ever exist.
func (s *AppState) AddReport(content, analysis string) store.StoredReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	report := store.StoredReport{
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
		DateStr:   now.Format("02/01/2006"),
		Content:   content,
		Analysis:  analysis,
	}
	s.reports = append([]store.StoredReport{report}, s.reports...)
	if err := s.slots.SaveReports(s.reports); err != nil {
		log.Printf("Failed to persist reports: %v", err)
	}
	return report
}

func (s *AppState) Reports() []store.StoredReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.StoredReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// AddTip stores a completed weekly tip, newest-first.
func (s *AppState) AddTip(topic, content string, autoGenerated bool) store.WeeklyTip {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	tip := store.WeeklyTip{
		ID:              uuid.NewString(),
		WeekDate:        now.Format("02/01/2006"),
		Topic:           topic,
		Content:         content,
		IsAutoGenerated: autoGenerated,
		Timestamp:       now.UnixMilli(),
	}
	s.tips = append([]store.WeeklyTip{tip}, s.tips...)
	if err := s.slots.SaveTips(s.tips); err != nil {
		log.Printf("Failed to persist weekly tips: %v", err)
	}
	return tip
}

func (s *AppState) Tips() []store.WeeklyTip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.WeeklyTip, len(s.tips))
	copy(out, s.tips)
	return out
}

// AddDocument stores a user-authored knowledge document, newest-first.
func (s *AppState) AddDocument(title, content string) store.KnowledgeDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := store.KnowledgeDocument{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		DateAdded: time.Now().Format("02/01/2006"),
	}
	s.knowledge = append([]store.KnowledgeDocument{doc}, s.knowledge...)
	if err := s.slots.SaveKnowledgeBase(s.knowledge); err != nil {
		log.Printf("Failed to persist knowledge base: %v", err)
	}
	return doc
}

func (s *AppState) DeleteDocument(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.knowledge {
		if s.knowledge[i].ID == docID {
			s.knowledge = append(s.knowledge[:i], s.knowledge[i+1:]...)
			if err := s.slots.SaveKnowledgeBase(s.knowledge); err != nil {
				log.Printf("Failed to persist knowledge base: %v", err)
			}
			return nil
		}
	}
	return ErrDocumentNotFound
}

func (s *AppState) KnowledgeBase() []store.KnowledgeDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.KnowledgeDocument, len(s.knowledge))
	copy(out, s.knowledge)
	return out
}

// SetInsights overwrites the cached operational insights wholesale.
func (s *AppState) SetInsights(insights string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = insights
	if err := s.slots.SaveInsights(insights); err != nil {
		log.Printf("Failed to persist insights cache: %v", err)
	}
}

func (s *AppState) Insights() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insights
}

func (s *AppState) Profile() store.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *AppState) SetProfile(p store.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	if err := s.slots.SaveProfile(p); err != nil {
		log.Printf("Failed to persist profile: %v", err)
	}
}

// Wipe clears every durable slot and resets the in-memory state to its seed
// values, including the PIN credential.
func (s *AppState) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slots.Clear(); err != nil {
		return err
	}
	s.messages = store.DefaultChatLog()
	s.reports = nil
	s.tips = nil
	s.knowledge = nil
	s.insights = ""
	s.profile = store.DefaultProfile()
	s.generations = make(map[string]string)
	return nil
}
