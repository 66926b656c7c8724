package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Slot names. Each slot holds one serialized value and is rewritten whole on
// every mutation of the state it mirrors.
const (
	SlotProfile       = "profile"
	SlotChatLog       = "chat-log"
	SlotReportLog     = "report-log"
	SlotWeeklyTips    = "weekly-tips"
	SlotKnowledgeBase = "knowledge-base"
	SlotInsightsCache = "insights-cache"
	SlotPINCredential = "pin-credential"
)

// WelcomeMessageText seeds an otherwise empty chat log.
const WelcomeMessageText = "Welcome, Director. I am the AntiRisk Strategy Unit. " +
	"Our protocols are currently aligned with ISO 18788 and Nigerian private security regulations."

// SlotStore is a durable key-namespaced mapping from slot name to a
// serialized value, backed by SQLite.
type SlotStore struct {
	db *sql.DB
}

func NewSlotStore(dataSourceName string) (*SlotStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SlotStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SlotStore) Close() error {
	return s.db.Close()
}

func (s *SlotStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS slots (
        name TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the raw value of a slot and whether it was present.
func (s *SlotStore) Get(name string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM slots WHERE name = ?", name).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query slot %s: %w", name, err)
	}
	return value, true, nil
}

// Set writes a slot value, replacing any previous value whole.
func (s *SlotStore) Set(name, value string) error {
	stmt, err := s.db.Prepare("INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at")
	if err != nil {
		return fmt.Errorf("failed to prepare slot upsert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(name, value, time.Now()); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", name, err)
	}
	return nil
}

func (s *SlotStore) Remove(name string) error {
	if _, err := s.db.Exec("DELETE FROM slots WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", name, err)
	}
	return nil
}

// Clear wipes every slot. Used by the settings "wipe data" action.
func (s *SlotStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM slots"); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	return nil
}

// DefaultChatLog is the seed value of the chat-log slot.
func DefaultChatLog() []ChatMessage {
	return []ChatMessage{{
		ID:        "welcome",
		Role:      RoleModel,
		Text:      WelcomeMessageText,
		Timestamp: time.Now().UnixMilli(),
	}}
}

// DefaultProfile is the seed value of the profile slot.
func DefaultProfile() UserProfile {
	return UserProfile{Name: "Executive Director"}
}

// loadJSON decodes a slot into out. An absent or malformed slot leaves out
// untouched and reports false; startup must never fail on bad stored state.
func (s *SlotStore) loadJSON(name string, out any) (bool, error) {
	raw, ok, err := s.Get(name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("Warning: slot %s holds malformed JSON, treating as absent: %v", name, err)
		return false, nil
	}
	return true, nil
}

func (s *SlotStore) saveJSON(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", name, err)
	}
	return s.Set(name, string(raw))
}

func (s *SlotStore) LoadChatLog() ([]ChatMessage, error) {
	var msgs []ChatMessage
	ok, err := s.loadJSON(SlotChatLog, &msgs)
	if err != nil {
		return nil, err
	}
	if !ok || len(msgs) == 0 {
		return DefaultChatLog(), nil
	}
	return msgs, nil
}

func (s *SlotStore) SaveChatLog(msgs []ChatMessage) error {
	return s.saveJSON(SlotChatLog, msgs)
}

func (s *SlotStore) LoadReports() ([]StoredReport, error) {
	var reports []StoredReport
	if _, err := s.loadJSON(SlotReportLog, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *SlotStore) SaveReports(reports []StoredReport) error {
	return s.saveJSON(SlotReportLog, reports)
}

func (s *SlotStore) LoadTips() ([]WeeklyTip, error) {
	var tips []WeeklyTip
	if _, err := s.loadJSON(SlotWeeklyTips, &tips); err != nil {
		return nil, err
	}
	return tips, nil
}

func (s *SlotStore) SaveTips(tips []WeeklyTip) error {
	return s.saveJSON(SlotWeeklyTips, tips)
}

func (s *SlotStore) LoadKnowledgeBase() ([]KnowledgeDocument, error) {
	var docs []KnowledgeDocument
	if _, err := s.loadJSON(SlotKnowledgeBase, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *SlotStore) SaveKnowledgeBase(docs []KnowledgeDocument) error {
	return s.saveJSON(SlotKnowledgeBase, docs)
}

func (s *SlotStore) LoadProfile() (UserProfile, error) {
	profile := DefaultProfile()
	if _, err := s.loadJSON(SlotProfile, &profile); err != nil {
		return UserProfile{}, err
	}
	return profile, nil
}

func (s *SlotStore) SaveProfile(p UserProfile) error {
	return s.saveJSON(SlotProfile, p)
}

// Insights and the PIN credential are plain strings, not JSON.

func (s *SlotStore) LoadInsights() (string, error) {
	raw, _, err := s.Get(SlotInsightsCache)
	return raw, err
}

func (s *SlotStore) SaveInsights(insights string) error {
	return s.Set(SlotInsightsCache, insights)
}

func (s *SlotStore) LoadPINCredential() (string, error) {
	raw, _, err := s.Get(SlotPINCredential)
	return raw, err
}

func (s *SlotStore) SavePINCredential(hash string) error {
	return s.Set(SlotPINCredential, hash)
}
