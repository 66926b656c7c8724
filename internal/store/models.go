package store

// Role values for chat messages.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type ChatMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // "user" or "model"
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
	IsPinned  bool   `json:"isPinned"`
}

type StoredReport struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	DateStr   string `json:"dateStr"`
	Content   string `json:"content"`  // original submitted text, immutable
	Analysis  string `json:"analysis"` // set once on completion
}

type WeeklyTip struct {
	ID              string `json:"id"`
	WeekDate        string `json:"weekDate"`
	Topic           string `json:"topic"`
	Content         string `json:"content"`
	IsAutoGenerated bool   `json:"isAutoGenerated"`
	Timestamp       int64  `json:"timestamp"`
}

type KnowledgeDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	DateAdded string `json:"dateAdded"`
}

type UserProfile struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

// Template is a static toolkit document served read-only.
type Template struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}
