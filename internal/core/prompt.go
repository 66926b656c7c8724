package core

import (
	"fmt"
	"strings"
	"time"

	"antirisk.com/intelligence-unit/internal/store"
)

const (
	// historyWindow caps how many conversation turns are replayed into the
	// advisor prompt, oldest of the window first.
	historyWindow = 10

	// knowledgeCharLimit truncates each injected knowledge document.
	knowledgeCharLimit = 1000

	reportSeparator = "\n---\n"
)

// lagosLocation is the operation's fixed timezone. Falls back to a fixed
// WAT offset when tzdata is absent.
var lagosLocation = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		return time.FixedZone("WAT", 60*60)
	}
	return loc
}()

func advisorClock(now time.Time) string {
	return now.In(lagosLocation).Format("02/01/2006, 15:04:05")
}

// truncateRunes limits s to its first n characters without splitting one.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func speakerLabel(role string) string {
	if role == store.RoleUser {
		return "CEO"
	}
	return "AIU"
}

// BuildAdvisorPrompt assembles the advisor chat context: knowledge assets
// (each truncated), the current time, the last turns of conversation as
// "speaker: text" lines, and the query.
func BuildAdvisorPrompt(now time.Time, knowledge []store.KnowledgeDocument, history []store.ChatMessage, current string) string {
	kbContext := ""
	if len(knowledge) > 0 {
		lines := make([]string, 0, len(knowledge))
		for _, doc := range knowledge {
			lines = append(lines, fmt.Sprintf("[%s]: %s", doc.Title, truncateRunes(doc.Content, knowledgeCharLimit)))
		}
		kbContext = "KNOWLEDGE ASSETS:\n" + strings.Join(lines, "\n")
	}

	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	turns := make([]string, 0, len(window))
	for _, msg := range window {
		turns = append(turns, fmt.Sprintf("%s: %s", speakerLabel(msg.Role), msg.Text))
	}

	return fmt.Sprintf("TIME: %s\n%s\n\nHISTORY:\n%s\n\nQUERY: %s",
		advisorClock(now), kbContext, strings.Join(turns, "\n"), current)
}

// BuildTrainingPrompt interpolates role, topic and week verbatim; no history.
func BuildTrainingPrompt(role, topic, week string) string {
	return fmt.Sprintf("Translate standard procedures into a training module for Role: %s on Topic: %s. "+
		"This is for %s of the training cycle. Tailor the depth and complexity for this stage. "+
		"Focus on Nigerian site contexts.", role, topic, week)
}

// BuildBestPracticesPrompt wraps the free-text topic for the grounded search.
func BuildBestPracticesPrompt(topic string) string {
	return fmt.Sprintf("SEARCH AND ANALYZE: Provide 10 specific intelligence updates regarding: %s. "+
		"Focus on Nigerian private security regulation (NSCDC), licensing, and global best practices (ISO 18788/ASIS).", topic)
}

// BuildReportAuditPrompt wraps a single submitted report.
func BuildReportAuditPrompt(reportText string) string {
	return fmt.Sprintf("Audit this log using ISO 18788 and Nigerian security standards. "+
		"Identify critical risks and CEO action items:\n\n%s", reportText)
}

// BuildInsightsPrompt joins every historical report's original content.
func BuildInsightsPrompt(reports []store.StoredReport) string {
	contents := make([]string, 0, len(reports))
	for _, r := range reports {
		contents = append(contents, r.Content)
	}
	return fmt.Sprintf("Analyze these field logs for recurring failures, discipline issues, "+
		"or emerging site-specific threats:\n\n%s", strings.Join(contents, reportSeparator))
}
