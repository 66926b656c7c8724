package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"antirisk.com/intelligence-unit/internal/store"
)

const (
	advisorModelName = "gemini-3-pro-preview"
	utilityModelName = "gemini-3-flash-preview"

	advisorMaxOutputTokens = 4096
)

const advisorSystemInstruction = `You are the AntiRisk Intelligence Unit (AIU), the CEO's primary strategic partner. You operate in two distinct logical modes.

OPERATIONAL MODES:

1. MODE A: FLUID EXECUTIVE ASSISTANT (Default)
   - CONTEXT: General knowledge, administrative tasks, brainstorming, or non-security business queries.
   - BEHAVIOR: Act like ChatGPT/Gemini Pro. Be versatile, creative, and conversational.
   - TONE: Helpful, professional, and sophisticated.

2. MODE B: ELITE SECURITY ADVISOR (Triggered)
   - CONTEXT: Questions about AntiRisk Management (ARM) operations, personnel, threat intelligence, or legal/regulatory compliance (ISO 18788).
   - BEHAVIOR: Clinical, authoritative security specialist. Focus on liability and safety.
   - TONE: Direct, concise, and tactical. Zero conversational filler.
   - MANDATORY BRANDING: Start every advisory response with "> ### 🛡️ STRATEGIC SECURITY ADVISORY".

GENERAL RULES:
- Detect the context and switch modes automatically.
- Cite Knowledge Bank assets as [Asset Title].`

const intelligenceHubSystemInstruction = `You are a Compliance & Intelligence Assistant for CEOs of private security companies in Nigeria.

TASK:
Continuously fetch, verify, summarize, and categorize the latest 10 updates from verified sources.

VERIFIED SOURCES TO MONITOR:
1. Nigeria - Regulation & Policy:
   - NSCDC (https://nscdc.gov.ng)
   - Federal Ministry of Interior (https://interior.gov.ng)
   - National Assembly of Nigeria (https://www.nass.gov.ng)
2. Nigeria - Trusted News:
   - The Guardian Nigeria, Punch Nigeria, BusinessDay Nigeria.
3. Global Standards & Ethics:
   - ASIS International, ISO (18788), ICoCA.

RULES & PRIORITIES:
- Prioritize updates affecting licensing, NSCDC compliance, training, deployment rules, penalties, and sanctions.
- FLAG updates to ASIS/ISO/ICoCA as: "**STANDARDS ALERT**".
- TONE: Neutral, executive, compliance-focused. No filler.

OUTPUT FORMAT (Exactly 10 Updates):
### [Title]
- **Executive Summary**: 6–7 line CEO-focused actionable summary.
- **Date**: [Publication Date]
- **Source**: [Source Organization] | [URL]
- **Category**: Policy | Law | Regulation | Enforcement | Standard | Compliance | Industry News
- **Priority**: High | Medium | Low
- **Action Required**: Clear CEO action step or "Monitor only"
- **Push Notification**: (High Priority Only) [Draft notification text]

SORTING: Priority (High -> Low), then Newest -> Oldest.`

const trainerSystemInstruction = `You are the "Director of Tactical Training" for "AntiRisk Management". Translate ASIS/ISO standards into high-impact modules.

OUTPUT FORMAT:
1. **Title**: [Topic Name] 🛡️
2. **Target**: [Audience]
3. **The "Why"**: Operational Value.
4. **SOPs**: 5 steps.
5. **Red Flags**: Indicators.
6. **Scenario**: Vignette.
7. **Reminder**: Slogan.

End with: "*– AntiRisk Management*"`

const weeklyTipSystemInstruction = `You are the "Chief of Standards" for "AntiRisk Management". Synthesize weekly "Standard of Excellence" tips for a Nigerian security CEO.`

const (
	reportAuditSystemInstruction = "You are a Senior Compliance Auditor. Be clinical, authoritative, and focused on operational liability."
	insightsSystemInstruction    = "You are a Strategic Risk Analyst. Detect patterns for executive oversight."
	weeklyTipPrompt              = "Generate a strategic security tip for the CEO focusing on operational excellence and guard turnout in Nigeria."
)

// Gateway is the sole boundary to the generative service. Operations return
// either a chunk stream or a complete string; errors propagate unmodified to
// the session controller for classification, and no retry happens here.
type Gateway struct {
	client *genai.Client
}

func NewGateway(ctx context.Context, apiKey string) (*Gateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gateway{client: client}, nil
}

func genConfig(systemInstruction string, temperature float32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
	}
}

// AdvisorStream streams the advisor chat response for the current query.
func (g *Gateway) AdvisorStream(ctx context.Context, history []store.ChatMessage, knowledge []store.KnowledgeDocument, current string) *TextStream {
	cfg := genConfig(advisorSystemInstruction, 0.7)
	cfg.MaxOutputTokens = advisorMaxOutputTokens

	prompt := BuildAdvisorPrompt(time.Now(), knowledge, history, current)
	return g.streamContent(ctx, advisorModelName, cfg, prompt)
}

// TrainingStream streams a generated training module.
func (g *Gateway) TrainingStream(ctx context.Context, role, topic, week string) *TextStream {
	cfg := genConfig(trainerSystemInstruction, 0.5)
	return g.streamContent(ctx, utilityModelName, cfg, BuildTrainingPrompt(role, topic, week))
}

// FetchBestPractices runs the web-grounded intelligence search and returns
// the briefing text with its de-duplicated source list.
func (g *Gateway) FetchBestPractices(ctx context.Context, topic string) (string, []Source, error) {
	cfg := genConfig(intelligenceHubSystemInstruction, 0.1)
	cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}

	resp, err := g.client.Models.GenerateContent(ctx, advisorModelName, genai.Text(BuildBestPracticesPrompt(topic)), cfg)
	if err != nil {
		return "", nil, fmt.Errorf("intelligence search failed: %w", err)
	}

	text := flattenResponse(resp)
	if text == "" {
		text = "Intelligence retrieval returned no usable data."
	}
	return text, extractSources(resp), nil
}

// AnalyzeReport audits a single submitted field log.
func (g *Gateway) AnalyzeReport(ctx context.Context, reportText string) (string, error) {
	return g.generateText(ctx, utilityModelName,
		genConfig(reportAuditSystemInstruction, 0.1),
		BuildReportAuditPrompt(reportText), "Audit failed.")
}

// GenerateWeeklyTip synthesizes one strategic tip.
func (g *Gateway) GenerateWeeklyTip(ctx context.Context) (string, error) {
	return g.generateText(ctx, utilityModelName,
		genConfig(weeklyTipSystemInstruction, 0.7),
		weeklyTipPrompt, "Generation failed.")
}

// GenerateInsights synthesizes the operational-insights digest from the full
// report history.
func (g *Gateway) GenerateInsights(ctx context.Context, reports []store.StoredReport) (string, error) {
	return g.generateText(ctx, utilityModelName,
		genConfig(insightsSystemInstruction, 0.3),
		BuildInsightsPrompt(reports), "Pattern detection failed.")
}

func (g *Gateway) generateText(ctx context.Context, model string, cfg *genai.GenerateContentConfig, prompt, emptyFallback string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	text := flattenResponse(resp)
	if text == "" {
		return emptyFallback, nil
	}
	return text, nil
}

// streamContent runs a streaming generation on a producer goroutine, yielding
// each fragment over the returned TextStream.
func (g *Gateway) streamContent(ctx context.Context, model string, cfg *genai.GenerateContentConfig, prompt string) *TextStream {
	ts := newTextStream()
	go func() {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, genai.Text(prompt), cfg) {
			if err != nil {
				ts.close(fmt.Errorf("generation stream failed: %w", err))
				return
			}
			chunk := flattenResponse(resp)
			if chunk == "" {
				continue
			}
			select {
			case ts.ch <- chunk:
			case <-ctx.Done():
				ts.close(ctx.Err())
				return
			}
		}
		ts.close(nil)
	}()
	return ts
}

// flattenResponse concatenates the text parts of the first candidate.
func flattenResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
