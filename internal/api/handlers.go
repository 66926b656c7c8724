package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"antirisk.com/intelligence-unit/internal/auth"
	"antirisk.com/intelligence-unit/internal/core"
	"antirisk.com/intelligence-unit/internal/metrics"
	"antirisk.com/intelligence-unit/internal/state"
	"antirisk.com/intelligence-unit/internal/store"
)

// Fixed operator-facing failure strings, one per call site.
const (
	advisorFailureText  = "⚠️ Operational failure. Check secure connection."
	intelFailureText    = "⚠️ **SYSTEM ALERT**: Intelligence Hub failed to connect. Ensure your encrypted key is active and the operation domain is supported."
	trainingFailureText = "⚠️ Training synthesis failed. Check secure connection and redeploy."
	auditFailureText    = "⚠️ Audit failed. Check secure connection and resubmit the log."
	tipFailureText      = "⚠️ Tip synthesis failed. Check secure connection."
	insightsFailureText = "⚠️ Pattern detection failed. Check secure connection."
)

type APIHandler struct {
	state   *state.AppState
	gateway *core.Gateway
	gate    *auth.Gate
}

func NewAPIHandler(st *state.AppState, gw *core.Gateway, gate *auth.Gate) *APIHandler {
	return &APIHandler{state: st, gateway: gw, gate: gate}
}

// SessionAuthMiddleware admits requests carrying the token issued when the
// PIN gate reached READY.
func (h *APIHandler) SessionAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := auth.ValidateSessionToken(tokenString); err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Gate ---

func (h *APIHandler) GateStatusHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.gate.Status())
}

type GatePinRequest struct {
	PIN string `json:"pin"`
}

type GatePinResponse struct {
	auth.Status
	Token string `json:"token,omitempty"`
}

func (h *APIHandler) GatePinHandler(w http.ResponseWriter, r *http.Request) {
	var req GatePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.gate.SubmitPIN(req.PIN)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := GatePinResponse{Status: status}
	if status.State == auth.StateReady {
		token, err := auth.GenerateSessionToken()
		if err != nil {
			log.Printf("Error generating session token: %v", err)
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}
		resp.Token = token
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) GateResetHandler(w http.ResponseWriter, r *http.Request) {
	h.gate.ResetInput()
	json.NewEncoder(w).Encode(h.gate.Status())
}

// --- Advisor chat ---

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.state.Messages())
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

// PostMessageHandler runs one advisor turn, streaming the model reply over
// SSE while the chat log mirrors every update.
func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// History is snapshotted before the optimistic append: the current
	// message travels as the query, not as a replayed turn.
	history := h.state.Messages()
	knowledge := h.state.KnowledgeBase()
	h.state.AppendUserMessage(req.Content)
	placeholder, token := h.state.BeginModelMessage()

	metrics.GenerationRequests.WithLabelValues("advisor").Inc()

	// The generation outlives the request: a client disconnect must not
	// abort the session, whose record keeps filling in the chat log.
	genCtx := context.WithoutCancel(r.Context())
	stream := h.gateway.AdvisorStream(genCtx, history, knowledge, req.Content)
	sink := &chatSink{state: h.state, sse: sse, msgID: placeholder.ID, token: token}

	if _, err := core.RunStream(stream, sink, advisorFailureText); err != nil {
		// No-op when the sink already finalized the record; otherwise the
		// placeholder stops accepting writes from this session.
		h.state.ReleaseGeneration(placeholder.ID, token)
		h.finishStreamError(sse, "advisor", err)
	}
}

func (h *APIHandler) TogglePinHandler(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	pinned, err := h.state.TogglePin(messageID)
	if err != nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(map[string]bool{"isPinned": pinned})
}

func (h *APIHandler) ClearChatHandler(w http.ResponseWriter, r *http.Request) {
	h.state.ClearChat()
	w.WriteHeader(http.StatusNoContent)
}

// --- Intelligence hub (best practices) ---

type BestPracticesRequest struct {
	Topic string `json:"topic"`
}

type BestPracticesResponse struct {
	Text    string        `json:"text"`
	Sources []core.Source `json:"sources"`
}

func (h *APIHandler) BestPracticesHandler(w http.ResponseWriter, r *http.Request) {
	var req BestPracticesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		http.Error(w, "Topic cannot be empty", http.StatusBadRequest)
		return
	}

	metrics.GenerationRequests.WithLabelValues("best_practices").Inc()
	var sources []core.Source
	text, err := core.RunOnce(r.Context(), func(ctx context.Context) (string, error) {
		text, srcs, err := h.gateway.FetchBestPractices(ctx, req.Topic)
		sources = srcs
		return text, err
	})
	if err != nil {
		if h.writeQuotaOr(w, "best_practices", err) {
			return
		}
		// Generic failures surface inline with the fixed alert text.
		json.NewEncoder(w).Encode(BestPracticesResponse{Text: intelFailureText, Sources: []core.Source{}})
		return
	}
	if sources == nil {
		sources = []core.Source{}
	}
	json.NewEncoder(w).Encode(BestPracticesResponse{Text: text, Sources: sources})
}

// --- Training builder ---

type TrainingRequest struct {
	Role  string `json:"role"`
	Topic string `json:"topic"`
	Week  string `json:"week"`
}

// TrainingHandler streams a generated module over SSE. The result is
// transient; nothing persists.
func (h *APIHandler) TrainingHandler(w http.ResponseWriter, r *http.Request) {
	var req TrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		http.Error(w, "Topic cannot be empty", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = "Security Guard"
	}
	if req.Week == "" {
		req.Week = "Week 1"
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.GenerationRequests.WithLabelValues("training").Inc()
	stream := h.gateway.TrainingStream(r.Context(), req.Role, req.Topic, req.Week)
	sink := &transientSink{sse: sse}

	if _, err := core.RunStream(stream, sink, trainingFailureText); err != nil {
		h.finishStreamError(sse, "training", err)
	}
}

// --- Reports ---

func (h *APIHandler) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.state.Reports())
}

type AnalyzeReportRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) AnalyzeReportHandler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Report content cannot be empty", http.StatusBadRequest)
		return
	}

	metrics.GenerationRequests.WithLabelValues("report_analysis").Inc()
	analysis, err := core.RunOnce(r.Context(), func(ctx context.Context) (string, error) {
		return h.gateway.AnalyzeReport(ctx, req.Content)
	})
	if err != nil {
		if h.writeQuotaOr(w, "report_analysis", err) {
			return
		}
		http.Error(w, auditFailureText, http.StatusBadGateway)
		return
	}

	report := h.state.AddReport(req.Content, analysis)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(report)
}

// --- Weekly tips ---

func (h *APIHandler) ListTipsHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.state.Tips())
}

func (h *APIHandler) GenerateTipHandler(w http.ResponseWriter, r *http.Request) {
	metrics.GenerationRequests.WithLabelValues("weekly_tip").Inc()
	content, err := core.RunOnce(r.Context(), func(ctx context.Context) (string, error) {
		return h.gateway.GenerateWeeklyTip(ctx)
	})
	if err != nil {
		if h.writeQuotaOr(w, "weekly_tip", err) {
			return
		}
		http.Error(w, tipFailureText, http.StatusBadGateway)
		return
	}

	tip := h.state.AddTip("Weekly Strategic Tip", content, true)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tip)
}

// --- Operational insights ---

func (h *APIHandler) GetInsightsHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"insights": h.state.Insights()})
}

func (h *APIHandler) GenerateInsightsHandler(w http.ResponseWriter, r *http.Request) {
	reports := h.state.Reports()
	if len(reports) == 0 {
		http.Error(w, "No reports available for insight synthesis", http.StatusBadRequest)
		return
	}

	metrics.GenerationRequests.WithLabelValues("insights").Inc()
	insights, err := core.RunOnce(r.Context(), func(ctx context.Context) (string, error) {
		return h.gateway.GenerateInsights(ctx, reports)
	})
	if err != nil {
		if h.writeQuotaOr(w, "insights", err) {
			return
		}
		http.Error(w, insightsFailureText, http.StatusBadGateway)
		return
	}

	h.state.SetInsights(insights)
	json.NewEncoder(w).Encode(map[string]string{"insights": insights})
}

// --- Knowledge base ---

func (h *APIHandler) ListKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.state.KnowledgeBase())
}

type AddKnowledgeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *APIHandler) AddKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var req AddKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Content == "" {
		http.Error(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	doc := h.state.AddDocument(req.Title, req.Content)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

func (h *APIHandler) DeleteKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := h.state.DeleteDocument(docID); err != nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Toolkit, profile, wipe ---

func (h *APIHandler) ListTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(core.StaticTemplates())
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.state.Profile())
}

func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var profile store.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.state.SetProfile(profile)
	json.NewEncoder(w).Encode(profile)
}

func (h *APIHandler) WipeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.state.Wipe(); err != nil {
		log.Printf("Error wiping stored data: %v", err)
		http.Error(w, "Failed to wipe data", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeQuotaOr writes the modal-level quota response when err is
// quota-class, recording the failure either way. Reports whether it wrote.
func (h *APIHandler) writeQuotaOr(w http.ResponseWriter, operation string, err error) bool {
	if core.IsQuota(err) {
		metrics.GenerationFailures.WithLabelValues(operation, "quota").Inc()
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "quota_exceeded"})
		return true
	}
	metrics.GenerationFailures.WithLabelValues(operation, "generic").Inc()
	log.Printf("Generation failure in %s: %v", operation, err)
	return false
}

// finishStreamError emits the terminal SSE event for a failed streaming
// session. The sink has already written the generic failure text; quota
// failures and cancellation leave partial text in place.
func (h *APIHandler) finishStreamError(sse *sseWriter, operation string, err error) {
	if errors.Is(err, core.ErrSessionDetached) {
		sse.send("detached", map[string]string{})
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if core.IsQuota(err) {
		metrics.GenerationFailures.WithLabelValues(operation, "quota").Inc()
		sse.send("quota", map[string]string{})
		return
	}
	metrics.GenerationFailures.WithLabelValues(operation, "generic").Inc()
	log.Printf("Generation failure in %s: %v", operation, err)
}

// --- SSE plumbing ---

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by connection")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// chatSink mirrors a streaming advisor reply into the chat log and onto the
// SSE connection. A stale generation token detaches the session; a dead SSE
// connection only silences the mirror, the chat log keeps filling.
type chatSink struct {
	state      *state.AppState
	sse        *sseWriter
	msgID      string
	token      string
	clientGone bool
}

func (c *chatSink) emit(event string, payload map[string]string) {
	if c.clientGone {
		return
	}
	if err := c.sse.send(event, payload); err != nil {
		c.clientGone = true
	}
}

func (c *chatSink) Publish(full string, first bool) error {
	if err := c.state.ApplyChunk(c.msgID, c.token, full); err != nil {
		if errors.Is(err, state.ErrStaleGeneration) || errors.Is(err, state.ErrMessageNotFound) {
			return core.ErrSessionDetached
		}
		return err
	}
	metrics.StreamChunks.Inc()
	c.emit("chunk", map[string]string{"id": c.msgID, "text": full})
	return nil
}

func (c *chatSink) Complete(full string) error {
	if err := c.state.CompleteModelMessage(c.msgID, c.token, full); err != nil {
		if errors.Is(err, state.ErrStaleGeneration) || errors.Is(err, state.ErrMessageNotFound) {
			return core.ErrSessionDetached
		}
		return err
	}
	c.emit("done", map[string]string{"id": c.msgID, "text": full})
	return nil
}

func (c *chatSink) Fail(failText string) error {
	if err := c.state.FailModelMessage(c.msgID, c.token, failText); err != nil {
		if errors.Is(err, state.ErrStaleGeneration) || errors.Is(err, state.ErrMessageNotFound) {
			return core.ErrSessionDetached
		}
		return err
	}
	c.emit("failed", map[string]string{"id": c.msgID, "text": failText})
	return nil
}

// transientSink streams to the SSE connection only; nothing persists, so a
// dead connection detaches the session outright.
type transientSink struct {
	sse *sseWriter
}

func (t *transientSink) Publish(full string, first bool) error {
	metrics.StreamChunks.Inc()
	if err := t.sse.send("chunk", map[string]string{"text": full}); err != nil {
		return core.ErrSessionDetached
	}
	return nil
}

func (t *transientSink) Complete(full string) error {
	return t.sse.send("done", map[string]string{"text": full})
}

func (t *transientSink) Fail(failText string) error {
	return t.sse.send("failed", map[string]string{"text": failText})
}
