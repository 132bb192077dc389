package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clauseguard/clauseguard/pkg/catalog"
	"github.com/clauseguard/clauseguard/pkg/entitlement"
)

type analyzeRequest struct {
	Document     string `json:"document"`
	Instructions string `json:"instructions,omitempty"`
}

type queryRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type assistantResponse struct {
	Result string         `json:"result"`
	Usage  *usageResponse `json:"usage,omitempty"`
}

// handleAnalyzeDocument is the full metered flow: entitlement check first,
// model call second, usage recording last. A failed recording is logged and
// the result still returned; a failed model call records nothing.
func (a *api) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Document) == "" {
		a.respondError(w, r, http.StatusBadRequest, "document is required")
		return
	}

	prompt := "You are a legal document analyst. Summarize the key obligations, " +
		"deadlines and risks in the following document, in plain language."
	if req.Instructions != "" {
		prompt += " Additional instructions: " + req.Instructions
	}
	prompt += "\n\n" + req.Document

	a.runMetered(w, r, catalog.FeatureDocumentAnalysis, prompt)
}

func (a *api) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		a.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		a.respondError(w, r, http.StatusBadRequest, "question is required")
		return
	}

	prompt := "You are a legal assistant. Answer the question accurately and " +
		"concisely, noting when something depends on jurisdiction.\n\nQuestion: " + req.Question
	if req.Context != "" {
		prompt += "\n\nRelevant context:\n" + req.Context
	}

	a.runMetered(w, r, catalog.FeatureAIQuery, prompt)
}

func (a *api) runMetered(w http.ResponseWriter, r *http.Request, action catalog.Feature, prompt string) {
	ctx := r.Context()
	userID := UserID(ctx)

	decision, err := a.engine.CheckLimit(ctx, userID, action, 1)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !decision.Allowed {
		status := http.StatusTooManyRequests
		if decision.Reason == entitlement.ReasonFeatureUnavailable {
			status = http.StatusForbidden
		}
		a.respond(w, status, decision)
		return
	}

	result, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		// Nothing is recorded: the user got no value.
		a.fail(w, r, fmt.Errorf("generate %s: %w", action, err))
		return
	}

	resp := assistantResponse{Result: result}
	if usage, err := a.recorder.RecordUsage(ctx, userID, action, 1); err != nil {
		// The answer was already produced; losing one count beats failing
		// the request.
		a.log.ErrorContext(ctx, "failed to record usage",
			slog.String("user_id", userID),
			slog.String("action", string(action)),
			slog.Any("error", err))
	} else {
		view := usageView(usage)
		resp.Usage = &view
	}

	a.respond(w, http.StatusOK, resp)
}
