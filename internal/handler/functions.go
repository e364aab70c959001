package handler

import (
	"context"
	"net/http"

	"github.com/capitalize-ai/ai-functions/internal/model"
)

// SupportService analyses support messages and drafts replies.
type SupportService interface {
	Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error)
	GenerateReply(ctx context.Context, req *model.ReplyRequest) (*model.ReplyResult, error)
}

// ContentService writes content scripts.
type ContentService interface {
	GenerateScript(ctx context.Context, req *model.ScriptRequest) (*model.ScriptResult, error)
}

// ChatService answers inbox conversations.
type ChatService interface {
	Respond(ctx context.Context, req *model.ChatRequest) (*model.ChatResult, error)
}

// FunctionHandler serves the four AI function endpoints.
type FunctionHandler struct {
	support SupportService
	content ContentService
	chat    ChatService
}

// NewFunctionHandler creates a new function handler.
func NewFunctionHandler(support SupportService, content ContentService, chat ChatService) *FunctionHandler {
	return &FunctionHandler{
		support: support,
		content: content,
		chat:    chat,
	}
}

// AnalyzeSupport handles POST /functions/v1/analyze-support
func (h *FunctionHandler) AnalyzeSupport(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	result, err := h.support.Analyze(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GenerateSupportReply handles POST /functions/v1/generate-support-reply
func (h *FunctionHandler) GenerateSupportReply(w http.ResponseWriter, r *http.Request) {
	var req model.ReplyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	result, err := h.support.GenerateReply(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GenerateContentScript handles POST /functions/v1/generate-content-script
func (h *FunctionHandler) GenerateContentScript(w http.ResponseWriter, r *http.Request) {
	var req model.ScriptRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	result, err := h.content.GenerateScript(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// WhatsAppChat handles POST /functions/v1/whatsapp-ai-chat
func (h *FunctionHandler) WhatsAppChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	result, err := h.chat.Respond(r.Context(), &req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// NotFound answers unknown paths with a JSON 404.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed answers unsupported methods with a JSON 405.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
