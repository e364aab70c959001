package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/capitalize-ai/ai-functions/internal/handler"
	"github.com/capitalize-ai/ai-functions/internal/llm"
	"github.com/capitalize-ai/ai-functions/internal/service"
	"github.com/capitalize-ai/ai-functions/pkg/logger"
)

const (
	primaryModel = "google/gemini-2.5-flash"
	actionsModel = "google/gemini-2.5-flash-lite"
)

// upstream answers per model; a non-2xx status is returned with body as-is.
type upstream struct {
	status  int
	content string
	body    string
}

type fakeGateway struct {
	t       *testing.T
	calls   int32
	mu      sync.Mutex
	byModel map[string]upstream
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&g.calls, 1)

	var req struct {
		Model string `json:"model"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	g.mu.Lock()
	up, ok := g.byModel[req.Model]
	g.mu.Unlock()
	if !ok {
		g.t.Errorf("unexpected model %q", req.Model)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if up.status != 0 && up.status != http.StatusOK {
		w.WriteHeader(up.status)
		io.WriteString(w, up.body)
		return
	}

	body, _ := json.Marshal(map[string]any{
		"id":    "chatcmpl-test",
		"model": req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": up.content},
			"finish_reason": "stop",
		}},
	})
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (g *fakeGateway) callCount() int {
	return int(atomic.LoadInt32(&g.calls))
}

func newTestServer(t *testing.T, apiKey string, byModel map[string]upstream) (*httptest.Server, *fakeGateway) {
	t.Helper()

	gw := &fakeGateway{t: t, byModel: byModel}
	gwSrv := httptest.NewServer(gw)
	t.Cleanup(gwSrv.Close)

	log := logger.NewNop()
	client := llm.NewGatewayClient(llm.GatewayConfig{
		BaseURL:     gwSrv.URL + "/v1",
		APIKey:      apiKey,
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
	}, log)

	opts := service.Options{
		Client:       client,
		Model:        primaryModel,
		ActionsModel: actionsModel,
		Logger:       log,
	}

	router := NewRouter(Options{
		Functions: handler.NewFunctionHandler(
			service.NewSupportService(opts),
			service.NewContentService(opts),
			service.NewChatService(opts),
		),
		Events: handler.NewEventsHandler(nil, 0, log),
		Health: handler.NewHealthHandler(client, nil),
		Logger: log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, gw
}

type endpoint struct {
	path  string
	valid string
	empty string
}

var endpoints = []endpoint{
	{"/functions/v1/analyze-support", `{"message":"Where is my order?"}`, `{"message":""}`},
	{"/functions/v1/generate-support-reply", `{"customerMessage":"Where is my order?"}`, `{"customerName":"Arjun"}`},
	{"/functions/v1/generate-content-script", `{"title":"Morning routine","type":"Reel","platform":"Instagram","time":"9 AM"}`, `{"title":"Morning routine"}`},
	{"/functions/v1/whatsapp-ai-chat", `{"message":"Hi, what's the price?"}`, `{"message":"   "}`},
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, http.Header, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("response is not JSON: %q", raw)
		}
	}
	return resp.StatusCode, resp.Header, out
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	if h.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing Access-Control-Allow-Origin, got %q", h.Get("Access-Control-Allow-Origin"))
	}
	if h.Get("Access-Control-Allow-Headers") != "authorization, x-client-info, apikey, content-type" {
		t.Errorf("unexpected Access-Control-Allow-Headers %q", h.Get("Access-Control-Allow-Headers"))
	}
}

func healthyModels() map[string]upstream {
	return map[string]upstream{
		primaryModel: {content: "```json\n" + `{"intent":"Order Tracking","sentiment":"neutral","sentimentScore":55,"priority":"medium","suggestedResponse":"Let me check.","suggestedActions":["Send tracking link","Confirm address"],"churnRisk":"low","summary":"Order status question."}` + "\n```"},
		actionsModel: {content: `["Send tracking link","Offer discount"]`},
	}
}

func TestPreflight(t *testing.T) {
	srv, gw := newTestServer(t, "key", healthyModels())

	for _, ep := range endpoints {
		t.Run(ep.path, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+ep.path, nil)
			req.Header.Set("Origin", "https://dashboard.example.com")
			req.Header.Set("Access-Control-Request-Method", "POST")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("OPTIONS: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
			if len(body) != 0 {
				t.Errorf("expected empty body, got %q", body)
			}
			assertCORS(t, resp.Header)
		})
	}

	if gw.callCount() != 0 {
		t.Errorf("preflight must not call the gateway, got %d calls", gw.callCount())
	}
}

func TestMissingRequiredFieldMakesNoCall(t *testing.T) {
	srv, gw := newTestServer(t, "key", healthyModels())

	for _, ep := range endpoints {
		t.Run(ep.path, func(t *testing.T) {
			status, header, body := post(t, srv, ep.path, ep.empty)
			if status != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", status)
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Errorf("expected error message, got %v", body)
			}
			assertCORS(t, header)
		})
	}

	if gw.callCount() != 0 {
		t.Errorf("expected no gateway calls, got %d", gw.callCount())
	}
}

func TestInvalidJSONBody(t *testing.T) {
	srv, gw := newTestServer(t, "key", healthyModels())

	status, _, body := post(t, srv, endpoints[0].path, `{"message": "unterminated`)
	if status != http.StatusBadRequest || body["error"] != "Invalid JSON body" {
		t.Errorf("unexpected response %d %v", status, body)
	}

	big := `{"message": ` + strings.Repeat(" ", handler.MaxBodyBytes) + `"x"}`
	req := httptest.NewRequest(http.MethodPost, endpoints[0].path, strings.NewReader(big))
	rec := httptest.NewRecorder()
	srv.Config.Handler.ServeHTTP(rec, req)

	var out map[string]string
	json.Unmarshal(rec.Body.Bytes(), &out)
	if rec.Code != http.StatusBadRequest || out["error"] != "Request body too large" {
		t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	if gw.callCount() != 0 {
		t.Errorf("expected no gateway calls, got %d", gw.callCount())
	}
}

func TestUpstreamStatusPassThrough(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."},
		{http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue."},
		{http.StatusInternalServerError, "AI Gateway error: 500"},
	}

	for _, tt := range tests {
		srv, _ := newTestServer(t, "key", map[string]upstream{
			primaryModel: {status: tt.status, body: `{"error":{"message":"secret upstream detail"}}`},
			actionsModel: {content: `["a"]`},
		})

		for _, ep := range endpoints {
			t.Run(http.StatusText(tt.status)+ep.path, func(t *testing.T) {
				status, header, body := post(t, srv, ep.path, ep.valid)
				if status != tt.status {
					t.Fatalf("expected %d, got %d", tt.status, status)
				}
				if body["error"] != tt.message {
					t.Errorf("expected error %q, got %v", tt.message, body["error"])
				}
				for _, key := range []string{"reply", "script", "response", "intent", "suggestedActions"} {
					if _, ok := body[key]; ok {
						t.Errorf("error body must not contain %q: %v", key, body)
					}
				}
				assertCORS(t, header)
			})
		}
	}
}

func TestMisconfiguredCredential(t *testing.T) {
	srv, gw := newTestServer(t, "", healthyModels())

	status, _, body := post(t, srv, endpoints[0].path, endpoints[0].valid)
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if body["error"] != "AI_GATEWAY_API_KEY is not configured" {
		t.Errorf("unexpected error %v", body["error"])
	}
	if gw.callCount() != 0 {
		t.Errorf("expected no gateway calls, got %d", gw.callCount())
	}
}

func TestAnalyzeSupport(t *testing.T) {
	srv, gw := newTestServer(t, "key", healthyModels())

	status, header, body := post(t, srv, endpoints[0].path, `{"message":"Where is my order?","customerContext":{"name":"Priya","lifetimeValue":15000}}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["intent"] != "Order Tracking" || body["sentimentScore"] != float64(55) {
		t.Errorf("unexpected body %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Error("success body must not contain error")
	}
	if header.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected Content-Type %q", header.Get("Content-Type"))
	}
	assertCORS(t, header)
	if gw.callCount() != 1 {
		t.Errorf("expected one call, got %d", gw.callCount())
	}
}

func TestAnalyzeSupportFallback(t *testing.T) {
	srv, _ := newTestServer(t, "key", map[string]upstream{
		primaryModel: {content: "The customer wants to know where their order is."},
	})

	status, _, body := post(t, srv, endpoints[0].path, endpoints[0].valid)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	want := map[string]any{
		"intent":         "General Inquiry",
		"sentiment":      "neutral",
		"sentimentScore": float64(50),
		"priority":       "medium",
		"churnRisk":      "low",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %v, want %v", k, body[k], v)
		}
	}
}

func TestSecondaryFailureKeepsPrimary(t *testing.T) {
	tests := []struct {
		name      string
		secondary upstream
	}{
		{"server error", upstream{status: http.StatusInternalServerError, body: "boom"}},
		{"rate limited", upstream{status: http.StatusTooManyRequests}},
		{"credits exhausted", upstream{status: http.StatusPaymentRequired}},
		{"not json", upstream{content: "Schedule a call"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, gw := newTestServer(t, "key", map[string]upstream{
				primaryModel: {content: "Thanks for reaching out!"},
				actionsModel: tt.secondary,
			})

			status, _, body := post(t, srv, endpoints[1].path, endpoints[1].valid)
			if status != http.StatusOK {
				t.Fatalf("reply: expected 200, got %d: %v", status, body)
			}
			if body["reply"] != "Thanks for reaching out!" {
				t.Errorf("unexpected reply %v", body["reply"])
			}
			assertActions(t, body, "Mark as resolved", "Send follow-up", "Escalate")

			status, _, body = post(t, srv, endpoints[3].path, endpoints[3].valid)
			if status != http.StatusOK {
				t.Fatalf("chat: expected 200, got %d: %v", status, body)
			}
			if body["response"] != "Thanks for reaching out!" {
				t.Errorf("unexpected response %v", body["response"])
			}
			assertActions(t, body, "Send Proposal", "Schedule Call", "Add Note")

			if gw.callCount() != 4 {
				t.Errorf("expected 4 gateway calls, got %d", gw.callCount())
			}
		})
	}
}

func assertActions(t *testing.T, body map[string]any, want ...string) {
	t.Helper()
	got, _ := body["suggestedActions"].([]any)
	if len(got) != len(want) {
		t.Fatalf("suggestedActions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestedActions[%d] = %v, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerateContentScript(t *testing.T) {
	srv, _ := newTestServer(t, "key", map[string]upstream{
		primaryModel: {content: "1. HOOK\nDid you know..."},
	})

	status, _, body := post(t, srv, endpoints[2].path, endpoints[2].valid)
	if status != http.StatusOK || body["script"] != "1. HOOK\nDid you know..." {
		t.Errorf("unexpected response %d %v", status, body)
	}
}

func TestEmptyUpstreamContent(t *testing.T) {
	srv, _ := newTestServer(t, "key", map[string]upstream{
		primaryModel: {content: ""},
	})

	status, _, body := post(t, srv, endpoints[3].path, endpoints[3].valid)
	if status != http.StatusInternalServerError || body["error"] != "No response from AI" {
		t.Errorf("unexpected response %d %v", status, body)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv, _ := newTestServer(t, "key", healthyModels())

	status, header, body := post(t, srv, "/functions/v1/does-not-exist", `{}`)
	if status != http.StatusNotFound || body["error"] == nil {
		t.Errorf("unexpected response %d %v", status, body)
	}
	assertCORS(t, header)

	resp, err := http.Get(srv.URL + endpoints[0].path)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	assertCORS(t, resp.Header)
}

func TestEventsDisabled(t *testing.T) {
	srv, _ := newTestServer(t, "key", healthyModels())

	resp, err := http.Get(srv.URL + "/functions/v1/events")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, "key", healthyModels())
	for path, want := range map[string]int{"/health": http.StatusOK, "/ready": http.StatusOK, "/metrics": http.StatusOK} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}

	unconfigured, _ := newTestServer(t, "", healthyModels())
	resp, err := http.Get(unconfigured.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without credential, got %d", resp.StatusCode)
	}
}

func TestStalledGatewayReturnsTimeoutError(t *testing.T) {
	release := make(chan struct{})
	gwSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(gwSrv.Close)
	t.Cleanup(func() { close(release) })

	log := logger.NewNop()
	client := llm.NewGatewayClient(llm.GatewayConfig{
		BaseURL:     gwSrv.URL + "/v1",
		APIKey:      "key",
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
	}, log)
	opts := service.Options{
		Client:       client,
		Model:        primaryModel,
		ActionsModel: actionsModel,
		Logger:       log,
		Timeout:      200 * time.Millisecond,
	}
	srv := httptest.NewServer(NewRouter(Options{
		Functions: handler.NewFunctionHandler(
			service.NewSupportService(opts),
			service.NewContentService(opts),
			service.NewChatService(opts),
		),
		Events: handler.NewEventsHandler(nil, 0, log),
		Health: handler.NewHealthHandler(client, nil),
		Logger: log,
	}))
	t.Cleanup(srv.Close)

	start := time.Now()
	status, header, body := post(t, srv, "/functions/v1/whatsapp-ai-chat", `{"message":"Hello?"}`)
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %v", status, body)
	}
	if body["error"] != "AI Gateway request timed out" {
		t.Errorf("unexpected error %v", body["error"])
	}
	assertCORS(t, header)
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("request ran for %v", elapsed)
	}
}
