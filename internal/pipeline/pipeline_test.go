package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/jmallek/copycheck/internal/llm"
	"github.com/jmallek/copycheck/internal/model"
)

const shopPage = `<html><body><main>
<p>Standard shipping: 2 business days.</p>
<p>Sale price today: $49.99 with free returns.</p>
</main></body></html>`

func testConfig(modelURL string) *model.Config {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.RespectRobots = false
	cfg.HTTP.RequestsPerSecond = 1000
	cfg.Pipeline.Budget = 5 * time.Second
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.BaseURL = modelURL
	cfg.LLM.Timeout = 5
	cfg.LLM.Tone = false
	return cfg
}

func newTestPipeline(t *testing.T, cfg *model.Config) *Pipeline {
	t.Helper()
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return New(cfg, provider)
}

func modelServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func siteServer(page string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, page)
	}))
}

func TestVerify_AllSupported(t *testing.T) {
	site := siteServer(shopPage)
	defer site.Close()

	llmSrv := modelServer(t, completionHandler(`{"verdicts": [
		{"claim": 1, "status": "SUPPORTED", "confidence": 0.95, "evidence": "Standard shipping: 2 business days."},
		{"claim": 2, "status": "SUPPORTED", "confidence": 0.98, "evidence": "Sale price today: $49.99 with free returns."}
	]}`))
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days, $49.99",
		URLs:   []string{site.URL},
	})

	if report.Failed {
		t.Fatalf("Unexpected failure: %s (%s)", report.FailureReason, report.FailureStage)
	}
	if len(report.Verdicts) != 2 {
		t.Fatalf("Expected 2 verdicts, got %d", len(report.Verdicts))
	}
	if report.Score != 1.0 {
		t.Errorf("Expected score 1.0, got %v", report.Score)
	}
	if report.Verdict != model.VerdictPass {
		t.Errorf("Expected PASS, got %s", report.Verdict)
	}
}

func TestVerify_ContradictionFails(t *testing.T) {
	site := siteServer(`<html><body><main><p>Ships in 5-7 business days.</p></main></body></html>`)
	defer site.Close()

	llmSrv := modelServer(t, completionHandler(`{"verdicts": [
		{"claim": 1, "status": "CONTRADICTED", "confidence": 0.9, "evidence": "Ships in 5-7 business days."}
	]}`))
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days",
		URLs:   []string{site.URL},
	})

	if report.Failed {
		t.Fatalf("Unexpected failure: %s", report.FailureReason)
	}
	if report.Verdict != model.VerdictFail {
		t.Errorf("Expected FAIL for confident contradiction, got %s", report.Verdict)
	}
}

func TestVerify_AllFetchesFail(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer site.Close()

	llmCalled := atomic.Bool{}
	llmSrv := modelServer(t, func(w http.ResponseWriter, r *http.Request) {
		llmCalled.Store(true)
		completionHandler(`{"verdicts": []}`)(w, r)
	})
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days",
		URLs:   []string{site.URL + "/a", site.URL + "/b"},
	})

	if !report.Failed {
		t.Fatal("Expected FAILED report when no page fetches succeed")
	}
	if report.FailureStage != string(StageFetching) {
		t.Errorf("Expected failure at FETCHING, got %s", report.FailureStage)
	}
	if len(report.PageFailures) != 2 {
		t.Errorf("Expected 2 page failure diagnostics, got %d", len(report.PageFailures))
	}
	if report.Score != 0 {
		t.Errorf("No partial score may be emitted, got %v", report.Score)
	}
	if llmCalled.Load() {
		t.Error("Model must not be called without evidence")
	}
}

func TestVerify_PartialFetchProceeds(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, shopPage)
	}))
	defer site.Close()

	llmSrv := modelServer(t, completionHandler(`{"verdicts": [
		{"claim": 1, "status": "SUPPORTED", "confidence": 0.95, "evidence": ""},
		{"claim": 2, "status": "SUPPORTED", "confidence": 0.95, "evidence": ""}
	]}`))
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days, $49.99",
		URLs:   []string{site.URL + "/ok", site.URL + "/gone"},
	})

	if report.Failed {
		t.Fatalf("Partial fetch failure must not abort: %s", report.FailureReason)
	}
	if len(report.PageFailures) != 1 {
		t.Errorf("Expected 1 page failure diagnostic, got %d", len(report.PageFailures))
	}
	if report.Verdict != model.VerdictPass {
		t.Errorf("Expected PASS on partial evidence, got %s", report.Verdict)
	}
}

func TestVerify_VacuousPass(t *testing.T) {
	site := siteServer(shopPage)
	defer site.Close()

	llmCalled := atomic.Bool{}
	llmSrv := modelServer(t, func(w http.ResponseWriter, r *http.Request) {
		llmCalled.Store(true)
		completionHandler(`{"verdicts": []}`)(w, r)
	})
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "The future of comfort.",
		URLs:   []string{site.URL},
	})

	if report.Failed {
		t.Fatalf("Unexpected failure: %s", report.FailureReason)
	}
	if report.Score != 1.0 || report.Verdict != model.VerdictPass {
		t.Errorf("Expected vacuous PASS with score 1.0, got %s %v", report.Verdict, report.Score)
	}
	if len(report.Verdicts) != 0 {
		t.Errorf("Expected no verdicts, got %d", len(report.Verdicts))
	}
	if llmCalled.Load() {
		t.Error("Model must not be called for claim-free copy")
	}
}

func TestVerify_ModelTimeout(t *testing.T) {
	site := siteServer(shopPage)
	defer site.Close()

	release := make(chan struct{})
	llmSrv := modelServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer llmSrv.Close()
	defer close(release)

	cfg := testConfig(llmSrv.URL)
	cfg.Pipeline.Budget = 500 * time.Millisecond

	p := newTestPipeline(t, cfg)

	start := time.Now()
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days",
		URLs:   []string{site.URL},
	})
	elapsed := time.Since(start)

	if !report.Failed {
		t.Fatal("Expected FAILED report on model timeout")
	}
	if report.FailureStage != string(StageQuerying) {
		t.Errorf("Expected failure at QUERYING, got %s", report.FailureStage)
	}
	if !strings.Contains(report.FailureReason, string(model.ModelTimeout)) {
		t.Errorf("Expected TIMEOUT in reason, got %q", report.FailureReason)
	}
	if elapsed > cfg.Pipeline.Budget+time.Second {
		t.Errorf("Pipeline exceeded budget plus overhead: %v", elapsed)
	}
}

func TestVerify_MalformedOutputDegrades(t *testing.T) {
	site := siteServer(shopPage)
	defer site.Close()

	llmSrv := modelServer(t, completionHandler("The ad looks great, ship it!"))
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days, $49.99",
		URLs:   []string{site.URL},
	})

	if report.Failed {
		t.Fatalf("Malformed output must degrade, not fail: %s", report.FailureReason)
	}
	if len(report.Verdicts) != 2 {
		t.Fatalf("Expected 2 degraded verdicts, got %d", len(report.Verdicts))
	}
	for _, v := range report.Verdicts {
		if v.Status != model.StatusUnverifiable {
			t.Errorf("Expected UNVERIFIABLE, got %s", v.Status)
		}
	}
	if report.Verdict != model.VerdictNeedsReview {
		t.Errorf("Degraded report must not pass silently, got %s", report.Verdict)
	}
	if len(report.Warnings) == 0 {
		t.Error("Expected a degradation warning in the report")
	}
}

func TestVerify_ContextOverflowShrinksAndRetries(t *testing.T) {
	site := siteServer(shopPage)
	defer site.Close()

	var calls atomic.Int32
	var secondPromptLen atomic.Int64
	llmSrv := modelServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"message": "maximum context length exceeded", "type": "invalid_request_error", "code": "context_length_exceeded"}}`))
			return
		}
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 {
			secondPromptLen.Store(int64(len(req.Messages[len(req.Messages)-1].Content)))
		}
		completionHandler(`{"verdicts": [
			{"claim": 1, "status": "SUPPORTED", "confidence": 0.9, "evidence": ""},
			{"claim": 2, "status": "SUPPORTED", "confidence": 0.9, "evidence": ""}
		]}`)(w, r)
	})
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days, $49.99",
		URLs:   []string{site.URL},
	})

	if report.Failed {
		t.Fatalf("Expected recovery after overflow, got failure: %s", report.FailureReason)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected exactly 2 model calls, got %d", calls.Load())
	}
	if report.Verdict != model.VerdictPass {
		t.Errorf("Expected PASS after shrink-and-retry, got %s", report.Verdict)
	}
}

func TestVerify_PreSuppliedDocuments(t *testing.T) {
	llmSrv := modelServer(t, completionHandler(`{"verdicts": [
		{"claim": 1, "status": "SUPPORTED", "confidence": 0.9, "evidence": ""}
	]}`))
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	report := p.Verify(context.Background(), Request{
		AdCopy: "Ships in 2 days",
		Documents: []model.SourceDocument{
			{URL: "bundle://catalog", Text: "Standard shipping: 2 business days.", FetchedAt: time.Now()},
		},
	})

	if report.Failed {
		t.Fatalf("Unexpected failure: %s", report.FailureReason)
	}
	if report.Verdict != model.VerdictPass {
		t.Errorf("Expected PASS, got %s", report.Verdict)
	}
	if len(report.PageFailures) != 0 {
		t.Errorf("No fetching should happen with a document bundle")
	}
}

func TestVerify_Deterministic(t *testing.T) {
	site := siteServer(shopPage)
	defer site.Close()

	llmSrv := modelServer(t, completionHandler(`{"verdicts": [
		{"claim": 1, "status": "SUPPORTED", "confidence": 0.95, "evidence": "Standard shipping: 2 business days."},
		{"claim": 2, "status": "SUPPORTED", "confidence": 0.98, "evidence": "Sale price today: $49.99 with free returns."}
	]}`))
	defer llmSrv.Close()

	p := newTestPipeline(t, testConfig(llmSrv.URL))
	req := Request{AdCopy: "Ships in 2 days, $49.99", URLs: []string{site.URL}}

	first := p.Verify(context.Background(), req)
	for i := 0; i < 3; i++ {
		next := p.Verify(context.Background(), req)
		// Everything except wall-clock fields must be identical
		if !reflect.DeepEqual(first.Verdicts, next.Verdicts) ||
			first.Score != next.Score ||
			first.Verdict != next.Verdict ||
			first.ToneNotes != next.ToneNotes {
			t.Fatalf("Non-deterministic report on run %d", i)
		}
	}
}

func TestVerify_ExternalCancellation(t *testing.T) {
	release := make(chan struct{})
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer site.Close()
	defer close(release)

	llmSrv := modelServer(t, completionHandler(`{"verdicts": []}`))
	defer llmSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	p := newTestPipeline(t, testConfig(llmSrv.URL))

	done := make(chan *model.VerificationReport, 1)
	go func() {
		done <- p.Verify(ctx, Request{AdCopy: "Ships in 2 days", URLs: []string{site.URL}})
	}()

	select {
	case report := <-done:
		if !report.Failed {
			t.Error("Expected FAILED report after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Verify did not return promptly after cancellation")
	}
}
