package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/signupassist/provider-pipeline/internal/forms"
	"github.com/signupassist/provider-pipeline/internal/pipeline"
	"github.com/signupassist/provider-pipeline/internal/program"
)

type fakePipeline struct {
	discoverResult pipeline.DiscoverResult
	discoverErr    error
	lastOrg        string
	lastCategory   string
	lastAgeHint    int
	swept          int
	cleared        int
}

func (f *fakePipeline) GetOrSynthesizeProgramData(ctx context.Context, orgRef, category string, ageHint int) (pipeline.DiscoverResult, error) {
	f.lastOrg, f.lastCategory, f.lastAgeHint = orgRef, category, ageHint
	if f.discoverErr != nil {
		return pipeline.DiscoverResult{}, f.discoverErr
	}
	return f.discoverResult, nil
}

func (f *fakePipeline) BuildQuestions(fields []forms.DiscoveredField) []forms.Question {
	return forms.Normalize(fields)
}

func (f *fakePipeline) DefaultAnswers(fields []forms.DiscoveredField) map[string]string {
	answers := make(map[string]string)
	for _, field := range fields {
		if choice := forms.ChooseDefaultAnswer(field, ""); choice != "" {
			answers[field.ID] = choice
		}
	}
	return answers
}

func (f *fakePipeline) QuoteTotal(basePriceCents *int64, fields []forms.DiscoveredField, answers map[string]any) int64 {
	return forms.ComputeTotalCents(basePriceCents, fields, answers)
}

func (f *fakePipeline) SweepCache(ctx context.Context) (int, error) {
	return f.swept, nil
}

func (f *fakePipeline) ClearCache(ctx context.Context) (int, error) {
	return f.cleared, nil
}

func quietLogger() *log.Logger {
	return log.New(discardWriter{}, "", 0)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestServer(p Pipeline, opts Options) http.Handler {
	opts.Logger = quietLogger()
	return NewServer(p, opts).Routes()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(&fakePipeline{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestDiscoverReturnsPipelineResult(t *testing.T) {
	fake := &fakePipeline{
		discoverResult: pipeline.DiscoverResult{
			Success:  true,
			Provider: "blackhawk",
			Source:   "live",
			Programs: []program.Program{{ProgramRef: "309", Title: "Nordic Kids Wednesday", Status: program.StatusOpen}},
		},
	}
	handler := newTestServer(fake, Options{})

	recorder := postJSON(t, handler, "/v1/programs/discover", discoverRequest{OrgRef: "blackhawk", Category: "nordic", AgeHint: 9}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var result pipeline.DiscoverResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || len(result.Programs) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if fake.lastOrg != "blackhawk" || fake.lastCategory != "nordic" || fake.lastAgeHint != 9 {
		t.Fatalf("unexpected pipeline args %q %q %d", fake.lastOrg, fake.lastCategory, fake.lastAgeHint)
	}
}

func TestDiscoverRejectsBadInput(t *testing.T) {
	fake := &fakePipeline{discoverErr: errors.New("org ref is required")}
	handler := newTestServer(fake, Options{})

	recorder := postJSON(t, handler, "/v1/programs/discover", discoverRequest{}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestDiscoverRejectsInvalidJSON(t *testing.T) {
	handler := newTestServer(&fakePipeline{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/v1/programs/discover", strings.NewReader("{nope"))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestDiscoverMethodNotAllowed(t *testing.T) {
	handler := newTestServer(&fakePipeline{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/v1/programs/discover", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
}

func TestDiscoverRequiresAPIKey(t *testing.T) {
	handler := newTestServer(&fakePipeline{discoverResult: pipeline.DiscoverResult{Success: true}}, Options{APIKey: "secret"})

	recorder := postJSON(t, handler, "/v1/programs/discover", discoverRequest{OrgRef: "blackhawk"}, nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", recorder.Code)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer secret")
	recorder = postJSON(t, handler, "/v1/programs/discover", discoverRequest{OrgRef: "blackhawk"}, header)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer key, got %d", recorder.Code)
	}

	header = http.Header{}
	header.Set("X-API-Key", "secret")
	recorder = postJSON(t, handler, "/v1/cache/clear", map[string]any{}, header)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 with header key, got %d", recorder.Code)
	}
}

func TestDiscoverRateLimited(t *testing.T) {
	handler := newTestServer(&fakePipeline{discoverResult: pipeline.DiscoverResult{Success: true}}, Options{DiscoverPerMin: 1})

	first := postJSON(t, handler, "/v1/programs/discover", discoverRequest{OrgRef: "blackhawk"}, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first call to pass, got %d", first.Code)
	}
	second := postJSON(t, handler, "/v1/programs/discover", discoverRequest{OrgRef: "blackhawk"}, nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}

func TestNormalizeQuestions(t *testing.T) {
	handler := newTestServer(&fakePipeline{}, Options{})

	body := normalizeRequest{Fields: []forms.DiscoveredField{
		{ID: "color_preference", Type: "select", Options: []string{"Red", "Blue"}},
		{ID: "website_url", Type: "text"},
	}}
	recorder := postJSON(t, handler, "/v1/questions/normalize", body, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var resp normalizeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Questions) != 1 || resp.Questions[0].ID != "color_preference" {
		t.Fatalf("unexpected questions %+v", resp.Questions)
	}
}

func TestQuote(t *testing.T) {
	handler := newTestServer(&fakePipeline{}, Options{})

	base := int64(10000)
	cost := int64(1500)
	body := quoteRequest{
		BasePriceCents: &base,
		Fields: []forms.DiscoveredField{{
			ID:           "rental",
			Type:         "select",
			PriceBearing: true,
			PriceOptions: []forms.PriceOption{{Value: "full", Label: "Full rental", CostCents: &cost}},
		}},
		Answers: map[string]any{"rental": "full"},
	}
	recorder := postJSON(t, handler, "/v1/price/quote", body, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var resp quoteResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalCents != 11500 {
		t.Fatalf("expected 11500, got %d", resp.TotalCents)
	}
}

func TestCacheSweepAndClear(t *testing.T) {
	fake := &fakePipeline{swept: 3, cleared: 7}
	handler := newTestServer(fake, Options{})

	recorder := postJSON(t, handler, "/v1/cache/sweep", map[string]any{}, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var resp cacheMutationResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Removed != 3 {
		t.Fatalf("expected 3 removed, got %d", resp.Removed)
	}

	recorder = postJSON(t, handler, "/v1/cache/clear", map[string]any{}, nil)
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Removed != 7 {
		t.Fatalf("expected 7 removed, got %d", resp.Removed)
	}
}
