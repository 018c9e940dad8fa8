package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"factsheetgen/internal/extractor"
	"factsheetgen/internal/infrastructure/fetch"
	"factsheetgen/internal/infrastructure/storage"
	"factsheetgen/internal/synth"
	"factsheetgen/internal/task"
	"factsheetgen/internal/usecase"
)

type fixedCompleter struct {
	response string
}

func (c *fixedCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	if c.response == "" {
		return "", errors.New("no response configured")
	}
	return c.response, nil
}

func factsheetResponse() string {
	var sb strings.Builder
	sb.WriteString("# Sales Intelligence Factsheet\n")
	for _, name := range []string{"Overview", "Offerings", "Market Position", "Sales Insights", "Key Takeaways"} {
		fmt.Fprintf(&sb, "\n## %s\n", name)
	}
	for synth.WordCount(sb.String()) < 650 {
		sb.WriteString("word ")
	}
	return sb.String()
}

func newTestAPI(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Acme</title></head><body><p>" +
			strings.Repeat("a", 200) + "</p></body></html>"))
	}))
	t.Cleanup(site.Close)

	registry := synth.NewRegistry()
	registry.Register("openai", &fixedCompleter{response: factsheetResponse()})

	files := storage.NewFileStore(t.TempDir())
	generator := usecase.NewGenerator(usecase.GeneratorDeps{
		Extractor: extractor.New(fetch.NewClient(2*time.Second, 5), extractor.Options{
			RetryBackoff: 5 * time.Millisecond,
			MinTextChars: 50,
			MaxPageChars: 3000,
		}, nil),
		Engine: synth.NewEngine(registry, synth.DefaultSchema(), synth.Limits{
			TargetMin: 600, TargetMax: 1000, AcceptMin: 400, AcceptMax: 1400,
		}, nil),
		Tasks:          task.NewStore(),
		Files:          files,
		MaxBundleChars: 10000,
		TaskBudget:     10 * time.Second,
		MaxInFlight:    2,
	})

	api := httptest.NewServer(New(generator, files, nil).Routes())
	t.Cleanup(api.Close)
	return api, site
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	t.Parallel()

	api, site := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/generate", map[string]string{"url": site.URL + "/"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		TaskID string `json:"task_id"`
	}
	decode(t, resp, &accepted)
	if accepted.TaskID == "" {
		t.Fatalf("missing task_id")
	}

	var status struct {
		State    string `json:"state"`
		Progress int    `json:"progress_percent"`
		Result   *struct {
			MarkdownText string `json:"markdown_text"`
			WordCount    int    `json:"word_count"`
		} `json:"result"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("task never finished, last state %q", status.State)
		}
		getResp, err := http.Get(api.URL + "/api/tasks/" + accepted.TaskID)
		if err != nil {
			t.Fatalf("GET task: %v", err)
		}
		decode(t, getResp, &status)
		if status.State == "completed" || status.State == "failed" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status.State != "completed" {
		t.Fatalf("expected completed, got %s", status.State)
	}
	if status.Progress != 100 || status.Result == nil {
		t.Fatalf("unexpected terminal payload: %+v", status)
	}

	// The finished factsheet shows up in the library.
	listResp, err := http.Get(api.URL + "/api/factsheets")
	if err != nil {
		t.Fatalf("GET factsheets: %v", err)
	}
	var list struct {
		Total int `json:"total"`
		Items []struct {
			Filename string `json:"filename"`
		} `json:"factsheets"`
	}
	decode(t, listResp, &list)
	if list.Total != 1 {
		t.Fatalf("expected 1 stored factsheet, got %d", list.Total)
	}

	filename := list.Items[0].Filename
	readResp, err := http.Get(api.URL + "/api/factsheets/" + filename)
	if err != nil {
		t.Fatalf("GET factsheet: %v", err)
	}
	var doc struct {
		Content string `json:"content"`
	}
	decode(t, readResp, &doc)
	if !strings.Contains(doc.Content, "## Overview") {
		t.Fatalf("stored content missing sections")
	}

	dlResp, err := http.Get(api.URL + "/api/factsheets/" + filename + "/download")
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer dlResp.Body.Close()
	if got := dlResp.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/markdown") {
		t.Fatalf("unexpected download content type %q", got)
	}

	delReq, _ := http.NewRequest(http.MethodDelete, api.URL+"/api/factsheets/"+filename, nil)
	delResp, err := http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("DELETE factsheet: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", delResp.StatusCode)
	}
}

func TestGenerateRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	resp := postJSON(t, api.URL+"/api/generate", map[string]string{"url": "ftp://example.com"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerateRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	resp, err := http.Post(api.URL+"/api/generate", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTaskStatusUnknownID(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	resp, err := http.Get(api.URL + "/api/tasks/does-not-exist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFactsheetNotFound(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	resp, err := http.Get(api.URL + "/api/factsheets/missing.md")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	resp, err := http.Get(api.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body struct {
		Status string `json:"status"`
	}
	decode(t, resp, &body)
	if body.Status != "healthy" {
		t.Fatalf("unexpected health payload: %+v", body)
	}
}
