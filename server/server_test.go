package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"social_media_analyzer/extract"
	"social_media_analyzer/failure"
	"social_media_analyzer/generator"
	"social_media_analyzer/pipeline"
)

type countingLLM struct {
	generator.MockLLM
	calls int
}

func (c *countingLLM) Send(ctx context.Context, req generator.Request, credential string) (string, error) {
	c.calls++
	return c.MockLLM.Send(ctx, req, credential)
}

func newTestServer(t *testing.T, llm generator.LLMClient, pdf *extract.Capability) *Server {
	t.Helper()
	agent, err := generator.NewAgent(llm, generator.DefaultBuilder())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{
		Pipeline: pipeline.Config{
			Extractor:  extract.NewDispatcher(extract.Config{PDF: pdf}),
			Requester:  agent,
			Credential: func() string { return "" },
		},
		Loader: extract.NewLoader(1 << 20),
		PDF:    pdf,
	})
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func upload(t *testing.T, h http.Handler, name, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": name}))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRun(t *testing.T, rec *httptest.ResponseRecorder) runResp {
	t.Helper()
	var resp runResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAnalyze_TextUpload(t *testing.T) {
	llm := &countingLLM{}
	h := newTestServer(t, llm, nil).Routes()

	rec := upload(t, h, "launch.md", "", []byte("# Launch\nOur new app ships on Monday."))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeRun(t, rec)
	if resp.State != "done" || resp.Result == nil || resp.Error != nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Result.Suggestions) != 5 {
		t.Errorf("got %d suggestions", len(resp.Result.Suggestions))
	}
	if resp.Result.Text != "# Launch\nOur new app ships on Monday." {
		t.Errorf("text = %q", resp.Result.Text)
	}
	if llm.calls != 1 {
		t.Errorf("llm called %d times", llm.calls)
	}

	got := decodeRun(t, get(h, "/api/runs/"+resp.RunID))
	if got.RunID != resp.RunID || got.State != "done" {
		t.Errorf("GET run = %+v", got)
	}

	dl := get(h, "/api/runs/"+resp.RunID+"/tips.json")
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	if cd := dl.Header().Get("Content-Disposition"); cd != "attachment; filename=launch.md.tips.json" {
		t.Errorf("content-disposition = %q", cd)
	}
	var tips []generator.Suggestion
	if err := json.Unmarshal(dl.Body.Bytes(), &tips); err != nil || len(tips) != 5 {
		t.Errorf("download body: %v, %d tips", err, len(tips))
	}
	if !strings.HasPrefix(dl.Body.String(), "[\n  {\n    \"title\"") {
		t.Errorf("download not indented: %q", dl.Body.String()[:20])
	}

	report := get(h, "/api/runs/"+resp.RunID+"/report.html")
	if report.Code != http.StatusOK || !strings.Contains(report.Body.String(), "<h1>Engagement tips for launch.md</h1>") {
		t.Errorf("report = %d %s", report.Code, report.Body.String())
	}
}

func TestAnalyze_Failures(t *testing.T) {
	notReady := extract.NewCapability(nil)

	tests := []struct {
		name        string
		file        string
		contentType string
		content     string
		wantStatus  int
		wantKind    failure.Kind
	}{
		{"image", "scan.jpg", "image/jpeg", "\xff\xd8\xff", http.StatusUnsupportedMediaType, failure.UnsupportedFormat},
		{"spreadsheet", "sheet.xlsx", "application/vnd.ms-excel", "PK", http.StatusUnsupportedMediaType, failure.UnsupportedFormat},
		{"short text", "a.txt", "text/plain", "too short", http.StatusUnprocessableEntity, failure.InsufficientText},
		{"bad utf-8", "a.txt", "text/plain", "caf\xe9 \xff\xfe menu", http.StatusUnprocessableEntity, failure.DecodeFailed},
		{"pdf not ready", "deck.pdf", "application/pdf", "%PDF-1.4", http.StatusServiceUnavailable, failure.DependencyNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &countingLLM{}
			h := newTestServer(t, llm, notReady).Routes()

			rec := upload(t, h, tt.file, tt.contentType, []byte(tt.content))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeRun(t, rec)
			if resp.State != "failed" || resp.Result != nil {
				t.Errorf("unexpected response %+v", resp)
			}
			if resp.Error == nil || resp.Error.Kind != tt.wantKind {
				t.Errorf("error = %+v, want kind %s", resp.Error, tt.wantKind)
			}
			if llm.calls != 0 {
				t.Errorf("llm called %d times", llm.calls)
			}

			if dl := get(h, "/api/runs/"+resp.RunID+"/tips.json"); dl.Code != http.StatusConflict {
				t.Errorf("download of failed run = %d", dl.Code)
			}
		})
	}
}

func TestAnalyze_MissingCredential(t *testing.T) {
	llm, err := generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
		Model:         "gpt-4o-mini",
		BaseURL:       "http://127.0.0.1:1/v1/",
		CredentialEnv: "OPENAI_API_KEY",
	})
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, llm, nil).Routes()

	rec := upload(t, h, "post.txt", "text/plain", []byte("Plenty of text to pass the gate."))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeRun(t, rec)
	if resp.Error == nil || resp.Error.Kind != failure.MissingCredential {
		t.Fatalf("error = %+v", resp.Error)
	}
	if resp.Error.Message != "OpenAI API key not found. Set OPENAI_API_KEY in your environment." {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestAnalyze_NoFileField(t *testing.T) {
	h := newTestServer(t, &countingLLM{}, nil).Routes()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRunDelete(t *testing.T) {
	h := newTestServer(t, &countingLLM{}, nil).Routes()
	resp := decodeRun(t, upload(t, h, "post.txt", "text/plain", []byte("Plenty of text to pass the gate.")))

	req := httptest.NewRequest(http.MethodDelete, "/api/runs/"+resp.RunID, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := get(h, "/api/runs/"+resp.RunID); got.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d", got.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/"+resp.RunID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d", rec.Code)
	}
}

func TestTipsDownload_QuotedName(t *testing.T) {
	h := newTestServer(t, &countingLLM{}, nil).Routes()
	resp := decodeRun(t, upload(t, h, `say "hi".md`, "", []byte("Plenty of text to pass the gate.")))

	dl := get(h, "/api/runs/"+resp.RunID+"/tips.json")
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	disposition, params, err := mime.ParseMediaType(dl.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("header %q: %v", dl.Header().Get("Content-Disposition"), err)
	}
	if disposition != "attachment" || params["filename"] != `say "hi".md.tips.json` {
		t.Errorf("got %q %v", disposition, params)
	}
}

func TestRunStore_Eviction(t *testing.T) {
	now := time.Now()
	at := func(id string, age time.Duration) *run {
		return &run{id: id, created: now.Add(-age)}
	}

	t.Run("cap evicts oldest", func(t *testing.T) {
		s := newStore(2, time.Hour)
		s.set(at("a", 3*time.Minute))
		s.set(at("b", 2*time.Minute))
		s.set(at("c", time.Minute))
		if _, ok := s.get("a"); ok {
			t.Error("oldest run should have been evicted")
		}
		for _, id := range []string{"b", "c"} {
			if _, ok := s.get(id); !ok {
				t.Errorf("run %s missing", id)
			}
		}
	})

	t.Run("expired runs dropped", func(t *testing.T) {
		s := newStore(10, time.Hour)
		s.set(at("old", 2*time.Hour))
		if _, ok := s.get("old"); ok {
			t.Error("expired run still retrievable")
		}
		s.set(at("stale", 90*time.Minute))
		s.set(at("fresh", 0))
		if len(s.runs) != 1 {
			t.Errorf("store holds %d runs, want 1", len(s.runs))
		}
	})
}

func TestHealth(t *testing.T) {
	capab := extract.NewCapability(extract.NewLedongthucBackend())
	if err := capab.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec := get(newTestServer(t, &countingLLM{}, capab).Routes(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["pdf_backend"] != "ledongthuc" || got["pdf_state"] != "ready" {
		t.Errorf("health = %v", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind failure.Kind
		want int
	}{
		{failure.UnsupportedFormat, 415},
		{failure.DecodeFailed, 422},
		{failure.ExtractionFailed, 422},
		{failure.InsufficientText, 422},
		{failure.DependencyNotReady, 503},
		{failure.MissingCredential, 500},
		{failure.ServiceError, 502},
	}
	for _, tt := range tests {
		if got := statusFor(failure.New(tt.kind, "x")); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
