package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triago/internal/app"
	"triago/internal/config"
	"triago/internal/costtracker"
	"triago/internal/llm"
	"triago/internal/models"
	"triago/internal/table"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var ticketIDs = regexp.MustCompile(`\(ID: ([^)]+)\)`)

type stubClient struct{}

func (stubClient) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	var objs []map[string]string
	for _, m := range ticketIDs.FindAllStringSubmatch(req.Prompt, -1) {
		objs = append(objs, map[string]string{"ticket_id": m[1], "extract_product": "Widget"})
	}
	data, _ := json.Marshal(objs)
	return llm.CompletionResponse{Text: string(data), PromptTokens: 10, CompletionTokens: 5}, nil
}

func (stubClient) Name() string  { return "stub" }
func (stubClient) Model() string { return "stub-model" }

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{Provider: config.ProviderOpenAI, Model: "gpt-4o"}
	cfg.Analysis.Types = []string{"extract_product"}
	cfg.Analysis.IncludeExplanations = true
	cfg.Batch.Size = 2
	cfg.Batch.Concurrency = 1
	cfg.Output.Dir = filepath.Join(dir, "output")
	cfg.Output.Prefix = "analyzed_tickets"

	return NewServer(&app.App{
		Config:  cfg,
		Client:  stubClient{},
		Tracker: costtracker.New(nil),
	})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// uploadForm builds a multipart body with one uploaded file plus form fields.
func uploadForm(t *testing.T, filename, content string, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postAnalyze(t *testing.T, s *Server, filename, content string, fields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := uploadForm(t, filename, content, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

const sampleCSV = "ticket_id,subject,body\n" +
	"T-1,Email down,Cannot send mail\n" +
	"T-2,VPN drops,Drops every few minutes\n"

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestIndexRendersCatalog(t *testing.T) {
	rec := get(t, testServer(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `action="/api/v1/analyze"`)
	assert.Contains(t, body, "Basic Analysis")
	assert.Contains(t, body, "Advanced Analysis")
	assert.Contains(t, body, "Extract Product")
	assert.Contains(t, body, "Customer Satisfaction Prediction")
	// The configured default type renders pre-ticked.
	assert.Contains(t, body, `value="extract_product" checked`)
	assert.NotContains(t, body, `value="summarize_ticket" checked`)
}

func TestTypesEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/types")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Types []struct {
			Key     string   `json:"key"`
			Label   string   `json:"label"`
			Group   string   `json:"group"`
			Answers []string `json:"answers"`
		} `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Types, 18)
	assert.Equal(t, "extract_product", resp.Types[0].Key)
	assert.Equal(t, "Extract Product", resp.Types[0].Label)
	assert.Equal(t, "Basic Analysis", resp.Types[0].Group)

	byKey := make(map[string][]string)
	for _, ti := range resp.Types {
		byKey[ti.Key] = ti.Answers
	}
	assert.Contains(t, byKey["ticket_quality"], "good")
	assert.Empty(t, byKey["summarize_ticket"])
}

func TestAnalyzeUploadRoundTrip(t *testing.T) {
	rec := postAnalyze(t, testServer(t), "tickets.csv", sampleCSV, map[string][]string{
		"types": {"extract_product"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "analyzed_tickets_gpt_4o_")
	assert.Equal(t, models.JobStatusWritten, rec.Header().Get("X-Run-Status"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))

	out, err := table.Read(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, "Widget", out.Get(0, "extract_product"))
	assert.Equal(t, "Widget", out.Get(1, "extract_product"))
}

func TestAnalyzeExplanationsToggle(t *testing.T) {
	s := testServer(t)

	// Marker sent, checkbox unticked: explanations off for this request.
	rec := postAnalyze(t, s, "tickets.csv", sampleCSV, map[string][]string{
		"types":             {"extract_product"},
		"explanations_sent": {"1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out, err := table.Read(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	assert.False(t, out.HasColumn("extract_product_explanation"))

	// No marker at all: the configured default (on) applies.
	rec = postAnalyze(t, s, "tickets.csv", sampleCSV, map[string][]string{
		"types": {"extract_product"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out, err = table.Read(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	assert.True(t, out.HasColumn("extract_product_explanation"))
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	rec := postAnalyze(t, testServer(t), "", "", map[string][]string{
		"types": {"extract_product"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
	assert.Contains(t, rec.Body.String(), "missing uploaded file")
}

func TestAnalyzeRejectsUnknownType(t *testing.T) {
	rec := postAnalyze(t, testServer(t), "tickets.csv", sampleCSV, map[string][]string{
		"types": {"read_minds"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown analysis type")
}

func TestAnalyzeRejectsUnsupportedExtension(t *testing.T) {
	rec := postAnalyze(t, testServer(t), "tickets.xlsx", sampleCSV, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestHistoryWithoutStore(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs": []}`, rec.Body.String())
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid limit")
}

func TestUnknownRouteReturnsStructuredError(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}
