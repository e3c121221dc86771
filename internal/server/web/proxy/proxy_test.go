package proxy

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bricks-cloud/byokllm/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type upstreamRecorder struct {
	mu       sync.Mutex
	requests int
	lastAuth string
	lastBeta string
	lastPath string
}

func (u *upstreamRecorder) record(r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.requests++
	u.lastAuth = r.Header.Get("Authorization")
	u.lastBeta = r.Header.Get("OpenAI-Beta")
	u.lastPath = r.URL.Path
}

func (u *upstreamRecorder) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requests
}

func newTestServer(t *testing.T, upstreamHandler http.HandlerFunc) (http.Handler, *upstreamRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := &upstreamRecorder{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		upstreamHandler(w, r)
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Host:          "127.0.0.1",
		Port:          "0",
		OpenAiBaseUrl: upstream.URL,
	}

	ps, err := NewProxyServer(zap.NewNop(), "test", "info", cfg)
	require.NoError(t, err)

	return ps.server.Handler, rec
}

func jsonUpstream(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestHealthCheckNeedsNoCredential(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	for _, path := range []string{"/", "/health"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	}

	assert.Zero(t, rec.count())
}

func TestChatCompletionRelaysBearerCredential(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Bearer sk-test", rec.lastAuth)
	assert.Empty(t, rec.lastBeta)
	assert.Equal(t, "chatcmpl-1", gjson.Get(w.Body.String(), "id").Str)
}

func TestAssistantsAcceptRawLowercaseCredential(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{"id":"asst_abc","object":"assistant","model":"gpt-4o"}`))

	req := httptest.NewRequest(http.MethodPost, "/v1/assistants", strings.NewReader(`{"model":"gpt-4o"}`))
	req.Header.Set("Content-Type", "application/json")
	// non-canonical field name, no Bearer prefix
	req.Header["authorization"] = []string{"sk-test"}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Bearer sk-test", rec.lastAuth)
	assert.Equal(t, "assistants=v2", rec.lastBeta)
}

func TestUploadFileWithoutFileFailsBeforeUpstream(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	require.NoError(t, writer.WriteField("purpose", "assistants"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file not provided")
	assert.Zero(t, rec.count())
}

func TestUploadFileWithoutPurposeFailsBeforeUpstream(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	fw, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "purpose not provided")
	assert.Zero(t, rec.count())
}

func TestUploadFileWithMalformedFormFailsBeforeUpstream(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	req := httptest.NewRequest(http.MethodPost, "/v1/files", strings.NewReader("not a multipart body"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=deadbeef")
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "failed to parse multipart form")
	assert.Zero(t, rec.count())
}

func TestUploadFileForwardsMultipartForm(t *testing.T) {
	handler, rec := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "assistants", r.FormValue("purpose"))

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"file-abc","object":"file","filename":"notes.txt","purpose":"assistants"}`))
	})

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	// unknown purpose falls back to assistants
	require.NoError(t, writer.WriteField("purpose", "mystery"))
	fw, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, "file-abc", gjson.Get(w.Body.String(), "id").Str)
}

func TestMissingCredentialIsUnauthorized(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authorization header not found")
	assert.Zero(t, rec.count())
}

func TestEmptyBearerCredentialIsUnauthorized(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer ")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "api key is empty")
	assert.Zero(t, rec.count())
}

func TestMalformedJsonBodyIsBadRequest(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, rec.count())
}

func TestUpstreamErrorStatusIsRelayed(t *testing.T) {
	handler, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit reached")
}

func TestUnreachableUpstreamIsBadGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Host:          "127.0.0.1",
		Port:          "0",
		OpenAiBaseUrl: "http://127.0.0.1:1",
	}

	ps, err := NewProxyServer(zap.NewNop(), "test", "info", cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	ps.server.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPreflightRequestIsAllowed(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{}`))

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/completions", nil)
	req.Header.Set("Origin", "https://example.com")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, rec.count())
}

func TestConcurrentRequestsKeepTheirOwnCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)

	seen := sync.Map{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"), true)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Host:          "127.0.0.1",
		Port:          "0",
		OpenAiBaseUrl: upstream.URL,
	}

	ps, err := NewProxyServer(zap.NewNop(), "test", "info", cfg)
	require.NoError(t, err)

	keys := []string{"sk-alpha", "sk-beta", "sk-gamma"}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
			req.Header.Set("Authorization", "Bearer "+key)

			w := httptest.NewRecorder()
			ps.server.Handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}(key)
	}
	wg.Wait()

	for _, key := range keys {
		_, ok := seen.Load("Bearer " + key)
		assert.True(t, ok, "upstream never saw credential for %s", key)
	}
}

func TestResponsesFamilyIsRelayedOpaquely(t *testing.T) {
	payload := `{"id":"resp_1","object":"response","output":[{"type":"message"}]}`
	handler, rec := newTestServer(t, jsonUpstream(payload))

	req := httptest.NewRequest(http.MethodPost, "/v1/responses", strings.NewReader(`{"model":"gpt-4o","input":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, payload, w.Body.String())
	assert.Equal(t, "/responses", rec.lastPath)
	assert.Empty(t, rec.lastBeta)
}

func TestCreateThreadAndRunUsesStaticRunsRoute(t *testing.T) {
	handler, rec := newTestServer(t, jsonUpstream(`{"id":"run_1","object":"thread.run","thread_id":"thread_1","status":"queued"}`))

	req := httptest.NewRequest(http.MethodPost, "/v1/threads/runs", strings.NewReader(`{"assistant_id":"asst_abc","thread":{"messages":[]}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer sk-test")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/threads/runs", rec.lastPath)
	assert.Equal(t, "assistants=v2", rec.lastBeta)
}
