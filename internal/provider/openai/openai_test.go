package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	auth "github.com/bricks-cloud/byokllm/internal/authenticator"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, beta bool) (*Client, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	h := http.Header{}
	h.Set("Authorization", "Bearer sk-test")
	cfg, err := auth.ResolveUpstreamConfig(h, beta)
	require.NoError(t, err)

	return NewClient(cfg, http.Client{}, upstream.URL), upstream
}

func TestClientSendsCredentialAndNoBetaHeader(t *testing.T) {
	var gotAuth, gotBeta string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("OpenAI-Beta")

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-123","model":"gpt-4o"}`))
	}, false)

	res, err := client.CreateChatCompletion(context.Background(), &goopenai.ChatCompletionRequest{Model: "gpt-4o"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Empty(t, gotBeta)
	assert.Equal(t, "chatcmpl-123", res.ID)
}

func TestClientSendsBetaHeaderForAssistants(t *testing.T) {
	var gotBeta string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBeta = r.Header.Get("OpenAI-Beta")

		assert.Equal(t, "/assistants", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"asst_abc","object":"assistant"}`))
	}, true)

	res, err := client.CreateAssistant(context.Background(), &goopenai.AssistantRequest{Model: "gpt-4o"})
	require.NoError(t, err)

	assert.Equal(t, "assistants=v2", gotBeta)
	assert.Equal(t, "asst_abc", res.ID)
}

func TestClientDecodesUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}, false)

	_, err := client.ListModels(context.Background())
	require.Error(t, err)

	oe, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, oe.StatusCode())
	assert.Equal(t, "Incorrect API key provided", oe.Error())
	assert.Equal(t, "invalid_request_error", oe.Type())
}

func TestClientFallsBackToStatusTextOnOpaqueError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}, false)

	_, err := client.ListModels(context.Background())
	require.Error(t, err)

	oe, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, oe.StatusCode())
	assert.Equal(t, http.StatusText(http.StatusBadGateway), oe.Error())
}

func TestUploadFileBuildsMultipartForm(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "assistants", r.FormValue("purpose"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "notes.txt", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"file-abc","filename":"notes.txt","purpose":"assistants"}`))
	}, false)

	res, err := client.UploadFile(context.Background(), &FileUploadRequest{
		FileName: "notes.txt",
		Purpose:  goopenai.PurposeAssistants,
		Reader:   strings.NewReader("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "file-abc", res.ID)
}

func TestRetrieveFileContentRelaysRawBytes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/file-abc/content", r.URL.Path)

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x1, 0x2, 0x3})
	}, false)

	data, contentType, err := client.RetrieveFileContent(context.Background(), "file-abc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1, 0x2, 0x3}, data)
	assert.Equal(t, "application/octet-stream", contentType)
}

func TestModifyRunRelaysMetadataBody(t *testing.T) {
	var gotBody []byte

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads/thread_1/runs/run_1", r.URL.Path)

		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"run_1","object":"thread.run"}`))
	}, true)

	res, err := client.ModifyRun(context.Background(), "thread_1", "run_1", &ModifyRunRequest{
		Metadata: map[string]any{"stage": "review"},
	})
	require.NoError(t, err)
	assert.Equal(t, "run_1", res.ID)
	assert.JSONEq(t, `{"metadata":{"stage":"review"}}`, string(gotBody))
}

func TestResponsesAreRelayedOpaquely(t *testing.T) {
	payload := `{"id":"resp_123","object":"response","unmodeled_field":{"deeply":"nested"}}`

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}, false)

	res, err := client.CreateResponse(context.Background(), json.RawMessage(`{"model":"gpt-4o","input":"hi"}`))
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(res))
}
