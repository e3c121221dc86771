package openai

import (
	"context"
	"net/http"
	"net/url"

	goopenai "github.com/sashabaranov/go-openai"
)

// Modify requests on the assistants family carry metadata only; the SDK has
// no schema for them so they are declared here.
type ModifyThreadRequest struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ModifyMessageRequest struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ModifyRunRequest struct {
	Metadata map[string]any `json:"metadata,omitempty"`
}

type CreateThreadAndRunRequest struct {
	goopenai.RunRequest
	Thread *goopenai.ThreadRequest `json:"thread,omitempty"`
}

func (c *Client) CreateAssistant(ctx context.Context, r *goopenai.AssistantRequest) (*goopenai.Assistant, error) {
	res := &goopenai.Assistant{}
	if err := c.doJson(ctx, http.MethodPost, "/assistants", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ListAssistants(ctx context.Context) (*goopenai.AssistantsList, error) {
	res := &goopenai.AssistantsList{}
	if err := c.doJson(ctx, http.MethodGet, "/assistants", nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveAssistant(ctx context.Context, assistantId string) (*goopenai.Assistant, error) {
	res := &goopenai.Assistant{}
	if err := c.doJson(ctx, http.MethodGet, assistantPath(assistantId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ModifyAssistant(ctx context.Context, assistantId string, r *goopenai.AssistantRequest) (*goopenai.Assistant, error) {
	res := &goopenai.Assistant{}
	if err := c.doJson(ctx, http.MethodPost, assistantPath(assistantId), r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) DeleteAssistant(ctx context.Context, assistantId string) (*goopenai.AssistantDeleteResponse, error) {
	res := &goopenai.AssistantDeleteResponse{}
	if err := c.doJson(ctx, http.MethodDelete, assistantPath(assistantId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateThread(ctx context.Context, r *goopenai.ThreadRequest) (*goopenai.Thread, error) {
	res := &goopenai.Thread{}
	if err := c.doJson(ctx, http.MethodPost, "/threads", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveThread(ctx context.Context, threadId string) (*goopenai.Thread, error) {
	res := &goopenai.Thread{}
	if err := c.doJson(ctx, http.MethodGet, threadPath(threadId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ModifyThread(ctx context.Context, threadId string, r *ModifyThreadRequest) (*goopenai.Thread, error) {
	res := &goopenai.Thread{}
	if err := c.doJson(ctx, http.MethodPost, threadPath(threadId), r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadId string) (*goopenai.ThreadDeleteResponse, error) {
	res := &goopenai.ThreadDeleteResponse{}
	if err := c.doJson(ctx, http.MethodDelete, threadPath(threadId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateMessage(ctx context.Context, threadId string, r *goopenai.MessageRequest) (*goopenai.Message, error) {
	res := &goopenai.Message{}
	if err := c.doJson(ctx, http.MethodPost, threadPath(threadId)+"/messages", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ListMessages(ctx context.Context, threadId string) (*goopenai.MessagesList, error) {
	res := &goopenai.MessagesList{}
	if err := c.doJson(ctx, http.MethodGet, threadPath(threadId)+"/messages", nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveMessage(ctx context.Context, threadId, messageId string) (*goopenai.Message, error) {
	res := &goopenai.Message{}
	if err := c.doJson(ctx, http.MethodGet, messagePath(threadId, messageId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ModifyMessage(ctx context.Context, threadId, messageId string, r *ModifyMessageRequest) (*goopenai.Message, error) {
	res := &goopenai.Message{}
	if err := c.doJson(ctx, http.MethodPost, messagePath(threadId, messageId), r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateRun(ctx context.Context, threadId string, r *goopenai.RunRequest) (*goopenai.Run, error) {
	res := &goopenai.Run{}
	if err := c.doJson(ctx, http.MethodPost, threadPath(threadId)+"/runs", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ListRuns(ctx context.Context, threadId string) (*goopenai.RunList, error) {
	res := &goopenai.RunList{}
	if err := c.doJson(ctx, http.MethodGet, threadPath(threadId)+"/runs", nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveRun(ctx context.Context, threadId, runId string) (*goopenai.Run, error) {
	res := &goopenai.Run{}
	if err := c.doJson(ctx, http.MethodGet, runPath(threadId, runId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ModifyRun(ctx context.Context, threadId, runId string, r *ModifyRunRequest) (*goopenai.Run, error) {
	res := &goopenai.Run{}
	if err := c.doJson(ctx, http.MethodPost, runPath(threadId, runId), r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CancelRun(ctx context.Context, threadId, runId string) (*goopenai.Run, error) {
	res := &goopenai.Run{}
	if err := c.doJson(ctx, http.MethodPost, runPath(threadId, runId)+"/cancel", nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) SubmitToolOutputs(ctx context.Context, threadId, runId string, r *goopenai.SubmitToolOutputsRequest) (*goopenai.Run, error) {
	res := &goopenai.Run{}
	if err := c.doJson(ctx, http.MethodPost, runPath(threadId, runId)+"/submit_tool_outputs", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CreateThreadAndRun(ctx context.Context, r *CreateThreadAndRunRequest) (*goopenai.Run, error) {
	res := &goopenai.Run{}
	if err := c.doJson(ctx, http.MethodPost, "/threads/runs", r, res); err != nil {
		return nil, err
	}

	return res, nil
}

func assistantPath(assistantId string) string {
	return "/assistants/" + url.PathEscape(assistantId)
}

func threadPath(threadId string) string {
	return "/threads/" + url.PathEscape(threadId)
}

func messagePath(threadId, messageId string) string {
	return threadPath(threadId) + "/messages/" + url.PathEscape(messageId)
}

func runPath(threadId, runId string) string {
	return threadPath(threadId) + "/runs/" + url.PathEscape(runId)
}
