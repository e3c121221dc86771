package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// The Responses API surface is relayed as opaque JSON: this proxy neither
// interprets nor stores its payloads, and the SDK carries no schema for it.

func (c *Client) CreateResponse(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.doJson(ctx, http.MethodPost, "/responses", body, &res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveResponse(ctx context.Context, responseId string) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.doJson(ctx, http.MethodGet, responsePath(responseId), nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) DeleteResponse(ctx context.Context, responseId string) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.doJson(ctx, http.MethodDelete, responsePath(responseId), nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) CancelResponse(ctx context.Context, responseId string) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.doJson(ctx, http.MethodPost, responsePath(responseId)+"/cancel", nil, &res); err != nil {
		return nil, err
	}

	return res, nil
}

func responsePath(responseId string) string {
	return "/responses/" + url.PathEscape(responseId)
}
