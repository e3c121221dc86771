package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	goopenai "github.com/sashabaranov/go-openai"
)

// FileUploadRequest carries the multipart fields of an upload. The reader is
// streamed into the outbound form; it is not buffered anywhere else.
type FileUploadRequest struct {
	FileName string
	Purpose  goopenai.PurposeType
	Reader   io.Reader
}

// DeleteFileResponse is the upstream deletion acknowledgement, which the SDK
// does not model.
type DeleteFileResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

func (c *Client) UploadFile(ctx context.Context, r *FileUploadRequest) (*goopenai.File, error) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	if err := writer.WriteField("purpose", string(r.Purpose)); err != nil {
		return nil, fmt.Errorf("error when writing purpose field: %w", err)
	}

	fieldWriter, err := writer.CreateFormFile("file", r.FileName)
	if err != nil {
		return nil, fmt.Errorf("error when creating form file: %w", err)
	}

	if _, err := io.Copy(fieldWriter, r.Reader); err != nil {
		return nil, fmt.Errorf("error when copying file contents: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("error when closing multipart writer: %w", err)
	}

	res := &goopenai.File{}
	if err := c.do(ctx, http.MethodPost, "/files", &b, writer.FormDataContentType(), res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) ListFiles(ctx context.Context) (*goopenai.FilesList, error) {
	res := &goopenai.FilesList{}
	if err := c.doJson(ctx, http.MethodGet, "/files", nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) RetrieveFile(ctx context.Context, fileId string) (*goopenai.File, error) {
	res := &goopenai.File{}
	if err := c.doJson(ctx, http.MethodGet, filePath(fileId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileId string) (*DeleteFileResponse, error) {
	res := &DeleteFileResponse{}
	if err := c.doJson(ctx, http.MethodDelete, filePath(fileId), nil, res); err != nil {
		return nil, err
	}

	return res, nil
}

// RetrieveFileContent returns the raw file bytes and the upstream content
// type so the caller can relay both untouched.
func (c *Client) RetrieveFileContent(ctx context.Context, fileId string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseUrl+filePath(fileId)+"/content", nil)
	if err != nil {
		return nil, "", fmt.Errorf("error when creating openai http request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error when reading openai response body: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, "", decodeErrorResponse(data, res.StatusCode)
	}

	return data, res.Header.Get("Content-Type"), nil
}

func filePath(fileId string) string {
	return "/files/" + url.PathEscape(fileId)
}
