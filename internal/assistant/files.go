package assistant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadFile pushes a file to the remote service with purpose=assistants so
// the code interpreter can read it
func (c *Client) UploadFile(ctx context.Context, filename string, data io.Reader) (File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("purpose", "assistants"); err != nil {
		return File{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return File{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return File{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return File{}, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/files"), &buf)
	if err != nil {
		return File{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return File{}, apiError(resp)
	}

	var file File
	if err := decodeJSON(resp.Body, &file); err != nil {
		return File{}, err
	}
	return file, nil
}

// DeleteFile removes a file from the remote service
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/files/"+fileID, nil, nil)
}

// RetrieveFile fetches metadata for a file
func (c *Client) RetrieveFile(ctx context.Context, fileID string) (File, error) {
	var file File
	if err := c.doJSON(ctx, http.MethodGet, "/files/"+fileID, nil, &file); err != nil {
		return File{}, err
	}
	return file, nil
}

// FileContent reads the raw bytes of a file
func (c *Client) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/files/"+fileID+"/content"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	return content, nil
}
