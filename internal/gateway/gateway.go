package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"frameselect/pkg/api"

	"github.com/go-resty/resty/v2"
)

// NetworkError is returned for any transport failure or non-2xx response
// from the scoring backend. Message prefers the backend's `detail` field
// when the body carries one, falling back to the HTTP status.
type NetworkError struct {
	StatusCode int
	Message    string
}

func (e *NetworkError) Error() string {
	return e.Message
}

// Client is a typed wrapper over the scoring backend's HTTP surface. It
// holds no business logic; callers own retries and sequencing.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL string) *Client {
	return &Client{client: resty.New().SetBaseURL(baseURL)}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func responseError(res *resty.Response, op string) error {
	var body errorBody
	msg := res.Status()
	if err := json.Unmarshal(res.Body(), &body); err == nil && body.Detail != "" {
		msg = body.Detail
	}
	slog.Error("backend request failed", "op", op, "status_code", res.StatusCode(), "message", msg)
	return &NetworkError{StatusCode: res.StatusCode(), Message: fmt.Sprintf("%s: %s", op, msg)}
}

func transportError(op string, err error) error {
	slog.Error("backend unreachable", "op", op, "error", err)
	return &NetworkError{Message: fmt.Sprintf("%s: %v", op, err)}
}

// Upload posts the given files as a multipart batch and returns the upload
// identifier used by all subsequent operations.
func (c *Client) Upload(ctx context.Context, paths []string) (api.UploadResponse, error) {
	req := c.client.R().SetContext(ctx)
	for _, path := range paths {
		req.SetFile("files", path)
	}

	res, err := req.Post("/upload")
	if err != nil {
		return api.UploadResponse{}, transportError("upload failed", err)
	}
	if !res.IsSuccess() {
		return api.UploadResponse{}, responseError(res, "upload failed")
	}

	var out api.UploadResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.UploadResponse{}, fmt.Errorf("error parsing upload response: %w", err)
	}
	return out, nil
}

// StartAnalysis kicks off the asynchronous scoring job for an upload.
func (c *Client) StartAnalysis(ctx context.Context, uploadID string) (api.AnalyzeResponse, error) {
	res, err := c.client.R().SetContext(ctx).Post("/analyze/" + uploadID)
	if err != nil {
		return api.AnalyzeResponse{}, transportError("analysis failed", err)
	}
	if !res.IsSuccess() {
		return api.AnalyzeResponse{}, responseError(res, "analysis failed")
	}

	var out api.AnalyzeResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.AnalyzeResponse{}, fmt.Errorf("error parsing analyze response: %w", err)
	}
	return out, nil
}

// PollJob returns a read-only snapshot of the job. Safe to call repeatedly.
func (c *Client) PollJob(ctx context.Context, jobID string) (api.JobStatus, error) {
	res, err := c.client.R().SetContext(ctx).Get("/jobs/" + jobID)
	if err != nil {
		return api.JobStatus{}, transportError("failed to get job status", err)
	}
	if !res.IsSuccess() {
		return api.JobStatus{}, responseError(res, "failed to get job status")
	}

	var out api.JobStatus
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.JobStatus{}, fmt.Errorf("error parsing job status: %w", err)
	}
	return out, nil
}

// FetchResults returns the scored image collection for a completed upload.
// Fails with a NetworkError if results are not yet available.
func (c *Client) FetchResults(ctx context.Context, uploadID string) (api.ResultsResponse, error) {
	res, err := c.client.R().SetContext(ctx).Get("/results/" + uploadID)
	if err != nil {
		return api.ResultsResponse{}, transportError("failed to get results", err)
	}
	if !res.IsSuccess() {
		return api.ResultsResponse{}, responseError(res, "failed to get results")
	}

	var out api.ResultsResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return api.ResultsResponse{}, fmt.Errorf("error parsing results: %w", err)
	}
	return out, nil
}

// Export is a downloaded export archive: the raw payload plus the filename
// suggested by the backend (or a deterministic fallback).
type Export struct {
	Filename string
	Data     []byte
}

// ExportSelected requests a ZIP of the given images. The filename comes
// from the content-disposition header when present.
func (c *Client) ExportSelected(ctx context.Context, uploadID string, imageIDs []string) (Export, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(imageIDs).
		Post("/export/" + uploadID)
	if err != nil {
		return Export{}, transportError("export failed", err)
	}
	if !res.IsSuccess() {
		return Export{}, responseError(res, "export failed")
	}

	filename := parseAttachmentFilename(res.Header().Get("Content-Disposition"))
	if filename == "" {
		filename = fmt.Sprintf("frame_select_export_%d_images.zip", len(imageIDs))
	}

	return Export{Filename: filename, Data: res.Body()}, nil
}

// SaveExport writes the export payload under its suggested filename in dir,
// creating the directory if needed. Returns the written path.
func (c *Client) SaveExport(export Export, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating download dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(export.Filename))
	if err := os.WriteFile(path, export.Data, 0644); err != nil {
		return "", fmt.Errorf("error writing export file: %w", err)
	}
	slog.Info("saved export archive", "path", path, "bytes", len(export.Data))
	return path, nil
}

// parseAttachmentFilename extracts the filename token from a
// content-disposition style header. Handles both quoted and bare tokens;
// quotes are stripped. Returns "" when no filename is present.
func parseAttachmentFilename(header string) string {
	_, rest, found := strings.Cut(header, "filename=")
	if !found {
		return ""
	}
	if len(rest) > 0 && (rest[0] == '"' || rest[0] == '\'') {
		quote := rest[:1]
		rest = rest[1:]
		name, _, _ := strings.Cut(rest, quote)
		return name
	}
	name, _, _ := strings.Cut(rest, ";")
	return strings.TrimSpace(name)
}

// ImageURL builds the full-resolution image URL. No I/O.
func (c *Client) ImageURL(uploadID, imageID string) string {
	return fmt.Sprintf("%s/image/%s/%s", c.client.BaseURL, uploadID, imageID)
}

// ThumbURL builds the thumbnail URL. No I/O.
func (c *Client) ThumbURL(uploadID, imageID string) string {
	return fmt.Sprintf("%s/thumb/%s/%s", c.client.BaseURL, uploadID, imageID)
}
