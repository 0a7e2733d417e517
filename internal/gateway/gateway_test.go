package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"frameselect/internal/gateway"
	"frameselect/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("image bytes "+name), 0644))
		paths = append(paths, path)
	}
	return paths
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		assert.Len(t, files, 2)

		json.NewEncoder(w).Encode(api.UploadResponse{UploadId: "up1", Count: len(files)})
	}))
	defer server.Close()

	client := gateway.NewClient(server.URL)
	out, err := client.Upload(context.Background(), writeTempFiles(t, "a.jpg", "b.jpg"))

	require.NoError(t, err)
	assert.Equal(t, "up1", out.UploadId)
	assert.Equal(t, 2, out.Count)
}

func TestErrorDetailExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "No files provided"})
	}))
	defer server.Close()

	client := gateway.NewClient(server.URL)
	_, err := client.Upload(context.Background(), writeTempFiles(t, "a.jpg"))

	var netErr *gateway.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusBadRequest, netErr.StatusCode)
	assert.Contains(t, netErr.Message, "No files provided")
}

func TestErrorFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not json", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := gateway.NewClient(server.URL)
	_, err := client.StartAnalysis(context.Background(), "up1")

	var netErr *gateway.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.Contains(t, netErr.Message, "500")
}

func TestTransportError(t *testing.T) {
	client := gateway.NewClient("http://127.0.0.1:0")

	_, err := client.PollJob(context.Background(), "job1")

	var netErr *gateway.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Zero(t, netErr.StatusCode)
}

func TestPollJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job1", r.URL.Path)
		json.NewEncoder(w).Encode(api.JobStatus{Status: api.JobRunning, Progress: 0.5, UploadId: "up1"})
	}))
	defer server.Close()

	client := gateway.NewClient(server.URL)
	status, err := client.PollJob(context.Background(), "job1")

	require.NoError(t, err)
	assert.Equal(t, api.JobRunning, status.Status)
	assert.Equal(t, 0.5, status.Progress)
}

func TestExportSelected(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"quoted filename", `attachment; filename="export.zip"`, "export.zip"},
		{"bare filename", `attachment; filename=export.zip`, "export.zip"},
		{"bare filename with params", `attachment; filename=export.zip; size=3`, "export.zip"},
		{"missing header", "", "frame_select_export_2_images.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var ids []string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
				assert.Equal(t, []string{"a", "b"}, ids)

				if tt.disposition != "" {
					w.Header().Set("Content-Disposition", tt.disposition)
				}
				w.Write([]byte("zip bytes"))
			}))
			defer server.Close()

			client := gateway.NewClient(server.URL)
			export, err := client.ExportSelected(context.Background(), "up1", []string{"a", "b"})

			require.NoError(t, err)
			assert.Equal(t, tt.want, export.Filename)
			assert.Equal(t, []byte("zip bytes"), export.Data)
		})
	}
}

func TestSaveExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	client := gateway.NewClient("http://unused")

	path, err := client.SaveExport(gateway.Export{Filename: "export.zip", Data: []byte("zip")}, dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export.zip"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip"), data)
}

func TestURLBuilders(t *testing.T) {
	client := gateway.NewClient("http://backend:8000")

	assert.Equal(t, "http://backend:8000/image/up1/a.jpg", client.ImageURL("up1", "a.jpg"))
	assert.Equal(t, "http://backend:8000/thumb/up1/a.jpg", client.ThumbURL("up1", "a.jpg"))
}
