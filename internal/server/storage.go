package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"

	"frameselect/pkg/api"
)

// Storage keeps uploaded batches and their analysis results on local disk:
// dataDir/<uploadID>/<filename> for originals, results.json alongside.
type Storage struct {
	baseDir string
}

func NewStorage(dir string) (*Storage, error) {
	baseDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", baseDir, err)
	}
	return &Storage{baseDir: baseDir}, nil
}

func (s *Storage) uploadDir(uploadID string) string {
	return filepath.Join(s.baseDir, uploadID)
}

func (s *Storage) UploadExists(uploadID string) bool {
	info, err := os.Stat(s.uploadDir(uploadID))
	return err == nil && info.IsDir()
}

// SaveUpload writes the multipart files under a fresh upload directory and
// returns the number of files saved.
func (s *Storage) SaveUpload(uploadID string, files []*multipart.FileHeader) (int, error) {
	dir := s.uploadDir(uploadID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create upload dir: %w", err)
	}

	saved := 0
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return saved, fmt.Errorf("failed to open uploaded file %s: %w", fh.Filename, err)
		}

		name := filepath.Base(fh.Filename)
		dst, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			src.Close()
			return saved, fmt.Errorf("failed to create file %s: %w", name, err)
		}

		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return saved, fmt.Errorf("failed to write file %s: %w", name, err)
		}
		saved++
	}
	return saved, nil
}

// ImageFiles lists the image filenames of an upload in lexical order.
func (s *Storage) ImageFiles(uploadID string) ([]string, error) {
	entries, err := os.ReadDir(s.uploadDir(uploadID))
	if err != nil {
		return nil, fmt.Errorf("failed to list upload %s: %w", uploadID, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == resultsFile {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) ImagePath(uploadID, filename string) string {
	return filepath.Join(s.uploadDir(uploadID), filepath.Base(filename))
}

const resultsFile = "results.json"

func (s *Storage) SaveResults(uploadID string, results *api.ResultsResponse) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}
	path := filepath.Join(s.uploadDir(uploadID), resultsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func (s *Storage) LoadResults(uploadID string) (*api.ResultsResponse, error) {
	data, err := os.ReadFile(filepath.Join(s.uploadDir(uploadID), resultsFile))
	if err != nil {
		return nil, err
	}
	var results api.ResultsResponse
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse stored results: %w", err)
	}
	return &results, nil
}
