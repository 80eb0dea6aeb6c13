package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ProgressFunc is called during download with bytes downloaded and total.
type ProgressFunc func(downloaded, total int64)

// Store manages model files in a single directory.
type Store struct {
	Dir     string
	BaseURL string
	Client  *http.Client
}

// DefaultDir is ~/.local/share/livesub/models.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "livesub", "models"), nil
}

// NewStore returns a store rooted at dir, or DefaultDir when dir is empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("models directory: %w", err)
		}
		dir = d
	}
	return &Store{Dir: dir, BaseURL: defaultBaseURL, Client: http.DefaultClient}, nil
}

// Path returns where a model lives, whether or not it is installed.
func (s *Store) Path(id string) (string, error) {
	m, ok := Get(id)
	if !ok {
		return "", fmt.Errorf("unknown model: %s", id)
	}
	return filepath.Join(s.Dir, m.Filename), nil
}

func (s *Store) IsInstalled(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func (s *Store) Installed() []string {
	var ids []string
	for _, m := range catalogue {
		if s.IsInstalled(m.ID) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Resolve maps a configured model to a file: an existing path is used
// as is, otherwise the value must name an installed catalogue model.
func (s *Store) Resolve(model string) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	if info, err := os.Stat(model); err == nil && !info.IsDir() {
		return model, nil
	}
	if _, ok := Get(model); !ok {
		return "", fmt.Errorf("unknown model: %s", model)
	}
	if !s.IsInstalled(model) {
		return "", fmt.Errorf("model not installed: %s (run `livesub model download %s`)", model, model)
	}
	return s.Path(model)
}

// Download fetches a model into the store. The file only appears under its
// final name once the transfer has completed.
func (s *Store) Download(ctx context.Context, id string, onProgress ProgressFunc) error {
	m, ok := Get(id)
	if !ok {
		return fmt.Errorf("unknown model: %s", id)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}

	destPath := filepath.Join(s.Dir, m.Filename)
	tempPath := destPath + ".downloading"

	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		out.Close()
		os.Remove(tempPath)
	}()

	url := s.BaseURL + "/" + m.Filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	if total < 0 {
		total = m.SizeBytes
	}

	log.Info().Str("model", id).Str("url", url).Msg("Models: downloading")

	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			downloaded += int64(n)
			if onProgress != nil {
				onProgress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tempPath, destPath); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}

	log.Info().Str("model", id).Int64("bytes", downloaded).Msg("Models: download complete")
	return nil
}

func (s *Store) Remove(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if !s.IsInstalled(id) {
		return fmt.Errorf("model not installed: %s", id)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove model: %w", err)
	}
	return nil
}
