package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sandwich-alignment/alignment/internal/models"
)

// MinImageBytes rejects error pages and empty placeholders served as images
const MinImageBytes = 100

var ErrNotImage = errors.New("response is not an image")

// Fetcher mirrors catalog item images into a local directory so the static
// front end can serve them
type Fetcher struct {
	HTTPClient *http.Client
	// Workers bounds concurrent downloads
	Workers int
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Workers: 4,
	}
}

// Result reports one item's download
type Result struct {
	ItemID string
	Path   string
	Err    error
}

// FetchAll downloads each item's ImagePath, resolved against baseURL, to the
// same relative path under outputDir. Items without an image are skipped and
// existing files are kept unless overwrite is set.
func (f *Fetcher) FetchAll(ctx context.Context, items []models.Item, baseURL, outputDir string, overwrite bool) []Result {
	base, err := url.Parse(baseURL)
	if err != nil {
		return []Result{{Err: fmt.Errorf("invalid base URL: %w", err)}}
	}

	workers := f.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(items))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for i, item := range items {
		results[i].ItemID = item.ID
		if item.ImagePath == "" {
			continue
		}

		wg.Add(1)
		go func(i int, item models.Item) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			dest, err := localPath(outputDir, item.ImagePath)
			if err != nil {
				results[i].Err = err
				return
			}
			results[i].Path = dest

			if !overwrite {
				if _, err := os.Stat(dest); err == nil {
					slog.Debug("Image already present", "item", item.ID, "path", dest)
					return
				}
			}

			ref, err := url.Parse(item.ImagePath)
			if err != nil {
				results[i].Err = fmt.Errorf("invalid image path %q: %w", item.ImagePath, err)
				return
			}
			results[i].Err = f.download(ctx, base.ResolveReference(ref).String(), dest)
		}(i, item)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			slog.Warn("Failed to fetch image", "item", r.ItemID, "err", r.Err)
		}
	}
	return results
}

// localPath maps an image path or URL onto a file under outputDir
func localPath(outputDir, imagePath string) (string, error) {
	p := imagePath
	if u, err := url.Parse(imagePath); err == nil && u.Path != "" {
		p = u.Path
	}
	p = filepath.FromSlash(strings.TrimPrefix(p, "/"))
	if p == "" || strings.Contains(p, "..") {
		return "", fmt.Errorf("invalid image path %q", imagePath)
	}
	return filepath.Join(outputDir, p), nil
}

// download fetches url and writes it to outputPath
func (f *Fetcher) download(ctx context.Context, url, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: %s", ErrNotImage, ct)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) < MinImageBytes {
		return fmt.Errorf("image too small (likely invalid), size: %d bytes", len(imageData))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(outputPath, imageData, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	slog.Debug("Fetched image", "url", url, "path", outputPath, "bytes", len(imageData))
	return nil
}
