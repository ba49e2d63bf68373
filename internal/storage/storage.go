// Package storage uploads user-supplied images and fetches them back for rendering.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotImage  = errors.New("file is not an image")
	ErrEmptyFile = errors.New("file is empty")
)

// Uploader stores a named object and returns the public URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Fetcher downloads a previously stored object.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// imageTypes are the formats the PDF renderer can embed.
var imageTypes = []string{"image/png", "image/jpeg", "image/gif"}

// SniffImage detects the content type of data and rejects anything that is not
// a PNG, JPEG or GIF image.
func SniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	mtype := mimetype.Detect(data)
	for _, t := range imageTypes {
		if mtype.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, mtype.String())
}

// HTTPFetcher downloads objects over plain HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher that refuses bodies larger than maxBytes.
func NewHTTPFetcher(client *http.Client, maxBytes int64) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, f.maxBytes)
	}
	return data, nil
}
