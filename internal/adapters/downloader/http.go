package downloader

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// HTTPDownloader streams media bytes from a direct URL. It carries the
// header/identity profile of whichever acquisition strategy is using it.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a downloader. insecureTLS relaxes certificate
// verification for strategies that allow it.
func NewHTTPDownloader(timeout time.Duration, insecureTLS bool) *HTTPDownloader {
	if timeout <= 0 {
		timeout = 30 * time.Minute // videos can be large
	}
	transport := &http.Transport{}
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &HTTPDownloader{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Download fetches the media from the given URL with the given headers.
// Returns a ReadCloser that the caller must close.
func (d *HTTPDownloader) Download(ctx context.Context, mediaURL string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// FetchToFile streams the media into dest and returns the byte count.
// A partial file left by a failed transfer is removed before returning.
func (d *HTTPDownloader) FetchToFile(ctx context.Context, mediaURL string, headers map[string]string, dest string) (int64, error) {
	body, err := d.Download(ctx, mediaURL, headers)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	file, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", dest, err)
	}

	n, err := io.Copy(file, body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("failed to write media file: %w", err)
	}
	return n, nil
}
