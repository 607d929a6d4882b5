package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/bedag/subst-installer/pkg/httpclient"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 5 * time.Minute

// ProgressFunc is a callback for download progress
type ProgressFunc func(downloaded, total int64)

// RetrievalError is returned when an archive could not be downloaded.
type RetrievalError struct {
	URL string
	// StatusCode is set when the server answered with something other than 200
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to download %s: unexpected status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Fetcher downloads release archives. A failed download is not retried.
type Fetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	Progress ProgressFunc
}

// New creates a fetcher whose downloads are bounded by timeout.
// A zero timeout selects DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		Client:  httpclient.NewClient(timeout),
		Timeout: timeout,
	}
}

// Fetch downloads url into a new file in destDir and returns its path.
// Network and server failures are returned as *RetrievalError, a file that
// cannot be created in destDir is not.
func (f *Fetcher) Fetch(ctx context.Context, url, destDir string) (string, error) {
	client := f.Client
	if client == nil {
		client = httpclient.NewClient(f.Timeout)
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &RetrievalError{URL: url, Err: errors.Wrap(err, "failed to create request")}
	}

	log.Debugf("GET %s", url)
	resp, err := client.Do(req)
	if err != nil {
		return "", &RetrievalError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RetrievalError{URL: url, StatusCode: resp.StatusCode}
	}

	tmpFile, err := os.CreateTemp(destDir, ".download-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := copyWithProgress(tmpFile, resp.Body, resp.ContentLength, f.Progress)
	if closeErr := tmpFile.Close(); err == nil && closeErr != nil {
		return "", errors.Wrap(closeErr, "failed to close temporary file")
	}
	if err != nil {
		return "", &RetrievalError{URL: url, Err: errors.Wrap(err, "failed to read response body")}
	}
	if written == 0 {
		return "", &RetrievalError{URL: url, Err: fmt.Errorf("no content downloaded")}
	}

	log.Debugf("downloaded %d bytes to %s", written, tmpPath)
	success = true
	return tmpPath, nil
}

// copyWithProgress copies data and reports progress
func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	var written int64
	buf := make([]byte, 32*1024) // 32KB buffer

	for {
		nr, readErr := src.Read(buf)
		if nr > 0 {
			nw, writeErr := dst.Write(buf[0:nr])
			if writeErr != nil {
				return written, writeErr
			}
			written += int64(nw)

			if progress != nil {
				progress(written, total)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
