// Package fetcher downloads model artifacts and parses uploaded CSV, XLSX, and JSON documents.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for retrieving remote files.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL returns the fetcher that handles rawURL's scheme. A URL without a
// scheme is treated as a local path.
func ForURL(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{}), nil
	case "file", "":
		return &FileFetcher{}, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}

// JoinURL appends name to base, which may be a URL or a local directory.
func JoinURL(base, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse base url")
	}
	if u.Scheme == "" {
		return filepath.Join(base, name), nil
	}
	return u.JoinPath(name).String(), nil
}

// copyToFile writes body to path and returns the byte count.
func copyToFile(body io.Reader, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, eris.Wrap(file.Sync(), "sync file")
}
