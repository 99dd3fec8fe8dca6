package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// FileFetcher reads from the local filesystem. It accepts file:// URLs and bare paths.
type FileFetcher struct{}

func localPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "parse file url")
	}
	if u.Scheme == "" {
		return rawURL, nil
	}
	if u.Scheme != "file" {
		return "", eris.Errorf("expected file scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return "", eris.New("empty path in file url")
	}
	return u.Path, nil
}

// Download opens the file for reading.
func (f *FileFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "file: context cancelled")
	}
	path, err := localPath(rawURL)
	if err != nil {
		return nil, err
	}
	rc, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "file: open")
	}
	return rc, nil
}

// DownloadToFile copies the source file to path.
func (f *FileFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck
	return copyToFile(rc, path)
}
