package shiori

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"

	"shiori/internal/recipe"
	"shiori/internal/workspace"
)

func newHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second
	return &http.Client{
		Transport: transport,
		Timeout:   5 * time.Minute,
	}
}

// downloader fetches URLs to files, preferring the configured download tool
// and falling back to the built-in HTTP client when the tool is missing.
type downloader struct {
	tools *Toolset
	disp  *Display
	http  *http.Client
}

// fetch downloads url to dest. Concurrent fetches of the same dest are
// serialised with a lock file. A 404 from the built-in client wraps
// recipe.ErrPackageNotFound.
func (d *downloader) fetch(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dest, err)
	}
	lockPath := dest + ".lock"
	lock, err := os.Create(lockPath)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer func() {
		lock.Close()
		_ = os.Remove(lockPath)
	}()
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock for download: %w", err)
	}
	defer unix.Flock(int(lock.Fd()), unix.LOCK_UN)

	d.disp.Debugf("Downloading %s -> %s\n", url, dest)
	if d.tools != nil && d.tools.Available("download") {
		err := d.tools.Run(ctx, workspace.Call{
			Tool:   "download",
			Params: map[string]string{"output": dest, "url": url},
		})
		if err == nil {
			return nil
		}
		_ = os.Remove(dest)
		return err
	}
	d.disp.Debugf("download tool not found, using native Go HTTP client\n")
	if err := d.native(ctx, url, dest); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

func (d *downloader) native(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("native http get failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, recipe.ErrPackageNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dest, err)
	}
	defer out.Close()

	var w io.Writer = out
	if d.disp.Verbosity >= Normal {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(d.disp.Err),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write to destination file: %w", err)
	}
	return nil
}
