package shiori

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiori/internal/recipe"
)

const infoResponse = `{"version":5,"type":"multiinfo","resultcount":1,"results":[
 {"Name":"yay","PackageBase":"yay","Version":"12.3.5-1","Description":"Yet another yogurt",
  "URLPath":"/cgit/aur.git/snapshot/yay.tar.gz","Depends":["pacman>6.1","git"],"MakeDepends":["go>=1.21"]}]}`

type fakeAUR struct {
	*httptest.Server
	rpcCalls atomic.Int32
}

func newFakeAUR(t *testing.T) *fakeAUR {
	f := &fakeAUR{}
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc/", func(w http.ResponseWriter, r *http.Request) {
		f.rpcCalls.Add(1)
		assert.Equal(t, "5", r.URL.Query().Get("v"))
		assert.Equal(t, "info", r.URL.Query().Get("type"))
		w.Header().Set("Content-Type", "application/json")
		for _, arg := range r.URL.Query()["arg[]"] {
			if arg == "yay" {
				w.Write([]byte(infoResponse))
				return
			}
		}
		w.Write([]byte(`{"version":5,"type":"multiinfo","resultcount":0,"results":[]}`))
	})
	mux.HandleFunc("/cgit/aur.git/snapshot/yay.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("snapshot"))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func nativeTools(t *testing.T) *Toolset {
	t.Helper()
	ts, err := NewToolset(emptyConfig(), quietDisplay(), false)
	require.NoError(t, err)
	require.NoError(t, ts.Update("download", "shiori-no-such-downloader $output $url"))
	return ts
}

func TestAURInfoCaches(t *testing.T) {
	srv := newFakeAUR(t)
	c := NewAURClient(srv.URL+"/", nativeTools(t), quietDisplay())
	ctx := context.Background()

	infos, err := c.Info(ctx, "yay", "nothere")
	require.NoError(t, err)
	require.Contains(t, infos, "yay")
	assert.NotContains(t, infos, "nothere")
	assert.Equal(t, "12.3.5-1", infos["yay"].Version)
	assert.Equal(t, []string{"pacman>6.1", "git"}, infos["yay"].Depends)

	infos, err = c.Info(ctx, "yay", "nothere")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
	assert.EqualValues(t, 1, srv.rpcCalls.Load(), "misses are cached too")
}

func TestAURDownload(t *testing.T) {
	srv := newFakeAUR(t)
	c := NewAURClient(srv.URL, nativeTools(t), quietDisplay())
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "yay.tar.gz")

	require.NoError(t, c.Download(ctx, "yay", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", string(data))
	assert.NoFileExists(t, dest+".lock")

	err = c.Download(ctx, "nothere", filepath.Join(t.TempDir(), "nothere.tar.gz"))
	assert.ErrorIs(t, err, recipe.ErrPackageNotFound)
}

func TestNativeDownloadNotFound(t *testing.T) {
	srv := newFakeAUR(t)
	d := &downloader{disp: quietDisplay(), http: newHTTPClient()}
	dest := filepath.Join(t.TempDir(), "missing.tar.gz")

	err := d.fetch(context.Background(), srv.URL+"/cgit/aur.git/snapshot/missing.tar.gz", dest)
	assert.ErrorIs(t, err, recipe.ErrPackageNotFound)
	assert.NoFileExists(t, dest)
}

func TestSnapshotURL(t *testing.T) {
	c := NewAURClient("https://aur.example.org", nil, quietDisplay())
	assert.Equal(t, "https://aur.example.org/cgit/aur.git/snapshot/foo.tar.gz", c.SnapshotURL("foo", nil))
	assert.Equal(t, "https://aur.example.org/cgit/aur.git/snapshot/base.tar.gz",
		c.SnapshotURL("foo-split", &PackageInfo{URLPath: "/cgit/aur.git/snapshot/base.tar.gz"}))
}
