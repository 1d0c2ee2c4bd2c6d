package shiori

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"shiori/internal/recipe"
	"shiori/internal/workspace"
)

const infoCacheSize = 512

// PackageInfo is one result of the AUR RPC info query.
type PackageInfo struct {
	Name        string   `json:"Name"`
	PackageBase string   `json:"PackageBase"`
	Version     string   `json:"Version"`
	Description string   `json:"Description"`
	URLPath     string   `json:"URLPath"`
	OutOfDate   *int64   `json:"OutOfDate"`
	Depends     []string `json:"Depends"`
	MakeDepends []string `json:"MakeDepends"`
}

type rpcResponse struct {
	Type        string         `json:"type"`
	ResultCount int            `json:"resultcount"`
	Results     []*PackageInfo `json:"results"`
	Error       string         `json:"error"`
}

// AURClient queries the AUR and downloads recipe snapshots. It implements
// workspace.Source.
type AURClient struct {
	BaseURL string
	dl      *downloader
	// name -> *PackageInfo, or nil for names the AUR does not know
	cache *lru.ARCCache
}

var _ workspace.Source = (*AURClient)(nil)

// NewAURClient returns a client for baseURL. tools may be nil, in which case
// downloads always use the built-in HTTP client.
func NewAURClient(baseURL string, tools *Toolset, disp *Display) *AURClient {
	cache, _ := lru.NewARC(infoCacheSize)
	return &AURClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		dl:      &downloader{tools: tools, disp: disp, http: newHTTPClient()},
		cache:   cache,
	}
}

// Info looks up names, returning the known ones. Results, including misses,
// are cached for the life of the client.
func (c *AURClient) Info(ctx context.Context, names ...string) (map[string]*PackageInfo, error) {
	found := make(map[string]*PackageInfo)
	var query []string
	for _, name := range names {
		if v, ok := c.cache.Get(name); ok {
			if info, _ := v.(*PackageInfo); info != nil {
				found[name] = info
			}
			continue
		}
		query = append(query, name)
	}
	if len(query) == 0 {
		return found, nil
	}

	params := url.Values{"v": {"5"}, "type": {"info"}}
	for _, name := range query {
		params.Add("arg[]", name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/rpc/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.dl.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aur query failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aur query failed with status: %s", resp.Status)
	}
	var rpc rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return nil, fmt.Errorf("failed to decode aur response: %w", err)
	}
	if rpc.Type == "error" {
		return nil, fmt.Errorf("aur error: %s", rpc.Error)
	}

	for _, info := range rpc.Results {
		c.cache.Add(info.Name, info)
		found[info.Name] = info
	}
	for _, name := range query {
		if _, ok := found[name]; !ok {
			c.cache.Add(name, (*PackageInfo)(nil))
		}
	}
	return found, nil
}

// SnapshotURL is the archive URL of name, using the RPC URL path when known.
func (c *AURClient) SnapshotURL(name string, info *PackageInfo) string {
	if info != nil && info.URLPath != "" {
		return c.BaseURL + info.URLPath
	}
	return fmt.Sprintf("%s/cgit/aur.git/snapshot/%s.tar.gz", c.BaseURL, url.PathEscape(name))
}

// Download fetches the recipe snapshot of name to dest. Names the AUR does
// not know wrap recipe.ErrPackageNotFound.
func (c *AURClient) Download(ctx context.Context, name, dest string) error {
	infos, err := c.Info(ctx, name)
	if err != nil {
		c.dl.disp.Debugf("aur info for %s failed, guessing snapshot url: %v\n", name, err)
	} else if infos[name] == nil {
		return fmt.Errorf("%s: %w", name, recipe.ErrPackageNotFound)
	}
	return c.dl.fetch(ctx, c.SnapshotURL(name, infos[name]), dest)
}
