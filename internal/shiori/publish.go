package shiori

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/cp"
	"lukechampine.com/blake3"
)

// IndexFile is written next to the published packages.
const IndexFile = "shiori-index.json"

// Artifact is a built package file.
type Artifact struct {
	Name    string
	Version string
	Path    string
}

// IndexEntry describes one published package.
type IndexEntry struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	File      string    `json:"file"`
	Size      int64     `json:"size"`
	Blake3    string    `json:"blake3"`
	Published time.Time `json:"published"`
}

// RepoIndex is the content of IndexFile.
type RepoIndex struct {
	Repo     string       `json:"repo"`
	Packages []IndexEntry `json:"packages"`
}

// Publisher copies built packages into the local repository, registers them
// with repo-add and optionally mirrors them.
type Publisher struct {
	Dir      string
	RepoName string
	tools    *Toolset
	disp     *Display
	mirror   *MirrorClient
	now      func() time.Time
}

// NewPublisher returns a publisher for dir/repoName. mirror may be nil.
func NewPublisher(dir, repoName string, tools *Toolset, disp *Display, mirror *MirrorClient) *Publisher {
	return &Publisher{Dir: dir, RepoName: repoName, tools: tools, disp: disp, mirror: mirror, now: time.Now}
}

// Publish adds the artifacts to the repository and refreshes the index.
func (p *Publisher) Publish(ctx context.Context, artifacts []Artifact) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.Dir, err)
	}
	idx, err := p.loadIndex()
	if err != nil {
		return err
	}

	var published []string
	for _, a := range artifacts {
		target := filepath.Join(p.Dir, filepath.Base(a.Path))
		if err := cp.CopyFile(target, a.Path); err != nil {
			return fmt.Errorf("failed to copy %s: %w", a.Path, err)
		}
		if err := p.tools.RunTool(ctx, "repo_add", filepath.Join(p.Dir, p.RepoName), target); err != nil {
			return err
		}
		entry, err := p.describe(a, target)
		if err != nil {
			return err
		}
		idx.put(entry)
		published = append(published, target)
		p.disp.Infof("published %s\n", filepath.Base(target))
	}

	indexPath := filepath.Join(p.Dir, IndexFile)
	if err := p.writeIndex(indexPath, idx); err != nil {
		return err
	}
	if p.mirror == nil {
		return nil
	}
	for _, file := range append(published, indexPath) {
		if err := p.mirror.UploadFile(ctx, p.mirror.Key(filepath.Base(file)), file); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) describe(a Artifact, path string) (IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return IndexEntry{}, err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	size, err := io.Copy(h, f)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return IndexEntry{
		Name:      a.Name,
		Version:   a.Version,
		File:      filepath.Base(path),
		Size:      size,
		Blake3:    hex.EncodeToString(h.Sum(nil)),
		Published: p.now().UTC(),
	}, nil
}

func (p *Publisher) loadIndex() (*RepoIndex, error) {
	idx := &RepoIndex{Repo: p.RepoName}
	data, err := os.ReadFile(filepath.Join(p.Dir, IndexFile))
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", IndexFile, err)
	}
	return idx, nil
}

// put replaces the entry of the same package.
func (idx *RepoIndex) put(e IndexEntry) {
	for i := range idx.Packages {
		if idx.Packages[i].Name == e.Name {
			idx.Packages[i] = e
			return
		}
	}
	idx.Packages = append(idx.Packages, e)
	sort.Slice(idx.Packages, func(i, j int) bool { return idx.Packages[i].Name < idx.Packages[j].Name })
}

func (p *Publisher) writeIndex(path string, idx *RepoIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
