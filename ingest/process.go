package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"ragkb"
	"ragkb/localstore"

	"gopkg.in/yaml.v2"
)

// ChunkSize is the length compressed chunks grow to before a new one starts.
const ChunkSize = 300

type Metadata struct {
	Title string
	Autor string `yaml:"author"`
	Tags  []string
	Date  string
}

// Sink receives the documents of a post.
type Sink interface {
	Add(ctx context.Context, doc localstore.Document) error
}

type Importer struct {
	sink    Sink
	baseRef string
	nextID  int
}

func NewImporter(sink Sink, baseRef string) *Importer {
	return &Importer{sink: sink, baseRef: baseRef}
}

// ProcessFile chunks one markdown file and adds every chunk to the sink.
// The context of a chunk includes its neighbours.
func (im *Importer) ProcessFile(ctx context.Context, path string) (int, error) {
	log := ragkb.Logger
	log.Info("Processing Index", "path", path)
	source, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	meta, err := ExtractMetadata(source)
	if err != nil {
		log.Error("Metadata extraction problem", "error", err, "file", path)
		meta = &Metadata{}
	}
	link := im.baseRef + Path2Link(path)

	chunks := CompressChunks(Parse(source), ChunkSize)
	for i, chunk := range chunks {
		context := chunk.Text
		if i > 0 && i < len(chunks)-1 {
			context = chunks[i-1].Text + chunk.Text + chunks[i+1].Text
		}
		doc := localstore.Document{
			ID:      strconv.Itoa(im.nextID),
			Content: chunk.Text,
			Context: context,
			Title:   meta.Title,
			Link:    link,
		}
		im.nextID++
		log.Debug("Adding document", "id", doc.ID, "link", link, "title", meta.Title)
		if err := im.sink.Add(ctx, doc); err != nil {
			return i, fmt.Errorf("adding chunk %d of %s: %w", i, path, err)
		}
	}
	return len(chunks), nil
}

// ProcessDir imports every markdown file below root.
func (im *Importer) ProcessDir(ctx context.Context, root string) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		n, err := im.ProcessFile(ctx, path)
		total += n
		return err
	})
	return total, err
}

func ExtractMetadata(source []byte) (*Metadata, error) {
	raw, _ := SplitFrontMatter(source)
	meta := &Metadata{}
	if raw == nil {
		return meta, nil
	}
	if err := yaml.Unmarshal(raw, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Path2Link converts
// /Users/me/blog/content/post/2024/pyrightconfig-zed/index.md
// to post/2024/pyrightconfig-zed/
// Files outside a content directory keep their parent directory.
func Path2Link(file string) string {
	file = filepath.ToSlash(file)
	if _, after, found := strings.Cut(file, "content/"); found {
		file = after
	} else {
		file = path.Base(path.Dir(file)) + "/" + path.Base(file)
	}
	if strings.HasSuffix(file, "index.md") {
		return strings.TrimSuffix(file, "index.md")
	}
	return strings.TrimSuffix(file, ".md") + "/"
}
