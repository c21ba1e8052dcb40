package ingest_test

import (
	"context"
	"errors"
	"testing"

	"ragkb/ingest"
	"ragkb/localstore"

	"gotest.tools/v3/assert"
)

type recordingSink struct {
	docs []localstore.Document
	err  error
}

func (r *recordingSink) Add(ctx context.Context, doc localstore.Document) error {
	if r.err != nil {
		return r.err
	}
	r.docs = append(r.docs, doc)
	return nil
}

func TestPath2Link(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "Test pearls",
			path: "/Users/gglawe/Documents/projects/community/2024/pearls/content/post/2023/play-ac-prompts-from-s3/index.md",
			want: "post/2023/play-ac-prompts-from-s3/",
		},
		{
			name: "Test aws-blog-de",
			path: "/Users/gglawe/letsblog/abd/content/post/2012/amazon-aws-services-mit-beta-status.md",
			want: "post/2012/amazon-aws-services-mit-beta-status/",
		},
		{
			name: "Test outside content",
			path: "testdata/post/presign/index.md",
			want: "presign/",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ingest.Path2Link(tt.path), tt.want)
		})
	}
}

func TestExtractMetadata(t *testing.T) {
	meta, err := ingest.ExtractMetadata([]byte("---\ntitle: \"Presigned URLs\"\nauthor: gernot\ndate: \"2024-03-04\"\ntags:\n  - s3\n---\nbody\n"))
	assert.NilError(t, err)
	assert.Equal(t, meta.Title, "Presigned URLs")
	assert.Equal(t, meta.Autor, "gernot")
	assert.Equal(t, meta.Date, "2024-03-04")
	assert.DeepEqual(t, meta.Tags, []string{"s3"})

	meta, err = ingest.ExtractMetadata([]byte("no front matter"))
	assert.NilError(t, err)
	assert.Equal(t, meta.Title, "")
}

func TestProcessDir(t *testing.T) {
	sink := &recordingSink{}
	im := ingest.NewImporter(sink, "https://blog.example.com/")

	n, err := im.ProcessDir(context.Background(), "testdata")
	assert.NilError(t, err)
	assert.Equal(t, n, 2)
	assert.Equal(t, len(sink.docs), 2)

	ids := map[string]bool{}
	for _, d := range sink.docs {
		ids[d.ID] = true
	}
	assert.Equal(t, len(ids), 2)

	// WalkDir is lexical, ecs comes before presign
	assert.Equal(t, sink.docs[0].Link, "https://blog.example.com/ecs/")
	assert.Equal(t, sink.docs[1].Title, "Presigned URLs")
	assert.Equal(t, sink.docs[1].Link, "https://blog.example.com/presign/")
}

func TestProcessFileSinkError(t *testing.T) {
	im := ingest.NewImporter(&recordingSink{err: errors.New("disk full")}, "")
	_, err := im.ProcessFile(context.Background(), "testdata/post/ecs/index.md")
	assert.ErrorContains(t, err, "disk full")
}
