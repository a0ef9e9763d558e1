package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/session"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBatchProcessor_ProcessFiles_KeepsInputOrder(t *testing.T) {
	processor := NewBatchProcessor(&slowAssessor{}, 2)

	paths := []string{"a.yaml", "b.yaml", "c.yaml", "d.yaml", "e.yaml"}
	results := processor.ProcessFiles(context.Background(), paths)

	require.Len(t, results, len(paths))
	for i, res := range results {
		assert.Equal(t, paths[i], res.Path)
		assert.NoError(t, res.Error, res.Path)
		if assert.NotNil(t, res.Result, res.Path) {
			assert.Equal(t, 62, res.Result.Score)
		}
	}
}

func TestBatchProcessor_ProcessFiles_Error(t *testing.T) {
	results := NewBatchProcessor(&slowAssessor{}, 2).ProcessFiles(context.Background(), []string{"invalid.yaml"})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Error)
	assert.Nil(t, results[0].Result)
}

func TestBatchProcessor_ProcessFiles_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths := []string{"a.yaml", "b.yaml", "c.yaml"}
	results := NewBatchProcessor(&slowAssessor{}, 2).ProcessFiles(ctx, paths)

	require.Len(t, results, len(paths), "every path gets a result")
	for i, res := range results {
		assert.Equal(t, paths[i], res.Path)
	}
}

func TestBatchProcessor_ProcessFiles_Empty(t *testing.T) {
	assert.Empty(t, NewBatchProcessor(&slowAssessor{}, 2).ProcessFiles(context.Background(), nil))
}

func TestBatchProcessor_ProcessManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, "manifest.txt", "one.yaml\n# comment\n\n/abs/two.yaml\none.yaml\n")

	results, err := NewBatchProcessor(&slowAssessor{}, 2).ProcessManifest(context.Background(), manifest)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(dir, "one.yaml"), results[0].Path, "relative entries resolve against the manifest")
	assert.Equal(t, "/abs/two.yaml", results[1].Path)
}

func TestBatchProcessor_ProcessManifest_NonExistent(t *testing.T) {
	_, err := NewBatchProcessor(&slowAssessor{}, 2).ProcessManifest(context.Background(), "no_such_manifest.txt")
	assert.Error(t, err)
}

func TestReadPathsFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paths.txt", "a.yaml\n# comment\nb.json\n   \n  c.yaml  \na.yaml\n")

	paths, err := ReadPathsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yaml", "b.json", "c.yaml"}, paths)

	_, err = ReadPathsFromFile("non_existent_file.txt")
	assert.Error(t, err)
}

func TestAssessResult_GetError(t *testing.T) {
	assert.NoError(t, (&AssessResult{Path: "a.yaml"}).GetError())

	expected := errors.New("replay failed")
	assert.Equal(t, expected, (&AssessResult{Path: "a.yaml", Error: expected}).GetError())
}

func TestBatchProcessor_ReplaysAnswerFiles(t *testing.T) {
	processor := NewBatchProcessor(session.NewReplayer(schema.MustLoadBuiltin()), 3)

	results, err := processor.ProcessManifest(context.Background(), "../session/testdata/manifest.txt")
	require.NoError(t, err)
	require.Len(t, results, 2, "duplicates are dropped")

	require.NoError(t, results[0].Error)
	assert.Equal(t, model.NoticeMoneyRecovery, results[0].Result.NoticeType)
	assert.Equal(t, model.BucketWeak, results[0].Result.RecommendationBucket)

	require.NoError(t, results[1].Error)
	assert.Equal(t, model.NoticeChequeBounce, results[1].Result.NoticeType)
	assert.Equal(t, model.BucketStrong, results[1].Result.RecommendationBucket)
}
