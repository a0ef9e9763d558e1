package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/casestrength/internal/model"
)

// Assessor scores one saved answer file
type Assessor interface {
	ReplayFile(ctx context.Context, path string) (model.CaseStrengthResult, error)
}

// AssessJob replays one answer file
type AssessJob struct {
	Index    int
	Path     string
	Assessor Assessor
}

// Execute runs the assessment
func (j *AssessJob) Execute(ctx context.Context) Result {
	result, err := j.Assessor.ReplayFile(ctx, j.Path)
	if err != nil {
		return &AssessResult{Index: j.Index, Path: j.Path, Error: err}
	}
	return &AssessResult{Index: j.Index, Path: j.Path, Result: &result}
}

// AssessResult is the outcome of one AssessJob
type AssessResult struct {
	Index  int
	Path   string
	Result *model.CaseStrengthResult
	Error  error
}

// GetError returns the assessment error
func (r *AssessResult) GetError() error {
	return r.Error
}

// BatchProcessor assesses many answer files concurrently
type BatchProcessor struct {
	assessor    Assessor
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(assessor Assessor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		assessor:    assessor,
		concurrency: concurrency,
	}
}

// ProcessFiles assesses every path and returns results in input order
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*AssessResult {
	if len(paths) == 0 {
		return []*AssessResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	jobs := make([]Job, len(paths))
	for i, path := range paths {
		jobs[i] = &AssessJob{Index: i, Path: path, Assessor: b.assessor}
	}

	results := pool.Run(jobs)

	out := make([]*AssessResult, 0, len(paths))
	done := make(map[int]bool, len(results))
	for _, result := range results {
		r := result.(*AssessResult)
		done[r.Index] = true
		out = append(out, r)
	}

	// Jobs skipped by cancellation still get a result
	if len(out) < len(paths) {
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		for i, path := range paths {
			if !done[i] {
				out = append(out, &AssessResult{Index: i, Path: path, Error: cause})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

// ProcessManifest assesses every answer file listed in a manifest.
// Relative entries are resolved against the manifest's directory.
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifestPath string) ([]*AssessResult, error) {
	paths, err := ReadPathsFromFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	base := filepath.Dir(manifestPath)
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			paths[i] = filepath.Join(base, p)
		}
	}

	return b.ProcessFiles(ctx, paths), nil
}

// ReadPathsFromFile reads one path per line, skipping blanks and # comments
// and dropping duplicates
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
