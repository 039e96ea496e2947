package reconstruction

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	apperrors "polcam/internal/errors"
	"polcam/internal/logger"
	"polcam/internal/worker"
	"polcam/pkg/config"
)

// BatchResult pairs a job with its outcome. Exactly one of Result and Err
// is set.
type BatchResult struct {
	Params *Params
	Result *Result
	Err    error
}

// BatchJobs builds one single-frame job per image in dir. Frames that share
// a name up to the extension get folders named <stem>_<ext> so no two jobs
// write to the same place.
func BatchJobs(dir, outputDir string, cfg *config.Config) ([]*Params, error) {
	paths, err := DiscoverFrames(dir)
	if err != nil {
		return nil, err
	}

	stems := make(map[string]int, len(paths))
	for _, p := range paths {
		stems[frameStem(p)]++
	}

	jobs := make([]*Params, len(paths))
	taken := make(map[string]string, len(paths))
	for i, p := range paths {
		name := frameStem(p)
		if stems[name] > 1 {
			ext := strings.TrimPrefix(filepath.Ext(p), ".")
			name = name + "_" + strings.ToLower(ext)
		}
		if other, ok := taken[name]; ok {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("%s and %s would share the output folder %s", filepath.Base(other), filepath.Base(p), name), nil)
		}
		taken[name] = p
		jobs[i] = &Params{MainPath: p, OutputDir: outputDir, RunName: name, Config: cfg}
	}
	return jobs, nil
}

func frameStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RunBatch processes independent runs concurrently on a worker pool sized by
// numWorkers. Results come back in job order. Once ctx is cancelled, jobs
// that have not been queued are reported as cancelled and running jobs
// abandon their result at the next step boundary.
func RunBatch(ctx context.Context, jobs []*Params, numWorkers int) []BatchResult {
	results := make([]BatchResult, len(jobs))
	for i, job := range jobs {
		results[i].Params = job
	}

	pool := worker.NewPool(numWorkers)
	pool.Start()
	defer pool.Close()

	logger.WithField("jobs", len(jobs)).WithField("workers", pool.Workers()).Info("Starting batch")

	for i, job := range jobs {
		i, job := i, job
		err := pool.Submit(ctx, func() {
			res, err := NewReconstructor(job).Process(ctx)
			results[i].Result, results[i].Err = res, err
		})
		if err != nil {
			for j := i; j < len(jobs); j++ {
				results[j].Err = apperrors.NewCancelledError("batch cancelled before the run started", err)
			}
			break
		}
	}
	pool.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.WithError(r.Err).WithField("frame", r.Params.MainPath).Error("Run failed")
		}
	}
	logger.WithField("jobs", len(jobs)).WithField("failed", failed).Info("Batch complete")
	return results
}
