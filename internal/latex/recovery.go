package latex

import (
	"context"
	"os"
	"path/filepath"

	"resumetex/internal/errors"
	"resumetex/internal/types"
)

type recoveryState int

const (
	stateAttempt recoveryState = iota
	stateDetectMissingPackages
	stateFetchAndRetry
	stateFinal
)

func (s recoveryState) String() string {
	switch s {
	case stateAttempt:
		return "attempt"
	case stateDetectMissingPackages:
		return "detect_missing_packages"
	case stateFetchAndRetry:
		return "fetch_and_retry"
	default:
		return "final"
	}
}

// archiveRun drives one archive compile through
// Attempt -> DetectMissingPackages -> FetchAndRetry -> Final.
// The archive is rebuilt and resent at most once.
type archiveRun struct {
	compiler *Compiler
	dir      string
	attempts []types.EngineAttempt

	retried bool
	missing []string
	last    *Response
	lastErr types.EngineAttempt
}

func (r *archiveRun) execute(ctx context.Context) (*types.CompileResult, error) {
	logger := r.compiler.logger
	state := stateAttempt

	for state != stateFinal {
		logger.Debug("Archive compile state", "state", state.String(), "retried", r.retried)

		switch state {
		case stateAttempt:
			result, err := r.attempt(ctx)
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
			if r.retried || r.last == nil {
				state = stateFinal
			} else {
				state = stateDetectMissingPackages
			}

		case stateDetectMissingPackages:
			r.missing = DetectMissingPackages(string(r.last.Body))
			if len(r.missing) == 0 || r.compiler.mirror == nil {
				state = stateFinal
			} else {
				state = stateFetchAndRetry
			}

		case stateFetchAndRetry:
			if r.fetchMissing(ctx) == 0 {
				state = stateFinal
				break
			}
			r.retried = true
			state = stateAttempt
		}
	}

	if r.last != nil {
		return nil, r.compiler.exhausted(r.last.StatusCode, string(r.last.Body), r.attempts)
	}
	return nil, r.compiler.exhausted(r.lastErr.Status, r.lastErr.Error, r.attempts)
}

// attempt packs the build directory and uploads it. It returns a result on
// success, nil on a compile failure, and an error only when packing fails.
func (r *archiveRun) attempt(ctx context.Context) (*types.CompileResult, error) {
	archive, err := BuildArchive(r.dir)
	if err != nil {
		return nil, errors.NewUpstreamExhaustedError(errors.ErrCodeArchiveBuild, "failed to build archive", err)
	}

	resp, err := r.compiler.backend.Archive(ctx, archive, ArchiveFileName, EntryPoint, types.EnginePlain)
	attempt := types.EngineAttempt{Engine: types.EnginePlain, Method: "ARCHIVE"}
	if r.compiler.classify(resp, err, &attempt) {
		return &types.CompileResult{PDF: resp.Body, Engine: types.EnginePlain, Attempts: r.attempts}, nil
	}

	r.attempts = append(r.attempts, attempt)
	r.last = resp
	r.lastErr = attempt
	return nil, nil
}

// fetchMissing writes every package the mirror can supply next to the main
// document and returns how many were written.
func (r *archiveRun) fetchMissing(ctx context.Context) int {
	logger := r.compiler.logger
	fetched := 0

	for _, pkg := range r.missing {
		content, err := r.compiler.mirror.Fetch(ctx, pkg)
		if err != nil {
			logger.Warn("Failed to fetch missing package", "package", pkg, "error", err.Error())
			continue
		}
		if err := os.WriteFile(filepath.Join(r.dir, pkg+".sty"), content, 0o600); err != nil {
			logger.Warn("Failed to write fetched package", "package", pkg, "error", err.Error())
			continue
		}
		logger.Info("Fetched missing package from mirror", "package", pkg, "bytes", len(content))
		fetched++
	}
	return fetched
}
