// Package audiohash computes content-addressed fingerprints of audio files:
// either a PCM-content hash stable across lossless container conversions, or
// a whole-file byte hash. Batch operations fan out over a work-stealing pool
// grounded on the teacher's errgroup-based batch processing idiom.
package audiohash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/coderdj/frkb-engine/internal/audiodecode"
	"github.com/coderdj/frkb-engine/internal/errors"
)

const wholeFileReadBufferSize = 2 * 1024 * 1024 // 2 MiB, per spec 4.B

// Decoder is the subset of audiodecode.Decode this package depends on,
// narrowed for testability.
type Decoder func(path string, maxSeconds float64) (*audiodecode.AudioBuffer, error)

// PCMHash decodes path and hashes the resulting PCM as 16-bit little-endian
// samples, using the same f32->i16 scaling the decoder's fallback path uses.
// This yields an identical digest for any two containers wrapping the same
// decoded audio.
func PCMHash(decode Decoder, path string) (digest string, err error) {
	defer errors.Recover("audiohash", &err)()

	buf, decErr := decode(path, 0)
	if decErr != nil {
		return "", errors.New(decErr).Component("audiohash").Category(errors.CategoryDecode).
			Context("path", path).Build()
	}

	h := sha256.New()
	scratch := make([]byte, 2)
	for _, sample := range buf.Samples {
		v := int32(math.Round(float64(sample) * 32768))
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		scratch[0] = byte(v)
		scratch[1] = byte(v >> 8)
		h.Write(scratch)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WholeFileHash streams the raw bytes of path through SHA-256 verbatim.
func WholeFileHash(path string) (digest string, err error) {
	defer errors.Recover("audiohash", &err)()

	f, openErr := os.Open(path)
	if openErr != nil {
		return "", errors.New(openErr).Component("audiohash").Category(errors.CategoryInternal).
			Context("path", path).Build()
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, wholeFileReadBufferSize)
	if _, copyErr := io.CopyBuffer(h, f, buf); copyErr != nil {
		return "", errors.New(copyErr).Component("audiohash").Category(errors.CategoryInternal).
			Context("path", path).Build()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BatchResult pairs an input file with its hash outcome.
type BatchResult struct {
	Path   string
	Digest string
	Err    error
}

// ProgressFunc is invoked after each file completes with the running count of
// processed files and the fixed total. Callers must not assume input order.
type ProgressFunc func(processed, total int)

// chunkSize implements spec 4.B's chunking formula: max(1, files / min(ceil(files/10), cpus*2)).
func chunkSize(files, cpus int) int {
	if files <= 0 {
		return 1
	}
	a := (files + 9) / 10 // ceil(files/10)
	b := cpus * 2
	divisor := a
	if b < divisor {
		divisor = b
	}
	if divisor < 1 {
		divisor = 1
	}
	size := files / divisor
	if size < 1 {
		size = 1
	}
	return size
}

// BatchPCMHash computes PCMHash for every path, parallelizing across a
// work-stealing pool sized from runtime.GOMAXPROCS. Results are returned in
// input order; progress is reported in completion order via onProgress.
func BatchPCMHash(ctx context.Context, decode Decoder, paths []string, onProgress ProgressFunc) []BatchResult {
	return runBatch(ctx, paths, onProgress, func(p string) (string, error) {
		return PCMHash(decode, p)
	})
}

// BatchWholeFileHash is the whole-file analog of BatchPCMHash.
func BatchWholeFileHash(ctx context.Context, paths []string, onProgress ProgressFunc) []BatchResult {
	return runBatch(ctx, paths, onProgress, WholeFileHash)
}

func runBatch(ctx context.Context, paths []string, onProgress ProgressFunc, hashOne func(string) (string, error)) []BatchResult {
	results := make([]BatchResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	cpus := runtime.GOMAXPROCS(0)
	size := chunkSize(len(paths), cpus)

	var counter int32

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-gctx.Done():
					results[i] = BatchResult{Path: paths[i], Err: gctx.Err()}
					continue
				default:
				}
				digest, err := hashOne(paths[i])
				results[i] = BatchResult{Path: paths[i], Digest: digest, Err: err}
				if onProgress != nil {
					n := atomic.AddInt32(&counter, 1)
					onProgress(int(n), len(paths))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
