package audiohash

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/coderdj/frkb-engine/internal/audiodecode"
)

func TestWholeFileHashStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1, err := WholeFileHash(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := WholeFileHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable: %s vs %s", h1, h2)
	}
}

func TestPCMHashContainerAgnostic(t *testing.T) {
	// Two fake decoders produce identical PCM from different "containers":
	// pcmHash must agree even though the source paths differ.
	decode := func(path string, maxSeconds float64) (*audiodecode.AudioBuffer, error) {
		return &audiodecode.AudioBuffer{
			Samples:    []float32{0.1, -0.2, 0.3, -0.4},
			SampleRate: 48000,
			Channels:   2,
		}, nil
	}
	h1, err := PCMHash(decode, "a.flac")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := PCMHash(decode, "b.wav")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("pcm hash should be container-agnostic: %s vs %s", h1, h2)
	}
}

func TestChunkSizeFormula(t *testing.T) {
	cases := []struct {
		files, cpus, want int
	}{
		{0, 8, 1},
		{5, 8, 5},
		{100, 4, 12},
	}
	for _, tc := range cases {
		got := chunkSize(tc.files, tc.cpus)
		if got != tc.want {
			t.Fatalf("chunkSize(%d,%d)=%d want %d", tc.files, tc.cpus, got, tc.want)
		}
	}
}

func TestBatchPCMHashOrderPreserved(t *testing.T) {
	decode := func(path string, maxSeconds float64) (*audiodecode.AudioBuffer, error) {
		return &audiodecode.AudioBuffer{Samples: []float32{0.5, -0.5}, SampleRate: 48000, Channels: 1}, nil
	}
	paths := []string{"a", "b", "c", "d", "e"}
	results := BatchPCMHash(context.Background(), decode, paths, nil)
	for i, r := range results {
		if r.Path != paths[i] {
			t.Fatalf("result order mismatch at %d: got %s want %s", i, r.Path, paths[i])
		}
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
	}
}
