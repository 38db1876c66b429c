package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/coderdj/frkb-engine/internal/api"
)

// validateFlags checks the CLI inputs for proper values before any decoding
// or analysis work begins.
func validateFlags(inputAudioFile, featureStorePath *string) error {
	if *inputAudioFile == "" {
		return errors.New("please provide a path to an input audio file using the -input flag")
	}
	if *featureStorePath == "" {
		return errors.New("please provide a path to the feature store using the -store flag")
	}
	return nil
}

// printAnalysisSummary prints one song's decode/analysis outputs in the
// fixed-width table style the detector's own summary printer uses.
func printAnalysisSummary(songID string, bpm float64, keyID int, essentiaBPM *float64, essentiaKey string, embeddingLen int) {
	fmt.Printf("%-30s %s\n", "Song ID", songID)
	fmt.Printf("%-30s %.2f\n", "QM-DSP BPM", bpm)
	fmt.Printf("%-30s %d\n", "QM-DSP Key ID", keyID)
	if essentiaBPM != nil {
		fmt.Printf("%-30s %.2f\n", "Essentia BPM", *essentiaBPM)
	}
	fmt.Printf("%-30s %s\n", "Essentia Key", essentiaKey)
	fmt.Printf("%-30s %d\n", "OpenL3 embedding dims", embeddingLen)
}

func main() {
	inputAudioFile := flag.String("input", "", "Path to the input audio file")
	featureStorePath := flag.String("store", "", "Path to the selection feature store (.db file or library directory)")
	songID := flag.String("song-id", "", "Song id to upsert the extracted features under (defaults to the input path)")
	maxSeconds := flag.Float64("max-seconds", 0, "Maximum seconds of audio to decode (0 = whole file)")
	maxWindows := flag.Int("openl3-windows", 10, "Maximum number of 1s windows to feed the OpenL3 embedder")
	fast := flag.Bool("fast", false, "Restrict the QM-DSP tempo/key trackers to the fast-analysis window")
	flag.Parse()

	if err := validateFlags(inputAudioFile, featureStorePath); err != nil {
		log.Fatal(err)
	}

	id := *songID
	if id == "" {
		id = *inputAudioFile
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("Starting frkb analysis pipeline")

	fileHash, err := api.WholeFileHash(ctx, *inputAudioFile)
	if err != nil {
		log.Fatalf("Failed to hash input file: %v", err)
	}

	bpm, err := api.AnalyzeBPM(ctx, *inputAudioFile, *fast)
	if err != nil {
		log.Fatalf("Failed to analyze BPM: %v", err)
	}

	keyID, err := api.AnalyzeKeyID(ctx, *inputAudioFile, *fast)
	if err != nil {
		log.Fatalf("Failed to analyze key: %v", err)
	}

	essentiaFeatures, err := api.ExtractEssentiaFull(ctx, *inputAudioFile, *maxSeconds)
	if err != nil {
		log.Fatalf("Failed to extract Essentia features: %v", err)
	}

	embedding, err := api.ExtractOpenL3Embedding(ctx, *inputAudioFile, *maxSeconds, *maxWindows)
	if err != nil {
		log.Fatalf("Failed to extract OpenL3 embedding: %v", err)
	}

	fmt.Println()
	printAnalysisSummary(id, bpm, keyID, essentiaFeatures.BPM, essentiaFeatures.Key, len(embedding))

	n, err := api.UpsertSongFeatures(ctx, *featureStorePath, []api.SongFeaturePatch{{
		SongID:       id,
		FileHash:     fileHash,
		ModelVersion: "frkb-cli",
		OpenL3Vector: embedding,
		HPCP:         essentiaFeatures.HPCP,
		RMSMean:      essentiaFeatures.RMSMean,
		BPM:          essentiaFeatures.BPM,
		Key:          stringPtrOrNil(essentiaFeatures.Key),
		DurationSec:  essentiaFeatures.DurationSec,
	}})
	if err != nil {
		log.Fatalf("Failed to write feature store row: %v", err)
	}

	fmt.Printf("\nWrote %d feature row(s) to %s\n", n, *featureStorePath)
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
