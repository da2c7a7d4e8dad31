// Command generate_sample_data writes synthetic filter score files for
// trying out the classifier: unlabeled training and target scores plus a
// labelled dev set.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
)

// langID holds per-side language identification confidences; it is written
// as a nested object and loads as LanguageIDFilter.src / LanguageIDFilter.tgt.
type langID struct {
	Src float64 `json:"src"`
	Tgt float64 `json:"tgt"`
}

type record struct {
	CrossEntropyFilter float64 `json:"CrossEntropyFilter"`
	LanguageIDFilter   langID  `json:"LanguageIDFilter"`
	LengthRatioFilter  float64 `json:"LengthRatioFilter"`
	Label              *int    `json:"label,omitempty"`
}

func main() {
	var (
		dataPath  = flag.String("data", "data", "Output directory")
		trainRows = flag.Int("train", 5000, "Number of training rows")
		targetRow = flag.Int("target", 1000, "Number of rows to classify")
		devRows   = flag.Int("dev", 500, "Number of labelled dev rows")
		noise     = flag.Float64("noise", 0.3, "Share of noisy pairs")
		seed      = flag.Int64("seed", 1, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating sample scores...\n")
	fmt.Printf("  Train/Target/Dev rows: %d/%d/%d\n", *trainRows, *targetRow, *devRows)
	fmt.Printf("  Noise: %.0f%%\n", *noise*100)
	fmt.Printf("  Data Path: %s\n", *dataPath)

	if err := os.MkdirAll(*dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	files := []struct {
		name     string
		rows     int
		labelled bool
	}{
		{"train.jsonl", *trainRows, false},
		{"target.jsonl", *targetRow, false},
		{"dev.jsonl", *devRows, true},
	}
	for _, f := range files {
		path := filepath.Join(*dataPath, f.name)
		if err := writeScores(path, rng, f.rows, *noise, f.labelled); err != nil {
			log.Fatalf("Failed to generate %s: %v", path, err)
		}
		fmt.Printf("  Wrote %d rows to %s\n", f.rows, path)
	}

	fmt.Printf("✓ Generated sample scores\n")
}

func writeScores(path string, rng *rand.Rand, n int, noise float64, labelled bool) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		rec, clean := samplePair(rng, noise)
		if labelled {
			label := 0
			if clean {
				label = 1
			}
			rec.Label = &label
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// samplePair draws the scores of one sentence pair. Clean pairs have low
// cross-entropy, confident language IDs and a length ratio near 1.
func samplePair(rng *rand.Rand, noise float64) (record, bool) {
	clean := rng.Float64() >= noise

	quality := 0.2 + 0.3*rng.Float64()
	if clean {
		quality = 0.6 + 0.4*rng.Float64()
	}

	return record{
		CrossEntropyFilter: math.Max(0, 8-6*quality+rng.NormFloat64()),
		LanguageIDFilter: langID{
			Src: clamp(quality + 0.1*rng.NormFloat64()),
			Tgt: clamp(quality + 0.1*rng.NormFloat64()),
		},
		LengthRatioFilter: clamp(quality+0.15*rng.NormFloat64()) + 0.5,
	}, clean
}

func clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
