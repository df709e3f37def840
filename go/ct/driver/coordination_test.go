// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Fantom-foundation/Shardkit/go/ct/fixture"
)

func namedVectors(names ...string) []*fixture.Vector {
	res := []*fixture.Vector{}
	for _, name := range names {
		res = append(res, &fixture.Vector{Name: name})
	}
	return res
}

func noProgress(time.Duration, float64, int64) {}

func TestForEachVector_AllVectorsAreProcessed(t *testing.T) {
	vectors := namedVectors("a", "b", "c", "d", "e")
	var mu sync.Mutex
	seen := map[string]int{}
	err := ForEachVector(context.Background(), vectors, func(vector *fixture.Vector) error {
		mu.Lock()
		defer mu.Unlock()
		seen[vector.Name]++
		return nil
	}, noProgress, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := len(vectors), len(seen); want != got {
		t.Errorf("unexpected number of processed vectors, want %d, got %d", want, got)
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("vector %s processed %d times", name, count)
		}
	}
}

func TestForEachVector_ErrorsAreReported(t *testing.T) {
	injected := errors.New("injected")
	err := ForEachVector(context.Background(), namedVectors("a", "b", "c"), func(vector *fixture.Vector) error {
		if vector.Name == "b" {
			return injected
		}
		return nil
	}, noProgress, 1)
	if !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestForEachVector_CancelledContextIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ForEachVector(ctx, namedVectors("a", "b"), func(*fixture.Vector) error {
		t.Errorf("no vector should be processed")
		return nil
	}, noProgress, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestFilterVectors(t *testing.T) {
	vectors := namedVectors("transfer_1", "create_1", "transfer_2")
	filtered := FilterVectors(vectors, regexp.MustCompile("^transfer"))
	if want, got := 2, len(filtered); want != got {
		t.Fatalf("unexpected number of vectors, want %d, got %d", want, got)
	}
	if filtered[0].Name != "transfer_1" || filtered[1].Name != "transfer_2" {
		t.Errorf("unexpected filter result: %v, %v", filtered[0].Name, filtered[1].Name)
	}
	if want, got := 3, len(FilterVectors(vectors, nil)); want != got {
		t.Errorf("nil filter should retain all vectors, want %d, got %d", want, got)
	}
}

func TestLoadVectors_FilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
	}
	write(filepath.Join(dir, "single.json"), `{"a": {}}`)
	write(filepath.Join(dir, "tree", "x.json"), `{"b": {}, "c": {}}`)
	write(filepath.Join(dir, "tree", "ignored.txt"), `not a fixture`)

	vectors, err := loadVectors([]string{filepath.Join(dir, "single.json"), filepath.Join(dir, "tree")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := []string{}
	for _, vector := range vectors {
		names = append(names, vector.Name)
	}
	if want, got := "[a b c]", fmt.Sprint(names); want != got {
		t.Errorf("unexpected vectors, want %s, got %s", want, got)
	}

	if _, err := loadVectors([]string{filepath.Join(dir, "missing.json")}); err == nil {
		t.Errorf("missing file should be reported")
	}
}
