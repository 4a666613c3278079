package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("prints containers and leaves", func(t *testing.T) {
		t.Parallel()
		srv := newDirectory(t)

		var buf bytes.Buffer
		if err := runCrawl(context.Background(), testConfig(srv), false, &buf, discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		for _, want := range []string{"Containers (1):", "Hydro_FS/MapServer", "Leaves (3):", "Imagery/MapServer/1"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Unresolved") {
			t.Errorf("expected no unresolved section, got:\n%s", out)
		}
	})

	t.Run("json listing", func(t *testing.T) {
		t.Parallel()
		srv := newDirectory(t)

		var buf bytes.Buffer
		if err := runCrawl(context.Background(), testConfig(srv), true, &buf, discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var listing crawlListing
		if err := json.Unmarshal(buf.Bytes(), &listing); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(listing.Containers) != 1 || len(listing.Leaves) != 3 || len(listing.Unresolved) != 0 {
			t.Errorf("unexpected listing: %+v", listing)
		}
	})

	t.Run("global container patterns apply", func(t *testing.T) {
		t.Parallel()
		srv := newDirectory(t)
		cfg := testConfig(srv)
		cfg.ContainerPatterns = []string{"Imagery/MapServer"}

		var buf bytes.Buffer
		if err := runCrawl(context.Background(), cfg, true, &buf, discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var listing crawlListing
		if err := json.Unmarshal(buf.Bytes(), &listing); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(listing.Containers) != 2 || len(listing.Leaves) != 2 {
			t.Errorf("expected 2 containers and 2 leaves, got %+v", listing)
		}
	})
}
