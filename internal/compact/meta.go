package compact

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Shared encoder, built once — construction is expensive enough that
// per-call allocation would dominate the cost of writing a handful of
// diagnostic bytes. SpeedFastest is chosen for the same reason: this
// runs synchronously at the end of every compaction, a path callers
// are actively waiting on.
var metaEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))

// writeMeta zstd-compresses a JSON summary of a compaction run into
// path. This is purely diagnostic — never read back by the engine —
// so corruption or absence of this file must never affect Open.
func writeMeta(path string, stats Stats) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("compact: marshal meta: %w", err)
	}
	compressed := metaEncoder.EncodeAll(body, nil)
	return os.WriteFile(path, compressed, 0o644)
}

// ReadMeta decompresses and parses a ".meta" sidecar previously
// written by writeMeta.
func ReadMeta(path string) (Stats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Stats{}, err
	}
	defer dec.Close()
	body, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("compact: decode meta: %w", err)
	}
	var stats Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		return Stats{}, fmt.Errorf("compact: unmarshal meta: %w", err)
	}
	return stats, nil
}
