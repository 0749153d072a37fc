package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// maxArtifactSize bounds how much decompressed artifact data we are willing to
// read. Protects against a corrupt or hostile compressed file expanding
// without limit.
const maxArtifactSize = 64 << 20 // 64 MB

// ReadArtifact reads and parses a model artifact from disk. Files with a
// ".zst" suffix are transparently decompressed; anything else is read as
// plain JSON.
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		defer dec.Close()
		reader = dec.IOReadCloser()
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("artifact exceeds %d byte limit", maxArtifactSize)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parsing artifact: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("validating artifact: %w", err)
	}

	return &artifact, nil
}

// WriteArtifact serializes an artifact to disk, zstd-compressing when the
// path carries a ".zst" suffix. Used by the export tooling and tests.
func WriteArtifact(path string, artifact *Artifact) error {
	if err := artifact.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	if strings.HasSuffix(path, ".zst") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("opening zstd writer: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			f.Close()
			return fmt.Errorf("writing artifact: %w", err)
		}
		if err := enc.Close(); err != nil {
			f.Close()
			return fmt.Errorf("flushing zstd stream: %w", err)
		}
		return f.Close()
	}

	return os.WriteFile(path, data, 0o644)
}
