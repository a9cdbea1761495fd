package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dropDatabas3/datavault/internal/util/atomicwrite"
)

// FS es un Gateway respaldado por el filesystem local. Cada payload se
// escribe de forma atómica (tmp → fsync → rename) junto con un sidecar
// .sum que lleva el digest de contenido.
//
// Los blobs se reparten en subdirectorios por los dos primeros caracteres
// del versionID para no acumular miles de archivos en un solo directorio.
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: mkdir root: %w", err)
	}
	return &FS{root: root}, nil
}

func (f *FS) path(versionID string) string {
	shard := "00"
	if len(versionID) >= 2 {
		shard = versionID[:2]
	}
	return filepath.Join(f.root, shard, versionID+".blob")
}

func (f *FS) Store(ctx context.Context, versionID string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := f.path(versionID)
	if _, err := os.Stat(p); err == nil {
		return ErrExists
	}
	if err := atomicwrite.AtomicWriteFile(p, payload, 0o644); err != nil {
		return fmt.Errorf("blobstore: write %s: %w", versionID, err)
	}
	sum := Digest(payload)
	if err := atomicwrite.AtomicWriteFile(p+".sum", []byte(sum+"\n"), 0o644); err != nil {
		return fmt.Errorf("blobstore: write digest %s: %w", versionID, err)
	}
	return nil
}

func (f *FS) Fetch(ctx context.Context, versionID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := f.path(versionID)
	payload, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: read %s: %w", versionID, err)
	}
	want, err := os.ReadFile(p + ".sum")
	if err != nil {
		if os.IsNotExist(err) {
			// Blob sin sidecar: la escritura quedó a medias.
			return nil, ErrCorrupted
		}
		return nil, fmt.Errorf("blobstore: read digest %s: %w", versionID, err)
	}
	if Digest(payload) != strings.TrimSpace(string(want)) {
		return nil, ErrCorrupted
	}
	return payload, nil
}
