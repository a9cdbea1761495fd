// Package blobstore define el gateway hacia el store durable de payloads.
// El coordinador lo trata como un colaborador externo que falla de forma
// independiente del catálogo: write-once, direccionado por versionID, con
// digest de contenido verificado en lectura.
package blobstore

import (
	"context"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrNotFound : no hay payload para ese versionID.
	ErrNotFound = errors.New("blobstore: payload not found")

	// ErrCorrupted : el payload existe pero su digest no coincide con el
	// registrado al escribir. Para el coordinador esto equivale a pérdida
	// de datos: la garantía de durabilidad está rota.
	ErrCorrupted = errors.New("blobstore: payload digest mismatch")

	// ErrExists : write-once violado, ya hay un payload bajo ese versionID.
	ErrExists = errors.New("blobstore: payload already stored")
)

// Gateway es la interfaz mínima que consume el coordinador.
type Gateway interface {
	// Store persiste el payload bajo versionID. Write-once: un segundo
	// Store del mismo versionID retorna ErrExists.
	Store(ctx context.Context, versionID string, payload []byte) error

	// Fetch retorna el payload, verificando su digest de contenido.
	Fetch(ctx context.Context, versionID string) ([]byte, error)
}

// Digest calcula el digest BLAKE2b-256 del payload, en hex.
func Digest(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
