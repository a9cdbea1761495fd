package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar - HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }

func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Campos estándar - dominio

// VersionID identifica la versión de dataset en juego.
func VersionID(v string) zap.Field { return zap.String("version_id", v) }

// CorrelationID acompaña una ingesta a través de todos los eventos que genera.
func CorrelationID(v string) zap.Field { return zap.String("correlation_id", v) }

func OwnerID(v string) zap.Field         { return zap.String("owner_id", v) }
func DatasetKind(v string) zap.Field     { return zap.String("dataset_kind", v) }
func ReportingPeriod(v string) zap.Field { return zap.String("reporting_period", v) }
func SubmitterID(v string) zap.Field     { return zap.String("submitter_id", v) }
func State(v string) zap.Field           { return zap.String("lifecycle_state", v) }
func Verdict(v string) zap.Field         { return zap.String("verdict", v) }
func Topic(v string) zap.Field           { return zap.String("topic", v) }

// Campos estándar - sistema

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }

// Genéricos

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
