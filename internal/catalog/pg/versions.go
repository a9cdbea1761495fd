package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/datavault/internal/catalog/core"
)

const versionCols = `version_id, owner_id, dataset_kind, reporting_period,
	lifecycle_state, is_active, submitter_id, qa_pending, bypass_qa, created_at`

func scanVersion(row pgx.Row) (*core.DatasetVersion, error) {
	var v core.DatasetVersion
	err := row.Scan(
		&v.VersionID,
		&v.Key.OwnerID,
		&v.Key.DatasetKind,
		&v.Key.ReportingPeriod,
		&v.State,
		&v.Active,
		&v.SubmitterID,
		&v.QAPending,
		&v.BypassQA,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (s *Store) Insert(ctx context.Context, v *core.DatasetVersion) error {
	const q = `
		INSERT INTO dataset_versions
			(version_id, owner_id, dataset_kind, reporting_period,
			 lifecycle_state, is_active, submitter_id, qa_pending, bypass_qa, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, q,
		v.VersionID,
		v.Key.OwnerID,
		v.Key.DatasetKind,
		v.Key.ReportingPeriod,
		v.State,
		v.SubmitterID,
		v.QAPending,
		v.BypassQA,
		v.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.ErrKeyCollision
		}
		return fmt.Errorf("catalog: insert %s: %w", v.VersionID, err)
	}
	return nil
}

func (s *Store) Transition(ctx context.Context, versionID string, from, to core.LifecycleState) error {
	const q = `
		UPDATE dataset_versions
		SET lifecycle_state = $3
		WHERE version_id = $1 AND lifecycle_state = $2`
	ct, err := s.pool.Exec(ctx, q, versionID, from, to)
	if err != nil {
		return fmt.Errorf("catalog: transition %s %s->%s: %w", versionID, from, to, err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	// CAS falló: distinguir fila ausente de estado distinto al esperado.
	const check = `SELECT 1 FROM dataset_versions WHERE version_id = $1`
	var one int
	if err := s.pool.QueryRow(ctx, check, versionID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrNotFound
		}
		return fmt.Errorf("catalog: transition check %s: %w", versionID, err)
	}
	return core.ErrStaleTransition
}

func (s *Store) ActivateExclusive(ctx context.Context, versionID string, key core.LogicalKey) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("catalog: begin activate: %w", err)
	}
	defer tx.Rollback(ctx)

	const lock = `
		SELECT lifecycle_state, is_active FROM dataset_versions
		WHERE version_id = $1
		FOR UPDATE`
	var state core.LifecycleState
	var active bool
	if err := tx.QueryRow(ctx, lock, versionID).Scan(&state, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrNotFound
		}
		return fmt.Errorf("catalog: lock %s: %w", versionID, err)
	}
	if state == core.StateRejected {
		return core.ErrTerminalState
	}
	if active {
		// Veredicto duplicado para una versión ya activa: no-op.
		return tx.Commit(ctx)
	}

	const deactivate = `
		UPDATE dataset_versions
		SET is_active = FALSE
		WHERE owner_id = $1 AND dataset_kind = $2 AND reporting_period = $3
		  AND is_active AND version_id <> $4`
	if _, err := tx.Exec(ctx, deactivate, key.OwnerID, key.DatasetKind, key.ReportingPeriod, versionID); err != nil {
		return fmt.Errorf("catalog: deactivate key %v: %w", key, err)
	}

	const activate = `
		UPDATE dataset_versions
		SET lifecycle_state = $2, is_active = TRUE, qa_pending = FALSE
		WHERE version_id = $1`
	if _, err := tx.Exec(ctx, activate, versionID, core.StateAccepted); err != nil {
		return fmt.Errorf("catalog: activate %s: %w", versionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("catalog: commit activate %s: %w", versionID, err)
	}
	return nil
}

func (s *Store) ClearQAPending(ctx context.Context, versionID string) error {
	const q = `UPDATE dataset_versions SET qa_pending = FALSE WHERE version_id = $1`
	ct, err := s.pool.Exec(ctx, q, versionID)
	if err != nil {
		return fmt.Errorf("catalog: clear qa pending %s: %w", versionID, err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) GetByKey(ctx context.Context, key core.LogicalKey, activeOnly bool) ([]core.DatasetVersion, error) {
	q := `SELECT ` + versionCols + `
		FROM dataset_versions
		WHERE owner_id = $1 AND dataset_kind = $2 AND reporting_period = $3`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, q, key.OwnerID, key.DatasetKind, key.ReportingPeriod)
	if err != nil {
		return nil, fmt.Errorf("catalog: get by key %v: %w", key, err)
	}
	defer rows.Close()
	return collect(rows)
}

func (s *Store) GetByID(ctx context.Context, versionID string) (*core.DatasetVersion, error) {
	q := `SELECT ` + versionCols + ` FROM dataset_versions WHERE version_id = $1`
	return scanVersion(s.pool.QueryRow(ctx, q, versionID))
}

func (s *Store) DeleteStaged(ctx context.Context, versionID string) error {
	const q = `DELETE FROM dataset_versions WHERE version_id = $1 AND lifecycle_state = $2`
	ct, err := s.pool.Exec(ctx, q, versionID, core.StateStaged)
	if err != nil {
		return fmt.Errorf("catalog: delete staged %s: %w", versionID, err)
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]core.DatasetVersion, error) {
	var out []core.DatasetVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
