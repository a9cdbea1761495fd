package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/datavault/internal/catalog/core"
)

func seed(t *testing.T, s *Store, id string, key core.LogicalKey, state core.LifecycleState) {
	t.Helper()
	err := s.Insert(context.Background(), &core.DatasetVersion{
		VersionID:   id,
		Key:         key,
		State:       core.StateStaged,
		SubmitterID: "u1",
		QAPending:   true,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Insert %s: %v", id, err)
	}
	// Llevar al estado pedido vía transiciones legales.
	if state == core.StateStored || state == core.StateRejected {
		if err := s.Transition(context.Background(), id, core.StateStaged, core.StateStored); err != nil {
			t.Fatalf("Transition %s: %v", id, err)
		}
	}
	if state == core.StateRejected {
		if err := s.Transition(context.Background(), id, core.StateStored, core.StateRejected); err != nil {
			t.Fatalf("Transition %s: %v", id, err)
		}
	}
}

var key = core.LogicalKey{OwnerID: "o1", DatasetKind: "sfdr", ReportingPeriod: "2026"}

func TestInsertDuplicateID(t *testing.T) {
	s := New()
	seed(t, s, "v1", key, core.StateStaged)
	err := s.Insert(context.Background(), &core.DatasetVersion{VersionID: "v1", Key: key, State: core.StateStaged})
	if !errors.Is(err, core.ErrKeyCollision) {
		t.Fatalf("Insert dup = %v, want ErrKeyCollision", err)
	}
}

func TestTransitionCAS(t *testing.T) {
	s := New()
	seed(t, s, "v1", key, core.StateStaged)
	ctx := context.Background()

	if err := s.Transition(ctx, "v1", core.StateStaged, core.StateStored); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	// Repetir la misma transición es stale, no un error duro.
	if err := s.Transition(ctx, "v1", core.StateStaged, core.StateStored); !errors.Is(err, core.ErrStaleTransition) {
		t.Fatalf("Transition dup = %v, want ErrStaleTransition", err)
	}
	if err := s.Transition(ctx, "nope", core.StateStaged, core.StateStored); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Transition missing = %v, want ErrNotFound", err)
	}
}

func TestActivateExclusiveSwapsActive(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s, "v1", key, core.StateStored)
	seed(t, s, "v2", key, core.StateStored)

	if err := s.ActivateExclusive(ctx, "v1", key); err != nil {
		t.Fatalf("ActivateExclusive v1: %v", err)
	}
	if err := s.ActivateExclusive(ctx, "v2", key); err != nil {
		t.Fatalf("ActivateExclusive v2: %v", err)
	}

	active, err := s.GetByKey(ctx, key, true)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if len(active) != 1 || active[0].VersionID != "v2" {
		t.Fatalf("activas = %+v, want sólo v2", active)
	}

	// La versión desplazada queda Accepted pero inactiva, nunca se borra.
	v1, err := s.GetByID(ctx, "v1")
	if err != nil {
		t.Fatalf("GetByID v1: %v", err)
	}
	if v1.State != core.StateAccepted || v1.Active {
		t.Fatalf("v1 = state %s active %v, want accepted inactive", v1.State, v1.Active)
	}
}

func TestActivateExclusiveIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s, "v1", key, core.StateStored)

	if err := s.ActivateExclusive(ctx, "v1", key); err != nil {
		t.Fatalf("ActivateExclusive: %v", err)
	}
	if err := s.ActivateExclusive(ctx, "v1", key); err != nil {
		t.Fatalf("ActivateExclusive dup: %v", err)
	}
	active, _ := s.GetByKey(ctx, key, true)
	if len(active) != 1 {
		t.Fatalf("activas = %d, want 1", len(active))
	}
}

func TestActivateExclusiveRejectedIsTerminal(t *testing.T) {
	s := New()
	seed(t, s, "v1", key, core.StateRejected)
	err := s.ActivateExclusive(context.Background(), "v1", key)
	if !errors.Is(err, core.ErrTerminalState) {
		t.Fatalf("ActivateExclusive = %v, want ErrTerminalState", err)
	}
}

func TestDeleteStagedOnlyDeletesStaged(t *testing.T) {
	s := New()
	ctx := context.Background()
	seed(t, s, "v1", key, core.StateStaged)
	seed(t, s, "v2", key, core.StateStored)

	if err := s.DeleteStaged(ctx, "v1"); err != nil {
		t.Fatalf("DeleteStaged staged: %v", err)
	}
	if _, err := s.GetByID(ctx, "v1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetByID tras delete = %v, want ErrNotFound", err)
	}
	// Una fila ya stored no es borrable por el rollback de ingesta.
	if err := s.DeleteStaged(ctx, "v2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeleteStaged stored = %v, want ErrNotFound", err)
	}
}

func TestGetByKeyScopesToKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	otherKey := core.LogicalKey{OwnerID: "o2", DatasetKind: "sfdr", ReportingPeriod: "2026"}
	seed(t, s, "v1", key, core.StateStored)
	seed(t, s, "v2", otherKey, core.StateStaged)

	got, err := s.GetByKey(ctx, key, false)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if len(got) != 1 || got[0].VersionID != "v1" {
		t.Fatalf("GetByKey = %+v, want sólo v1", got)
	}

	got, _ = s.GetByKey(ctx, key, true)
	if len(got) != 0 {
		t.Fatalf("GetByKey activeOnly = %+v, want vacío", got)
	}
}
