package trm

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeBeginner struct {
	begins []*fakeTx
	opts   []pgx.TxOptions
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	b.begins = append(b.begins, tx)
	return tx, nil
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	b.opts = append(b.opts, opts)
	return b.Begin(ctx)
}

func TestManager_CommitAndNested(t *testing.T) {
	db := &fakeBeginner{}
	m := NewWithBeginner(db)

	err := m.Do(context.Background(), func(ctx context.Context) error {
		if _, ok := TxFromContext(ctx); !ok {
			t.Fatalf("tx missing from context")
		}
		return m.Do(ctx, func(ctx context.Context) error { return nil })
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(db.begins) != 1 {
		t.Fatalf("nested Do must join the outer tx, begins = %d", len(db.begins))
	}
	if !db.begins[0].committed || db.begins[0].rolledBack {
		t.Fatalf("tx must be committed only")
	}
}

func TestManager_RollbackOnError(t *testing.T) {
	db := &fakeBeginner{}
	m := NewWithBeginner(db)
	boom := errors.New("boom")

	err := m.Do(context.Background(), func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if db.begins[0].committed || !db.begins[0].rolledBack {
		t.Fatalf("tx must be rolled back")
	}
}

func TestManager_RollbackOnPanic(t *testing.T) {
	db := &fakeBeginner{}
	m := NewWithBeginner(db)

	defer func() {
		if recover() == nil {
			t.Fatalf("panic must be re-raised")
		}
		if !db.begins[0].rolledBack {
			t.Fatalf("tx must be rolled back on panic")
		}
	}()

	_ = m.Do(context.Background(), func(ctx context.Context) error { panic("oops") })
}

func TestManager_ReadOnly(t *testing.T) {
	db := &fakeBeginner{}
	m := NewWithBeginner(db)

	if err := m.DoReadOnly(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if len(db.opts) != 1 || db.opts[0].AccessMode != pgx.ReadOnly {
		t.Fatalf("read only options not passed: %+v", db.opts)
	}
}
