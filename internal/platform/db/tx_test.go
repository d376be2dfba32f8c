package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

// fakeTx satisfies pgx.Tx for identity checks; no methods are called.
type fakeTx struct {
	pgx.Tx
}

func TestTxFromContext_Absent(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("plain context should carry no transaction")
	}
}

func TestTxFromContext_ReturnsStoredTx(t *testing.T) {
	tx := &fakeTx{}
	ctx := context.WithValue(context.Background(), txKey{}, pgx.Tx(tx))

	got := TxFromContext(ctx)
	if got != pgx.Tx(tx) {
		t.Errorf("TxFromContext = %v, want the stored transaction", got)
	}
}

func TestWithTx_JoinsAmbientTransaction(t *testing.T) {
	tx := &fakeTx{}
	ctx := context.WithValue(context.Background(), txKey{}, pgx.Tx(tx))

	called := false
	err := WithTx(ctx, nil, func(inner context.Context) error {
		called = true
		if TxFromContext(inner) != pgx.Tx(tx) {
			t.Error("inner context lost the ambient transaction")
		}
		return nil
	})
	if err != nil || !called {
		t.Errorf("err = %v, called = %v", err, called)
	}
}

func TestWithTx_JoinPropagatesError(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey{}, pgx.Tx(&fakeTx{}))

	want := errors.New("boom")
	if err := WithTx(ctx, nil, func(context.Context) error { return want }); err != want {
		t.Errorf("err = %v, want %v", err, want)
	}
}
