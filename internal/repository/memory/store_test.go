package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/repository"
)

func newTestStore() *Store {
	return NewStore(domain.Rates{
		TaxRatePct:        decimal.RequireFromString("8.25"),
		CommissionRatePct: decimal.NewFromInt(20),
	})
}

func TestWithinTx_RollbackDiscardsWrites(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	errBoom := errors.New("boom")

	err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		if _, _, err := repos.Locations.InsertIfAbsent(ctx, "1 Main St"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected callback error, got: %v", err)
	}

	if _, err := store.Repositories().Locations.GetByAddress(context.Background(), "1 Main St"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected rolled back location to be absent, got: %v", err)
	}
	if store.RollbackCount != 1 {
		t.Errorf("expected 1 rollback, got %d", store.RollbackCount)
	}
}

func TestWithinTx_CommitPersistsWrites(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		_, _, err := repos.Locations.InsertIfAbsent(ctx, "1 Main St")
		return err
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := store.Repositories().Locations.GetByAddress(context.Background(), "1 Main St"); err != nil {
		t.Errorf("expected committed location, got: %v", err)
	}
}

func TestWithinTx_CommitFailureRollsBack(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	errCommit := errors.New("commit failed")
	store.FailOn(OpCommit, errCommit)

	err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
		_, _, err := repos.Locations.InsertIfAbsent(ctx, "1 Main St")
		return err
	})
	if !errors.Is(err, errCommit) {
		t.Fatalf("expected commit error, got: %v", err)
	}
	if _, err := store.Repositories().Locations.GetByAddress(context.Background(), "1 Main St"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected location to be absent, got: %v", err)
	}
}

func TestNewStore_Seeds(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	repos := store.Repositories()
	ctx := context.Background()

	for _, name := range []string{"Standard", "XL", "Executive"} {
		if _, err := repos.Categories.GetByName(ctx, name); err != nil {
			t.Errorf("expected category %q, got: %v", name, err)
		}
	}

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		_, err := repos.Accounts.GetOperating(ctx)
		return err
	})
	if err != nil {
		t.Errorf("expected operating account, got: %v", err)
	}

	rates, err := repos.Rates.Get(ctx)
	if err != nil {
		t.Fatalf("expected rates, got: %v", err)
	}
	if !rates.TaxRatePct.Equal(decimal.RequireFromString("8.25")) {
		t.Errorf("expected tax rate 8.25, got %s", rates.TaxRatePct)
	}
}
