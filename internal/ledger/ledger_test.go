package ledger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/testutil"
)

func TestTryReserveConcurrentNeverExceedsCapacity(t *testing.T) {
	stores := testutil.OpenStores(t)
	class := testutil.CreateClass(t, stores.Classes, 5)
	l := New(stores.Classes)

	const attempts = 25
	var reserved, full atomic.Int32
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, err := l.TryReserve(context.Background(), class.ID)
			switch {
			case err == nil:
				reserved.Add(1)
			case errors.Is(err, ErrFull):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected reserve error: %v", err)
	}

	if reserved.Load() != 5 {
		t.Fatalf("reserved = %d, want 5", reserved.Load())
	}
	if full.Load() != attempts-5 {
		t.Fatalf("full = %d, want %d", full.Load(), attempts-5)
	}
	if got := testutil.BookedCount(t, stores.Classes, class.ID); got != 5 {
		t.Fatalf("booked_count = %d, want 5", got)
	}
}

func TestTryReserveReturnsPostClaimSnapshot(t *testing.T) {
	stores := testutil.OpenStores(t)
	class := testutil.CreateClass(t, stores.Classes, 1)
	l := New(stores.Classes)

	res, err := l.TryReserve(context.Background(), class.ID)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.ClassID != class.ID {
		t.Fatalf("reservation class = %s, want %s", res.ClassID, class.ID)
	}
	if res.Class.BookedCount != 1 || !res.Class.IsFull() {
		t.Fatalf("expected snapshot to be full with one booked, got %+v", res.Class)
	}

	full, err := l.Full(context.Background(), class.ID)
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	if !full {
		t.Fatal("expected class to report full")
	}
}

func TestReleaseUnderflowDoesNotMutate(t *testing.T) {
	stores := testutil.OpenStores(t)
	class := testutil.CreateClass(t, stores.Classes, 3)
	l := New(stores.Classes)

	if err := l.Release(context.Background(), class.ID); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("release on empty class = %v, want ErrUnderflow", err)
	}
	if got := testutil.BookedCount(t, stores.Classes, class.ID); got != 0 {
		t.Fatalf("booked_count = %d, want 0", got)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	stores := testutil.OpenStores(t)
	class := testutil.CreateClass(t, stores.Classes, 2)
	l := New(stores.Classes)
	ctx := context.Background()

	if _, err := l.TryReserve(ctx, class.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.Release(ctx, class.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := testutil.BookedCount(t, stores.Classes, class.ID); got != 0 {
		t.Fatalf("booked_count = %d, want 0", got)
	}
}

func TestUnknownClass(t *testing.T) {
	stores := testutil.OpenStores(t)
	l := New(stores.Classes)
	ctx := context.Background()

	if _, err := l.TryReserve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reserve unknown = %v, want ErrNotFound", err)
	}
	if err := l.Release(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("release unknown = %v, want ErrNotFound", err)
	}
	if _, err := l.Full(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("full unknown = %v, want ErrNotFound", err)
	}
}

type faultyStore struct {
	err error
}

func (s faultyStore) GetByID(context.Context, string) (*model.ClassSession, error) {
	return nil, s.err
}

func (s faultyStore) IncrementIfBelowCapacity(context.Context, string) (*model.ClassSession, error) {
	return nil, s.err
}

func (s faultyStore) DecrementIfPositive(context.Context, string) (*model.ClassSession, error) {
	return nil, s.err
}

func TestStoreFaultsAreWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	l := New(faultyStore{err: cause})
	ctx := context.Background()

	_, err := l.TryReserve(ctx, "c1")
	if !errors.Is(err, cause) || errors.Is(err, ErrFull) {
		t.Fatalf("reserve fault = %v, want wrapped cause", err)
	}
	err = l.Release(ctx, "c1")
	if !errors.Is(err, cause) || errors.Is(err, ErrUnderflow) {
		t.Fatalf("release fault = %v, want wrapped cause", err)
	}
}
