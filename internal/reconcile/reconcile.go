// Package reconcile repairs class counters that drifted from the bookings
// backing them, which happens when a seat release is lost after a cancel or a
// failed booking.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
)

// Store exposes class occupancy and a compare-and-set on the counter.
type Store interface {
	Occupancy(ctx context.Context) ([]model.Occupancy, error)
	SetBookedCount(ctx context.Context, id string, version int64, value int) (bool, error)
}

// Report summarizes one sweep.
type Report struct {
	Checked    int
	Suspected  int
	Corrected  int
	Undercount int
}

// Reconciler compares counters with confirmed bookings. An overcount is only
// corrected once an identical snapshot is seen on two consecutive sweeps:
// same counter version and same booking totals, meaning no seat was claimed or
// released and no booking was made or cancelled in between. A reservation in
// flight between its seat claim and its booking insert keeps the snapshot
// moving as long as anything else happens on the class, and a quiet class
// must stay quiet for a full interval before its counter is lowered.
type Reconciler struct {
	store    Store
	interval time.Duration
	tracer   trace.Tracer

	mu       sync.Mutex
	suspects map[string]model.Occupancy
}

// New constructs a Reconciler that sweeps every interval.
func New(store Store, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    store,
		interval: interval,
		tracer:   otel.Tracer("github.com/mohammedshaibaaz/pulse-strength-gym/internal/reconcile"),
		suspects: make(map[string]model.Occupancy),
	}
}

// Sweep runs one reconciliation pass.
func (r *Reconciler) Sweep(ctx context.Context) (report Report, err error) {
	ctx, span := r.tracer.Start(ctx, "reconcile.Sweep")
	defer func() {
		span.SetAttributes(
			attribute.Int("reconcile.checked", report.Checked),
			attribute.Int("reconcile.corrected", report.Corrected),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sweep failed")
		}
		span.End()
	}()

	occupancy, err := r.store.Occupancy(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load occupancy: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]model.Occupancy)
	for _, o := range occupancy {
		report.Checked++
		drift := o.Drift()
		switch {
		case drift == 0:
			continue
		case drift < 0:
			report.Undercount++
			log.Printf("invariant violation: class_id=%s booked_count=%d confirmed=%d capacity=%d",
				o.ClassID, o.BookedCount, o.Confirmed, o.Capacity)
			continue
		}

		if prev, ok := r.suspects[o.ClassID]; !ok || prev != o {
			report.Suspected++
			next[o.ClassID] = o
			continue
		}

		swapped, setErr := r.store.SetBookedCount(ctx, o.ClassID, o.Version, o.Confirmed)
		if setErr != nil {
			r.suspects = next
			return report, fmt.Errorf("correct class %s: %w", o.ClassID, setErr)
		}
		if !swapped {
			// Counter moved since the read; judge it again next sweep.
			continue
		}
		report.Corrected++
		log.Printf("reconciled class_id=%s booked_count=%d->%d", o.ClassID, o.BookedCount, o.Confirmed)
	}
	r.suspects = next
	return report, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.sweepAndLog(ctx)
	if r.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.sweepAndLog(ctx)
		}
	}
}

func (r *Reconciler) sweepAndLog(ctx context.Context) {
	report, err := r.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("reconcile sweep failed: %v", err)
		}
		return
	}
	if report.Suspected > 0 || report.Corrected > 0 || report.Undercount > 0 {
		log.Printf("reconcile sweep checked=%d suspected=%d corrected=%d undercount=%d",
			report.Checked, report.Suspected, report.Corrected, report.Undercount)
	}
}
