package notify

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
)

// Sender delivers one confirmation.
type Sender interface {
	Send(ctx context.Context, email, name string, class model.ClassSession) error
}

// DispatcherConfig sizes the confirmation queue.
type DispatcherConfig struct {
	QueueSize   int           `env:"EMAIL_QUEUE_SIZE" envDefault:"64"`
	Workers     int           `env:"EMAIL_WORKERS" envDefault:"2"`
	SendTimeout time.Duration `env:"EMAIL_SEND_TIMEOUT" envDefault:"10s"`
}

type job struct {
	email string
	name  string
	class model.ClassSession
}

// Dispatcher hands confirmations to a pool of workers so the caller never
// waits on SMTP.
type Dispatcher struct {
	sender  Sender
	queue   chan job
	workers int
	timeout time.Duration

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher constructs a Dispatcher. Workers start with Run.
func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan job, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.SendTimeout,
	}
}

// Notify enqueues a confirmation. It never blocks; when the queue is full the
// confirmation is dropped and logged.
func (d *Dispatcher) Notify(_ context.Context, email, name string, class model.ClassSession) {
	select {
	case d.queue <- job{email: email, name: name, class: class}:
	default:
		d.dropped.Add(1)
		log.Printf("email queue full, dropping confirmation to=%s class_id=%s", email, class.ID)
	}
}

// Run processes the queue until ctx is cancelled, then sends whatever is
// still queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case j := <-d.queue:
			d.deliver(j)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.queue:
			d.deliver(j)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, j.email, j.name, j.class); err != nil {
		d.failed.Add(1)
		log.Printf("email send failed to=%s class_id=%s: %v", j.email, j.class.ID, err)
		return
	}
	d.sent.Add(1)
}

// Stats reports delivery counters.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Stats returns a snapshot of the delivery counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Failed: d.failed.Load(), Dropped: d.dropped.Load()}
}
