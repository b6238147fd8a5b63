// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/config"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/handler"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/ledger"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/notify"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/reconcile"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/service"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/storage"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	// ── 1. Tracing ───────────────────────────────────────────────────────
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.StoreKey.String(cfg.StoreDriver))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("flush traces: %v", err)
		}
	}()

	// ── 2. Connect to the store ──────────────────────────────────────────
	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()
	log.Printf("✓ Store ready (%s)", cfg.StoreDriver)

	// ── 3. Wire up layers ────────────────────────────────────────────────
	var sender notify.Sender = notify.LogSender{}
	if cfg.Mail.Configured() {
		sender = notify.NewMailer(cfg.Mail, cfg.Dispatch.SendTimeout)
	} else {
		log.Printf("email configuration incomplete, confirmations disabled (missing: %v)", cfg.Mail.Missing())
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Dispatch)

	seats := ledger.New(stores.Classes)
	bookingSvc := service.NewBookingService(stores.Classes, stores.Bookings, seats, dispatcher)
	bookingHandler := handler.NewBookingHandler(bookingSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.NewRouter(bookingHandler, cfg.SiteDir, cfg.CORSOrigin),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ── 4. Run until SIGINT or SIGTERM ───────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	// The dispatcher outlives the HTTP server so late confirmations still
	// drain; it stops once the server has shut down.
	mailCtx, stopMail := context.WithCancel(context.Background())
	defer stopMail()
	g.Go(func() error { return dispatcher.Run(mailCtx) })

	if cfg.ReconcileInterval > 0 {
		reconciler := reconcile.New(stores.Classes, cfg.ReconcileInterval)
		g.Go(func() error { return reconciler.Run(gctx) })
	}

	g.Go(func() error {
		log.Printf("✓ Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopMail()
		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	stats := dispatcher.Stats()
	log.Printf("server stopped (emails sent=%d failed=%d dropped=%d)", stats.Sent, stats.Failed, stats.Dropped)
	return nil
}
