package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orgvault/orgvault/internal/config"
	"github.com/orgvault/orgvault/internal/port/database"
	"github.com/orgvault/orgvault/internal/port/messagequeue"
)

// Reconciler periodically verifies that every registry record still points
// at an existing partition. Drift (a dangling record after a failed delete
// or a crashed rename) is logged and published; the sweep never mutates
// state itself.
type Reconciler struct {
	registry   database.Registry
	partitions database.Partitions
	queue      messagequeue.Queue
	cfg        config.Reconcile
}

// NewReconciler creates the drift reconciler.
func NewReconciler(registry database.Registry, partitions database.Partitions, queue messagequeue.Queue, cfg config.Reconcile) *Reconciler {
	return &Reconciler{
		registry:   registry,
		partitions: partitions,
		queue:      queue,
		cfg:        cfg,
	}
}

// Start runs the sweep on a ticker until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	if !r.cfg.Enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := r.Sweep(ctx); err != nil {
					slog.Error("reconcile sweep failed", "error", err)
				} else if n > 0 {
					slog.Warn("reconcile sweep found drift", "dangling", n)
				}
			}
		}
	}()
}

// driftEvent is published on orgs.reconcile.drift for each dangling record.
type driftEvent struct {
	Organization string `json:"organization_name"`
	Partition    string `json:"partition_name"`
	At           string `json:"at"`
}

// Sweep checks every registry record's partition with bounded concurrency
// and returns the number of dangling records found.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	orgs, err := r.registry.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	drift := make([]bool, len(orgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i := range orgs {
		g.Go(func() error {
			exists, err := r.partitions.Exists(gctx, orgs[i].PartitionName)
			if err != nil {
				return err
			}
			drift[i] = !exists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for i := range orgs {
		if !drift[i] {
			continue
		}
		count++
		slog.Warn("registry record without partition",
			"organization", orgs[i].Name, "partition", orgs[i].PartitionName)
		r.publishDrift(ctx, orgs[i].Name, orgs[i].PartitionName)
	}
	return count, nil
}

func (r *Reconciler) publishDrift(ctx context.Context, name, partition string) {
	if r.queue == nil {
		return
	}
	data, err := json.Marshal(driftEvent{
		Organization: name,
		Partition:    partition,
		At:           time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := r.queue.Publish(ctx, messagequeue.SubjectReconcileDrift, data); err != nil {
		slog.Warn("publish drift event", "organization", name, "error", err)
	}
}
