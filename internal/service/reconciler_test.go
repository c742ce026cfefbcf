package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orgvault/orgvault/internal/config"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/port/messagequeue"
)

func reconcileConfig() config.Reconcile {
	return config.Reconcile{Enabled: true, Interval: time.Minute, Concurrency: 2}
}

func TestSweepCleanRegistry(t *testing.T) {
	registry := &mockRegistry{}
	partitions := newMockPartitions()
	queue := &mockQueue{}
	lc := NewLifecycleService(registry, partitions, queue, nil, testAuthConfig(), time.Minute)
	ctx := context.Background()
	_, _ = lc.Create(ctx, createReq("alpha"))
	_, _ = lc.Create(ctx, createReq("beta"))

	r := NewReconciler(registry, partitions, queue, reconcileConfig())
	n, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Sweep() = %d dangling, want 0", n)
	}
}

func TestSweepFindsDanglingRecord(t *testing.T) {
	registry := &mockRegistry{}
	partitions := newMockPartitions()
	queue := &mockQueue{}
	lc := NewLifecycleService(registry, partitions, queue, nil, testAuthConfig(), time.Minute)
	ctx := context.Background()
	_, _ = lc.Create(ctx, createReq("alpha"))
	_, _ = lc.Create(ctx, createReq("beta"))

	// Simulate a crashed delete: partition gone, registry record left.
	delete(partitions.tables, "org_beta")

	queue.published = nil
	r := NewReconciler(registry, partitions, queue, reconcileConfig())
	n, err := r.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Sweep() = %d dangling, want 1", n)
	}

	found := false
	for _, s := range queue.subjects() {
		if s == messagequeue.SubjectReconcileDrift {
			found = true
		}
	}
	if !found {
		t.Errorf("no %s event published", messagequeue.SubjectReconcileDrift)
	}
}

func TestSweepDoesNotMutate(t *testing.T) {
	registry := &mockRegistry{
		orgs: []org.Organization{{Name: "ghost", PartitionName: "org_ghost", IsActive: true}},
	}
	partitions := newMockPartitions()

	r := NewReconciler(registry, partitions, &mockQueue{}, reconcileConfig())
	if _, err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(registry.orgs) != 1 {
		t.Error("sweep must not delete registry records")
	}
}

func TestSweepExistsError(t *testing.T) {
	registry := &mockRegistry{
		orgs: []org.Organization{{Name: "alpha", PartitionName: "org_alpha", IsActive: true}},
	}
	partitions := newMockPartitions()
	partitions.existsErr = errors.New("boom")

	r := NewReconciler(registry, partitions, &mockQueue{}, reconcileConfig())
	if _, err := r.Sweep(context.Background()); err == nil {
		t.Fatal("Sweep() should propagate existence check errors")
	}
}
