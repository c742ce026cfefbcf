package service

import (
	"context"
	"fmt"
	"time"

	"github.com/orgvault/orgvault/internal/domain"
	"github.com/orgvault/orgvault/internal/domain/admin"
	"github.com/orgvault/orgvault/internal/domain/org"
	"github.com/orgvault/orgvault/internal/port/cache"
	"github.com/orgvault/orgvault/internal/port/database"
	"github.com/orgvault/orgvault/internal/port/messagequeue"
)

// Ensure the mocks implement their ports at compile time.
var (
	_ database.Registry   = (*mockRegistry)(nil)
	_ database.Partitions = (*mockPartitions)(nil)
	_ messagequeue.Queue  = (*mockQueue)(nil)
	_ cache.Cache         = (*mockCache)(nil)
)

// mockRegistry is an in-memory implementation of database.Registry.
type mockRegistry struct {
	orgs []org.Organization

	// Error hooks — set these to inject failures.
	insertErr  error
	getErr     error
	replaceErr error
	deleteErr  error
	listErr    error
}

func (m *mockRegistry) Insert(_ context.Context, rec *org.Organization) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	for i := range m.orgs {
		if m.orgs[i].Name == rec.Name {
			return fmt.Errorf("insert organization %s: %w", rec.Name, domain.ErrConflict)
		}
	}
	rec.ID = fmt.Sprintf("org-%d", len(m.orgs)+1)
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.orgs = append(m.orgs, *rec)
	return nil
}

func (m *mockRegistry) GetByName(_ context.Context, name string) (*org.Organization, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.orgs {
		if m.orgs[i].Name == name {
			rec := m.orgs[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("get organization %s: %w", name, domain.ErrNotFound)
}

func (m *mockRegistry) GetByAdminEmail(_ context.Context, email string) (*org.Organization, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.orgs {
		if m.orgs[i].AdminEmail == email {
			rec := m.orgs[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("get organization by email: %w", domain.ErrNotFound)
}

func (m *mockRegistry) Replace(_ context.Context, oldName string, rec *org.Organization) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	for i := range m.orgs {
		if m.orgs[i].Name == oldName {
			rec.UpdatedAt = time.Now()
			m.orgs[i] = *rec
			return nil
		}
	}
	return fmt.Errorf("replace organization %s: %w", oldName, domain.ErrNotFound)
}

func (m *mockRegistry) DeleteByName(_ context.Context, name string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.orgs {
		if m.orgs[i].Name == name {
			m.orgs = append(m.orgs[:i], m.orgs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete organization %s: %w", name, domain.ErrNotFound)
}

func (m *mockRegistry) ListAll(_ context.Context) ([]org.Organization, error) {
	return m.orgs, m.listErr
}

// mockPartitions is an in-memory implementation of database.Partitions.
type mockPartitions struct {
	tables map[string][]admin.Document

	createErr   error
	copyErr     error
	upsertErr   error
	getAdminErr error
	existsErr   error
	dropErr     error

	dropped []string
}

func newMockPartitions() *mockPartitions {
	return &mockPartitions{tables: make(map[string][]admin.Document)}
}

func (m *mockPartitions) CreateWithSeed(_ context.Context, partition string, seed *admin.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.tables[partition]; ok {
		return fmt.Errorf("create partition %s: %w", partition, domain.ErrConflict)
	}
	docs := []admin.Document{}
	if seed != nil {
		docs = append(docs, *seed)
	}
	m.tables[partition] = docs
	return nil
}

func (m *mockPartitions) CopyAll(_ context.Context, src, dst string, transform func(*admin.Document)) (int, error) {
	if m.copyErr != nil {
		return 0, m.copyErr
	}
	srcDocs, ok := m.tables[src]
	if !ok {
		return 0, fmt.Errorf("copy from %s: %w", src, domain.ErrNotFound)
	}
	for _, doc := range srcDocs {
		if transform != nil {
			transform(&doc)
		}
		m.tables[dst] = append(m.tables[dst], doc)
	}
	return len(srcDocs), nil
}

func (m *mockPartitions) UpsertAdmin(_ context.Context, partition string, doc *admin.Document) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	docs, ok := m.tables[partition]
	if !ok {
		return fmt.Errorf("upsert in %s: %w", partition, domain.ErrNotFound)
	}
	for i := range docs {
		if docs[i].ID == doc.ID {
			docs[i] = *doc
			return nil
		}
	}
	m.tables[partition] = append(docs, *doc)
	return nil
}

func (m *mockPartitions) GetAdminByEmail(_ context.Context, partition, email string) (*admin.Document, error) {
	if m.getAdminErr != nil {
		return nil, m.getAdminErr
	}
	docs, ok := m.tables[partition]
	if !ok {
		return nil, fmt.Errorf("get admin in %s: %w", partition, domain.ErrNotFound)
	}
	for i := range docs {
		if docs[i].Email == email {
			doc := docs[i]
			return &doc, nil
		}
	}
	return nil, fmt.Errorf("get admin %s: %w", email, domain.ErrNotFound)
}

func (m *mockPartitions) ListDocuments(_ context.Context, partition string) ([]admin.Document, error) {
	docs, ok := m.tables[partition]
	if !ok {
		return nil, fmt.Errorf("list documents in %s: %w", partition, domain.ErrNotFound)
	}
	return docs, nil
}

func (m *mockPartitions) Exists(_ context.Context, partition string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.tables[partition]
	return ok, nil
}

func (m *mockPartitions) Drop(_ context.Context, partition string) error {
	if m.dropErr != nil {
		return m.dropErr
	}
	delete(m.tables, partition)
	m.dropped = append(m.dropped, partition)
	return nil
}

// mockQueue records published messages.
type mockQueue struct {
	published  []publishedMsg
	publishErr error
}

type publishedMsg struct {
	subject string
	data    []byte
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, _ string, _ messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

func (m *mockQueue) subjects() []string {
	var out []string
	for _, p := range m.published {
		out = append(out, p.subject)
	}
	return out
}

// mockCache is a map-backed cache with hit counting.
type mockCache struct {
	data map[string][]byte
	hits int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	if ok {
		m.hits++
	}
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}
