// Package cache provides metadata caching with PostgreSQL LISTEN/NOTIFY
// invalidation.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crmforge/internal/core/tenant"
	"crmforge/internal/metadata"
	"crmforge/pkg/logger"
)

// SchemaCache is a read-through cache in front of the metadata store. Field
// lists, layouts and form definitions are cached per module and invalidated
// by NOTIFY events, never by TTL: a cached schema stays valid until the
// tenant actually changes it.
//
// Implements metadata.Source, so services and handlers are oblivious to the
// cache's existence.
type SchemaCache struct {
	pool   *pgxpool.Pool
	source metadata.Source

	mu      sync.RWMutex
	fields  map[fieldsKey]fieldsEntry
	layouts map[layoutKey]*metadata.Layout
	forms   map[formKey]*metadata.FormDefinition

	listeners   []InvalidationListener
	listenersMu sync.RWMutex

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

type fieldsEntry struct {
	system []metadata.FieldDescriptor
	custom []metadata.FieldDescriptor
}

// Keys carry the tenant id because one process serves many tenants and each
// tenant owns its schema.
type fieldsKey struct {
	tenant string
	module string
}

type layoutKey struct {
	tenant   string
	module   string
	viewType metadata.ViewType
}

type formKey struct {
	tenant string
	module string
	formID string
}

// InvalidationListener is called when a cache entry is invalidated.
type InvalidationListener func(channel string, payload string)

// NewSchemaCache creates a cache over source; pool supplies the dedicated
// LISTEN connection.
func NewSchemaCache(pool *pgxpool.Pool, source metadata.Source) *SchemaCache {
	return &SchemaCache{
		pool:    pool,
		source:  source,
		fields:  make(map[fieldsKey]fieldsEntry),
		layouts: make(map[layoutKey]*metadata.Layout),
		forms:   make(map[formKey]*metadata.FormDefinition),
	}
}

var _ metadata.Source = (*SchemaCache)(nil)

// GetFieldsForModule serves from cache, loading through on a miss. Load
// failures are never cached.
func (c *SchemaCache) GetFieldsForModule(ctx context.Context, module string) ([]metadata.FieldDescriptor, []metadata.FieldDescriptor, error) {
	key := fieldsKey{tenant: tenant.GetTenantID(ctx), module: module}

	c.mu.RLock()
	entry, ok := c.fields[key]
	c.mu.RUnlock()
	if ok {
		return entry.system, entry.custom, nil
	}

	system, custom, err := c.source.GetFieldsForModule(ctx, module)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.fields[key] = fieldsEntry{system: system, custom: custom}
	c.mu.Unlock()
	return system, custom, nil
}

func (c *SchemaCache) GetActiveLayout(ctx context.Context, module string, viewType metadata.ViewType) (*metadata.Layout, error) {
	key := layoutKey{tenant: tenant.GetTenantID(ctx), module: module, viewType: viewType}

	c.mu.RLock()
	layout, ok := c.layouts[key]
	c.mu.RUnlock()
	if ok {
		return layout, nil
	}

	layout, err := c.source.GetActiveLayout(ctx, module, viewType)
	if err != nil {
		return nil, err
	}

	// nil (no layout configured) is a valid cacheable answer.
	c.mu.Lock()
	c.layouts[key] = layout
	c.mu.Unlock()
	return layout, nil
}

func (c *SchemaCache) GetFormDefinition(ctx context.Context, module, formID string) (*metadata.FormDefinition, error) {
	key := formKey{tenant: tenant.GetTenantID(ctx), module: module, formID: formID}

	c.mu.RLock()
	form, ok := c.forms[key]
	c.mu.RUnlock()
	if ok {
		return form, nil
	}

	form, err := c.source.GetFormDefinition(ctx, module, formID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.forms[key] = form
	c.mu.Unlock()
	return form, nil
}

// Invalidate drops every cached entry for tenantID+module; the next read
// loads fresh. An empty tenantID matches all tenants, an empty module drops
// everything.
func (c *SchemaCache) Invalidate(tenantID, module string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if module == "" {
		c.fields = make(map[fieldsKey]fieldsEntry)
		c.layouts = make(map[layoutKey]*metadata.Layout)
		c.forms = make(map[formKey]*metadata.FormDefinition)
		return
	}

	for key := range c.fields {
		if key.module == module && (tenantID == "" || key.tenant == tenantID) {
			delete(c.fields, key)
		}
	}
	for key := range c.layouts {
		if key.module == module && (tenantID == "" || key.tenant == tenantID) {
			delete(c.layouts, key)
		}
	}
	for key := range c.forms {
		if key.module == module && (tenantID == "" || key.tenant == tenantID) {
			delete(c.forms, key)
		}
	}
}

// Publish broadcasts an invalidation on channel through the shared listen
// pool so every instance, this one included, drops the affected entries.
// The payload is "tenantID:module".
func (c *SchemaCache) Publish(ctx context.Context, channel, module string) error {
	payload := tenant.GetTenantID(ctx) + ":" + module
	if _, err := c.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, payload); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Start begins listening for NOTIFY events.
func (c *SchemaCache) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	if c.started {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.lifecycleMu.Unlock()

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "schema cache started")
	return nil
}

// Stop gracefully stops the cache listener.
func (c *SchemaCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	logger.Info(context.Background(), "schema cache stopped")
}

// listenLoop holds a dedicated connection subscribed to the metadata
// channels, reacquiring on failure.
func (c *SchemaCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		_, err = conn.Exec(c.ctx, "LISTEN schema_changed; LISTEN layouts_changed; LISTEN forms_changed;")
		if err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		logger.Info(c.ctx, "listening for metadata change notifications")
		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *SchemaCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Timeout keeps shutdown responsive; a timeout itself is expected.
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			continue
		}

		logger.Debug(c.ctx, "received notification",
			"channel", notification.Channel,
			"payload", notification.Payload)

		c.handleNotification(notification.Channel, notification.Payload)
	}
}

// handleNotification drops the affected entries. The payload is
// "tenantID:module"; a bare module name invalidates it for every tenant and
// a blank payload flushes everything.
func (c *SchemaCache) handleNotification(channel, payload string) {
	tenantID, module := parsePayload(payload)

	switch channel {
	case "schema_changed", "layouts_changed", "forms_changed":
		c.Invalidate(tenantID, module)
	default:
		return
	}

	// Deliver to registered listeners inline with panic recovery; no
	// goroutine fan-out, so bursts of NOTIFY events stay bounded.
	c.listenersMu.RLock()
	for _, listener := range c.listeners {
		func(l InvalidationListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(c.ctx, "listener panic recovered", "channel", channel, "panic", r)
				}
			}()
			l(channel, payload)
		}(listener)
	}
	c.listenersMu.RUnlock()
}

func parsePayload(payload string) (tenantID, module string) {
	payload = strings.TrimSpace(payload)
	if before, after, found := strings.Cut(payload, ":"); found {
		return before, strings.TrimSpace(after)
	}
	return "", payload
}

// OnInvalidation registers a callback for invalidation events.
func (c *SchemaCache) OnInvalidation(listener InvalidationListener) {
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, listener)
	c.listenersMu.Unlock()
}

// CacheStats reports what is currently cached.
type CacheStats struct {
	Modules int
	Layouts int
	Forms   int
}

func (c *SchemaCache) GetStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Modules: len(c.fields),
		Layouts: len(c.layouts),
		Forms:   len(c.forms),
	}
}

// String implements fmt.Stringer for diagnostics endpoints.
func (s CacheStats) String() string {
	return fmt.Sprintf("modules=%d layouts=%d forms=%d", s.Modules, s.Layouts, s.Forms)
}
