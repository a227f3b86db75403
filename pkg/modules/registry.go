package modules

import (
	"slices"
	"sync"
	"time"
)

// registry implements the ModuleRegistry interface
type registry struct {
	modules map[SourceIdentifier]*ModuleEntry // Map of identifier -> entry
	aliases map[SourceIdentifier]SourceIdentifier
	mutex   sync.RWMutex  // Protects concurrent access
	stats   RegistryStats // Performance statistics
	config  *LoaderConfig // Configuration
}

// NewRegistry creates a new module registry
func NewRegistry(config *LoaderConfig) ModuleRegistry {
	if config == nil {
		config = DefaultLoaderConfig()
	}

	return &registry{
		modules: make(map[SourceIdentifier]*ModuleEntry),
		aliases: make(map[SourceIdentifier]SourceIdentifier),
		config:  config,
	}
}

func (r *registry) lookup(id SourceIdentifier) *ModuleEntry {
	if target, ok := r.aliases[id]; ok {
		id = target
	}
	return r.modules[id]
}

// expired reports whether an unrecorded entry has outlived the TTL.
// Recorded entries are part of a module graph and never expire.
func (r *registry) expired(entry *ModuleEntry) bool {
	return r.config.CacheTTL > 0 && entry.State != LoadRecorded && time.Since(entry.LoadTime) > r.config.CacheTTL
}

// Get retrieves an entry by identifier
func (r *registry) Get(id SourceIdentifier) *ModuleEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry := r.lookup(id)
	if entry == nil || r.expired(entry) {
		r.stats.CacheMisses++
		return nil
	}
	r.stats.CacheHits++
	return entry
}

// Set stores an entry, replacing any entry with the same identifier
func (r *registry) Set(entry *ModuleEntry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	old := r.modules[entry.ID]
	if old == nil && r.config.CacheSize > 0 && len(r.modules) >= r.config.CacheSize {
		r.evictOldest()
	}
	if old != nil {
		r.count(old, -1)
	} else {
		r.stats.TotalModules++
	}
	r.count(entry, 1)
	r.modules[entry.ID] = entry
}

func (r *registry) count(entry *ModuleEntry, delta int) {
	switch entry.State {
	case LoadRecorded:
		r.stats.LoadedModules += delta
	case LoadError:
		r.stats.FailedModules += delta
	}
}

// Alias makes id resolve to the entry stored under target
func (r *registry) Alias(id, target SourceIdentifier) {
	if id == target {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.aliases[id] = target
}

// Remove removes an entry and every alias pointing at it
func (r *registry) Remove(id SourceIdentifier) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if target, ok := r.aliases[id]; ok {
		id = target
	}
	r.remove(id)
}

func (r *registry) remove(id SourceIdentifier) {
	entry := r.modules[id]
	if entry == nil {
		return
	}
	delete(r.modules, id)
	r.stats.TotalModules--
	r.count(entry, -1)
	for alias, target := range r.aliases {
		if target == id {
			delete(r.aliases, alias)
		}
	}
}

// Clear clears all cached modules
func (r *registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.modules = make(map[SourceIdentifier]*ModuleEntry)
	r.aliases = make(map[SourceIdentifier]SourceIdentifier)
	r.stats = RegistryStats{}
}

// List returns all stored identifiers in sorted order
func (r *registry) List() []SourceIdentifier {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]SourceIdentifier, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Size returns the number of cached modules
func (r *registry) Size() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.modules)
}

// GetStats returns current registry statistics
func (r *registry) GetStats() RegistryStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := r.stats
	for _, entry := range r.modules {
		if entry.Source != nil {
			stats.MemoryUsage += int64(len(entry.Source.Content))
		}
	}
	return stats
}

// evictOldest removes the oldest unrecorded entry (called with lock held).
// Recorded entries are pinned: evicting one would give a referrer a
// second record for the same module.
func (r *registry) evictOldest() {
	var oldest SourceIdentifier
	var oldestTime time.Time

	first := true
	for id, entry := range r.modules {
		if entry.State == LoadRecorded {
			continue
		}
		if first || entry.LoadTime.Before(oldestTime) {
			oldest = id
			oldestTime = entry.LoadTime
			first = false
		}
	}

	if !first {
		r.remove(oldest)
	}
}
