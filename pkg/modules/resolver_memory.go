package modules

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryResolver resolves modules from an in-memory store. Paths are
// stored rooted ("/lib/a.js"); bare identifiers are looked up as given.
type MemoryResolver struct {
	name     string                   // Human-readable name
	modules  map[string]*MemoryModule // Map of module path -> module
	mutex    sync.RWMutex             // Protects concurrent access
	priority int                      // Resolution priority

	extensions []string
	indexFiles []string
}

// MemoryModule represents a module stored in memory
type MemoryModule struct {
	Path     string    // Module path
	Content  string    // Module source content
	Created  time.Time // When the module was created
	Modified time.Time // When the module was last modified
}

// NewMemoryResolver creates a new memory-based module resolver
func NewMemoryResolver(name string) *MemoryResolver {
	if name == "" {
		name = "Memory"
	}

	defaults := DefaultLoaderConfig()
	return &MemoryResolver{
		name:       name,
		modules:    make(map[string]*MemoryModule),
		priority:   50, // Higher priority than file system
		extensions: defaults.Extensions,
		indexFiles: defaults.IndexFiles,
	}
}

func storedPath(p string) string {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "./") {
		return path.Clean("/" + p)
	}
	return p
}

// Name returns the resolver name
func (r *MemoryResolver) Name() string {
	return r.name
}

// CanResolve returns true if this resolver holds the module
func (r *MemoryResolver) CanResolve(id SourceIdentifier) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, _, err := r.findModule(string(id))
	return err == nil
}

// Priority returns the resolver priority
func (r *MemoryResolver) Priority() int {
	return r.priority
}

// Resolve resolves an identifier to a stored module
func (r *MemoryResolver) Resolve(id SourceIdentifier) (*ResolvedModule, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	resolvedPath, module, err := r.findModule(string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", id, err)
	}

	return &ResolvedModule{
		ID:       SourceIdentifier(resolvedPath),
		Source:   io.NopCloser(strings.NewReader(module.Content)),
		FS:       &memoryFS{resolver: r},
		Resolver: r.name,
	}, nil
}

// findModule finds a module by identifier (called with read lock held)
func (r *MemoryResolver) findModule(id string) (string, *MemoryModule, error) {
	// Strategy 1: Try exact path
	if module, exists := r.modules[id]; exists {
		return id, module, nil
	}

	// Strategy 2: Try with extensions
	for _, ext := range r.extensions {
		if module, exists := r.modules[id+ext]; exists {
			return id + ext, module, nil
		}
	}

	// Strategy 3: Try as directory with index files
	for _, indexFile := range r.indexFiles {
		indexPath := path.Join(id, indexFile)
		if module, exists := r.modules[indexPath]; exists {
			return indexPath, module, nil
		}
	}

	return "", nil, fmt.Errorf("module not found: %s", id)
}

// AddModule adds a module to the memory store. Relative paths are stored
// rooted.
func (r *MemoryResolver) AddModule(p string, content string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p = storedPath(p)
	now := time.Now()
	r.modules[p] = &MemoryModule{
		Path:     p,
		Content:  content,
		Created:  now,
		Modified: now,
	}
}

// UpdateModule updates an existing module's content
func (r *MemoryResolver) UpdateModule(p string, content string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	module, exists := r.modules[storedPath(p)]
	if !exists {
		return fmt.Errorf("module not found: %s", p)
	}

	module.Content = content
	module.Modified = time.Now()
	return nil
}

// RemoveModule removes a module from the memory store
func (r *MemoryResolver) RemoveModule(p string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.modules, storedPath(p))
}

// ListModules returns all module paths in the store, sorted
func (r *MemoryResolver) ListModules() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	paths := make([]string, 0, len(r.modules))
	for p := range r.modules {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Clear removes all modules from the store
func (r *MemoryResolver) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.modules = make(map[string]*MemoryModule)
}

// SetPriority sets the resolver priority
func (r *MemoryResolver) SetPriority(priority int) {
	r.priority = priority
}

// SetExtensions sets the extensions probed after the exact path
func (r *MemoryResolver) SetExtensions(extensions []string) {
	r.extensions = extensions
}

// memoryFile implements fs.File for memory modules
type memoryFile struct {
	name   string
	reader io.Reader
	module *MemoryModule
	closed bool
}

func (mf *memoryFile) Stat() (fs.FileInfo, error) {
	return &memoryFileInfo{
		name:    path.Base(mf.name),
		size:    int64(len(mf.module.Content)),
		modTime: mf.module.Modified,
	}, nil
}

func (mf *memoryFile) Read(p []byte) (int, error) {
	if mf.closed {
		return 0, fs.ErrClosed
	}
	return mf.reader.Read(p)
}

func (mf *memoryFile) Close() error {
	mf.closed = true
	return nil
}

// memoryFileInfo implements fs.FileInfo for memory files
type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (mfi *memoryFileInfo) Name() string       { return mfi.name }
func (mfi *memoryFileInfo) Size() int64        { return mfi.size }
func (mfi *memoryFileInfo) Mode() fs.FileMode  { return 0o444 }
func (mfi *memoryFileInfo) ModTime() time.Time { return mfi.modTime }
func (mfi *memoryFileInfo) IsDir() bool        { return false }
func (mfi *memoryFileInfo) Sys() any           { return nil }

// memoryFS implements ModuleFS for memory resolver. Names are fs.FS paths,
// i.e. stored paths without the leading slash.
type memoryFS struct {
	resolver *MemoryResolver
}

func (mfs *memoryFS) get(name string) (*MemoryModule, error) {
	mfs.resolver.mutex.RLock()
	defer mfs.resolver.mutex.RUnlock()

	module, exists := mfs.resolver.modules["/"+name]
	if !exists {
		module, exists = mfs.resolver.modules[name]
	}
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return module, nil
}

func (mfs *memoryFS) Open(name string) (fs.File, error) {
	module, err := mfs.get(name)
	if err != nil {
		return nil, err
	}
	return &memoryFile{
		name:   name,
		reader: strings.NewReader(module.Content),
		module: module,
	}, nil
}

func (mfs *memoryFS) ReadFile(name string) ([]byte, error) {
	module, err := mfs.get(name)
	if err != nil {
		return nil, err
	}
	return []byte(module.Content), nil
}
