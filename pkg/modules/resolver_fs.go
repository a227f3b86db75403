package modules

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystemResolver resolves modules from a file system. Rooted
// identifiers map onto the file system root; bare identifiers are only
// handled when bare resolution is enabled, in which case they are looked
// up from the root as well.
type FileSystemResolver struct {
	name     string   // Human-readable name
	fs       ModuleFS // File system to resolve from
	priority int      // Resolution priority
	bare     bool

	// Configuration
	extensions []string // File extensions to try (e.g., ".js", ".mjs")
	indexFiles []string // Index file names to try (e.g., "index.js")
}

// NewFileSystemResolver creates a new file system resolver
func NewFileSystemResolver(filesystem fs.FS) *FileSystemResolver {
	var moduleFS ModuleFS

	// Wrap the fs.FS to implement ModuleFS if needed
	if mfs, ok := filesystem.(ModuleFS); ok {
		moduleFS = mfs
	} else {
		moduleFS = &fsWrapper{filesystem}
	}

	defaults := DefaultLoaderConfig()
	return &FileSystemResolver{
		name:       "FileSystem",
		fs:         moduleFS,
		priority:   100, // Lower priority than specialized resolvers
		extensions: defaults.Extensions,
		indexFiles: defaults.IndexFiles,
	}
}

// NewOSFileSystemResolver creates a resolver that uses the OS file system
// below baseDir.
func NewOSFileSystemResolver(baseDir string) *FileSystemResolver {
	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		absBaseDir = baseDir
	}

	r := NewFileSystemResolver(&osFS{baseDir: absBaseDir})
	r.name = "OSFileSystem:" + absBaseDir
	return r
}

// Name returns the resolver name
func (r *FileSystemResolver) Name() string {
	return r.name
}

// CanResolve returns true if this resolver can handle the identifier
func (r *FileSystemResolver) CanResolve(id SourceIdentifier) bool {
	return !id.IsBare() || r.bare
}

// Priority returns the resolver priority
func (r *FileSystemResolver) Priority() int {
	return r.priority
}

// Resolve resolves an identifier to a file
func (r *FileSystemResolver) Resolve(id SourceIdentifier) (*ResolvedModule, error) {
	if !r.CanResolve(id) {
		return nil, fmt.Errorf("%s cannot resolve %s", r.name, id)
	}
	resolvedPath, err := r.tryResolve(strings.TrimPrefix(string(id), "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", id, err)
	}

	source, err := r.fs.Open(resolvedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", resolvedPath, err)
	}

	return &ResolvedModule{
		ID:       SourceIdentifier("/" + resolvedPath),
		Source:   source,
		FS:       r.fs,
		Resolver: r.name,
	}, nil
}

// tryResolve attempts to resolve a path with various strategies
func (r *FileSystemResolver) tryResolve(targetPath string) (string, error) {
	targetPath = path.Clean(targetPath)
	if !fs.ValidPath(targetPath) {
		return "", fmt.Errorf("invalid path: %s", targetPath)
	}

	// Strategy 1: Try exact path (must be a file, not directory)
	if r.isFile(targetPath) {
		return targetPath, nil
	}

	// Strategy 2: Try with extensions
	for _, ext := range r.extensions {
		pathWithExt := targetPath + ext
		if r.isFile(pathWithExt) {
			return pathWithExt, nil
		}
	}

	// Strategy 3: Try as directory with index files
	for _, indexFile := range r.indexFiles {
		indexPath := path.Join(targetPath, indexFile)
		if r.isFile(indexPath) {
			return indexPath, nil
		}
	}

	return "", fmt.Errorf("module not found: %s", targetPath)
}

// isFile checks if a path exists and is a file (not a directory)
func (r *FileSystemResolver) isFile(name string) bool {
	info, err := fs.Stat(r.fs, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SetExtensions sets the file extensions to try during resolution
func (r *FileSystemResolver) SetExtensions(extensions []string) {
	r.extensions = extensions
}

// SetIndexFiles sets the index file names to try during resolution
func (r *FileSystemResolver) SetIndexFiles(indexFiles []string) {
	r.indexFiles = indexFiles
}

// SetPriority sets the resolver priority
func (r *FileSystemResolver) SetPriority(priority int) {
	r.priority = priority
}

// SetBare enables resolution of bare identifiers from the root.
func (r *FileSystemResolver) SetBare(bare bool) {
	r.bare = bare
}

// fsWrapper wraps a generic fs.FS to implement ModuleFS
type fsWrapper struct {
	fs.FS
}

func (w *fsWrapper) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(w.FS, name)
}

// osFS implements ModuleFS using the OS file system
type osFS struct {
	baseDir string
}

func (osfs *osFS) Open(name string) (fs.File, error) {
	return os.Open(filepath.Join(osfs.baseDir, filepath.FromSlash(name)))
}

func (osfs *osFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(osfs.baseDir, filepath.FromSlash(name)))
}

func (osfs *osFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(filepath.Join(osfs.baseDir, filepath.FromSlash(name)))
}

// readSource reads and closes a resolved module's source.
func readSource(rm *ResolvedModule) (string, error) {
	defer rm.Source.Close()
	b, err := io.ReadAll(rm.Source)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rm.ID, err)
	}
	return string(b), nil
}
