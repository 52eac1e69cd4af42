package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"igpicker/pkg/config"
)

// timestampLayout is appended to file names that would otherwise collide
const timestampLayout = "20060102-150405"

// Manager writes export files into one output directory
type Manager struct {
	outputDir string
	overwrite bool
	now       func() time.Time

	mu      sync.Mutex
	written []string
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		now:       time.Now,
	}, nil
}

// NewManagerFromConfig creates a manager from the export section
func NewManagerFromConfig(cfg config.ExportConfig) (*Manager, error) {
	return NewManager(cfg.OutputDirectory, cfg.OverwriteExisting)
}

// Resolve returns the path name will be written to. Without overwrite, an
// existing file is left alone and a timestamped sibling is chosen instead.
func (m *Manager) Resolve(name string) string {
	path := filepath.Join(m.outputDir, filepath.Base(name))
	if m.overwrite || !exists(path) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := fmt.Sprintf("%s_%s%s", stem, m.now().Format(timestampLayout), ext)
	for i := 2; exists(candidate); i++ {
		candidate = fmt.Sprintf("%s_%s-%d%s", stem, m.now().Format(timestampLayout), i, ext)
	}
	return candidate
}

// Save streams write into a temporary file and renames it into place, so a
// failed export never leaves a partial file behind. It returns the final path.
func (m *Manager) Save(name string, write func(w io.Writer) error) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.Resolve(name)

	out, err := os.CreateTemp(m.outputDir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	err = write(out)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write export data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.written = append(m.written, target)
	return target, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// Written returns the paths saved by this manager, oldest first
func (m *Manager) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
