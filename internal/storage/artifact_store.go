package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ArtifactStore is the narrow blob capability the merge pipeline depends on,
// keeping the merge algorithm independently testable from disk layout.
type ArtifactStore interface {
	// Save persists the artifact bytes and returns an opaque reference
	Save(ref string, content []byte) error

	// Load reads the artifact bytes for a reference
	Load(ref string) ([]byte, error)

	// Delete removes a stored artifact
	Delete(ref string) error

	// Path resolves a reference to a local filesystem path
	Path(ref string) (string, error)
}

// LocalArtifactStore stores merged artifacts on the local filesystem under a
// single base directory, keyed by reference.
type LocalArtifactStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalArtifactStore creates a new LocalArtifactStore
func NewLocalArtifactStore(baseDir string, logger *zap.Logger) (*LocalArtifactStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &LocalArtifactStore{
		baseDir: baseDir,
		logger:  logger,
	}, nil
}

// Save writes the artifact under the base directory
func (s *LocalArtifactStore) Save(ref string, content []byte) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create artifact directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write artifact",
			zap.String("ref", ref),
			zap.Error(err))
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("Artifact saved",
		zap.String("ref", ref),
		zap.Int("size", len(content)))

	return nil
}

// Load reads the artifact bytes for a reference
func (s *LocalArtifactStore) Load(ref string) ([]byte, error) {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", ref, err)
	}

	return content, nil
}

// Delete removes a stored artifact
func (s *LocalArtifactStore) Delete(ref string) error {
	fullPath, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact %s: %w", ref, err)
	}

	return nil
}

// Path resolves a reference to its on-disk location
func (s *LocalArtifactStore) Path(ref string) (string, error) {
	return s.resolve(ref)
}

// resolve validates the reference and maps it under baseDir. References must
// not escape the base directory.
func (s *LocalArtifactStore) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty artifact reference")
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(ref))

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("reference escapes artifact directory: %s", ref)
	}

	return absPath, nil
}
