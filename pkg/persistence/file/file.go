// Package file provides file-based persistence: one JSON document per record under a root
// directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/stageflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root              string
	workflowRepo      *WorkflowRepository
	activityRepo      *ActivityRepository
	mappingRepo       *MappingRepository
	functionalityRepo *FunctionalityRepository
	approvalRepo      *ApprovalRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
// A file:// prefix is accepted.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:              cleanRoot,
		workflowRepo:      NewWorkflowRepository(cleanRoot),
		activityRepo:      NewActivityRepository(cleanRoot),
		mappingRepo:       NewMappingRepository(cleanRoot),
		functionalityRepo: NewFunctionalityRepository(cleanRoot),
		approvalRepo:      NewApprovalRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("file persistence root %s: %w", fp.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("file persistence root %s is not a directory", fp.root)
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ActivityRepository() persistence.ActivityRepository {
	return fp.activityRepo
}

func (fp *Persistence) MappingRepository() persistence.MappingRepository {
	return fp.mappingRepo
}

func (fp *Persistence) FunctionalityRepository() persistence.FunctionalityRepository {
	return fp.functionalityRepo
}

func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvalRepo
}

// store keeps records of type T as <root>/<dir>/<id>.json.
type store[T any] struct {
	mu       sync.RWMutex
	dir      string
	notFound error
}

func newStore[T any](root, dir string, notFound error) *store[T] {
	return &store[T]{
		dir:      filepath.Join(root, dir),
		notFound: notFound,
	}
}

func (s *store[T]) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", persistence.ErrInvalidID, id)
	}

	return filepath.Join(s.dir, id+".json"), nil
}

func (s *store[T]) all() ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	sort.Strings(files)

	records := make([]*T, 0, len(files))

	for _, name := range files {
		record, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

func (s *store[T]) get(id string) (*T, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.read(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, s.notFound
	}

	return record, err
}

func (s *store[T]) read(filePath string) (*T, error) {
	body, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var record T

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return &record, nil
}

// put writes the record through a temporary file so readers never see a partial document.
func (s *store[T]) put(id string, record *T) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.MkdirAll(s.dir, 0o750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	err = os.Rename(tmp.Name(), filePath)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to save %s: %w", id, err)
	}

	return nil
}

func (s *store[T]) remove(id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return s.notFound
	}

	return err
}
