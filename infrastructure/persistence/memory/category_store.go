// Package memory provides in-memory implementations of the persistence
// ports. They back the offline analysis CLI's snapshot mode and the test
// suites; none of them survive a process restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

// CategoryStore is an in-memory ports.CategoryRepository. It enforces the
// same optimistic version guard as the DynamoDB repository, so tests
// exercise the conflict paths against it.
type CategoryStore struct {
	mu         sync.RWMutex
	categories map[string]*entities.Category
}

// NewCategoryStore creates an empty in-memory category store
func NewCategoryStore() *CategoryStore {
	return &CategoryStore{
		categories: make(map[string]*entities.Category),
	}
}

// Save persists a category, rejecting writes whose version is not newer
// than the stored one.
func (s *CategoryStore) Save(ctx context.Context, category *entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(category)
}

func (s *CategoryStore) saveLocked(category *entities.Category) error {
	key := category.ID().String()
	if existing, ok := s.categories[key]; ok && existing.Version() >= category.Version() {
		return pkgerrors.ErrConcurrentModification.
			WithDetail("category_id", key)
	}

	clone, err := cloneCategory(category)
	if err != nil {
		return err
	}
	s.categories[key] = clone
	return nil
}

// GetByID retrieves a category by its ID
func (s *CategoryStore) GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.categories[id.String()]
	if !ok {
		return nil, pkgerrors.ErrCategoryNotFound.
			WithDetail("category_id", id.String())
	}
	return cloneCategory(stored)
}

// GetAll retrieves the full category snapshot
func (s *CategoryStore) GetAll(ctx context.Context) ([]*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*entities.Category) bool { return true })
}

// GetByParentID retrieves the direct children of a category
func (s *CategoryStore) GetByParentID(ctx context.Context, parentID valueobjects.CategoryID) ([]*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *entities.Category) bool {
		return !c.IsRoot() && c.ParentID().Equals(parentID)
	})
}

// GetRoots retrieves all categories without a parent
func (s *CategoryStore) GetRoots(ctx context.Context) ([]*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(c *entities.Category) bool { return c.IsRoot() })
}

// Search finds categories matching the criteria. The returned count is the
// number of matches before Limit and Offset are applied.
func (s *CategoryStore) Search(ctx context.Context, criteria ports.ListCriteria) ([]*entities.Category, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(criteria.Search)
	matches, err := s.collect(func(c *entities.Category) bool {
		if criteria.RootsOnly && !c.IsRoot() {
			return false
		}
		if !criteria.ParentID.IsZero() && (c.IsRoot() || !c.ParentID().Equals(criteria.ParentID)) {
			return false
		}
		if needle != "" && !strings.Contains(strings.ToLower(c.Name()), needle) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}

	sortCategories(matches, criteria.OrderBy, criteria.OrderDesc)
	total := len(matches)

	if criteria.Offset > 0 {
		if criteria.Offset >= len(matches) {
			return []*entities.Category{}, total, nil
		}
		matches = matches[criteria.Offset:]
	}
	if criteria.Limit > 0 && criteria.Limit < len(matches) {
		matches = matches[:criteria.Limit]
	}

	return matches, total, nil
}

// Delete removes a category
func (s *CategoryStore) Delete(ctx context.Context, id valueobjects.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.String()
	if _, ok := s.categories[key]; !ok {
		return pkgerrors.ErrCategoryNotFound.
			WithDetail("category_id", key)
	}
	delete(s.categories, key)
	return nil
}

// BulkSave saves multiple categories. Unlike Save it carries no version
// guard; callers own the versions they hand in.
func (s *CategoryStore) BulkSave(ctx context.Context, categories []*entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, category := range categories {
		clone, err := cloneCategory(category)
		if err != nil {
			return err
		}
		s.categories[category.ID().String()] = clone
	}
	return nil
}

// DeleteBatch removes multiple categories, ignoring missing IDs
func (s *CategoryStore) DeleteBatch(ctx context.Context, ids []valueobjects.CategoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.categories, id.String())
	}
	return nil
}

// CountAll returns the number of stored categories
func (s *CategoryStore) CountAll(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories), nil
}

// collect returns clones of all stored categories passing the filter,
// sorted by ID for deterministic iteration. Callers hold the lock.
func (s *CategoryStore) collect(keep func(*entities.Category) bool) ([]*entities.Category, error) {
	result := make([]*entities.Category, 0, len(s.categories))
	for _, stored := range s.categories {
		if !keep(stored) {
			continue
		}
		clone, err := cloneCategory(stored)
		if err != nil {
			return nil, err
		}
		result = append(result, clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID().Less(result[j].ID())
	})
	return result, nil
}

// cloneCategory copies a category so callers and the store never alias the
// same instance. Reconstruction also drops uncommitted events, matching
// what a serialization round trip would do.
func cloneCategory(category *entities.Category) (*entities.Category, error) {
	return entities.ReconstructCategory(
		category.ID(),
		category.Label(),
		category.ParentID(),
		category.ImageURL(),
		category.CreatedAt(),
		category.UpdatedAt(),
		category.Version(),
	)
}

func sortCategories(categories []*entities.Category, orderBy string, desc bool) {
	sort.Slice(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		if desc {
			a, b = b, a
		}

		switch orderBy {
		case "created_at":
			if !a.CreatedAt().Equal(b.CreatedAt()) {
				return a.CreatedAt().Before(b.CreatedAt())
			}
		case "updated_at":
			if !a.UpdatedAt().Equal(b.UpdatedAt()) {
				return a.UpdatedAt().Before(b.UpdatedAt())
			}
		default:
			an, bn := strings.ToLower(a.Name()), strings.ToLower(b.Name())
			if an != bn {
				return an < bn
			}
		}
		// Ties break on ID so pagination never reshuffles.
		return a.ID().Less(b.ID())
	})
}
