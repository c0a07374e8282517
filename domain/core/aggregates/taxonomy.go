package aggregates

import (
	"errors"
	"sort"
	"time"

	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	"catgraph/domain/events"
	pkgerrors "catgraph/pkg/errors"
)

// Taxonomy is the aggregate root for the category hierarchy.
// It is the consistency boundary for every structural rule of the tree:
// no self-parents, no cycles, every parent chain reaches a root.
type Taxonomy struct {
	categories map[valueobjects.CategoryID]*entities.Category
	children   map[valueobjects.CategoryID][]valueobjects.CategoryID
	cfg        *config.DomainConfig
	updatedAt  time.Time
	version    int
	events     []events.DomainEvent
}

// NewTaxonomy creates an empty taxonomy aggregate
func NewTaxonomy(cfg *config.DomainConfig) *Taxonomy {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Taxonomy{
		categories: make(map[valueobjects.CategoryID]*entities.Category),
		children:   make(map[valueobjects.CategoryID][]valueobjects.CategoryID),
		cfg:        cfg,
		updatedAt:  time.Now(),
		version:    1,
		events:     []events.DomainEvent{},
	}
}

// BuildTaxonomy reconstructs a taxonomy from stored categories.
// A parent reference to a category missing from the snapshot means the
// snapshot is corrupted and reconstruction fails.
func BuildTaxonomy(categories []*entities.Category, cfg *config.DomainConfig) (*Taxonomy, error) {
	t := NewTaxonomy(cfg)

	for _, category := range categories {
		if category == nil {
			return nil, errors.New("category cannot be nil")
		}
		id := category.ID()
		if _, exists := t.categories[id]; exists {
			return nil, pkgerrors.ErrSnapshotInconsistent.WithDetail("duplicate_id", id.String())
		}
		t.categories[id] = category
	}

	for id, category := range t.categories {
		parent := category.ParentID()
		if parent.IsZero() {
			continue
		}
		if _, exists := t.categories[parent]; !exists {
			return nil, pkgerrors.ErrSnapshotInconsistent.WithDetail("missing_parent", parent.String())
		}
		t.children[parent] = append(t.children[parent], id)
	}

	for parent := range t.children {
		sortCategoryIDs(t.children[parent])
	}

	return t, nil
}

// Size returns the number of categories in the taxonomy
func (t *Taxonomy) Size() int {
	return len(t.categories)
}

// Version returns the aggregate version for optimistic locking
func (t *Taxonomy) Version() int {
	return t.version
}

// UpdatedAt returns when the taxonomy last changed
func (t *Taxonomy) UpdatedAt() time.Time {
	return t.updatedAt
}

// HasCategory checks if a category exists without error
func (t *Taxonomy) HasCategory(id valueobjects.CategoryID) bool {
	_, exists := t.categories[id]
	return exists
}

// GetCategory retrieves a category by ID
func (t *Taxonomy) GetCategory(id valueobjects.CategoryID) (*entities.Category, error) {
	category, exists := t.categories[id]
	if !exists {
		return nil, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}
	return category, nil
}

// Categories returns all categories in the taxonomy
func (t *Taxonomy) Categories() []*entities.Category {
	categories := make([]*entities.Category, 0, len(t.categories))
	for _, category := range t.categories {
		categories = append(categories, category)
	}
	return categories
}

// Roots returns the IDs of all root categories in ascending order
func (t *Taxonomy) Roots() []valueobjects.CategoryID {
	roots := []valueobjects.CategoryID{}
	for id, category := range t.categories {
		if category.IsRoot() {
			roots = append(roots, id)
		}
	}
	sortCategoryIDs(roots)
	return roots
}

// Children returns the direct children of a category in ascending order
func (t *Taxonomy) Children(id valueobjects.CategoryID) ([]valueobjects.CategoryID, error) {
	if !t.HasCategory(id) {
		return nil, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}
	children := make([]valueobjects.CategoryID, len(t.children[id]))
	copy(children, t.children[id])
	return children, nil
}

// ValidateParent checks whether proposedParent is structurally legal for
// node. Self-parenting fails immediately; a cycle is detected by walking
// proposedParent's ancestor chain and meeting node. Success has no side
// effects. A zero proposedParent (make root) always passes.
func (t *Taxonomy) ValidateParent(node, proposedParent valueobjects.CategoryID) error {
	if proposedParent.IsZero() {
		return nil
	}
	if proposedParent.Equals(node) {
		return pkgerrors.ErrSelfParent
	}

	current := proposedParent
	for steps := 0; !current.IsZero(); steps++ {
		if steps > t.cfg.MaxHierarchyDepth {
			return pkgerrors.ErrHierarchyDepthExceeded.WithDetail("max_depth", t.cfg.MaxHierarchyDepth)
		}
		if current.Equals(node) {
			return pkgerrors.ErrHierarchyCycle.
				WithDetail("category_id", node.String()).
				WithDetail("proposed_parent_id", proposedParent.String())
		}
		ancestor, exists := t.categories[current]
		if !exists {
			// The chain left the snapshot; nothing above can close a cycle.
			return nil
		}
		current = ancestor.ParentID()
	}

	return nil
}

// Ancestors returns the parent chain of a category ordered root-first.
// Roots get an empty chain. The walk is iterative and bounded: exceeding
// the configured depth means the snapshot's parent pointers are corrupted.
func (t *Taxonomy) Ancestors(id valueobjects.CategoryID) ([]valueobjects.CategoryID, error) {
	category, exists := t.categories[id]
	if !exists {
		return nil, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}

	chain := []valueobjects.CategoryID{}
	current := category.ParentID()
	for steps := 0; !current.IsZero(); steps++ {
		if steps > t.cfg.MaxHierarchyDepth {
			return nil, pkgerrors.ErrHierarchyDepthExceeded.
				WithDetail("category_id", id.String()).
				WithDetail("max_depth", t.cfg.MaxHierarchyDepth)
		}
		ancestor, ok := t.categories[current]
		if !ok {
			return nil, pkgerrors.ErrSnapshotInconsistent.WithDetail("missing_parent", current.String())
		}
		chain = append(chain, current)
		current = ancestor.ParentID()
	}

	// Walked child-to-root; callers get root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Descendants returns every category below id, each exactly once.
// Breadth-first over the child index; order follows the ascending-id
// order of each child list.
func (t *Taxonomy) Descendants(id valueobjects.CategoryID) ([]valueobjects.CategoryID, error) {
	if !t.HasCategory(id) {
		return nil, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}

	descendants := []valueobjects.CategoryID{}
	visited := map[valueobjects.CategoryID]bool{id: true}
	queue := append([]valueobjects.CategoryID{}, t.children[id]...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		descendants = append(descendants, current)
		queue = append(queue, t.children[current]...)
	}

	return descendants, nil
}

// Depth returns the number of parent hops from a category to its root.
// Roots have depth 0.
func (t *Taxonomy) Depth(id valueobjects.CategoryID) (int, error) {
	chain, err := t.Ancestors(id)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// ValidateMove checks whether a category can be re-parented under
// newParent. Moving under itself or under any of its own descendants is
// rejected. A zero newParent (make root) always passes.
func (t *Taxonomy) ValidateMove(id, newParent valueobjects.CategoryID) error {
	if !t.HasCategory(id) {
		return pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}
	if newParent.IsZero() {
		return nil
	}
	if newParent.Equals(id) {
		return pkgerrors.ErrSelfParent
	}
	if !t.HasCategory(newParent) {
		return pkgerrors.ErrUnknownCategory.WithDetail("category_id", newParent.String())
	}

	descendants, err := t.Descendants(id)
	if err != nil {
		return err
	}
	for _, descendant := range descendants {
		if descendant.Equals(newParent) {
			return pkgerrors.ErrMoveUnderDescendant.
				WithDetail("category_id", id.String()).
				WithDetail("new_parent_id", newParent.String())
		}
	}

	return nil
}

// AddCategory adds a category to the taxonomy
func (t *Taxonomy) AddCategory(category *entities.Category) error {
	if category == nil {
		return errors.New("category cannot be nil")
	}

	id := category.ID()
	if t.HasCategory(id) {
		return pkgerrors.NewConflictError("category already exists in taxonomy")
	}

	parent := category.ParentID()
	if !parent.IsZero() {
		if !t.HasCategory(parent) {
			return pkgerrors.ErrUnknownCategory.WithDetail("category_id", parent.String())
		}
		if err := t.ValidateParent(id, parent); err != nil {
			return err
		}
	}

	t.categories[id] = category
	if !parent.IsZero() {
		t.children[parent] = insertSorted(t.children[parent], id)
	}
	t.touch()

	return nil
}

// MoveCategory re-parents a category after full structural validation.
// A zero newParent turns the category into a root.
func (t *Taxonomy) MoveCategory(id, newParent valueobjects.CategoryID) error {
	if err := t.ValidateMove(id, newParent); err != nil {
		return err
	}

	category := t.categories[id]
	oldParent := category.ParentID()
	if oldParent.Equals(newParent) {
		return nil
	}

	if err := category.MoveTo(newParent); err != nil {
		return err
	}

	if !oldParent.IsZero() {
		t.children[oldParent] = removeCategoryID(t.children[oldParent], id)
	}
	if !newParent.IsZero() {
		t.children[newParent] = insertSorted(t.children[newParent], id)
	}
	t.touch()

	return nil
}

// RemoveCategory deletes a category. Its children are adopted by the
// deleted category's own parent; children of a deleted root become roots.
// removedEdges records how many similarity edges the caller stripped
// alongside the deletion, for the emitted event.
func (t *Taxonomy) RemoveCategory(id valueobjects.CategoryID, removedEdges int) ([]valueobjects.CategoryID, error) {
	category, exists := t.categories[id]
	if !exists {
		return nil, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}

	grandparent := category.ParentID()
	adopted := make([]valueobjects.CategoryID, len(t.children[id]))
	copy(adopted, t.children[id])

	for _, childID := range adopted {
		child := t.categories[childID]
		if err := child.MoveTo(grandparent); err != nil {
			return nil, err
		}
		if !grandparent.IsZero() {
			t.children[grandparent] = insertSorted(t.children[grandparent], childID)
		}
	}

	if !grandparent.IsZero() {
		t.children[grandparent] = removeCategoryID(t.children[grandparent], id)
	}
	delete(t.children, id)
	delete(t.categories, id)
	t.touch()

	t.addEvent(events.NewCategoryDeleted(id, category.Name(), adopted, removedEdges, t.updatedAt))

	return adopted, nil
}

// Validate ensures taxonomy invariants hold for the whole snapshot
func (t *Taxonomy) Validate() error {
	for id, category := range t.categories {
		parent := category.ParentID()
		if parent.IsZero() {
			continue
		}
		if _, exists := t.categories[parent]; !exists {
			return pkgerrors.ErrSnapshotInconsistent.WithDetail("missing_parent", parent.String())
		}
		if _, err := t.Ancestors(id); err != nil {
			return err
		}
	}

	for parent, children := range t.children {
		for _, childID := range children {
			child, exists := t.categories[childID]
			if !exists || !child.ParentID().Equals(parent) {
				return pkgerrors.ErrSnapshotInconsistent.WithDetail("stale_child_index", childID.String())
			}
		}
	}

	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (t *Taxonomy) GetUncommittedEvents() []events.DomainEvent {
	allEvents := make([]events.DomainEvent, len(t.events))
	copy(allEvents, t.events)

	for _, category := range t.categories {
		allEvents = append(allEvents, category.GetUncommittedEvents()...)
	}

	return allEvents
}

// MarkEventsAsCommitted clears all uncommitted events
func (t *Taxonomy) MarkEventsAsCommitted() {
	t.events = []events.DomainEvent{}

	for _, category := range t.categories {
		category.MarkEventsAsCommitted()
	}
}

// Private helper methods

func (t *Taxonomy) addEvent(event events.DomainEvent) {
	t.events = append(t.events, event)
}

func (t *Taxonomy) touch() {
	t.updatedAt = time.Now()
	t.version++
}

func sortCategoryIDs(ids []valueobjects.CategoryID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

func insertSorted(ids []valueobjects.CategoryID, id valueobjects.CategoryID) []valueobjects.CategoryID {
	pos := sort.Search(len(ids), func(i int) bool { return id.Less(ids[i]) })
	ids = append(ids, valueobjects.CategoryID{})
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}

func removeCategoryID(ids []valueobjects.CategoryID, id valueobjects.CategoryID) []valueobjects.CategoryID {
	for i, candidate := range ids {
		if candidate.Equals(id) {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
