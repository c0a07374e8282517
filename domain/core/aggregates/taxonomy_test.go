package aggregates

import (
	"errors"
	"testing"
	"time"

	"catgraph/domain/config"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"
)

func mustCategory(t *testing.T, name string, parent valueobjects.CategoryID) *entities.Category {
	t.Helper()
	label, err := valueobjects.NewCategoryLabel(name, "")
	if err != nil {
		t.Fatalf("NewCategoryLabel(%q) error = %v", name, err)
	}
	category, err := entities.NewCategory(label, parent)
	if err != nil {
		t.Fatalf("NewCategory(%q) error = %v", name, err)
	}
	return category
}

// chainFixture builds root -> mid -> leaf plus a detached second root.
type chainFixture struct {
	taxonomy *Taxonomy
	root     *entities.Category
	mid      *entities.Category
	leaf     *entities.Category
	lone     *entities.Category
}

func newChainFixture(t *testing.T) chainFixture {
	t.Helper()
	taxonomy := NewTaxonomy(nil)

	root := mustCategory(t, "Programming", valueobjects.CategoryID{})
	if err := taxonomy.AddCategory(root); err != nil {
		t.Fatalf("AddCategory(root) error = %v", err)
	}
	mid := mustCategory(t, "Languages", root.ID())
	if err := taxonomy.AddCategory(mid); err != nil {
		t.Fatalf("AddCategory(mid) error = %v", err)
	}
	leaf := mustCategory(t, "Go", mid.ID())
	if err := taxonomy.AddCategory(leaf); err != nil {
		t.Fatalf("AddCategory(leaf) error = %v", err)
	}
	lone := mustCategory(t, "Cooking", valueobjects.CategoryID{})
	if err := taxonomy.AddCategory(lone); err != nil {
		t.Fatalf("AddCategory(lone) error = %v", err)
	}

	return chainFixture{taxonomy: taxonomy, root: root, mid: mid, leaf: leaf, lone: lone}
}

func TestTaxonomy_ValidateParent(t *testing.T) {
	fx := newChainFixture(t)

	tests := []struct {
		name    string
		node    valueobjects.CategoryID
		parent  valueobjects.CategoryID
		wantErr error
	}{
		{
			name:    "valid parent",
			node:    fx.lone.ID(),
			parent:  fx.leaf.ID(),
			wantErr: nil,
		},
		{
			name:    "zero parent always passes",
			node:    fx.leaf.ID(),
			parent:  valueobjects.CategoryID{},
			wantErr: nil,
		},
		{
			name:    "self parent",
			node:    fx.root.ID(),
			parent:  fx.root.ID(),
			wantErr: pkgerrors.ErrSelfParent,
		},
		{
			name:    "direct cycle",
			node:    fx.mid.ID(),
			parent:  fx.leaf.ID(),
			wantErr: pkgerrors.ErrHierarchyCycle,
		},
		{
			name:    "transitive cycle",
			node:    fx.root.ID(),
			parent:  fx.leaf.ID(),
			wantErr: pkgerrors.ErrHierarchyCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.taxonomy.ValidateParent(tt.node, tt.parent)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateParent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaxonomy_Ancestors(t *testing.T) {
	fx := newChainFixture(t)

	t.Run("leaf chain is root first", func(t *testing.T) {
		chain, err := fx.taxonomy.Ancestors(fx.leaf.ID())
		if err != nil {
			t.Fatalf("Ancestors() error = %v", err)
		}
		if len(chain) != 2 {
			t.Fatalf("Ancestors() length = %d, want 2", len(chain))
		}
		if !chain[0].Equals(fx.root.ID()) || !chain[1].Equals(fx.mid.ID()) {
			t.Errorf("Ancestors() = [%s %s], want [%s %s]", chain[0], chain[1], fx.root.ID(), fx.mid.ID())
		}
	})

	t.Run("root has empty chain", func(t *testing.T) {
		chain, err := fx.taxonomy.Ancestors(fx.root.ID())
		if err != nil {
			t.Fatalf("Ancestors() error = %v", err)
		}
		if len(chain) != 0 {
			t.Errorf("Ancestors() length = %d, want 0", len(chain))
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := fx.taxonomy.Ancestors(valueobjects.NewCategoryID())
		if !errors.Is(err, pkgerrors.ErrCategoryNotFound) {
			t.Errorf("Ancestors() error = %v, want %v", err, pkgerrors.ErrCategoryNotFound)
		}
	})
}

func TestTaxonomy_AncestorsDepthGuard(t *testing.T) {
	// A parent loop that never touches the starting node can only come
	// from a corrupted snapshot; the bounded walk must fail, not hang.
	idA := valueobjects.NewCategoryID()
	idB := valueobjects.NewCategoryID()
	labelA, _ := valueobjects.NewCategoryLabel("A", "")
	labelB, _ := valueobjects.NewCategoryLabel("B", "")

	now := time.Now()
	catA, err := entities.ReconstructCategory(idA, labelA, idB, "", now, now, 1)
	if err != nil {
		t.Fatalf("ReconstructCategory(A) error = %v", err)
	}
	catB, err := entities.ReconstructCategory(idB, labelB, idA, "", now, now, 1)
	if err != nil {
		t.Fatalf("ReconstructCategory(B) error = %v", err)
	}

	taxonomy, err := BuildTaxonomy([]*entities.Category{catA, catB}, config.DefaultDomainConfig())
	if err != nil {
		t.Fatalf("BuildTaxonomy() error = %v", err)
	}

	if _, err := taxonomy.Ancestors(idA); !errors.Is(err, pkgerrors.ErrHierarchyDepthExceeded) {
		t.Errorf("Ancestors() error = %v, want %v", err, pkgerrors.ErrHierarchyDepthExceeded)
	}
	if err := taxonomy.Validate(); err == nil {
		t.Error("Validate() should fail on a cyclic snapshot")
	}
}

func TestTaxonomy_Descendants(t *testing.T) {
	fx := newChainFixture(t)

	descendants, err := fx.taxonomy.Descendants(fx.root.ID())
	if err != nil {
		t.Fatalf("Descendants() error = %v", err)
	}
	if len(descendants) != 2 {
		t.Fatalf("Descendants() length = %d, want 2", len(descendants))
	}
	seen := map[string]bool{}
	for _, id := range descendants {
		seen[id.String()] = true
	}
	if !seen[fx.mid.ID().String()] || !seen[fx.leaf.ID().String()] {
		t.Errorf("Descendants() = %v, want mid and leaf", descendants)
	}

	leafDescendants, err := fx.taxonomy.Descendants(fx.leaf.ID())
	if err != nil {
		t.Fatalf("Descendants(leaf) error = %v", err)
	}
	if len(leafDescendants) != 0 {
		t.Errorf("Descendants(leaf) length = %d, want 0", len(leafDescendants))
	}
}

func TestTaxonomy_Depth(t *testing.T) {
	fx := newChainFixture(t)

	tests := []struct {
		name string
		id   valueobjects.CategoryID
		want int
	}{
		{"root", fx.root.ID(), 0},
		{"mid", fx.mid.ID(), 1},
		{"leaf", fx.leaf.ID(), 2},
		{"lone root", fx.lone.ID(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			depth, err := fx.taxonomy.Depth(tt.id)
			if err != nil {
				t.Fatalf("Depth() error = %v", err)
			}
			if depth != tt.want {
				t.Errorf("Depth() = %d, want %d", depth, tt.want)
			}
		})
	}
}

func TestTaxonomy_ValidateMove(t *testing.T) {
	fx := newChainFixture(t)

	tests := []struct {
		name      string
		id        valueobjects.CategoryID
		newParent valueobjects.CategoryID
		wantErr   error
	}{
		{
			name:      "move to sibling tree",
			id:        fx.lone.ID(),
			newParent: fx.mid.ID(),
			wantErr:   nil,
		},
		{
			name:      "make root always passes",
			id:        fx.leaf.ID(),
			newParent: valueobjects.CategoryID{},
			wantErr:   nil,
		},
		{
			name:      "move under itself",
			id:        fx.mid.ID(),
			newParent: fx.mid.ID(),
			wantErr:   pkgerrors.ErrSelfParent,
		},
		{
			name:      "move under own descendant",
			id:        fx.root.ID(),
			newParent: fx.leaf.ID(),
			wantErr:   pkgerrors.ErrMoveUnderDescendant,
		},
		{
			name:      "unknown category",
			id:        valueobjects.NewCategoryID(),
			newParent: fx.root.ID(),
			wantErr:   pkgerrors.ErrCategoryNotFound,
		},
		{
			name:      "unknown parent",
			id:        fx.lone.ID(),
			newParent: valueobjects.NewCategoryID(),
			wantErr:   pkgerrors.ErrUnknownCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fx.taxonomy.ValidateMove(tt.id, tt.newParent)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMove() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaxonomy_MoveCategory(t *testing.T) {
	fx := newChainFixture(t)

	if err := fx.taxonomy.MoveCategory(fx.leaf.ID(), fx.root.ID()); err != nil {
		t.Fatalf("MoveCategory() error = %v", err)
	}

	if !fx.leaf.ParentID().Equals(fx.root.ID()) {
		t.Errorf("leaf parent = %s, want %s", fx.leaf.ParentID(), fx.root.ID())
	}

	rootChildren, err := fx.taxonomy.Children(fx.root.ID())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(rootChildren) != 2 {
		t.Errorf("root children = %d, want 2", len(rootChildren))
	}

	midChildren, err := fx.taxonomy.Children(fx.mid.ID())
	if err != nil {
		t.Fatalf("Children(mid) error = %v", err)
	}
	if len(midChildren) != 0 {
		t.Errorf("mid children = %d, want 0", len(midChildren))
	}

	depth, err := fx.taxonomy.Depth(fx.leaf.ID())
	if err != nil {
		t.Fatalf("Depth() error = %v", err)
	}
	if depth != 1 {
		t.Errorf("leaf depth after move = %d, want 1", depth)
	}
}

func TestTaxonomy_RemoveCategory_GrandparentAdoption(t *testing.T) {
	fx := newChainFixture(t)

	adopted, err := fx.taxonomy.RemoveCategory(fx.mid.ID(), 0)
	if err != nil {
		t.Fatalf("RemoveCategory() error = %v", err)
	}
	if len(adopted) != 1 || !adopted[0].Equals(fx.leaf.ID()) {
		t.Fatalf("adopted = %v, want [%s]", adopted, fx.leaf.ID())
	}

	if !fx.leaf.ParentID().Equals(fx.root.ID()) {
		t.Errorf("leaf parent = %s, want grandparent %s", fx.leaf.ParentID(), fx.root.ID())
	}
	if fx.taxonomy.HasCategory(fx.mid.ID()) {
		t.Error("removed category should be gone")
	}

	rootChildren, err := fx.taxonomy.Children(fx.root.ID())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(rootChildren) != 1 || !rootChildren[0].Equals(fx.leaf.ID()) {
		t.Errorf("root children = %v, want [%s]", rootChildren, fx.leaf.ID())
	}
}

func TestTaxonomy_RemoveCategory_RootChildrenBecomeRoots(t *testing.T) {
	fx := newChainFixture(t)

	if _, err := fx.taxonomy.RemoveCategory(fx.root.ID(), 0); err != nil {
		t.Fatalf("RemoveCategory(root) error = %v", err)
	}

	if !fx.mid.IsRoot() {
		t.Error("child of deleted root should become a root")
	}

	roots := fx.taxonomy.Roots()
	if len(roots) != 2 {
		t.Errorf("roots = %d, want 2", len(roots))
	}
}

func TestBuildTaxonomy_MissingParent(t *testing.T) {
	orphanParent := valueobjects.NewCategoryID()
	label, _ := valueobjects.NewCategoryLabel("Orphan", "")
	now := time.Now()
	orphan, err := entities.ReconstructCategory(valueobjects.NewCategoryID(), label, orphanParent, "", now, now, 1)
	if err != nil {
		t.Fatalf("ReconstructCategory() error = %v", err)
	}

	_, err = BuildTaxonomy([]*entities.Category{orphan}, nil)
	if !errors.Is(err, pkgerrors.ErrSnapshotInconsistent) {
		t.Errorf("BuildTaxonomy() error = %v, want %v", err, pkgerrors.ErrSnapshotInconsistent)
	}
}

func TestTaxonomy_AddCategory_UnknownParent(t *testing.T) {
	taxonomy := NewTaxonomy(nil)
	stray := mustCategory(t, "Stray", valueobjects.NewCategoryID())

	if err := taxonomy.AddCategory(stray); !errors.Is(err, pkgerrors.ErrUnknownCategory) {
		t.Errorf("AddCategory() error = %v, want %v", err, pkgerrors.ErrUnknownCategory)
	}
}
