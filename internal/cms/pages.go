package cms

import (
	"context"
	"fmt"
)

// Built-in page ids, matching the conventional layout of the platform
// this package stands in for.
const (
	RootID  int64 = 1
	TrashID int64 = 7
)

// SavedHook observes a page save together with the field changes the save
// persisted. Changes are in edit order and omit touched-but-unchanged
// fields.
type SavedHook func(ctx context.Context, p *Page, changes []FieldChange) error

// DeletedHook observes a page deletion. Fired for every deleted page,
// descendants included, after the page is gone from the store.
type DeletedHook func(ctx context.Context, p *Page) error

// MovedHook observes a reparenting persisted by Save.
type MovedHook func(ctx context.Context, p *Page, oldParent int64) error

// Pages is the content store and hook bus.
type Pages struct {
	platform *Platform
	byID     map[int64]*Page
	nextID   int64

	root  *Page
	trash *Page

	savedHooks   []SavedHook
	deletedHooks []DeletedHook
	movedHooks   []MovedHook
}

func newPages(platform *Platform) *Pages {
	pg := &Pages{
		platform: platform,
		byID:     make(map[int64]*Page),
		nextID:   1001,
	}
	pg.root = &Page{ID: RootID, Name: "home", parentID: 0, pages: pg, changedOld: make(map[string]Value)}
	pg.trash = &Page{ID: TrashID, Name: "trash", parentID: RootID, pages: pg, changedOld: make(map[string]Value)}
	pg.byID[RootID] = pg.root
	pg.byID[TrashID] = pg.trash
	return pg
}

// Root returns the root page.
func (pg *Pages) Root() *Page { return pg.root }

// Trash returns the trash parent page.
func (pg *Pages) Trash() *Page { return pg.trash }

// OnSaved registers a save hook.
func (pg *Pages) OnSaved(h SavedHook) { pg.savedHooks = append(pg.savedHooks, h) }

// OnDeleted registers a delete hook.
func (pg *Pages) OnDeleted(h DeletedHook) { pg.deletedHooks = append(pg.deletedHooks, h) }

// OnMoved registers a move hook.
func (pg *Pages) OnMoved(h MovedHook) { pg.movedHooks = append(pg.movedHooks, h) }

// Create adds a new page under the given parent. The page is registered
// immediately; field values set on it are announced by the first Save.
func (pg *Pages) Create(name, templateName string, parent *Page) (*Page, error) {
	if name == "" {
		return nil, fmt.Errorf("page name must not be empty")
	}
	if parent == nil {
		parent = pg.root
	}
	tpl, err := pg.platform.Templates().Get(templateName)
	if err != nil {
		return nil, fmt.Errorf("create page %q: %w", name, err)
	}

	p := &Page{
		ID:         pg.nextID,
		Name:       name,
		Template:   tpl,
		parentID:   parent.ID,
		values:     make(map[string]Value),
		pages:      pg,
		changedOld: make(map[string]Value),
	}
	pg.nextID++
	pg.byID[p.ID] = p
	return p, nil
}

// Get returns a page by id.
func (pg *Pages) Get(id int64) (*Page, error) {
	p, ok := pg.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown page %d", id)
	}
	return p, nil
}

// Children returns the direct children of a page, in id order.
func (pg *Pages) Children(parent *Page) []*Page {
	var out []*Page
	for id := int64(0); id < pg.nextID; id++ {
		p, ok := pg.byID[id]
		if ok && p.parentID == parent.ID {
			out = append(out, p)
		}
	}
	return out
}

// Save persists the page's pending mutations and fires hooks:
// moved hooks for a pending reparent, then saved hooks with the pending
// field changes. Pending state is cleared only after every hook accepted
// the save.
func (pg *Pages) Save(ctx context.Context, p *Page) error {
	if _, ok := pg.byID[p.ID]; !ok {
		return fmt.Errorf("save page %d: not in store", p.ID)
	}

	if p.movedFrom != nil {
		for _, h := range pg.movedHooks {
			if err := h(ctx, p, *p.movedFrom); err != nil {
				return fmt.Errorf("save page %d: moved hook: %w", p.ID, err)
			}
		}
	}

	changes := p.pendingChanges()
	for _, h := range pg.savedHooks {
		if err := h(ctx, p, changes); err != nil {
			return fmt.Errorf("save page %d: saved hook: %w", p.ID, err)
		}
	}

	pg.platform.Logger().Info("page saved",
		"page", p.ID,
		"changes", len(changes),
	)

	p.clearPending()
	return nil
}

// Delete removes a page and its descendants from the store, firing the
// delete hooks for each removed page, deepest first.
func (pg *Pages) Delete(ctx context.Context, p *Page) error {
	if p.ID == RootID || p.ID == TrashID {
		return fmt.Errorf("cannot delete built-in page %d", p.ID)
	}
	if _, ok := pg.byID[p.ID]; !ok {
		return fmt.Errorf("delete page %d: not in store", p.ID)
	}

	doomed := pg.subtree(p)
	// Deepest first so hooks never see a deleted parent with live children.
	for i := len(doomed) - 1; i >= 0; i-- {
		victim := doomed[i]
		delete(pg.byID, victim.ID)
		for _, h := range pg.deletedHooks {
			if err := h(ctx, victim); err != nil {
				return fmt.Errorf("delete page %d: deleted hook: %w", victim.ID, err)
			}
		}
	}

	pg.platform.Logger().Info("page deleted", "page", p.ID, "subtree", len(doomed))
	return nil
}

// TrashPage flags the page trashed, remembers its parent, and moves it
// under the trash. Persisted via Save like any other mutation.
func (pg *Pages) TrashPage(ctx context.Context, p *Page) error {
	if p.HasStatus(StatusTrashed) {
		return fmt.Errorf("page %d is already trashed", p.ID)
	}
	p.restoreParent = p.parentID
	p.AddStatus(StatusTrashed)
	if err := p.MoveTo(pg.trash); err != nil {
		return err
	}
	return pg.Save(ctx, p)
}

// RestorePage moves a trashed page back to its pre-trash parent and
// clears the trashed flag.
func (pg *Pages) RestorePage(ctx context.Context, p *Page) error {
	if !p.HasStatus(StatusTrashed) {
		return fmt.Errorf("page %d is not trashed", p.ID)
	}
	parent, err := pg.Get(p.restoreParent)
	if err != nil {
		return fmt.Errorf("restore page %d: %w", p.ID, err)
	}
	p.RemoveStatus(StatusTrashed)
	if err := p.MoveTo(parent); err != nil {
		return err
	}
	p.restoreParent = 0
	return pg.Save(ctx, p)
}

// subtree returns p and all its descendants, parents before children.
func (pg *Pages) subtree(p *Page) []*Page {
	out := []*Page{p}
	for i := 0; i < len(out); i++ {
		out = append(out, pg.Children(out[i])...)
	}
	return out
}
