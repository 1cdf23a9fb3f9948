package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/h5pipe/internal/message"
	"github.com/robert-malhotra/h5pipe/internal/object"
)

// CreateGroup creates an empty subgroup. It fails with ErrExists if the
// name is taken.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	if has(links, name) {
		return nil, fmt.Errorf("%s: %w", joinPath(g.path, name), ErrExists)
	}

	addr, err := g.file.writeObject(object.GroupMessages(g.file.undefined(), nil, nil))
	if err != nil {
		return nil, fmt.Errorf("creating group %s: %w", joinPath(g.path, name), err)
	}
	if err := g.rewrite(append(links, message.NewHardLink(name, addr))); err != nil {
		return nil, err
	}
	return g.OpenGroup(name)
}

// RequireGroup opens the group at the slash-separated path p below g,
// creating every missing group along the way. It fails with ErrNotGroup
// when a component is a dataset.
func (g *Group) RequireGroup(p string) (*Group, error) {
	parts, err := checkPath(p)
	if err != nil {
		return nil, err
	}
	cur := g
	for _, name := range parts {
		if cur.Has(name) {
			if cur, err = cur.OpenGroup(name); err != nil {
				return nil, err
			}
			continue
		}
		if cur, err = cur.CreateGroup(name); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// CreateSoftLink adds a link called name holding the path target. The
// target does not need to exist.
func (g *Group) CreateSoftLink(name, target string) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("%w: empty soft link target", ErrInvalidPath)
	}
	links, err := g.links()
	if err != nil {
		return err
	}
	if has(links, name) {
		return fmt.Errorf("%s: %w", joinPath(g.path, name), ErrExists)
	}
	return g.rewrite(append(links, message.NewSoftLink(name, target)))
}

// Delete removes the member called name. Only the link is removed; the
// space of the object it pointed to is counted as freed.
func (g *Group) Delete(name string) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	links, err := g.links()
	if err != nil {
		return err
	}
	kept, old := without(links, name)
	if old == nil {
		return fmt.Errorf("%s: %w", joinPath(g.path, name), ErrNotFound)
	}
	if err := g.rewrite(kept); err != nil {
		return err
	}
	g.unlinked(name, old)
	return nil
}

// unlinked updates the cache and accounting after the link old was
// removed from g.
func (g *Group) unlinked(name string, old *message.Link) {
	g.file.forget(joinPath(g.path, name))
	if old.IsHard() {
		g.file.release(old.ObjectAddress)
	}
}

// rewrite writes a new header for g holding links and the messages of the
// old header that are not about links, then points the parent (or the
// superblock) at it. Symbol-table groups become link-message groups.
func (g *Group) rewrite(links []*message.Link) error {
	extra := g.header.Preserved(
		message.TypeLink,
		message.TypeLinkInfo,
		message.TypeGroupInfo,
		message.TypeSymbolTable,
	)
	sortLinks(links)
	addr, err := g.file.writeObject(object.GroupMessages(g.file.undefined(), links, extra))
	if err != nil {
		return fmt.Errorf("rewriting group %s: %w", g.path, err)
	}
	header, err := object.Read(g.file.reader, addr)
	if err != nil {
		return fmt.Errorf("rewriting group %s: %w", g.path, err)
	}

	for _, s := range g.header.Spans {
		g.file.allocator.Free(s.Addr, s.Size)
	}
	g.addr, g.header = addr, header
	if g.parent == nil {
		g.file.superblock.RootGroupAddress = addr
		return nil
	}
	return g.parent.relink(g.name, addr)
}

// relink points the hard link called name at addr.
func (g *Group) relink(name string, addr uint64) error {
	links, err := g.links()
	if err != nil {
		return err
	}
	found := false
	for i, l := range links {
		if l.Name == name {
			links[i] = message.NewHardLink(name, addr)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%s: %w", joinPath(g.path, name), ErrNotFound)
	}
	return g.rewrite(links)
}

func has(links []*message.Link, name string) bool {
	for _, l := range links {
		if l.Name == name {
			return true
		}
	}
	return false
}

// without returns links minus the one called name, and that link.
func without(links []*message.Link, name string) ([]*message.Link, *message.Link) {
	var kept []*message.Link
	var removed *message.Link
	for _, l := range links {
		if l.Name == name {
			removed = l
			continue
		}
		kept = append(kept, l)
	}
	return kept, removed
}
