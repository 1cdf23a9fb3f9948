package hdf5

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/robert-malhotra/h5pipe/internal/btree"
	"github.com/robert-malhotra/h5pipe/internal/heap"
	"github.com/robert-malhotra/h5pipe/internal/message"
	"github.com/robert-malhotra/h5pipe/internal/object"
)

// Group is an HDF5 group.
type Group struct {
	file   *File
	parent *Group // nil for the root
	name   string // link name in parent
	path   string
	addr   uint64
	header *object.Header
}

// target is the result of resolving a path: the object and the hard link
// that holds it.
type target struct {
	parent *Group
	name   string
	addr   uint64
	header *object.Header
}

func (t *target) path() string {
	if t.parent == nil {
		return "/"
	}
	return joinPath(t.parent.path, t.name)
}

// Name returns the last component of the group's path.
func (g *Group) Name() string {
	if g.parent == nil {
		return "/"
	}
	return g.name
}

// Path returns the absolute path of the group.
func (g *Group) Path() string {
	return g.path
}

// File returns the file the group belongs to.
func (g *Group) File() *File {
	return g.file
}

func (g *Group) addrOr(def uint64) uint64 {
	if g == nil {
		return def
	}
	return g.addr
}

// links returns the group's links sorted by name. Symbol-table groups are
// converted to links.
func (g *Group) links() ([]*message.Link, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	var links []*message.Link
	if msg, ok := g.header.GetMessage(message.TypeLinkInfo).(*message.LinkInfo); ok && msg.Dense(g.file.undefined()) {
		return nil, fmt.Errorf("%w: dense link storage in %s", ErrUnsupported, g.path)
	}
	for _, msg := range g.header.GetMessages(message.TypeLink) {
		links = append(links, msg.(*message.Link))
	}

	if st, ok := g.header.GetMessage(message.TypeSymbolTable).(*message.SymbolTable); ok {
		names, err := heap.ReadLocalHeap(g.file.reader, st.LocalHeapAddress)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", g.path, err)
		}
		entries, err := btree.ReadGroupEntries(g.file.reader, st.BTreeAddress, names)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", g.path, err)
		}
		for _, e := range entries {
			if e.Soft {
				links = append(links, message.NewSoftLink(e.Name, e.SoftLinkValue))
			} else {
				links = append(links, message.NewHardLink(e.Name, e.ObjectAddress))
			}
		}
	}

	sortLinks(links)
	return links, nil
}

func sortLinks(links []*message.Link) {
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
}

// link returns the link called name.
func (g *Group) link(name string) (*message.Link, error) {
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	i := sort.Search(len(links), func(i int) bool { return links[i].Name >= name })
	if i == len(links) || links[i].Name != name {
		return nil, fmt.Errorf("%s: %w", joinPath(g.path, name), ErrNotFound)
	}
	return links[i], nil
}

// Members returns the names of the group's members sorted by name.
func (g *Group) Members() ([]string, error) {
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name
	}
	return names, nil
}

// Has reports whether the group has a member called name.
func (g *Group) Has(name string) bool {
	_, err := g.link(name)
	return err == nil
}

// NumObjects returns the number of members.
func (g *Group) NumObjects() (int, error) {
	links, err := g.links()
	return len(links), err
}

// OpenGroup opens a group by path relative to g. Absolute paths start at
// the root.
func (g *Group) OpenGroup(p string) (*Group, error) {
	t, err := g.resolve(p, 0)
	if err != nil {
		return nil, err
	}
	if !t.header.IsGroup() {
		return nil, fmt.Errorf("%s: %w", t.path(), ErrNotGroup)
	}
	return g.file.group(t), nil
}

// OpenDataset opens a dataset by path relative to g. Absolute paths start
// at the root.
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	t, err := g.resolve(p, 0)
	if err != nil {
		return nil, err
	}
	if !t.header.IsDataset() {
		return nil, fmt.Errorf("%s: %w", t.path(), ErrNotDataset)
	}
	return newDataset(g.file, t.path(), t.addr, t.header)
}

// open returns the group or dataset a member link leads to.
func (g *Group) open(name string) (Object, error) {
	t, err := g.resolve(name, 0)
	if err != nil {
		return nil, err
	}
	switch {
	case t.header.IsGroup():
		return g.file.group(t), nil
	case t.header.IsDataset():
		return newDataset(g.file, t.path(), t.addr, t.header)
	}
	return nil, fmt.Errorf("%s: %w: neither group nor dataset", t.path(), ErrUnsupported)
}

// resolve follows p from g. depth counts the soft links followed so far.
func (g *Group) resolve(p string, depth int) (*target, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	start := g
	if strings.HasPrefix(p, "/") {
		start = g.file.root
	}
	parts, err := splitPath(p)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return &target{parent: start.parent, name: start.name, addr: start.addr, header: start.header}, nil
	}

	cur := start
	last := len(parts) - 1
	for _, name := range parts[:last] {
		t, err := cur.lookup(name, depth)
		if err != nil {
			return nil, err
		}
		if !t.header.IsGroup() {
			return nil, fmt.Errorf("%s: %w", t.path(), ErrNotGroup)
		}
		cur = g.file.group(t)
	}
	return cur.lookup(parts[last], depth)
}

// lookup resolves one member of g.
func (g *Group) lookup(name string, depth int) (*target, error) {
	l, err := g.link(name)
	if err != nil {
		return nil, err
	}
	switch {
	case l.IsHard():
		header, err := g.file.header(l.ObjectAddress)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", joinPath(g.path, name), err)
		}
		return &target{parent: g, name: name, addr: l.ObjectAddress, header: header}, nil
	case l.IsSoft():
		if depth >= MaxLinkDepth {
			return nil, fmt.Errorf("%s: %w", joinPath(g.path, name), ErrLinkDepth)
		}
		t, err := g.resolve(l.SoftLinkValue, depth+1)
		if err != nil {
			return nil, fmt.Errorf("soft link %s -> %s: %w", joinPath(g.path, name), l.SoftLinkValue, err)
		}
		return t, nil
	}
	return nil, fmt.Errorf("%s: %w: external link to %s:%s", joinPath(g.path, name), ErrUnsupported, l.ExternalFile, l.ExternalPath)
}

// group returns the cached handle for t, creating it on first use.
func (f *File) group(t *target) *Group {
	if t.parent == nil {
		return f.root
	}
	p := t.path()
	if g, ok := f.groups[p]; ok && g.addr == t.addr {
		return g
	}
	g := &Group{file: f, parent: t.parent, name: t.name, path: p, addr: t.addr, header: t.header}
	f.groups[p] = g
	return g
}

// Attrs returns the group's attribute names.
func (g *Group) Attrs() []string {
	return attrNames(g.header)
}

// Attr returns the attribute called name, or nil.
func (g *Group) Attr(name string) *Attribute {
	return findAttr(g.header, name, g.file.reader)
}

// HasAttr reports whether the group has an attribute called name.
func (g *Group) HasAttr(name string) bool {
	return g.Attr(name) != nil
}

// Object is a group or a dataset.
type Object interface {
	Name() string
	Path() string
	Attrs() []string
	Attr(name string) *Attribute
}

var (
	_ Object = (*Group)(nil)
	_ Object = (*Dataset)(nil)
)

func basename(p string) string {
	if p == "/" {
		return "/"
	}
	return path.Base(p)
}
