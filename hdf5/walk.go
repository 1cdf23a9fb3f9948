package hdf5

import "errors"

// SkipGroup can be returned by a WalkFunc. Returned for a group it skips
// the group's members; returned for a dataset it skips the dataset's
// remaining siblings.
var SkipGroup = errors.New("skip this group")

// WalkFunc is called for every object Walk visits. obj is a *Group or a
// *Dataset, or nil when err reports that the member could not be opened.
// Returning an error other than SkipGroup stops the walk.
type WalkFunc func(path string, obj Object, err error) error

// Walk visits g and everything below it depth-first, members in name
// order. Groups reached twice, as through a soft link to an ancestor, are
// reported but not descended into again.
func Walk(g *Group, fn WalkFunc) error {
	err := walk(g, fn, map[uint64]bool{})
	if errors.Is(err, SkipGroup) {
		return nil
	}
	return err
}

func walk(g *Group, fn WalkFunc, seen map[uint64]bool) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}
	if seen[g.addr] {
		return nil
	}
	seen[g.addr] = true

	members, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, name := range members {
		obj, err := g.open(name)
		if err != nil {
			if err := fn(joinPath(g.Path(), name), nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			err = walk(o, fn, seen)
			if errors.Is(err, SkipGroup) {
				err = nil
			}
		default:
			err = fn(joinPath(g.Path(), name), obj, nil)
			if errors.Is(err, SkipGroup) {
				// Skip the rest of g, as fs.SkipDir does for files.
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
