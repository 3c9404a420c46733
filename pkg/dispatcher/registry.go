package dispatcher

import (
	"sort"

	"arhat.dev/linkhook/pkg/networkctl"
)

// Registry holds the known links, keyed by name with a secondary index
// lookup for bus signals
//
// not safe for concurrent use, it is owned by the dispatch loop
type Registry struct {
	byName  map[string]*networkctl.Link
	byIndex map[int]string
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*networkctl.Link),
		byIndex: make(map[int]string),
	}
}

// Replace drops all records and registers links
func (r *Registry) Replace(links []networkctl.Link) {
	byName := make(map[string]*networkctl.Link, len(links))
	byIndex := make(map[int]string, len(links))
	for i := range links {
		l := links[i]
		byName[l.Name] = &l
		byIndex[l.Index] = l.Name
	}

	r.byName, r.byIndex = byName, byIndex
}

func (r *Registry) Get(name string) (*networkctl.Link, bool) {
	l, ok := r.byName[name]
	return l, ok
}

func (r *Registry) NameOf(index int) (string, bool) {
	name, ok := r.byIndex[index]
	return name, ok
}

// Remove deletes the link from both views
func (r *Registry) Remove(name string) {
	l, ok := r.byName[name]
	if !ok {
		return
	}

	delete(r.byName, name)
	if r.byIndex[l.Index] == name {
		delete(r.byIndex, l.Index)
	}
}

func (r *Registry) Len() int {
	return len(r.byName)
}

// Snapshot returns copies of all links sorted by index
func (r *Registry) Snapshot() []networkctl.Link {
	ret := make([]networkctl.Link, 0, len(r.byName))
	for _, l := range r.byName {
		ret = append(ret, *l)
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Index == ret[j].Index {
			return ret[i].Name < ret[j].Name
		}
		return ret[i].Index < ret[j].Index
	})

	return ret
}
