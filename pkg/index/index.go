package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/esm"
)

// Entry is the indexed view of one record
type Entry struct {
	FormID     codec.FormID `json:"form_id"`
	Tag        string       `json:"tag"`
	EditorID   string       `json:"editor_id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Flags      uint32       `json:"flags"`
	Compressed bool         `json:"compressed"`
	Skipped    bool         `json:"skipped,omitempty"`
	Offset     int64        `json:"offset"`
	Path       []string     `json:"path,omitempty"`
}

// Summary counts what an index holds
type Summary struct {
	Records int            `json:"records"`
	Groups  int            `json:"groups"`
	ByTag   map[string]int `json:"by_tag"`
}

// Index holds records by form id with secondary lookups by editor id and
// record type
type Index struct {
	mutex   sync.RWMutex
	entries map[codec.FormID]*Entry
	order   []codec.FormID
	edids   map[string]codec.FormID
	tags    map[string][]codec.FormID
	groups  int
}

// New creates an empty index
func New() *Index {
	return &Index{
		entries: make(map[codec.FormID]*Entry),
		edids:   make(map[string]codec.FormID),
		tags:    make(map[string][]codec.FormID),
	}
}

// Build indexes every record of a decoded file except the file header
func Build(f *esm.File) *Index {
	idx := New()
	_ = f.Walk(func(path []*esm.Group, r *esm.Record) error {
		if r == f.Header {
			return nil
		}
		idx.Add(NewEntry(path, r))
		return nil
	})
	for _, g := range f.Groups {
		idx.groups += countGroups(g)
	}
	return idx
}

func countGroups(g *esm.Group) int {
	n := 1
	for _, child := range g.Groups {
		n += countGroups(child)
	}
	return n
}

// NewEntry describes r as found under the given group path
func NewEntry(path []*esm.Group, r *esm.Record) Entry {
	e := Entry{
		FormID:     r.Header.FormID,
		Tag:        r.Header.Tag.String(),
		EditorID:   r.EditorID(),
		Name:       r.FullName(),
		Flags:      uint32(r.Header.Flags),
		Compressed: r.Header.Compressed(),
		Skipped:    r.Skipped,
		Offset:     r.Offset,
	}
	for _, g := range path {
		e.Path = append(e.Path, g.Header.LabelString())
	}
	return e
}

// Add inserts e. A later entry with the same form id replaces the earlier
// one, the way a later plugin overrides a master.
func (idx *Index) Add(e Entry) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if old, exists := idx.entries[e.FormID]; exists {
		idx.unlink(old)
	} else {
		idx.order = append(idx.order, e.FormID)
	}

	entry := e
	idx.entries[e.FormID] = &entry
	if e.EditorID != "" {
		idx.edids[strings.ToLower(e.EditorID)] = e.FormID
	}
	idx.tags[e.Tag] = append(idx.tags[e.Tag], e.FormID)
}

func (idx *Index) unlink(old *Entry) {
	if old.EditorID != "" {
		key := strings.ToLower(old.EditorID)
		if idx.edids[key] == old.FormID {
			delete(idx.edids, key)
		}
	}
	ids := idx.tags[old.Tag]
	for i, id := range ids {
		if id == old.FormID {
			idx.tags[old.Tag] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(idx.tags[old.Tag]) == 0 {
		delete(idx.tags, old.Tag)
	}
}

// Get returns the entry for a form id
func (idx *Index) Get(id codec.FormID) (Entry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	e, ok := idx.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// FindEditorID looks up an entry by editor id, ignoring case
func (idx *Index) FindEditorID(name string) (Entry, bool) {
	idx.mutex.RLock()
	id, ok := idx.edids[strings.ToLower(name)]
	idx.mutex.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return idx.Get(id)
}

// ByTag returns the entries of one record type in insertion order
func (idx *Index) ByTag(tag string) []Entry {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	ids := idx.tags[tag]
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, *idx.entries[id])
	}
	return out
}

// Tags returns the record types present, sorted
func (idx *Index) Tags() []string {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	tags := make([]string, 0, len(idx.tags))
	for t := range idx.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Entries returns every entry in insertion order
func (idx *Index) Entries() []Entry {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	out := make([]Entry, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, *idx.entries[id])
	}
	return out
}

// Len returns the number of entries
func (idx *Index) Len() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.entries)
}

// Summary counts entries per record type
func (idx *Index) Summary() Summary {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	s := Summary{
		Records: len(idx.entries),
		Groups:  idx.groups,
		ByTag:   make(map[string]int, len(idx.tags)),
	}
	for t, ids := range idx.tags {
		s.ByTag[t] = len(ids)
	}
	return s
}
