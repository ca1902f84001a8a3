package esm

import (
	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/parser"
)

var (
	tagEDID = codec.MustTag("EDID")
	tagFULL = codec.MustTag("FULL")
)

// File is a decoded master file.
type File struct {
	// Header is the TES4 record, nil if the file does not start with one.
	Header *Record
	// Groups are the top level groups in file order.
	Groups []*Group
	// Records are top level records other than the file header.
	Records   []*Record
	Localized bool
	Stats     parser.Stats
}

// Group is a GRUP and the chunks nested in it.
type Group struct {
	Header codec.GroupHeader
	// Offset is the position of the group header in the file.
	Offset  int64
	Groups  []*Group
	Records []*Record
}

// Record is one record and its fields.
type Record struct {
	Header codec.RecordHeader
	// Offset is the position of the record header in the file.
	Offset int64
	Fields []Field
	// Skipped is set when the body was not walked, either because the type
	// is unknown or because it is skipped wholesale.
	Skipped bool
}

// Field is one decoded field. Value depends on the field's Kind: string for
// strings, the matching Go integer or float type for numbers, codec.FormID,
// a pointer to a struct from this package, or []byte. Value is nil for
// fields the schema does not know.
type Field struct {
	Tag codec.Tag
	// Size is the declared payload size, or the override carried by a
	// preceding XXXX field.
	Size  uint32
	Value any
}

// Field returns the first field with tag.
func (r *Record) Field(tag codec.Tag) (Field, bool) {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

// All returns every field with tag, in order.
func (r *Record) All(tag codec.Tag) []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// EditorID returns the EDID string, or "" if the record has none.
func (r *Record) EditorID() string {
	return r.stringField(tagEDID)
}

// FullName returns the FULL string, or "" if the record has none.
func (r *Record) FullName() string {
	return r.stringField(tagFULL)
}

func (r *Record) stringField(tag codec.Tag) string {
	f, ok := r.Field(tag)
	if !ok {
		return ""
	}
	s, _ := f.Value.(string)
	return s
}

// Visitor is called for every record reached by File.Walk. path holds the
// enclosing groups, outermost first. Returning an error stops the walk.
type Visitor func(path []*Group, r *Record) error

// Walk visits the header, the top level records and every record nested in
// groups, in file order within each list.
func (f *File) Walk(fn Visitor) error {
	if f.Header != nil {
		if err := fn(nil, f.Header); err != nil {
			return err
		}
	}
	for _, r := range f.Records {
		if err := fn(nil, r); err != nil {
			return err
		}
	}
	for _, g := range f.Groups {
		if err := g.walk(nil, fn); err != nil {
			return err
		}
	}
	return nil
}

func (g *Group) walk(path []*Group, fn Visitor) error {
	path = append(path[:len(path):len(path)], g)
	for _, r := range g.Records {
		if err := fn(path, r); err != nil {
			return err
		}
	}
	for _, child := range g.Groups {
		if err := child.walk(path, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the first record with the given form id.
func (f *File) Find(id codec.FormID) (*Record, bool) {
	var found *Record
	_ = f.Walk(func(_ []*Group, r *Record) error {
		if r.Header.FormID == id && r.Header.Tag != codec.TagHeader {
			found = r
			return errStopWalk
		}
		return nil
	})
	return found, found != nil
}

// Count returns the number of records reachable by Walk.
func (f *File) Count() int {
	n := 0
	_ = f.Walk(func([]*Group, *Record) error {
		n++
		return nil
	})
	return n
}
