// Package esm decodes Elder Scrolls master files into a tree of groups,
// records and fields.
//
// The byte accounting lives in package parser; this package supplies the
// decoders it dispatches to. Record types are described by a Registry of
// Schemas, each listing the fields it knows and how to read them. Fields a
// schema does not list are kept with a nil value, and records whose type is
// not registered are kept with Skipped set.
//
// Decoding is all or nothing: a malformed chunk anywhere fails the whole
// file.
//
//	f, err := esm.DecodeFile("FalloutNV.esm", esm.WithTrace(os.Stdout))
//	if err != nil {
//	    return err
//	}
//	err = f.Walk(func(path []*esm.Group, r *esm.Record) error {
//	    fmt.Println(r.Header.Tag, r.Header.FormID, r.EditorID())
//	    return nil
//	})
package esm
