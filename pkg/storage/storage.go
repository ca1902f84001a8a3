package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/index"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("not found")

const (
	prefixForm = "form/"
	prefixEdid = "edid/"
	prefixTag  = "tag/"
	prefixRun  = "run/"
)

// Run records one indexed file
type Run struct {
	ID      ksuid.KSUID   `json:"id"`
	Name    string        `json:"name"`
	Created time.Time     `json:"created"`
	Summary index.Summary `json:"summary"`
}

// IndexStore persists record indexes in pebble
type IndexStore struct {
	db *pebble.DB
}

// NewIndexStore opens or creates a store at path
func NewIndexStore(path string) (*IndexStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open index store %s", path)
	}
	return &IndexStore{db: db}, nil
}

func formKey(id codec.FormID) []byte {
	return []byte(prefixForm + id.String())
}

func edidKey(name string) []byte {
	return []byte(prefixEdid + strings.ToLower(name))
}

func tagPrefix(tag string) string {
	return prefixTag + tag + "/"
}

// SaveRun writes every entry of idx plus a run summary in one batch. Entries
// already stored under the same form id are replaced. Stale secondary keys are
// deleted before any key is set so a key handed to another form in this run
// survives.
func (s *IndexStore) SaveRun(name string, idx *index.Index) (ksuid.KSUID, error) {
	batch := s.db.NewBatch()
	defer batch.Close()

	entries := idx.Entries()
	for _, e := range entries {
		if err := s.dropStale(batch, e); err != nil {
			return ksuid.Nil, err
		}
	}

	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return ksuid.Nil, errors.Wrapf(err, "encode entry %s", e.FormID)
		}
		if err := batch.Set(formKey(e.FormID), data, nil); err != nil {
			return ksuid.Nil, err
		}
		if owner, ok := idx.FindEditorID(e.EditorID); ok && owner.FormID == e.FormID {
			if err := batch.Set(edidKey(e.EditorID), []byte(e.FormID.String()), nil); err != nil {
				return ksuid.Nil, err
			}
		}
		if err := batch.Set([]byte(tagPrefix(e.Tag)+e.FormID.String()), nil, nil); err != nil {
			return ksuid.Nil, err
		}
	}

	run := Run{
		ID:      ksuid.New(),
		Name:    name,
		Created: time.Now().UTC(),
		Summary: idx.Summary(),
	}
	data, err := json.Marshal(run)
	if err != nil {
		return ksuid.Nil, errors.Wrap(err, "encode run")
	}
	if err := batch.Set([]byte(prefixRun+run.ID.String()), data, nil); err != nil {
		return ksuid.Nil, err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return ksuid.Nil, errors.Wrap(err, "commit run")
	}
	return run.ID, nil
}

// dropStale removes secondary keys of a previously stored version of e that
// the new version no longer produces. An editor id key is only removed while
// it still points at e.
func (s *IndexStore) dropStale(batch *pebble.Batch, e index.Entry) error {
	old, err := s.Get(e.FormID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if old.Tag != e.Tag {
		if err := batch.Delete([]byte(tagPrefix(old.Tag)+old.FormID.String()), nil); err != nil {
			return err
		}
	}
	if old.EditorID == "" || strings.EqualFold(old.EditorID, e.EditorID) {
		return nil
	}
	raw, err := s.get(edidKey(old.EditorID))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner, err := codec.ParseFormID(string(raw)); err != nil || owner != old.FormID {
		return nil
	}
	return batch.Delete(edidKey(old.EditorID), nil)
}

// Get returns the stored entry for a form id
func (s *IndexStore) Get(id codec.FormID) (index.Entry, error) {
	var e index.Entry
	if err := s.getJSON(formKey(id), &e); err != nil {
		return index.Entry{}, errors.Wrapf(err, "form %s", id)
	}
	return e, nil
}

// FindEditorID returns the stored entry for an editor id, ignoring case
func (s *IndexStore) FindEditorID(name string) (index.Entry, error) {
	raw, err := s.get(edidKey(name))
	if err != nil {
		return index.Entry{}, errors.Wrapf(err, "editor id %q", name)
	}
	id, err := codec.ParseFormID(string(raw))
	if err != nil {
		return index.Entry{}, err
	}
	return s.Get(id)
}

// ListTag returns every stored entry of one record type ordered by form id
func (s *IndexStore) ListTag(tag string) ([]index.Entry, error) {
	prefix := tagPrefix(tag)
	var entries []index.Entry
	err := s.scan(prefix, func(key, _ []byte) error {
		id, err := codec.ParseFormID(strings.TrimPrefix(string(key), prefix))
		if err != nil {
			return err
		}
		e, err := s.Get(id)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// Runs returns every saved run, oldest first
func (s *IndexStore) Runs() ([]Run, error) {
	var runs []Run
	err := s.scan(prefixRun, func(_, value []byte) error {
		var r Run
		if err := json.Unmarshal(value, &r); err != nil {
			return errors.Wrap(err, "decode run")
		}
		runs = append(runs, r)
		return nil
	})
	return runs, err
}

// Close closes the underlying database
func (s *IndexStore) Close() error {
	return s.db.Close()
}

func (s *IndexStore) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *IndexStore) getJSON(key []byte, v any) error {
	data, err := s.get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// scan calls fn for every key with prefix in key order. key and value are
// only valid during the call.
func (s *IndexStore) scan(prefix string, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixEnd([]byte(prefix)),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
