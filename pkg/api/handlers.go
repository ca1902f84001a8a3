package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/index"
	"github.com/ssargent/esmkit/pkg/logging"
	"github.com/ssargent/esmkit/pkg/parser"
	"github.com/ssargent/esmkit/pkg/storage"
)

const (
	// DefaultMaxUploadBytes bounds uploads when the config leaves it unset
	DefaultMaxUploadBytes = 512 << 20
	// DefaultCacheSize is the number of lookups kept when the config leaves it unset
	DefaultCacheSize = 4096
	// DefaultMaxInflateBytes bounds one decompressed record of an upload
	// when the config leaves it unset
	DefaultMaxInflateBytes = 256 << 20
)

// Server holds the API server state
type Server struct {
	store   IIndexStore
	config  ServerConfig
	metrics *Metrics
	logger  *slog.Logger
	// lookups caches store hits by form id and lowercased editor id. Any
	// saved run can replace entries, so it is purged after each upload.
	lookups *lru.Cache[string, index.Entry]
	// cacheMu orders cache fills against purges; generation counts purges so
	// a fill that started before one is dropped.
	cacheMu    sync.Mutex
	generation uint64
}

// NewServer creates a new API server
func NewServer(store IIndexStore, config ServerConfig, metrics *Metrics, logger *slog.Logger) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = parser.DefaultMaxDepth
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	if config.MaxInflateBytes == 0 {
		config.MaxInflateBytes = DefaultMaxInflateBytes
	}
	if logger == nil {
		logger = logging.Discard()
	}
	lookups, err := lru.New[string, index.Entry](config.CacheSize)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger,
		lookups: lookups,
	}
}

// cached serves key from the lookup cache, falling back to load and caching
// what it finds
func (s *Server) cached(op, key string, load func() (index.Entry, error)) (index.Entry, error) {
	if e, ok := s.lookups.Get(key); ok {
		s.metrics.RecordCacheLookup(true)
		return e, nil
	}
	s.metrics.RecordCacheLookup(false)

	s.cacheMu.Lock()
	gen := s.generation
	s.cacheMu.Unlock()

	e, err := load()
	s.metrics.RecordStoreOperation(op, err == nil || errors.Is(err, storage.ErrNotFound))
	if err != nil {
		return index.Entry{}, err
	}

	s.cacheMu.Lock()
	if s.generation == gen {
		s.lookups.Add(key, e)
	}
	s.cacheMu.Unlock()
	return e, nil
}

// invalidate drops every cached lookup, including fills still in flight
func (s *Server) invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.lookups.Purge()
}

// handleHealth reports that the server is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleGetRecord looks up one record by hex form id
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := codec.ParseFormID(chi.URLParam(r, "formid"))
	if err != nil {
		sendError(w, "Invalid form id", http.StatusBadRequest)
		return
	}

	entry, err := s.cached("get", "form/"+id.String(), func() (index.Entry, error) {
		return s.store.Get(id)
	})
	if err != nil {
		s.sendStoreError(w, err, fmt.Sprintf("Record %s not found", id))
		return
	}
	sendSuccess(w, entry)
}

// handleGetEditorID looks up one record by editor id
func (s *Server) handleGetEditorID(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		sendError(w, "Editor id is required", http.StatusBadRequest)
		return
	}

	entry, err := s.cached("find_editor_id", "edid/"+strings.ToLower(name), func() (index.Entry, error) {
		return s.store.FindEditorID(name)
	})
	if err != nil {
		s.sendStoreError(w, err, fmt.Sprintf("Editor id %q not found", name))
		return
	}
	sendSuccess(w, entry)
}

// handleListTag lists the records of one type
func (s *Server) handleListTag(w http.ResponseWriter, r *http.Request) {
	tag, err := codec.ParseTag(chi.URLParam(r, "tag"))
	if err != nil {
		sendError(w, "Record type must be exactly 4 characters", http.StatusBadRequest)
		return
	}

	entries, err := s.store.ListTag(tag.String())
	s.metrics.RecordStoreOperation("list_tag", err == nil)
	if err != nil {
		s.sendStoreError(w, err, "")
		return
	}
	if entries == nil {
		entries = []index.Entry{}
	}
	sendSuccess(w, entries)
}

// handleListRuns lists every indexed upload
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs()
	s.metrics.RecordStoreOperation("runs", err == nil)
	if err != nil {
		s.sendStoreError(w, err, "")
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	sendSuccess(w, runs)
}

// handleUploadFile decodes the request body as a master file, indexes it and
// saves the index as a new run
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		sendError(w, "Query parameter name is required", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("File exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	f, err := esm.Decode(bytes.NewReader(body),
		esm.WithLogger(s.logger),
		esm.WithMaxDepth(s.config.MaxDepth),
		esm.WithMaxInflate(s.config.MaxInflateBytes),
	)
	if err != nil {
		s.metrics.RecordParse(parser.Stats{}, false, time.Since(start))
		s.logger.Warn("decode failed", "name", name, "size", len(body), "error", err)
		sendError(w, fmt.Sprintf("Failed to decode %s: %v", name, err), decodeStatus(err))
		return
	}
	s.metrics.RecordParse(f.Stats, true, time.Since(start))

	idx := index.Build(f)
	runID, err := s.store.SaveRun(name, idx)
	s.metrics.RecordStoreOperation("save_run", err == nil)
	s.invalidate()
	if err != nil {
		s.sendStoreError(w, err, "")
		return
	}

	s.logger.Info("indexed file", "name", name, "run", runID.String(), "records", idx.Len())
	sendSuccess(w, UploadResult{
		RunID:     runID.String(),
		Name:      name,
		Localized: f.Localized,
		Summary:   idx.Summary(),
		Stats:     f.Stats,
	})
}

// decodeStatus maps parser failures onto HTTP statuses. Malformed input is
// the client's problem; anything else is ours.
func decodeStatus(err error) int {
	switch {
	case errors.Is(err, parser.ErrParse),
		errors.Is(err, parser.ErrDecompress),
		errors.Is(err, parser.ErrDepthExceeded),
		errors.Is(err, parser.ErrLocalizedSet),
		errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) sendStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, storage.ErrNotFound) && notFound != "" {
		sendError(w, notFound, http.StatusNotFound)
		return
	}
	s.logger.Error("index store failure", "error", err)
	sendError(w, "Index store failure", http.StatusInternalServerError)
}
