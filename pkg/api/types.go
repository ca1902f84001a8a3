package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/index"
	"github.com/ssargent/esmkit/pkg/parser"
	"github.com/ssargent/esmkit/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// UploadResult is returned after a master file has been decoded and indexed
type UploadResult struct {
	RunID     string        `json:"run_id"`
	Name      string        `json:"name"`
	Localized bool          `json:"localized"`
	Summary   index.Summary `json:"summary"`
	Stats     parser.Stats  `json:"stats"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string
	// MaxUploadBytes bounds the body of a file upload
	MaxUploadBytes int64
	// MaxDepth is handed to the parser for uploaded files. Zero selects
	// parser.DefaultMaxDepth; uploads are never parsed without a limit.
	MaxDepth uint32
	// MaxInflateBytes bounds one decompressed record of an upload. Zero
	// selects DefaultMaxInflateBytes.
	MaxInflateBytes uint64
	// CacheSize bounds the record lookup cache
	CacheSize int
}

// IIndexStore defines the index store operations the API needs
type IIndexStore interface {
	SaveRun(name string, idx *index.Index) (ksuid.KSUID, error)
	Get(id codec.FormID) (index.Entry, error)
	FindEditorID(name string) (index.Entry, error)
	ListTag(tag string) ([]index.Entry, error)
	Runs() ([]storage.Run, error)
}
