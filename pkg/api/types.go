package api

import (
	"time"

	"github.com/ssargent/catbuf/pkg/builder"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Detail  *ErrorInfo  `json:"detail,omitempty"`
}

// ErrorInfo carries the structured part of a codec failure
type ErrorInfo struct {
	Kind   string `json:"kind"`
	Path   string `json:"path,omitempty"`
	Offset int    `json:"offset"`
	Want   int    `json:"want,omitempty"`
	Got    int    `json:"got,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr          string
	APIKey        string // empty disables authentication
	MaxRecordSize int
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration
}

// SchemaSummary is one entry of the schema listing
type SchemaSummary struct {
	Name      string `json:"name"`
	Fields    int    `json:"fields"`
	FixedSize *int   `json:"fixed_size,omitempty"`
}

// SchemaResponse describes a schema's layout
type SchemaResponse struct {
	Name   string              `json:"name"`
	Fields []builder.FieldInfo `json:"fields"`
}

// EncodeResponse is returned by the encode endpoint
type EncodeResponse struct {
	Hex  string `json:"hex"`
	Size int    `json:"size"`
}

// DecodeRequest is the JSON form of the decode body
type DecodeRequest struct {
	Hex string `json:"hex"`
}

// RecordResponse is a stored record
type RecordResponse struct {
	ID     string          `json:"id"`
	Schema string          `json:"schema"`
	Size   int             `json:"size"`
	Hex    string          `json:"hex,omitempty"`
	Fields *builder.Record `json:"fields,omitempty"`
}
