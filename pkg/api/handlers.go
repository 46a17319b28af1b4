package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/catbuf/pkg/builder"
)

const contentTypeOctetStream = "application/octet-stream"

// Server holds the API server state
type Server struct {
	store   RecordStore
	schemas SchemaResolver
	config  ServerConfig
	metrics *Metrics
	started time.Time
}

// NewServer creates a new API server. store may be nil, in which case the
// record endpoints answer 503.
func NewServer(store RecordStore, schemas SchemaResolver, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		store:   store,
		schemas: schemas,
		config:  config,
		metrics: metrics,
		started: time.Now(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	names := s.schemas.Names()
	out := make([]SchemaSummary, 0, len(names))
	for _, name := range names {
		schema, err := s.schemas.Schema(name)
		if err != nil {
			continue
		}
		summary := SchemaSummary{Name: name, Fields: len(schema.Fields())}
		if n, ok := schema.FixedSize(); ok {
			summary.FixedSize = &n
		}
		out = append(out, summary)
	}
	sendSuccess(w, out)
}

func (s *Server) handleDescribeSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.schemas.Schema(chi.URLParam(r, "name"))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, SchemaResponse{Name: schema.Name(), Fields: schema.Describe()})
}

// handleEncode builds a record from a JSON object of field values and
// returns its serialized form
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	schema, err := s.schemas.Schema(chi.URLParam(r, "name"))
	if err != nil {
		sendFailure(w, err)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	rec, err := schema.ParseJSON(body)
	if err != nil {
		s.metrics.RecordCodecOperation("encode", schema.Name(), false, 0)
		sendFailure(w, err)
		return
	}
	data, err := rec.Serialize()
	if err != nil {
		s.metrics.RecordCodecOperation("encode", schema.Name(), false, 0)
		sendFailure(w, err)
		return
	}
	s.metrics.RecordCodecOperation("encode", schema.Name(), true, len(data))
	sendSuccess(w, EncodeResponse{Hex: hex.EncodeToString(data), Size: len(data)})
}

// handleDecode loads a record from either a raw octet-stream body or a JSON
// {"hex": ...} body and returns its field values
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	schema, err := s.schemas.Schema(chi.URLParam(r, "name"))
	if err != nil {
		sendFailure(w, err)
		return
	}
	data, ok := s.readPayload(w, r)
	if !ok {
		return
	}

	rec, err := schema.Load(data)
	if err != nil {
		s.metrics.RecordCodecOperation("decode", schema.Name(), false, 0)
		sendFailure(w, err)
		return
	}
	s.metrics.RecordCodecOperation("decode", schema.Name(), true, len(data))
	sendSuccess(w, rec)
}

// handleCreateRecord stores a record given as JSON fields or raw bytes
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	schema, err := s.schemas.Schema(chi.URLParam(r, "schema"))
	if err != nil {
		sendFailure(w, err)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var rec *builder.Record
	if isOctetStream(r) {
		rec, err = schema.Load(body)
	} else {
		rec, err = schema.ParseJSON(body)
	}
	if err != nil {
		sendFailure(w, err)
		return
	}

	start := time.Now()
	id, err := s.store.Create(rec)
	s.metrics.RecordStoreOperation("create", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, RecordResponse{
		ID:     id.String(),
		Schema: schema.Name(),
		Size:   rec.Size(),
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	rec, err := s.store.Read(id)
	s.metrics.RecordStoreOperation("read", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	data, err := rec.Serialize()
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, RecordResponse{
		ID:     id.String(),
		Schema: rec.Schema().Name(),
		Size:   len(data),
		Hex:    hex.EncodeToString(data),
		Fields: rec,
	})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Delete(id)
	s.metrics.RecordStoreOperation("delete", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, map[string]string{"id": id.String()})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	start := time.Now()
	entries, err := s.store.List(limit)
	s.metrics.RecordStoreOperation("list", err == nil, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, entries)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		sendError(w, "record store not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, fmt.Sprintf("invalid record id: %v", err), http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func isOctetStream(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), contentTypeOctetStream)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	reader := io.Reader(r.Body)
	if s.config.MaxRecordSize > 0 {
		// hex and JSON framing at most doubles the payload
		reader = http.MaxBytesReader(w, r.Body, int64(2*s.config.MaxRecordSize+1024))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// readPayload returns the record bytes of a decode request
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, ok := s.readBody(w, r)
	if !ok {
		return nil, false
	}
	if isOctetStream(r) {
		return body, true
	}

	var req DecodeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return nil, false
	}
	data, err := hex.DecodeString(strings.TrimPrefix(req.Hex, "0x"))
	if err != nil {
		sendError(w, fmt.Sprintf("invalid hex payload: %v", err), http.StatusBadRequest)
		return nil, false
	}
	return data, true
}
