package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/index"
	"github.com/ssargent/recfile/pkg/logging"
	"github.com/ssargent/recfile/pkg/metrics"
	"github.com/ssargent/recfile/pkg/store"
)

// maxBodyBytes bounds request bodies; a record is far smaller
const maxBodyBytes = 1 << 20

var errBadIndex = errors.New("record index must be a non-negative integer")

// Server holds the API server state
type Server struct {
	store   IRecordStore
	columns codec.Columns
	config  ServerConfig
	metrics *metrics.Metrics
	indexes *index.IndexManager
	logger  *slog.Logger

	// held across seek-then-operate sequences on the shared file position
	mutex sync.Mutex
}

// NewServer creates a new API server
func NewServer(store IRecordStore, columns codec.Columns, config ServerConfig, metrics *metrics.Metrics) *Server {
	logger := config.Logger
	if logger == nil {
		logger = logging.WithComponent("api")
	}
	return &Server{
		store:   store,
		columns: columns,
		config:  config,
		metrics: metrics,
		indexes: index.NewIndexManager(columns),
		logger:  logger,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Stats(); err != nil {
		s.recordHealth(false)
		sendError(w, fmt.Sprintf("Store unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	s.recordHealth(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) recordHealth(ok bool) {
	if s.metrics != nil {
		s.metrics.RecordHealthCheck(ok)
	}
}

// handleListRecords returns every record. ?sort=<column> orders by a
// column (&order=desc reverses it) and ?field=<column>&value=<v> filters by
// exact match; both go through the in-memory index.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	field, sortBy := query.Get("field"), query.Get("sort")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if field == "" && sortBy == "" {
		rows, err := s.store.ReadStartToEnd()
		if err != nil {
			s.sendStoreError(w, "Failed to read records", err)
			return
		}
		records := make([]RecordResponse, len(rows))
		for i, row := range rows {
			records[i] = s.recordResponse(int64(i), row)
		}
		sendSuccess(w, records)
		return
	}

	var positions []int64
	if field != "" {
		col := s.columns.Index(field)
		if col < 0 {
			sendError(w, fmt.Sprintf("Unknown column %q", field), http.StatusBadRequest)
			return
		}
		value, err := codec.ParseField(s.columns[col].Type, query.Get("value"))
		if err != nil {
			sendError(w, fmt.Sprintf("Invalid value for %s: %v", field, err), http.StatusBadRequest)
			return
		}
		idx, err := s.lookupIndex(field)
		if err != nil {
			s.sendStoreError(w, "Failed to build index", err)
			return
		}
		positions = idx.Search(value)
	}

	if sortBy != "" {
		if s.columns.Index(sortBy) < 0 {
			sendError(w, fmt.Sprintf("Unknown column %q", sortBy), http.StatusBadRequest)
			return
		}
		idx, err := s.lookupIndex(sortBy)
		if err != nil {
			s.sendStoreError(w, "Failed to build index", err)
			return
		}
		positions = sortPositions(idx.Records(query.Get("order") == "desc"), positions, field != "")
	}

	records := make([]RecordResponse, 0, len(positions))
	for _, pos := range positions {
		row, err := s.store.ReadRecord(pos)
		if err != nil {
			s.sendStoreError(w, "Failed to read record", err)
			return
		}
		records = append(records, s.recordResponse(pos, row))
	}
	sendSuccess(w, records)
}

// sortPositions returns ordered, keeping only members of filter when
// filtered is set
func sortPositions(ordered, filter []int64, filtered bool) []int64 {
	if !filtered {
		return ordered
	}
	keep := make(map[int64]bool, len(filter))
	for _, p := range filter {
		keep[p] = true
	}
	out := make([]int64, 0, len(filter))
	for _, p := range ordered {
		if keep[p] {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) lookupIndex(column string) (*index.SecondaryIndex, error) {
	return s.indexes.Lookup(column, s.store.ReadStartToEnd)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, err := s.store.Stats()
	if err != nil {
		s.sendStoreError(w, "Failed to read file size", err)
		return
	}
	if s.metrics != nil {
		s.metrics.UpdateStoreStats(stats)
	}
	sendSuccess(w, CountResponse{
		Records:    stats.Records,
		RecordSize: stats.RecordSize,
		SizeBytes:  stats.SizeBytes,
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r)
	if !ok {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.store.SeekRecord(idx); err != nil {
		s.sendStoreError(w, "Failed to seek", err)
		return
	}
	row, err := s.store.Read()
	if err != nil {
		s.sendStoreError(w, "Failed to read record", err)
		return
	}
	sendSuccess(w, s.recordResponse(idx, row))
}

// handlePutRecord overwrites the record at index. Writing at the record
// count extends the file by one record; anything further would leave a gap.
func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r)
	if !ok {
		return
	}
	row, ok := s.decodeRow(w, r)
	if !ok {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.checkInsertable(w, idx) {
		return
	}
	if err := s.store.SeekRecord(idx); err != nil {
		s.sendStoreError(w, "Failed to seek", err)
		return
	}
	if err := s.store.Write(row); err != nil {
		s.sendStoreError(w, "Failed to write record", err)
		return
	}

	s.changed()
	sendSuccess(w, s.recordResponse(idx, row))
}

// handleCreateRecord writes a record after the last one
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	row, ok := s.decodeRow(w, r)
	if !ok {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	count, err := s.store.Count()
	if err != nil {
		s.sendStoreError(w, "Failed to count records", err)
		return
	}
	// a partial trailing record is overwritten
	if err := s.store.SeekRecord(count); err != nil {
		s.sendStoreError(w, "Failed to seek", err)
		return
	}
	if err := s.store.Write(row); err != nil {
		s.sendStoreError(w, "Failed to write record", err)
		return
	}

	s.changed()
	sendCreated(w, s.recordResponse(count, row))
}

// handleInsertRecord inserts a record before index, shifting later records up
func (s *Server) handleInsertRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r)
	if !ok {
		return
	}
	row, ok := s.decodeRow(w, r)
	if !ok {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.checkInsertable(w, idx) {
		return
	}
	if err := s.store.SeekRecord(idx); err != nil {
		s.sendStoreError(w, "Failed to seek", err)
		return
	}
	if err := s.store.Append(row); err != nil {
		s.sendStoreError(w, "Failed to insert record", err)
		return
	}

	s.changed()
	sendCreated(w, s.recordResponse(idx, row))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseIndex(w, r)
	if !ok {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.store.SeekRecord(idx); err != nil {
		s.sendStoreError(w, "Failed to seek", err)
		return
	}
	if err := s.store.Delete(); err != nil {
		s.sendStoreError(w, "Failed to delete record", err)
		return
	}

	s.changed()
	sendSuccess(w, map[string]string{"message": fmt.Sprintf("Record %d deleted", idx)})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if req.A == nil || req.B == nil || *req.A < 0 || *req.B < 0 {
		sendError(w, "Fields a and b must be non-negative record indexes", http.StatusBadRequest)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.store.Swap(*req.A, *req.B); err != nil {
		s.sendStoreError(w, "Failed to swap records", err)
		return
	}

	s.changed()
	sendSuccess(w, map[string]int64{"a": *req.A, "b": *req.B})
}

// checkInsertable rejects indexes past the end of the file
func (s *Server) checkInsertable(w http.ResponseWriter, idx int64) bool {
	count, err := s.store.Count()
	if err != nil {
		s.sendStoreError(w, "Failed to count records", err)
		return false
	}
	if idx > count {
		sendError(w, fmt.Sprintf("Record index %d is past the end (%d records)", idx, count), http.StatusNotFound)
		return false
	}
	return true
}

// changed runs after every successful mutation. Callers hold s.mutex.
func (s *Server) changed() {
	s.indexes.Invalidate()
	if s.metrics == nil {
		return
	}
	stats, err := s.store.Stats()
	if err != nil {
		s.logger.Warn("failed to refresh store stats", "error", err)
		return
	}
	s.metrics.UpdateStoreStats(stats)
}

func (s *Server) decodeRow(w http.ResponseWriter, r *http.Request) (codec.Row, bool) {
	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return nil, false
	}
	row, err := codec.RowFromMap(s.columns, body)
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid record: %v", err), http.StatusBadRequest)
		return nil, false
	}
	return row, true
}

func (s *Server) recordResponse(idx int64, row codec.Row) RecordResponse {
	return RecordResponse{Index: idx, Record: codec.RowToMap(s.columns, row)}
}

// sendStoreError maps a store failure to an HTTP status
func (s *Server) sendStoreError(w http.ResponseWriter, message string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(message, "kind", store.KindOf(err).String(), "error", err)
	}
	sendError(w, fmt.Sprintf("%s: %v", message, err), status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNoRecord):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrSchemaMismatch), errors.Is(err, codec.ErrFieldType):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idx, err := strconv.ParseInt(chi.URLParam(r, "index"), 10, 64)
	if err != nil || idx < 0 {
		sendError(w, errBadIndex.Error(), http.StatusBadRequest)
		return 0, false
	}
	return idx, true
}
