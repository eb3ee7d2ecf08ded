package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/fileparse/internal/cli"
	"github.com/hyperjump/fileparse/internal/decode"
	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/parser"
)

const (
	headerParseID   = "X-Parse-ID"
	contentTypeJSON = "application/json"
	contentTypeNDJ  = "application/x-ndjson"
)

type formatInfo struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	Binary     bool     `json:"binary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	all := format.All()
	out := make([]formatInfo, 0, len(all))
	for _, f := range all {
		exts := f.Extensions()
		if exts == nil {
			exts = []string{}
		}
		out = append(out, formatInfo{Name: f.String(), Extensions: exts, Binary: f.Binary()})
	}
	s.respondJSON(w, http.StatusOK, out)
}

// parseRequest holds the query parameters of POST /api/v1/parse.
type parseRequest struct {
	filename string
	encoding string
	stream   bool
	opts     parser.Options
}

func (s *Server) readParseRequest(r *http.Request) (*parseRequest, error) {
	q := r.URL.Query()
	req := &parseRequest{
		filename: q.Get("filename"),
		encoding: s.config.Parse.Encoding,
		stream:   true,
		opts:     parser.Options{Format: q.Get("format")},
	}
	if v := q.Get("encoding"); v != "" {
		req.encoding = v
	}
	delim := s.config.Parse.Delimiter
	if v := q.Get("delimiter"); v != "" {
		delim = v
	}
	if delim != "" {
		d, err := decode.ParseDelimiter(delim)
		if err != nil {
			return nil, err
		}
		req.opts.Delimiter = d
	}
	if v := q.Get("fixed_schema"); v != "" {
		schema, err := decode.ParseSchema(v)
		if err != nil {
			return nil, err
		}
		req.opts.Schema = schema
	}
	if v := q.Get("stream"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errInvalidStream
		}
		req.stream = b
	}
	return req, nil
}

var errInvalidStream = errors.New("stream must be true or false")

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	id := uuid.New().String()
	w.Header().Set(headerParseID, id)
	log := s.logger.With(zap.String("parse_id", id))

	req, err := s.readParseRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit := s.config.Server.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	log.Debug("parse request",
		zap.String("filename", req.filename),
		zap.String("format", req.opts.Format),
		zap.String("encoding", req.encoding),
		zap.Bool("stream", req.stream),
	)

	fp := parser.New(parser.WithEncoding(req.encoding), parser.WithLogger(log))
	src := parser.NamedStream(r.Body, req.filename)

	if !req.stream {
		recs, err := fp.ParseAll(src, req.opts)
		if err != nil {
			s.respondParseError(w, log, err)
			return
		}
		s.respondJSON(w, http.StatusOK, recs)
		return
	}

	recs, err := fp.Parse(src, req.opts)
	if err != nil {
		s.respondParseError(w, log, err)
		return
	}
	defer recs.Close()

	// The status line is held back until the first record so that failures
	// before any output still get a proper error status.
	if !recs.Next() {
		if err := recs.Err(); err != nil {
			s.respondParseError(w, log, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeNDJ)
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", contentTypeNDJ)
	w.WriteHeader(http.StatusOK)
	out := cli.NewRecordWriter(w, cli.OutputJSONL)
	flusher, _ := w.(http.Flusher)
	for ok := true; ok; ok = recs.Next() {
		if err := r.Context().Err(); err != nil {
			log.Debug("client gone", zap.Error(err), zap.Int("records", recs.Count()))
			return
		}
		if err := out.Write(recs.Record()); err != nil {
			log.Debug("client write failed", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := recs.Err(); err != nil {
		log.Warn("parse failed mid-stream", zap.Error(err), zap.Int("records", recs.Count()))
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	}
	_ = out.Close()
}

func (s *Server) respondParseError(w http.ResponseWriter, log *zap.Logger, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case parser.IsConfigError(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		s.respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		log.Info("parse failed", zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
