package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"taxsun/internal/errors"
	"taxsun/internal/fasta"
	"taxsun/internal/hits"
	"taxsun/internal/storage"
)

// uploadField is the multipart field carrying the uploaded file.
const uploadField = "file"

// FAAResponse maps FASTA headers to their sequences
type FAAResponse struct {
	FAAObj map[string]string `json:"faaObj"`
}

// handleLoadTSV handles POST /load_tsv_data: a multipart hit table in, the
// aggregation result out.
func (s *Server) handleLoadTSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	data, err := s.readUpload(w, r)
	if err == nil {
		var body []byte
		body, err = s.aggregate(r.Context(), data)
		if err == nil {
			s.metrics.observeDataset("load_tsv_data", nil)
			writeRawJSON(w, body, http.StatusOK)
			return
		}
	}

	s.metrics.observeDataset("load_tsv_data", err)
	s.logger.Warn("Hit table rejected",
		"error", err,
		"requestID", GetRequestID(r.Context()),
	)
	WriteError(w, err)
}

// aggregate returns the encoded result for an uploaded hit table. Results are
// cached by content, and identical uploads in flight share one run.
func (s *Server) aggregate(ctx context.Context, data []byte) ([]byte, error) {
	key := storage.CacheKey(
		[]byte("load_tsv_data"),
		[]byte(strings.Join(s.engine.RankPattern(), "\t")),
		data,
	)
	caching := s.cache != nil && s.opts.CacheTTL > 0

	if caching {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Result cache read failed", "error", err)
		} else {
			s.metrics.observeCache(ok)
			if ok {
				return body, nil
			}
		}
	}

	ch := s.uploads.DoChan(key, func() (interface{}, error) {
		// Shared by every waiter, so one client leaving must not cancel it.
		ctx := context.WithoutCancel(ctx)
		start := time.Now()

		header, lines := hits.SplitUpload(data)
		res, err := s.engine.Run(ctx, header, lines)
		if err != nil {
			return nil, err
		}
		s.metrics.observeResult(res.Summary(), time.Since(start))

		body, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		if caching {
			if err := s.cache.Set(ctx, key, body, s.opts.CacheTTL); err != nil {
				s.logger.Warn("Result cache write failed", "error", err)
			}
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// handleLoadFAA handles POST /load_faa_data
func (s *Server) handleLoadFAA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		s.metrics.observeDataset("load_faa_data", err)
		WriteError(w, err)
		return
	}

	seqs, err := fasta.Split(bytes.NewReader(data))
	s.metrics.observeDataset("load_faa_data", err)
	if err != nil {
		InternalError(w, "failed to read FASTA upload", err)
		return
	}
	WriteJSON(w, FAAResponse{FAAObj: seqs}, http.StatusOK)
}

// readUpload returns the contents of the multipart "file" field, enforcing
// the configured size limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := s.opts.MaxUploadBytes
	if r.ContentLength > limit {
		return nil, tooLarge(limit, nil)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, uploadError(err, limit)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err, limit)
	}
	return data, nil
}

func uploadError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return tooLarge(limit, err)
	case err == http.ErrMissingFile:
		return errors.Newf(errors.InvalidRequest, "multipart field %q is required", uploadField)
	default:
		return errors.New(errors.InvalidRequest, "invalid multipart upload", err)
	}
}

func tooLarge(limit int64, cause error) error {
	return errors.New(errors.UploadTooLarge, fmt.Sprintf("upload exceeds %d bytes", limit), cause).
		WithDetails(map[string]interface{}{"maxBytes": limit})
}
