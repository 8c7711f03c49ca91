// Package httpx holds the JSON envelope and request helpers shared by the REST handlers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorBody struct {
	Code      apperror.Code  `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type ListData struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func JSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Message: message, Data: data})
}

// StatusOf maps an error code onto an HTTP status.
func StatusOf(code apperror.Code) int {
	switch code {
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeCycleRejected:
		return http.StatusConflict
	case apperror.CodeInvalidYield, apperror.CodeDepthExceeded:
		return http.StatusUnprocessableEntity
	case apperror.CodeConstraintViolation, apperror.CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an error envelope. Internal errors are logged and their
// text is not sent to the client.
func Error(w http.ResponseWriter, r *http.Request, log logger.ZapLogger, err error) {
	body := ErrorBody{
		Code:      apperror.CodeOf(err),
		Message:   err.Error(),
		RequestID: RequestID(r.Context()),
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Context
	}
	if errors.Is(err, context.DeadlineExceeded) {
		body.Message = "request timed out"
	}

	status := StatusOf(body.Code)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", body.RequestID),
			zap.Error(err),
		)
		if !errors.Is(err, context.DeadlineExceeded) {
			body.Message = "internal server error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Decode reads a JSON body into dst, rejecting unknown fields and trailing data.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.InvalidRequest("request body is empty")
		}
		return apperror.Wrap(apperror.CodeInvalidRequest, "malformed request body", err)
	}
	if dec.More() {
		return apperror.InvalidRequest("request body must contain a single JSON object")
	}
	return nil
}

// ParamID parses a positive integer route parameter.
func ParamID(ps httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.InvalidRequest("%s must be a positive integer", name)
	}
	return id, nil
}

// QueryInt returns the integer query parameter name, or fallback when absent.
func QueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperror.InvalidRequest("%s must be a non-negative integer", name)
	}
	return v, nil
}

// maxPage keeps (page-1)*page_size well inside an int64 OFFSET.
const maxPage = 100000

// Page reads page and page_size, defaulting to page 1 of 50.
func Page(r *http.Request) (page, pageSize int, err error) {
	if page, err = QueryInt(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if page == 0 {
		page = 1
	}
	if page > maxPage {
		return 0, 0, apperror.InvalidRequest("page must be at most %d", maxPage)
	}
	if pageSize, err = QueryInt(r, "page_size", 50); err != nil {
		return 0, 0, err
	}
	if pageSize > 500 {
		pageSize = 500
	}
	return page, pageSize, nil
}
