package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
)

// ErrNotAuthenticated is returned when no usable credentials are configured.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a failure reported by a Google Analytics API endpoint.
type APIError struct {
	HTTPStatus int
	Code       codes.Code
	Status     string // canonical status name, e.g. INVALID_ARGUMENT
	Message    string
	RetryAfter string // Retry-After header value, if any
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.HTTPStatus, e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.HTTPStatus)
}

type errorEnvelope struct {
	Error struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Status  json.RawMessage `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay"`
		} `json:"details"`
	} `json:"error"`
}

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

// newAPIError decodes a Google JSON error body. Bodies that are not in the
// standard envelope still produce an error keyed off the HTTP status.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		HTTPStatus: resp.StatusCode,
		Code:       codeFromHTTPStatus(resp.StatusCode),
		Message:    resp.Status,
		RetryAfter: resp.Header.Get("Retry-After"),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	if envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
	}
	if len(envelope.Error.Status) > 0 {
		var code codes.Code
		if err := code.UnmarshalJSON(envelope.Error.Status); err == nil {
			apiErr.Code = code
		}
		apiErr.Status = strings.Trim(string(envelope.Error.Status), `"`)
	}

	// Prefer the header, fall back to a RetryInfo detail such as "30s"
	if apiErr.RetryAfter == "" {
		for _, detail := range envelope.Error.Details {
			if detail.Type != retryInfoType {
				continue
			}
			if delay, err := time.ParseDuration(detail.RetryDelay); err == nil {
				apiErr.RetryAfter = strconv.Itoa(int(delay.Seconds()))
			}
		}
	}

	return apiErr
}

func codeFromHTTPStatus(status int) codes.Code {
	switch status {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Unknown
	}
}
