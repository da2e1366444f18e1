package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPError is a non-2xx response from the Filez API. When the body is the
// vendor's JSON envelope, VendorCode and VendorMessage carry its
// errcode/errmsg so callers can report the application failure instead of
// the raw body.
type HTTPError struct {
	StatusCode    int
	Body          []byte
	Header        http.Header
	VendorCode    int
	VendorMessage string

	// RetryAfter is the server-requested delay from the Retry-After
	// header, zero when absent.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.VendorMessage != "" {
		return fmt.Sprintf("http error: status=%d errcode=%d errmsg=%q", e.StatusCode, e.VendorCode, e.VendorMessage)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Retryable reports whether the failure is worth another attempt: throttling,
// request timeouts and server-side errors.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}

// newHTTPError builds an HTTPError from a drained response, extracting the
// vendor envelope and the Retry-After header when present.
func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	e := &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	var env struct {
		ErrCode *int   `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.ErrCode != nil {
		e.VendorCode = *env.ErrCode
		e.VendorMessage = env.ErrMsg
	}
	return e
}

// parseRetryAfter accepts both forms the header allows: delay seconds and an
// HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
