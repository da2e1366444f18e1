package filezapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Error is a Filez application-level failure: the HTTP exchange succeeded but
// the response envelope carries a non-zero errcode.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("filez: errcode=%d errmsg=%q", e.Code, e.Message)
}

type envelope struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Check inspects the errcode/errmsg envelope present on every Filez JSON
// response. Bodies without an errcode field pass through unchecked (the
// OAuth token endpoint does not use the envelope).
func Check(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return fmt.Errorf("filez: decode response envelope: %w", err)
	}
	if env.ErrCode != nil && *env.ErrCode != 0 {
		return &Error{Code: *env.ErrCode, Message: env.ErrMsg}
	}
	return nil
}

// DecodeResult validates the envelope and decodes the body into out.
func DecodeResult(body []byte, out any) error {
	if err := Check(body); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}
	return json.Unmarshal(trimmed, out)
}
