package filezapi

import (
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  bool
	}{
		{
			name: "ok envelope",
			body: `{"errcode":0,"errmsg":"ok","id":150}`,
		},
		{
			name:     "vendor failure",
			body:     `{"errcode":40301,"errmsg":"no permission"}`,
			wantCode: 40301,
			wantErr:  true,
		},
		{
			name: "no envelope passthrough",
			body: `{"access_token":"abc","expires_in":3600}`,
		},
		{
			name: "empty body",
			body: ``,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := Check([]byte(tc.body))
			if tc.wantErr {
				var apiErr *Error
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected *Error, got %v", err)
				}
				if apiErr.Code != tc.wantCode {
					t.Fatalf("unexpected code: expected %d, got %d", tc.wantCode, apiErr.Code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check returned error: %v", err)
			}
		})
	}
}

func TestCheckMalformedBody(t *testing.T) {
	if err := Check([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestDecodeResult(t *testing.T) {
	body := []byte(`{"errcode":0,"errmsg":"ok","total":2,"userList":[{"id":5},{"id":123}]}`)
	var payload struct {
		Total    int `json:"total"`
		UserList []struct {
			ID int64 `json:"id"`
		} `json:"userList"`
	}
	if err := DecodeResult(body, &payload); err != nil {
		t.Fatalf("DecodeResult error: %v", err)
	}
	if payload.Total != 2 || len(payload.UserList) != 2 || payload.UserList[1].ID != 123 {
		t.Fatalf("DecodeResult mismatch: %+v", payload)
	}

	err := DecodeResult([]byte(`{"errcode":500,"errmsg":"boom"}`), &payload)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Fatalf("expected vendor error, got %v", err)
	}

	var empty struct{}
	if err := DecodeResult(nil, &empty); err != nil {
		t.Fatalf("DecodeResult nil body: %v", err)
	}
}
