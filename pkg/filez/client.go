package filez

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/filez-io/filez_sdk_go/internal/filezapi"
	"github.com/filez-io/filez_sdk_go/internal/httpx"
)

// Client provides access to the Filez REST API. It is safe for concurrent
// use; the access token obtained via Token is shared across goroutines.
type Client struct {
	backend Backend

	mu    sync.RWMutex
	token *Token
	now   func() time.Time
}

// Backend is the transport seam between the typed client surface and the
// wire. Authorized operations receive the raw bearer token; the mock
// backend ignores it.
type Backend interface {
	Authenticate(ctx context.Context, slug string) (*Token, error)

	CreateUser(ctx context.Context, token string, user UserInfo) (*User, error)
	UserByID(ctx context.Context, token string, uid int64) (*User, error)
	UserBySlug(ctx context.Context, token string, slug string) (*UserProfile, error)
	Users(ctx context.Context, token string, pageNum, pageSize int) (*UserPage, error)

	Teams(ctx context.Context, token string) (*TeamPage, error)
	TeamByID(ctx context.Context, token string, tid int64) (*Team, error)
	TeamMembers(ctx context.Context, token string, tid int64, pageNum, pageSize int) (*MemberPage, error)

	Files(ctx context.Context, token string, path string, pageNum, pageSize int) (*FilePage, error)
	FileByNeID(ctx context.Context, token string, nsid, neid int64) (*FileModel, error)
	FileByPath(ctx context.Context, token string, path string) (*FileModel, error)
	DeleteFile(ctx context.Context, token string, nsid, neid int64) error
	CreateFolder(ctx context.Context, token string, path, pathType string) (*FileModel, error)
	CopyFile(ctx context.Context, token string, req CopyRequest) (*FileModel, error)
	MoveFile(ctx context.Context, token string, req CopyRequest) error
	UploadFile(ctx context.Context, token string, filename string, data []byte, toPath, pathType string) (*FileModel, error)
	RenameFile(ctx context.Context, token string, nsid, fromNeID int64, toFileName string) error
	FileHistory(ctx context.Context, token string, nsid, neid int64) ([]Revision, error)
	PreviewURL(ctx context.Context, token string, nsid, neid int64) (string, error)
	DownloadFile(ctx context.Context, token string, nsid, neid int64) ([]byte, error)

	GrantFile(ctx context.Context, token string, nsid int64, pathType string, neid int64, grants []Grant) ([]AuthResult, error)
	RevokeFile(ctx context.Context, token string, nsid int64, pathType string, neid int64, uids []int64) ([]AuthResult, error)
	FileGrants(ctx context.Context, token string, nsid int64, pathType string, neid int64) ([]AuthFile, error)
}

// New constructs an HTTP-backed client from the supplied configuration.
func New(cfg Config, opts ...httpx.Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cl, err := httpx.NewClient(cfg.BaseURL(), opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		backend: &httpBackend{
			client:    cl,
			appKey:    cfg.AppKey,
			appSecret: cfg.AppSecret,
		},
		now: time.Now,
	}, nil
}

// NewWithHTTPClient wraps an existing httpx.Client. The app key and secret
// are still required for the token exchange.
func NewWithHTTPClient(httpClient *httpx.Client, appKey, appSecret string) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("filez: http client is nil")
	}
	if strings.TrimSpace(appKey) == "" || strings.TrimSpace(appSecret) == "" {
		return nil, errors.New("filez: app key and app secret are required")
	}
	return &Client{
		backend: &httpBackend{client: httpClient, appKey: appKey, appSecret: appSecret},
		now:     time.Now,
	}, nil
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b, now: time.Now}
}

// SetToken injects an externally obtained token.
func (c *Client) SetToken(token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// CurrentToken returns the stored token, or nil when unauthenticated.
func (c *Client) CurrentToken() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) bearer() (string, error) {
	if c == nil || c.backend == nil {
		return "", errors.New("filez: client is nil")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil || c.token.AccessToken == "" {
		return "", ErrNoToken
	}
	if c.token.Expired(c.now()) {
		return "", ErrTokenExpired
	}
	return c.token.AccessToken, nil
}

func normalizeNsID(nsid int64) int64 {
	if nsid <= 0 {
		return DefaultNsID
	}
	return nsid
}

func validatePathType(pathType string) error {
	if pathType != PathTypeEnterprise && pathType != PathTypePersonal {
		return fmt.Errorf("%w: %q", ErrInvalidPathType, pathType)
	}
	return nil
}

type httpBackend struct {
	client    *httpx.Client
	appKey    string
	appSecret string
}

// do runs one authorized request and returns the validated response body.
func (b *httpBackend) do(ctx context.Context, method, path string, query url.Values, token string, body []byte, contentType string) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("filez: http backend not configured")
	}
	header := make(http.Header)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := filezapi.Check(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (b *httpBackend) postForm(ctx context.Context, path, token string, form url.Values, out any) error {
	body, contentType := httpx.FormBody(form)
	data, err := b.do(ctx, http.MethodPost, path, nil, token, body, contentType)
	if err != nil {
		return err
	}
	return filezapi.DecodeResult(data, out)
}

func (b *httpBackend) getJSON(ctx context.Context, path string, query url.Values, token string, out any) error {
	data, err := b.do(ctx, http.MethodGet, path, query, token, nil, "")
	if err != nil {
		return err
	}
	return filezapi.DecodeResult(data, out)
}
