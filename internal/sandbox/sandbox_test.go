package sandbox_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filez-io/filez_sdk_go/internal/sandbox"
	"github.com/filez-io/filez_sdk_go/pkg/filez"
)

func newSandbox(t *testing.T, opts sandbox.Options) (*sandbox.Server, *filez.MockBackend) {
	t.Helper()
	backend := filez.NewMockBackend()
	srv, err := sandbox.New(backend, opts)
	require.NoError(t, err)
	return srv, backend
}

func obtainToken(t *testing.T, handler http.Handler, key, secret string) string {
	t.Helper()
	form := url.Values{
		"grant_type": {"client_with_su"},
		"scope":      {"all"},
		"slug":       {"admin"},
	}
	req := httptest.NewRequest(http.MethodPost, "/v2/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if key != "" {
		req.SetBasicAuth(key, secret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.AccessToken)
	assert.Equal(t, "bearer", payload.TokenType)
	assert.Equal(t, int64(86400), payload.ExpiresIn)
	return payload.AccessToken
}

func TestTokenEndpointVerifiesCredentials(t *testing.T) {
	srv, _ := newSandbox(t, sandbox.Options{AppKey: "key", AppSecret: "secret"})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v2/oauth/token",
		strings.NewReader("grant_type=client_with_su&slug=admin"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	obtainToken(t, handler, "key", "secret")
}

func TestBearerRequiredOnAPIRoutes(t *testing.T) {
	srv, _ := newSandbox(t, sandbox.Options{})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v2/api/team", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v2/api/team", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssuedTokenCarriesExpiry(t *testing.T) {
	srv, _ := newSandbox(t, sandbox.Options{})
	token := obtainToken(t, srv.Handler(), "", "")

	// Three dot-separated segments, i.e. a real JWT rather than an opaque
	// string.
	assert.Len(t, strings.Split(token, "."), 3)
}

// TestClientAgainstSandbox drives the published SDK client against the
// sandbox over a real socket, covering the full round trip including JWT
// expiry extraction.
func TestClientAgainstSandbox(t *testing.T) {
	srv, backend := newSandbox(t, sandbox.Options{AppKey: "key", AppSecret: "secret"})

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("network disabled for tests: %v", err)
	}
	httpSrv := &http.Server{Handler: srv.Handler()}
	go httpSrv.Serve(ln)
	defer func() {
		httpSrv.Shutdown(context.Background())
		ln.Close()
	}()

	client, err := filez.New(filez.Config{
		AppKey:    "key",
		AppSecret: "secret",
		Host:      ln.Addr().String(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	token, err := client.Token(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, token.ExpiresAt, "sandbox JWTs carry an exp claim")
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *token.ExpiresAt, time.Minute)

	user, err := client.CreateUser(ctx, filez.UserInfo{
		Email:    "kate@example.com",
		Password: "pw",
		UserName: "Kate",
		UserSlug: "kate",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	profile, err := client.UserBySlug(ctx, "kate")
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.UID)

	users, err := client.Users(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, users.Total)
	assert.Equal(t, "kate", users.Users[0].UserSlug)

	_, err = backend.AddTeam("research", "", 0, 0, []string{"kate"})
	require.NoError(t, err)
	teams, err := client.Teams(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, teams.Total)
	members, err := client.TeamMembers(ctx, teams.Teams[0].ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, members.Total)

	content := []byte("sandbox payload")
	uploaded, err := client.UploadFile(ctx, bytes.NewReader(content), "a.txt", "/docs/a.txt", "ent")
	require.NoError(t, err)

	model, err := client.FileByNeID(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	assert.Equal(t, "/docs/a.txt", model.Path)

	listing, err := client.Files(ctx, "/docs", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Total)

	var buf bytes.Buffer
	n, err := client.DownloadFile(ctx, 0, uploaded.NeID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())

	history, err := client.FileHistory(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "create", history[0].Op)

	previewURL, err := client.PreviewURL(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	assert.Contains(t, previewURL, "neid=")

	results, err := client.GrantFile(ctx, 0, "ent", uploaded.NeID, []filez.Grant{
		{UID: user.ID, Privilege: filez.PrivilegeEdit},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	grants, err := client.FileGrants(ctx, 0, "ent", uploaded.NeID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Len(t, grants[0].AuthList, 1)
	assert.Equal(t, user.ID, grants[0].AuthList[0].AgentID)

	_, err = client.RevokeFile(ctx, 0, "ent", uploaded.NeID, []int64{user.ID})
	require.NoError(t, err)
	grants, err = client.FileGrants(ctx, 0, "ent", uploaded.NeID)
	require.NoError(t, err)
	assert.Empty(t, grants[0].AuthList)

	err = client.MoveFile(ctx, filez.CopyRequest{FromNeID: uploaded.NeID, ToPath: "/archive"})
	require.NoError(t, err)
	moved, err := client.FileByPath(ctx, "/archive/a.txt")
	require.NoError(t, err)
	assert.Equal(t, uploaded.NeID, moved.NeID)

	err = client.DeleteFile(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	_, err = client.FileByNeID(ctx, 0, uploaded.NeID)
	require.Error(t, err)
}

func TestFailureInjection(t *testing.T) {
	srv, _ := newSandbox(t, sandbox.Options{FailRate: 1, FailCode: http.StatusBadGateway})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v2/oauth/token",
		strings.NewReader("grant_type=client_with_su&slug=admin"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "failure injected")
}
