// Package sandbox serves the Filez REST surface over the in-memory mock
// backend, so applications can be exercised locally without vendor
// credentials. It issues real HS256-signed JWTs from /oauth/token and
// verifies them on every authorized route.
package sandbox

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	mrand "math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"

	"github.com/filez-io/filez_sdk_go/pkg/filez"
)

// Vendor-style application error codes used in the response envelope.
const (
	codeBadRequest   = 40001
	codeUnauthorized = 40101
	codeNotFound     = 40400
	codeConflict     = 40901
)

const tokenTTL = 24 * time.Hour

// Options tunes the sandbox server.
type Options struct {
	// AppKey/AppSecret guard /oauth/token via Basic auth. Empty values
	// disable the check.
	AppKey    string
	AppSecret string

	// Latency is added to every request before it is handled.
	Latency time.Duration
	// FailRate injects random failures: the fraction of requests answered
	// with FailCode (500 when unset).
	FailRate float64
	FailCode int
}

// Server exposes the mock backend over HTTP.
type Server struct {
	backend *filez.MockBackend
	opts    Options
	secret  []byte
	router  chi.Router
}

// New wires the routes for the supplied backend.
func New(backend *filez.MockBackend, opts Options) (*Server, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("sandbox: generate signing secret: %w", err)
	}
	s := &Server{
		backend: backend,
		opts:    opts,
		secret:  secret,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.injectFaults)

	r.Route("/v2", func(r chi.Router) {
		r.Post("/oauth/token", s.handleToken)

		r.Group(func(r chi.Router) {
			r.Use(s.requireBearer)

			r.Post("/user", s.handleCreateUser)
			r.Get("/api/user/", s.handleListUsers)
			r.Get("/api/user/slug", s.handleUserBySlug)
			r.Get("/api/user/{uid}", s.handleUserByID)

			r.Get("/api/team", s.handleListTeams)
			r.Get("/api/team/{tid}", s.handleTeamByID)
			r.Get("/api/teamuser/{tid}/users", s.handleTeamMembers)

			r.Post("/api/file", s.handleListFiles)
			r.Post("/api/file/path", s.handleFileByPath)
			r.Post("/api/file/folder", s.handleCreateFolder)
			r.Post("/api/file/copy", s.handleCopyFile)
			r.Post("/api/file/move", s.handleMoveFile)
			r.Post("/api/file/content", s.handleUploadFile)
			r.Post("/api/file/rename", s.handleRenameFile)
			r.Get("/api/file/content/download", s.handleDownloadFile)
			r.Get("/api/file/{neid}/", s.handleFileByNeID)
			r.Get("/api/file/{neid}/revision", s.handleFileHistory)
			r.Delete("/api/file/{neid}", s.handleDeleteFile)
			r.Get("/api/preview/{neid}", s.handlePreviewURL)

			r.Post("/api/auth/batch_create", s.handleGrantFile)
			r.Delete("/api/auth/batch_delete", s.handleRevokeFile)
			r.Post("/api/auth/list", s.handleFileGrants)
		})
	})

	s.router = r
	return s, nil
}

// Handler returns the HTTP handler for the sandbox routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Latency > 0 {
			time.Sleep(s.opts.Latency)
		}
		if s.opts.FailRate > 0 && mrand.Float64() < s.opts.FailRate {
			status := s.opts.FailCode
			if status == 0 {
				status = http.StatusInternalServerError
			}
			http.Error(w, "failure injected", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.opts.AppKey != "" {
		key, secret, ok := r.BasicAuth()
		if !ok || key != s.opts.AppKey || secret != s.opts.AppSecret {
			s.unauthorized(w, r, "invalid app credentials")
			return
		}
	}
	if err := r.ParseForm(); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	if grant := r.PostForm.Get("grant_type"); grant != "client_with_su" {
		s.vendorError(w, r, codeBadRequest, fmt.Sprintf("unsupported grant_type %q", grant))
		return
	}
	slug := r.PostForm.Get("slug")
	if strings.TrimSpace(slug) == "" {
		s.vendorError(w, r, codeBadRequest, "slug is required")
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   slug,
		"scope": r.PostForm.Get("scope"),
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "sign token: "+err.Error())
		return
	}

	// The token endpoint does not use the errcode envelope.
	render.JSON(w, r, map[string]any{
		"access_token": signed,
		"token_type":   "bearer",
		"expires_in":   int64(tokenTTL / time.Second),
		"scope":        r.PostForm.Get("scope"),
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.unauthorized(w, r, "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			s.unauthorized(w, r, "invalid token: "+err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	info := filez.UserInfo{
		Email:    r.PostForm.Get("email"),
		Mobile:   r.PostForm.Get("mobile"),
		Password: r.PostForm.Get("password"),
		UserName: r.PostForm.Get("user_name"),
		UserSlug: r.PostForm.Get("user_slug"),
	}
	if raw := r.PostForm.Get("quota"); raw != "" {
		quota, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.vendorError(w, r, codeBadRequest, "invalid quota")
			return
		}
		info.Quota = &quota
	}
	if raw := r.PostForm.Get("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			s.vendorError(w, r, codeBadRequest, "invalid status")
			return
		}
		info.Status = &status
	}
	user, err := s.backend.CreateUser(r.Context(), "", info)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, user)
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	uid, err := pathInt64(r, "uid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid uid")
		return
	}
	user, err := s.backend.UserByID(r.Context(), "", uid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, user)
}

func (s *Server) handleUserBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("user_slug")
	if slug == "" {
		s.vendorError(w, r, codeBadRequest, "user_slug is required")
		return
	}
	profile, err := s.backend.UserBySlug(r.Context(), "", slug)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, profile)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize := pageQuery(r)
	page, err := s.backend.Users(r.Context(), "", pageNum, pageSize)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, page)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	page, err := s.backend.Teams(r.Context(), "")
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, page)
}

func (s *Server) handleTeamByID(w http.ResponseWriter, r *http.Request) {
	tid, err := pathInt64(r, "tid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid tid")
		return
	}
	team, err := s.backend.TeamByID(r.Context(), "", tid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, team)
}

func (s *Server) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	tid, err := pathInt64(r, "tid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid tid")
		return
	}
	pageNum, pageSize := pageQuery(r)
	page, err := s.backend.TeamMembers(r.Context(), "", tid, pageNum, pageSize)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, page)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	pageNum, _ := strconv.Atoi(r.PostForm.Get("page_num"))
	pageSize, _ := strconv.Atoi(r.PostForm.Get("page_size"))
	page, err := s.backend.Files(r.Context(), "", r.PostForm.Get("path"), pageNum, pageSize)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, page)
}

func (s *Server) handleFileByNeID(w http.ResponseWriter, r *http.Request) {
	neid, err := pathInt64(r, "neid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid neid")
		return
	}
	model, err := s.backend.FileByNeID(r.Context(), "", nsidQuery(r), neid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"fileModel": model})
}

func (s *Server) handleFileByPath(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	model, err := s.backend.FileByPath(r.Context(), "", r.PostForm.Get("path"))
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"fileModel": model})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	neid, err := pathInt64(r, "neid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid neid")
		return
	}
	if err := s.backend.DeleteFile(r.Context(), "", nsidQuery(r), neid); err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, nil)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	model, err := s.backend.CreateFolder(r.Context(), "", r.PostForm.Get("path"), r.PostForm.Get("path_type"))
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, model)
}

func (s *Server) handleCopyFile(w http.ResponseWriter, r *http.Request) {
	req, err := copyRequestFromForm(r)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, err.Error())
		return
	}
	model, err := s.backend.CopyFile(r.Context(), "", req)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, model)
}

func (s *Server) handleMoveFile(w http.ResponseWriter, r *http.Request) {
	req, err := copyRequestFromForm(r)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, err.Error())
		return
	}
	if err := s.backend.MoveFile(r.Context(), "", req); err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, nil)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("filedata")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "filedata part is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "read filedata: "+err.Error())
		return
	}
	model, err := s.backend.UploadFile(r.Context(), "", header.Filename, data,
		r.FormValue("path"), r.FormValue("path_type"))
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, model)
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	fromNeID, err := strconv.ParseInt(r.PostForm.Get("from_neid"), 10, 64)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid from_neid")
		return
	}
	nsid, _ := strconv.ParseInt(r.PostForm.Get("nsid"), 10, 64)
	if err := s.backend.RenameFile(r.Context(), "", nsid, fromNeID, r.PostForm.Get("to_file_name")); err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, nil)
}

func (s *Server) handleFileHistory(w http.ResponseWriter, r *http.Request) {
	neid, err := pathInt64(r, "neid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid neid")
		return
	}
	history, err := s.backend.FileHistory(r.Context(), "", nsidQuery(r), neid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"revisionModelList": history})
}

func (s *Server) handlePreviewURL(w http.ResponseWriter, r *http.Request) {
	neid, err := pathInt64(r, "neid")
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid neid")
		return
	}
	previewURL, err := s.backend.PreviewURL(r.Context(), "", nsidQuery(r), neid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"previewUrl": previewURL})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	neid, err := strconv.ParseInt(r.URL.Query().Get("neid"), 10, 64)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid neid")
		return
	}
	nsid, _ := strconv.ParseInt(r.URL.Query().Get("nsid"), 10, 64)
	data, err := s.backend.DownloadFile(r.Context(), "", nsid, neid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// authAgent mirrors the auth_list/delete_list JSON elements of the vendor's
// batch grant endpoints.
type authAgent struct {
	AgentID       int64  `json:"agentId"`
	AgentType     string `json:"agentType"`
	PrivilegeType int    `json:"privilegeType"`
}

func (s *Server) handleGrantFile(w http.ResponseWriter, r *http.Request) {
	form, err := formBody(r)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	neid, nsid, pathType, err := authTarget(form)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, err.Error())
		return
	}
	var agents []authAgent
	if err := json.Unmarshal([]byte(form.Get("auth_list")), &agents); err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid auth_list")
		return
	}
	grants := make([]filez.Grant, 0, len(agents))
	for _, a := range agents {
		grants = append(grants, filez.Grant{UID: a.AgentID, Privilege: filez.Privilege(a.PrivilegeType)})
	}
	results, err := s.backend.GrantFile(r.Context(), "", nsid, pathType, neid, grants)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"authModelList": results})
}

func (s *Server) handleRevokeFile(w http.ResponseWriter, r *http.Request) {
	form, err := formBody(r)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	neid, nsid, pathType, err := authTarget(form)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, err.Error())
		return
	}
	var agents []authAgent
	if err := json.Unmarshal([]byte(form.Get("delete_list")), &agents); err != nil {
		s.vendorError(w, r, codeBadRequest, "invalid delete_list")
		return
	}
	uids := make([]int64, 0, len(agents))
	for _, a := range agents {
		uids = append(uids, a.AgentID)
	}
	results, err := s.backend.RevokeFile(r.Context(), "", nsid, pathType, neid, uids)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"resultList": results})
}

func (s *Server) handleFileGrants(w http.ResponseWriter, r *http.Request) {
	form, err := formBody(r)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, "malformed form body")
		return
	}
	neid, nsid, pathType, err := authTarget(form)
	if err != nil {
		s.vendorError(w, r, codeBadRequest, err.Error())
		return
	}
	grants, err := s.backend.FileGrants(r.Context(), "", nsid, pathType, neid)
	if err != nil {
		s.backendError(w, r, err)
		return
	}
	s.ok(w, r, map[string]any{"authFileList": grants})
}

// ok renders payload merged into the errcode/errmsg envelope.
func (s *Server) ok(w http.ResponseWriter, r *http.Request, payload any) {
	body := map[string]any{"errcode": 0, "errmsg": "ok"}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			s.vendorError(w, r, codeBadRequest, "encode response: "+err.Error())
			return
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			s.vendorError(w, r, codeBadRequest, "encode response: "+err.Error())
			return
		}
		for k, v := range fields {
			body[k] = v
		}
	}
	render.JSON(w, r, body)
}

func (s *Server) vendorError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	// Application failures travel in the envelope with HTTP 200, matching
	// the vendor's behaviour.
	render.JSON(w, r, map[string]any{"errcode": code, "errmsg": msg})
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]any{"errcode": codeUnauthorized, "errmsg": msg})
}

func (s *Server) backendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, filez.ErrNotFound):
		s.vendorError(w, r, codeNotFound, err.Error())
	case strings.Contains(err.Error(), "already exists"):
		s.vendorError(w, r, codeConflict, err.Error())
	default:
		s.vendorError(w, r, codeBadRequest, err.Error())
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func nsidQuery(r *http.Request) int64 {
	nsid, err := strconv.ParseInt(r.URL.Query().Get("nsid"), 10, 64)
	if err != nil {
		return filez.DefaultNsID
	}
	return nsid
}

func pageQuery(r *http.Request) (int, int) {
	q := r.URL.Query()
	pageNum, _ := strconv.Atoi(q.Get("page_num"))
	pageSize, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || pageSize <= 0 || pageSize > math.MaxInt32 {
		pageSize = 20
	}
	return pageNum, pageSize
}

// formBody parses form payloads regardless of method; Go's ParseForm skips
// DELETE bodies, which the batch_delete endpoint relies on.
func formBody(r *http.Request) (url.Values, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(string(raw))
}

func copyRequestFromForm(r *http.Request) (filez.CopyRequest, error) {
	if err := r.ParseForm(); err != nil {
		return filez.CopyRequest{}, errors.New("malformed form body")
	}
	fromNeID, err := strconv.ParseInt(r.PostForm.Get("from_neid"), 10, 64)
	if err != nil {
		return filez.CopyRequest{}, errors.New("invalid from_neid")
	}
	nsid, _ := strconv.ParseInt(r.PostForm.Get("nsid"), 10, 64)
	return filez.CopyRequest{
		FromNsID:   nsid,
		FromNeID:   fromNeID,
		ToPath:     r.PostForm.Get("to_path"),
		ToPathType: r.PostForm.Get("to_path_type"),
	}, nil
}

func authTarget(form url.Values) (neid, nsid int64, pathType string, err error) {
	var files []struct {
		NeID int64 `json:"neid"`
	}
	if err := json.Unmarshal([]byte(form.Get("file_list")), &files); err != nil || len(files) == 0 {
		return 0, 0, "", errors.New("invalid file_list")
	}
	nsid, parseErr := strconv.ParseInt(form.Get("nsid"), 10, 64)
	if parseErr != nil {
		nsid = filez.DefaultNsID
	}
	pathType = form.Get("path_type")
	if pathType == "" {
		pathType = filez.PathTypeEnterprise
	}
	return files[0].NeID, nsid, pathType, nil
}
