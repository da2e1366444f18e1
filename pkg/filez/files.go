package filez

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/filez-io/filez_sdk_go/internal/filezapi"
	"github.com/filez-io/filez_sdk_go/internal/httpx"
)

// Files lists the entries under a folder path in the enterprise space.
// Pages are numbered from 0.
func (c *Client) Files(ctx context.Context, path string, pageNum, pageSize int) (*FilePage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("filez: path is required")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.Files(ctx, token, path, pageNum, pageSize)
}

// FileByNeID fetches file metadata by node entry id. nsid defaults to 1.
func (c *Client) FileByNeID(ctx context.Context, nsid, neid int64) (*FileModel, error) {
	if neid <= 0 {
		return nil, fmt.Errorf("filez: neid is required")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.FileByNeID(ctx, token, normalizeNsID(nsid), neid)
}

// FileByPath fetches file metadata by enterprise-space path.
func (c *Client) FileByPath(ctx context.Context, path string) (*FileModel, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("filez: path is required")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.FileByPath(ctx, token, path)
}

// DeleteFile removes a file or folder by node entry id. nsid defaults to 1.
func (c *Client) DeleteFile(ctx context.Context, nsid, neid int64) error {
	if neid <= 0 {
		return fmt.Errorf("filez: neid is required")
	}
	token, err := c.bearer()
	if err != nil {
		return err
	}
	return c.backend.DeleteFile(ctx, token, normalizeNsID(nsid), neid)
}

// CreateFolder creates a folder, including missing parents. An empty
// pathType selects the enterprise space.
func (c *Client) CreateFolder(ctx context.Context, path, pathType string) (*FileModel, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("filez: path is required")
	}
	if pathType == "" {
		pathType = PathTypeEnterprise
	}
	if err := validatePathType(pathType); err != nil {
		return nil, err
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.CreateFolder(ctx, token, path, pathType)
}

// CopyFile copies the source entry into the destination folder.
func (c *Client) CopyFile(ctx context.Context, req CopyRequest) (*FileModel, error) {
	if err := c.validateCopy(&req); err != nil {
		return nil, err
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.CopyFile(ctx, token, req)
}

// MoveFile moves the source entry into the destination folder.
func (c *Client) MoveFile(ctx context.Context, req CopyRequest) error {
	if err := c.validateCopy(&req); err != nil {
		return err
	}
	token, err := c.bearer()
	if err != nil {
		return err
	}
	return c.backend.MoveFile(ctx, token, req)
}

func (c *Client) validateCopy(req *CopyRequest) error {
	if req.FromNeID <= 0 {
		return fmt.Errorf("filez: from neid is required")
	}
	if strings.TrimSpace(req.ToPath) == "" {
		return fmt.Errorf("filez: destination path is required")
	}
	req.FromNsID = normalizeNsID(req.FromNsID)
	if req.ToPathType == "" {
		req.ToPathType = PathTypeEnterprise
	}
	return validatePathType(req.ToPathType)
}

// UploadFile streams r to the destination path. filename names the uploaded
// part; toPath is the full destination path including the file name.
func (c *Client) UploadFile(ctx context.Context, r io.Reader, filename, toPath, pathType string) (*FileModel, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("filez: filename is required")
	}
	if strings.TrimSpace(toPath) == "" {
		return nil, fmt.Errorf("filez: destination path is required")
	}
	if pathType == "" {
		pathType = PathTypeEnterprise
	}
	if err := validatePathType(pathType); err != nil {
		return nil, err
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("filez: read upload payload: %w", err)
	}
	return c.backend.UploadFile(ctx, token, filename, data, toPath, pathType)
}

// UploadLocalFile uploads a file from the local filesystem, using its base
// name as the part name.
func (c *Client) UploadLocalFile(ctx context.Context, filePath, toPath, pathType string) (*FileModel, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("filez: open %s: %w", filePath, err)
	}
	defer f.Close()
	return c.UploadFile(ctx, f, filepath.Base(filePath), toPath, pathType)
}

// RenameFile renames the entry identified by fromNeID. nsid defaults to 1.
func (c *Client) RenameFile(ctx context.Context, nsid, fromNeID int64, toFileName string) error {
	if fromNeID <= 0 {
		return fmt.Errorf("filez: from neid is required")
	}
	if strings.TrimSpace(toFileName) == "" {
		return fmt.Errorf("filez: new file name is required")
	}
	token, err := c.bearer()
	if err != nil {
		return err
	}
	return c.backend.RenameFile(ctx, token, normalizeNsID(nsid), fromNeID, toFileName)
}

// FileHistory returns the revision history of a file. nsid defaults to 1.
func (c *Client) FileHistory(ctx context.Context, nsid, neid int64) ([]Revision, error) {
	if neid <= 0 {
		return nil, fmt.Errorf("filez: neid is required")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.FileHistory(ctx, token, normalizeNsID(nsid), neid)
}

// PreviewURL returns the browser preview URL for a file. nsid defaults to 1.
func (c *Client) PreviewURL(ctx context.Context, nsid, neid int64) (string, error) {
	if neid <= 0 {
		return "", fmt.Errorf("filez: neid is required")
	}
	token, err := c.bearer()
	if err != nil {
		return "", err
	}
	return c.backend.PreviewURL(ctx, token, normalizeNsID(nsid), neid)
}

// DownloadFile streams the file content into w and returns the byte count.
// nsid defaults to 1.
func (c *Client) DownloadFile(ctx context.Context, nsid, neid int64, w io.Writer) (int64, error) {
	if neid <= 0 {
		return 0, fmt.Errorf("filez: neid is required")
	}
	token, err := c.bearer()
	if err != nil {
		return 0, err
	}
	data, err := c.backend.DownloadFile(ctx, token, normalizeNsID(nsid), neid)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (b *httpBackend) Files(ctx context.Context, token string, path string, pageNum, pageSize int) (*FilePage, error) {
	form := url.Values{
		"path":      {path},
		"path_type": {PathTypeEnterprise},
		"page_num":  {strconv.Itoa(pageNum)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	var page FilePage
	if err := b.postForm(ctx, "api/file", token, form, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (b *httpBackend) FileByNeID(ctx context.Context, token string, nsid, neid int64) (*FileModel, error) {
	// The vendor route requires the trailing slash before the query.
	path := "api/file/" + strconv.FormatInt(neid, 10) + "/"
	query := url.Values{"nsid": {strconv.FormatInt(nsid, 10)}}
	var payload struct {
		FileModel FileModel `json:"fileModel"`
	}
	if err := b.getJSON(ctx, path, query, token, &payload); err != nil {
		return nil, err
	}
	return &payload.FileModel, nil
}

func (b *httpBackend) FileByPath(ctx context.Context, token string, path string) (*FileModel, error) {
	form := url.Values{
		"path":      {path},
		"path_type": {PathTypeEnterprise},
	}
	var payload struct {
		FileModel FileModel `json:"fileModel"`
	}
	if err := b.postForm(ctx, "api/file/path", token, form, &payload); err != nil {
		return nil, err
	}
	return &payload.FileModel, nil
}

func (b *httpBackend) DeleteFile(ctx context.Context, token string, nsid, neid int64) error {
	path := "api/file/" + strconv.FormatInt(neid, 10)
	query := url.Values{"nsid": {strconv.FormatInt(nsid, 10)}}
	// b.do validates the errcode envelope; nothing else to decode.
	_, err := b.do(ctx, http.MethodDelete, path, query, token, nil, "application/x-www-form-urlencoded")
	return err
}

func (b *httpBackend) CreateFolder(ctx context.Context, token string, path, pathType string) (*FileModel, error) {
	form := url.Values{
		"path":      {path},
		"path_type": {pathType},
	}
	var created FileModel
	if err := b.postForm(ctx, "api/file/folder", token, form, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (b *httpBackend) CopyFile(ctx context.Context, token string, req CopyRequest) (*FileModel, error) {
	var copied FileModel
	if err := b.postForm(ctx, "api/file/copy", token, copyForm(req), &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (b *httpBackend) MoveFile(ctx context.Context, token string, req CopyRequest) error {
	return b.postForm(ctx, "api/file/move", token, copyForm(req), nil)
}

func copyForm(req CopyRequest) url.Values {
	return url.Values{
		"nsid":         {strconv.FormatInt(req.FromNsID, 10)},
		"from_neid":    {strconv.FormatInt(req.FromNeID, 10)},
		"to_path":      {req.ToPath},
		"to_path_type": {req.ToPathType},
	}
}

func (b *httpBackend) UploadFile(ctx context.Context, token string, filename string, data []byte, toPath, pathType string) (*FileModel, error) {
	body, contentType, err := httpx.MultipartBody("filedata", filename, data, map[string]string{
		"path":      toPath,
		"path_type": pathType,
	})
	if err != nil {
		return nil, err
	}
	raw, err := b.do(ctx, http.MethodPost, "api/file/content", nil, token, body, contentType)
	if err != nil {
		return nil, err
	}
	var uploaded FileModel
	if err := filezapi.DecodeResult(raw, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

func (b *httpBackend) RenameFile(ctx context.Context, token string, nsid, fromNeID int64, toFileName string) error {
	form := url.Values{
		"nsid":         {strconv.FormatInt(nsid, 10)},
		"from_neid":    {strconv.FormatInt(fromNeID, 10)},
		"to_file_name": {toFileName},
	}
	return b.postForm(ctx, "api/file/rename", token, form, nil)
}

func (b *httpBackend) FileHistory(ctx context.Context, token string, nsid, neid int64) ([]Revision, error) {
	path := "api/file/" + strconv.FormatInt(neid, 10) + "/revision"
	query := url.Values{"nsid": {strconv.FormatInt(nsid, 10)}}
	var payload struct {
		Revisions []Revision `json:"revisionModelList"`
	}
	if err := b.getJSON(ctx, path, query, token, &payload); err != nil {
		return nil, err
	}
	return payload.Revisions, nil
}

func (b *httpBackend) PreviewURL(ctx context.Context, token string, nsid, neid int64) (string, error) {
	path := "api/preview/" + strconv.FormatInt(neid, 10)
	query := url.Values{"nsid": {strconv.FormatInt(nsid, 10)}}
	var payload struct {
		PreviewURL string `json:"previewUrl"`
	}
	if err := b.getJSON(ctx, path, query, token, &payload); err != nil {
		return "", err
	}
	return payload.PreviewURL, nil
}

func (b *httpBackend) DownloadFile(ctx context.Context, token string, nsid, neid int64) ([]byte, error) {
	query := url.Values{
		"neid": {strconv.FormatInt(neid, 10)},
		"nsid": {strconv.FormatInt(nsid, 10)},
	}
	// Download bodies are raw file bytes, not the JSON envelope.
	header := http.Header{"Authorization": {"Bearer " + token}}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "api/file/content/download",
		Query:  query,
		Header: header,
	})
	if err != nil {
		return nil, err
	}
	return httpx.ReadAllAndClose(resp.Body)
}
