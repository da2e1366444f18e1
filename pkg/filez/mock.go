package filez

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/filez-io/filez_sdk_go/internal/devseed"
)

// MockBackend emulates a Filez deployment in memory: users, teams, two file
// spaces ("ent" and "self") with revision history, and per-file grants. It
// backs NewFromEnv's mock mode and the filez-sandbox command.
type MockBackend struct {
	mu sync.RWMutex

	users     map[int64]*User
	userSlugs map[string]int64
	nextUID   int64

	teams       map[int64]*Team
	teamMembers map[int64][]TeamMember
	nextTID     int64

	files     map[string]map[string]*mockFile // path type -> normalized path -> entry
	neidIndex map[int64]*mockFile
	nextNeID  int64

	grants     map[int64]map[int64]Privilege // neid -> uid -> privilege
	nextAuthID int64

	now func() time.Time
}

type mockFile struct {
	neid       int64
	nsid       int64
	pathType   string
	path       string
	dir        bool
	data       []byte
	rev        string
	creatorUID int64
	updatorUID int64
	modified   time.Time
	revisions  []Revision
}

var _ Backend = (*MockBackend)(nil)

// NewMockBackend returns an empty in-memory deployment with the root
// folders of both spaces in place.
func NewMockBackend() *MockBackend {
	m := &MockBackend{
		users:       make(map[int64]*User),
		userSlugs:   make(map[string]int64),
		teams:       make(map[int64]*Team),
		teamMembers: make(map[int64][]TeamMember),
		files: map[string]map[string]*mockFile{
			PathTypeEnterprise: make(map[string]*mockFile),
			PathTypePersonal:   make(map[string]*mockFile),
		},
		neidIndex: make(map[int64]*mockFile),
		grants:    make(map[int64]map[int64]Privilege),
		nextNeID:  1600000000000000000,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, pt := range []string{PathTypeEnterprise, PathTypePersonal} {
		root := &mockFile{
			neid:     m.allocNeID(),
			nsid:     DefaultNsID,
			pathType: pt,
			path:     "/",
			dir:      true,
			modified: m.now(),
		}
		m.files[pt]["/"] = root
		m.neidIndex[root.neid] = root
	}
	return m
}

// Seed loads a devseed dataset into the backend.
func (m *MockBackend) Seed(seed *devseed.Seed) error {
	if seed == nil {
		return nil
	}
	ctx := context.Background()
	for _, u := range seed.Users {
		info := UserInfo{
			Email:    u.Email,
			Mobile:   u.Mobile,
			Password: u.Password,
			UserName: u.UserName,
			UserSlug: u.UserSlug,
		}
		if u.Quota > 0 {
			quota := u.Quota
			info.Quota = &quota
		}
		if u.Status != 0 {
			status := u.Status
			info.Status = &status
		}
		if _, err := m.CreateUser(ctx, "", info); err != nil {
			return fmt.Errorf("seed user %s: %w", u.UserSlug, err)
		}
	}
	for _, t := range seed.Teams {
		if _, err := m.AddTeam(t.Name, t.Description, t.MemberLimit, t.Quota, t.MemberSlugs); err != nil {
			return fmt.Errorf("seed team %s: %w", t.Name, err)
		}
	}
	for _, f := range seed.Files {
		pathType := f.PathType
		if pathType == "" {
			pathType = PathTypeEnterprise
		}
		if f.Dir {
			if err := m.ensureFolder(pathType, f.Path); err != nil {
				return fmt.Errorf("seed folder %s: %w", f.Path, err)
			}
			continue
		}
		data, err := decodeSeedContent(f.Base64)
		if err != nil {
			return fmt.Errorf("seed file %s: %w", f.Path, err)
		}
		if _, err := m.UploadFile(ctx, "", path.Base(f.Path), data, f.Path, pathType); err != nil {
			return fmt.Errorf("seed file %s: %w", f.Path, err)
		}
	}
	return nil
}

// SeedFromFile loads a devseed JSON file into the backend.
func (m *MockBackend) SeedFromFile(seedPath string) error {
	seed, err := devseed.Load(seedPath)
	if err != nil {
		return err
	}
	return m.Seed(seed)
}

// AddTeam registers a team directly; member slugs must refer to existing
// users. Intended for seeding, the vendor API has no team-creation endpoint.
func (m *MockBackend) AddTeam(name, description string, memberLimit int, quota int64, memberSlugs []string) (*Team, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("mock filez: team name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if memberLimit <= 0 {
		memberLimit = 200
	}
	if quota <= 0 {
		quota = 10 * 1 << 30
	}
	m.nextTID++
	team := &Team{
		ID:          m.nextTID,
		Name:        name,
		Description: description,
		MemberLimit: memberLimit,
		Quota:       quota,
	}
	m.teams[team.ID] = team

	for _, slug := range memberSlugs {
		uid, ok := m.userSlugs[slug]
		if !ok {
			return nil, fmt.Errorf("mock filez: unknown member slug %q", slug)
		}
		user := m.users[uid]
		m.teamMembers[team.ID] = append(m.teamMembers[team.ID], TeamMember{
			UID:      uid,
			UserName: user.UserName,
			Email:    user.Email,
			Team:     name,
			Path:     "/" + name,
			Role:     "member",
			Status:   1,
			CTime:    m.now().Format(vendorTimeLayout),
		})
	}
	return team, nil
}

func (m *MockBackend) Authenticate(ctx context.Context, slug string) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("mock filez: slug is required")
	}
	return &Token{
		AccessToken: "mock-" + newHex(),
		TokenType:   "bearer",
		ExpiresIn:   86400,
		Scope:       "all",
	}, nil
}

func (m *MockBackend) CreateUser(ctx context.Context, _ string, user UserInfo) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.Email) == "" || strings.TrimSpace(user.Password) == "" ||
		strings.TrimSpace(user.UserName) == "" || strings.TrimSpace(user.UserSlug) == "" {
		return nil, fmt.Errorf("mock filez: email, password, user name and user slug are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.userSlugs[user.UserSlug]; exists {
		return nil, fmt.Errorf("mock filez: user slug %q already exists", user.UserSlug)
	}

	quota := int64(107374182400) // vendor default: 100 GiB
	if user.Quota != nil {
		quota = *user.Quota
	}
	status := 1
	if user.Status != nil {
		status = *user.Status
	}

	m.nextUID++
	created := &User{
		ID:       m.nextUID,
		Email:    user.Email,
		Mobile:   user.Mobile,
		Quota:    quota,
		Status:   status,
		UserName: user.UserName,
		UserSlug: user.UserSlug,
	}
	m.users[created.ID] = created
	m.userSlugs[created.UserSlug] = created.ID

	clone := *created
	return &clone, nil
}

func (m *MockBackend) UserByID(ctx context.Context, _ string, uid int64) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, uid)
	}
	clone := *user
	return &clone, nil
}

func (m *MockBackend) UserBySlug(ctx context.Context, _ string, slug string) (*UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.userSlugs[slug]
	if !ok {
		return nil, fmt.Errorf("%w: user slug %q", ErrNotFound, slug)
	}
	user := m.users[uid]
	return &UserProfile{
		UID:      user.ID,
		Slug:     user.UserSlug,
		UserName: user.UserName,
		Email:    user.Email,
		Mobile:   user.Mobile,
		CTime:    m.now().Format("2006-01-02 15:04:05"),
	}, nil
}

func (m *MockBackend) Users(ctx context.Context, _ string, pageNum, pageSize int) (*UserPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	start, end := pageBounds(len(ids), pageNum, pageSize)
	users := make([]User, 0, end-start)
	for _, id := range ids[start:end] {
		users = append(users, *m.users[id])
	}
	return &UserPage{Total: len(ids), Users: users}, nil
}

func (m *MockBackend) Teams(ctx context.Context, _ string) (*TeamPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.teams))
	for id := range m.teams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	teams := make([]Team, 0, len(ids))
	for _, id := range ids {
		teams = append(teams, *m.teams[id])
	}
	return &TeamPage{Total: len(teams), Teams: teams}, nil
}

func (m *MockBackend) TeamByID(ctx context.Context, _ string, tid int64) (*Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	team, ok := m.teams[tid]
	if !ok {
		return nil, fmt.Errorf("%w: team %d", ErrNotFound, tid)
	}
	clone := *team
	return &clone, nil
}

func (m *MockBackend) TeamMembers(ctx context.Context, _ string, tid int64, pageNum, pageSize int) (*MemberPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.teams[tid]; !ok {
		return nil, fmt.Errorf("%w: team %d", ErrNotFound, tid)
	}
	members := m.teamMembers[tid]
	start, end := pageBounds(len(members), pageNum, pageSize)
	page := make([]TeamMember, end-start)
	copy(page, members[start:end])
	return &MemberPage{Total: len(members), Members: page}, nil
}

func (m *MockBackend) Files(ctx context.Context, _ string, dir string, pageNum, pageSize int) (*FilePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parent := normalizePath(dir)

	m.mu.RLock()
	defer m.mu.RUnlock()

	space := m.files[PathTypeEnterprise]
	if _, ok := space[parent]; !ok {
		return nil, fmt.Errorf("%w: folder %s", ErrNotFound, parent)
	}

	children := make([]string, 0)
	for p := range space {
		if p != "/" && parentDir(p) == parent {
			children = append(children, p)
		}
	}
	sort.Strings(children)

	start, end := pageBounds(len(children), pageNum, pageSize)
	models := make([]FileModel, 0, end-start)
	for _, p := range children[start:end] {
		models = append(models, m.buildModel(space[p]))
	}
	return &FilePage{Total: len(children), Files: models}, nil
}

func (m *MockBackend) FileByNeID(ctx context.Context, _ string, nsid, neid int64) (*FileModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.neidIndex[neid]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	model := m.buildModel(entry)
	return &model, nil
}

func (m *MockBackend) FileByPath(ctx context.Context, _ string, filePath string) (*FileModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.files[PathTypeEnterprise][normalizePath(filePath)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}
	model := m.buildModel(entry)
	return &model, nil
}

func (m *MockBackend) DeleteFile(ctx context.Context, _ string, nsid, neid int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.neidIndex[neid]
	if !ok {
		return fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	if entry.path == "/" {
		return fmt.Errorf("mock filez: cannot delete the root folder")
	}
	m.removeTree(entry)
	return nil
}

func (m *MockBackend) CreateFolder(ctx context.Context, _ string, folderPath, pathType string) (*FileModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	norm := normalizePath(folderPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.files[pathType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPathType, pathType)
	}
	if existing, ok := space[norm]; ok {
		if !existing.dir {
			return nil, fmt.Errorf("mock filez: %s exists and is not a folder", norm)
		}
		model := m.buildModel(existing)
		return &model, nil
	}
	entry := m.mkdirAll(pathType, norm)
	model := m.buildModel(entry)
	return &model, nil
}

func (m *MockBackend) CopyFile(ctx context.Context, _ string, req CopyRequest) (*FileModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.neidIndex[req.FromNeID]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, req.FromNeID)
	}
	destType := req.ToPathType
	if destType == "" {
		destType = PathTypeEnterprise
	}
	if _, ok := m.files[destType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPathType, destType)
	}

	destDir := normalizePath(req.ToPath)
	if err := checkSubtreeTarget(src, destType, destDir, "copy"); err != nil {
		return nil, err
	}
	m.mkdirAll(destType, destDir)
	dest := joinPath(destDir, path.Base(src.path))
	if _, exists := m.files[destType][dest]; exists {
		return nil, fmt.Errorf("mock filez: %s already exists", dest)
	}

	copied := m.copyTree(src, destType, dest)
	model := m.buildModel(copied)
	return &model, nil
}

func (m *MockBackend) MoveFile(ctx context.Context, _ string, req CopyRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.neidIndex[req.FromNeID]
	if !ok {
		return fmt.Errorf("%w: neid %d", ErrNotFound, req.FromNeID)
	}
	if src.path == "/" {
		return fmt.Errorf("mock filez: cannot move the root folder")
	}
	destType := req.ToPathType
	if destType == "" {
		destType = PathTypeEnterprise
	}
	if _, ok := m.files[destType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPathType, destType)
	}

	destDir := normalizePath(req.ToPath)
	if err := checkSubtreeTarget(src, destType, destDir, "move"); err != nil {
		return err
	}
	m.mkdirAll(destType, destDir)
	dest := joinPath(destDir, path.Base(src.path))
	if _, exists := m.files[destType][dest]; exists {
		return fmt.Errorf("mock filez: %s already exists", dest)
	}
	m.rebase(src, destType, dest)
	return nil
}

// checkSubtreeTarget rejects copying or moving a folder into itself or any
// folder beneath it.
func checkSubtreeTarget(src *mockFile, destType, destDir, op string) error {
	if !src.dir || destType != src.pathType {
		return nil
	}
	if destDir == src.path || strings.HasPrefix(destDir, src.path+"/") {
		return fmt.Errorf("mock filez: cannot %s %s into its own subtree", op, src.path)
	}
	return nil
}

func (m *MockBackend) UploadFile(ctx context.Context, _ string, filename string, data []byte, toPath, pathType string) (*FileModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pathType == "" {
		pathType = PathTypeEnterprise
	}
	norm := normalizePath(toPath)

	m.mu.Lock()
	defer m.mu.Unlock()

	space, ok := m.files[pathType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPathType, pathType)
	}
	m.mkdirAll(pathType, parentDir(norm))

	entry, exists := space[norm]
	op := "update"
	if !exists {
		op = "create"
		entry = &mockFile{
			neid:     m.allocNeID(),
			nsid:     DefaultNsID,
			pathType: pathType,
			path:     norm,
		}
		space[norm] = entry
		m.neidIndex[entry.neid] = entry
	} else if entry.dir {
		return nil, fmt.Errorf("mock filez: %s is a folder", norm)
	}

	now := m.now()
	entry.data = append([]byte(nil), data...)
	entry.rev = newHex()
	entry.modified = now
	sum := md5.Sum(data)
	entry.revisions = append(entry.revisions, Revision{
		Bytes:    int64(len(data)),
		Hash:     hex.EncodeToString(sum[:]),
		Modified: now.Format(vendorTimeLayout),
		Op:       op,
		Path:     norm,
		Rev:      entry.rev,
		Root:     "databox",
		User:     "mock",
		UTime:    now.UnixMilli(),
		Version:  fmt.Sprintf("v%d", len(entry.revisions)+1),
	})

	model := m.buildModel(entry)
	return &model, nil
}

func (m *MockBackend) RenameFile(ctx context.Context, _ string, nsid, fromNeID int64, toFileName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.neidIndex[fromNeID]
	if !ok {
		return fmt.Errorf("%w: neid %d", ErrNotFound, fromNeID)
	}
	if entry.path == "/" {
		return fmt.Errorf("mock filez: cannot rename the root folder")
	}
	dest := joinPath(parentDir(entry.path), toFileName)
	if dest == entry.path {
		return nil
	}
	if _, exists := m.files[entry.pathType][dest]; exists {
		return fmt.Errorf("mock filez: %s already exists", dest)
	}
	m.rebase(entry, entry.pathType, dest)
	return nil
}

func (m *MockBackend) FileHistory(ctx context.Context, _ string, nsid, neid int64) ([]Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.neidIndex[neid]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	history := make([]Revision, len(entry.revisions))
	copy(history, entry.revisions)
	return history, nil
}

func (m *MockBackend) PreviewURL(ctx context.Context, _ string, nsid, neid int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.neidIndex[neid]
	if !ok {
		return "", fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	version := len(entry.revisions)
	if version == 0 {
		version = 1
	}
	return fmt.Sprintf("http://filez.mock/preview/preview?nsid=%d&neid=%d&version=v%d", nsid, neid, version), nil
}

func (m *MockBackend) DownloadFile(ctx context.Context, _ string, nsid, neid int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.neidIndex[neid]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	if entry.dir {
		return nil, fmt.Errorf("mock filez: %s is a folder", entry.path)
	}
	return append([]byte(nil), entry.data...), nil
}

func (m *MockBackend) GrantFile(ctx context.Context, _ string, nsid int64, pathType string, neid int64, grants []Grant) ([]AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.neidIndex[neid]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	byUID := m.grants[neid]
	if byUID == nil {
		byUID = make(map[int64]Privilege)
		m.grants[neid] = byUID
	}
	for _, g := range grants {
		if _, ok := m.users[g.UID]; !ok {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, g.UID)
		}
		byUID[g.UID] = g.Privilege
	}
	return []AuthResult{{ErrMsg: "ok", Path: entry.path, Result: "succeed"}}, nil
}

func (m *MockBackend) RevokeFile(ctx context.Context, _ string, nsid int64, pathType string, neid int64, uids []int64) ([]AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.neidIndex[neid]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}
	for _, uid := range uids {
		delete(m.grants[neid], uid)
	}
	return []AuthResult{{ErrMsg: "ok", Path: entry.path, Result: "succeed"}}, nil
}

func (m *MockBackend) FileGrants(ctx context.Context, _ string, nsid int64, pathType string, neid int64) ([]AuthFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.neidIndex[neid]
	if !ok {
		return nil, fmt.Errorf("%w: neid %d", ErrNotFound, neid)
	}

	byUID := m.grants[neid]
	uids := make([]int64, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	entries := make([]AuthEntry, 0, len(uids))
	for _, uid := range uids {
		privilege := byUID[uid]
		agentName := ""
		if user, ok := m.users[uid]; ok {
			agentName = user.UserName
		}
		m.nextAuthID++
		entries = append(entries, AuthEntry{
			ID:                   m.nextAuthID,
			AgentID:              uid,
			AgentName:            agentName,
			AgentType:            "user",
			IsSubteamInheritable: true,
			NsID:                 nsid,
			Path:                 entry.path,
			PrivilegeID:          int(privilege),
			PrivilegeName:        privilegeName(privilege),
		})
	}
	return []AuthFile{{Path: entry.path, AuthList: entries, InheritAuthList: []AuthEntry{}}}, nil
}

func (m *MockBackend) allocNeID() int64 {
	m.nextNeID++
	return m.nextNeID
}

// ensureFolder is the unlocked-entry counterpart of CreateFolder for seeding.
func (m *MockBackend) ensureFolder(pathType, folderPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[pathType]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPathType, pathType)
	}
	m.mkdirAll(pathType, normalizePath(folderPath))
	return nil
}

// mkdirAll creates the folder and any missing parents. Callers hold the lock.
func (m *MockBackend) mkdirAll(pathType, norm string) *mockFile {
	space := m.files[pathType]
	if entry, ok := space[norm]; ok {
		return entry
	}
	parent := parentDir(norm)
	if parent != norm {
		m.mkdirAll(pathType, parent)
	}
	entry := &mockFile{
		neid:     m.allocNeID(),
		nsid:     DefaultNsID,
		pathType: pathType,
		path:     norm,
		dir:      true,
		modified: m.now(),
	}
	space[norm] = entry
	m.neidIndex[entry.neid] = entry
	return entry
}

// removeTree deletes an entry and, for folders, everything beneath it.
// Callers hold the lock.
func (m *MockBackend) removeTree(entry *mockFile) {
	space := m.files[entry.pathType]
	victims := []*mockFile{entry}
	if entry.dir {
		prefix := entry.path + "/"
		for p, e := range space {
			if strings.HasPrefix(p, prefix) {
				victims = append(victims, e)
			}
		}
	}
	for _, v := range victims {
		delete(space, v.path)
		delete(m.neidIndex, v.neid)
		delete(m.grants, v.neid)
	}
}

// copyTree duplicates an entry (and its subtree) under dest. Callers hold
// the lock.
func (m *MockBackend) copyTree(src *mockFile, destType, dest string) *mockFile {
	sources := []*mockFile{src}
	if src.dir {
		prefix := src.path + "/"
		for p, e := range m.files[src.pathType] {
			if strings.HasPrefix(p, prefix) {
				sources = append(sources, e)
			}
		}
	}

	var top *mockFile
	for _, s := range sources {
		target := dest + strings.TrimPrefix(s.path, src.path)
		clone := &mockFile{
			neid:     m.allocNeID(),
			nsid:     DefaultNsID,
			pathType: destType,
			path:     target,
			dir:      s.dir,
			data:     append([]byte(nil), s.data...),
			rev:      newHex(),
			modified: m.now(),
		}
		if s.dir {
			clone.rev = ""
		}
		m.files[destType][target] = clone
		m.neidIndex[clone.neid] = clone
		if s == src {
			top = clone
		}
	}
	return top
}

// rebase moves an entry (and its subtree) to dest in place, keeping neids.
// Callers hold the lock.
func (m *MockBackend) rebase(src *mockFile, destType, dest string) {
	moved := []*mockFile{src}
	if src.dir {
		prefix := src.path + "/"
		for p, e := range m.files[src.pathType] {
			if strings.HasPrefix(p, prefix) {
				moved = append(moved, e)
			}
		}
	}
	oldBase := src.path
	for _, e := range moved {
		delete(m.files[e.pathType], e.path)
		e.path = dest + strings.TrimPrefix(e.path, oldBase)
		e.pathType = destType
		e.modified = m.now()
		m.files[destType][e.path] = e
	}
}

func (m *MockBackend) buildModel(entry *mockFile) FileModel {
	size := "0.0 bytes"
	if !entry.dir {
		size = humanSize(int64(len(entry.data)))
	}
	return FileModel{
		NeID:           entry.neid,
		NsID:           entry.nsid,
		Path:           entry.path,
		PathType:       entry.pathType,
		Dir:            entry.dir,
		Size:           size,
		Rev:            entry.rev,
		CreatorUID:     entry.creatorUID,
		UpdatorUID:     entry.updatorUID,
		Modified:       entry.modified.Format(vendorTimeLayout),
		SupportPreview: !entry.dir,
	}
}

const vendorTimeLayout = "2006-01-02T15:04:05-0700"

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if p == "." {
		p = "/"
	}
	return p
}

func parentDir(p string) string {
	parent := path.Dir(p)
	if parent == "." || parent == "" {
		return "/"
	}
	return parent
}

func joinPath(dir, name string) string {
	return normalizePath(path.Join(dir, name))
}

func pageBounds(total, pageNum, pageSize int) (int, int) {
	if pageSize <= 0 {
		return 0, total
	}
	if pageNum < 0 {
		pageNum = 0
	}
	start := pageNum * pageSize
	if start > total {
		return total, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

func humanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%.1f bytes", float64(n))
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1024*1024*1024))
	}
}

func privilegeName(p Privilege) string {
	switch p {
	case PrivilegePreview:
		return "preview"
	case PrivilegeUpload:
		return "upload"
	case PrivilegeDownload:
		return "download"
	case PrivilegeUploadDownload:
		return "upload/download"
	case PrivilegeEdit:
		return "edit"
	case PrivilegeListOnly:
		return "list"
	case PrivilegeDeny:
		return "deny"
	default:
		return "unknown"
	}
}

func newHex() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}

func decodeSeedContent(b64 string) ([]byte, error) {
	if strings.TrimSpace(b64) == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(b64)
}
