package filez_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filez-io/filez_sdk_go/internal/devseed"
	"github.com/filez-io/filez_sdk_go/pkg/filez"
)

func newMockClient(t *testing.T) (*filez.Client, *filez.MockBackend) {
	t.Helper()
	backend := filez.NewMockBackend()
	client := filez.NewWithBackend(backend)
	_, err := client.Token(context.Background(), "admin")
	require.NoError(t, err)
	return client, backend
}

func TestMockAuthenticate(t *testing.T) {
	backend := filez.NewMockBackend()
	client := filez.NewWithBackend(backend)
	ctx := context.Background()

	_, err := client.Token(ctx, "")
	require.Error(t, err)

	token, err := client.Token(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token.AccessToken, "mock-"))
	assert.Equal(t, "bearer", token.TokenType)
}

func TestMockUserLifecycle(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	created, err := client.CreateUser(ctx, filez.UserInfo{
		Email:    "kate@example.com",
		Password: "pw",
		UserName: "Kate",
		UserSlug: "kate",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(107374182400), created.Quota, "default quota")
	assert.Equal(t, 1, created.Status)

	_, err = client.CreateUser(ctx, filez.UserInfo{
		Email:    "kate2@example.com",
		Password: "pw",
		UserName: "Kate II",
		UserSlug: "kate",
	})
	require.Error(t, err, "duplicate slug must be rejected")

	byID, err := client.UserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "kate", byID.UserSlug)

	profile, err := client.UserBySlug(ctx, "kate")
	require.NoError(t, err)
	assert.Equal(t, created.ID, profile.UID)

	_, err = client.UserByID(ctx, 999)
	assert.ErrorIs(t, err, filez.ErrNotFound)

	for _, slug := range []string{"omar", "petra", "quinn"} {
		_, err := client.CreateUser(ctx, filez.UserInfo{
			Email:    slug + "@example.com",
			Password: "pw",
			UserName: strings.ToTitle(slug[:1]) + slug[1:],
			UserSlug: slug,
		})
		require.NoError(t, err)
	}

	page, err := client.Users(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Users, 3)

	page2, err := client.Users(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Users, 1)
}

func TestMockTeams(t *testing.T) {
	client, backend := newMockClient(t)
	ctx := context.Background()

	_, err := client.CreateUser(ctx, filez.UserInfo{
		Email: "kate@example.com", Password: "pw", UserName: "Kate", UserSlug: "kate",
	})
	require.NoError(t, err)

	team, err := backend.AddTeam("research", "r&d group", 0, 0, []string{"kate"})
	require.NoError(t, err)

	_, err = backend.AddTeam("ghosts", "", 0, 0, []string{"nobody"})
	require.Error(t, err, "unknown member slug must fail")

	teams, err := client.Teams(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, teams.Total)
	assert.Equal(t, "research", teams.Teams[0].Name)

	got, err := client.TeamByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)

	members, err := client.TeamMembers(ctx, team.ID, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, members.Total)
	assert.Equal(t, "Kate", members.Members[0].UserName)

	_, err = client.TeamMembers(ctx, 999, 0, 10)
	assert.ErrorIs(t, err, filez.ErrNotFound)
}

func TestMockFileTree(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	folder, err := client.CreateFolder(ctx, "/reports/2026", "ent")
	require.NoError(t, err)
	assert.True(t, folder.Dir)
	assert.Equal(t, "/reports/2026", folder.Path)

	// Missing parents are created on the way down.
	parent, err := client.FileByPath(ctx, "/reports")
	require.NoError(t, err)
	assert.True(t, parent.Dir)

	content := []byte("q3 numbers")
	uploaded, err := client.UploadFile(ctx, bytes.NewReader(content), "q3.txt", "/reports/2026/q3.txt", "ent")
	require.NoError(t, err)
	assert.False(t, uploaded.Dir)
	assert.Equal(t, "10.0 bytes", uploaded.Size)

	listing, err := client.Files(ctx, "/reports/2026", 0, 20)
	require.NoError(t, err)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, "/reports/2026/q3.txt", listing.Files[0].Path)

	byNeID, err := client.FileByNeID(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	assert.Equal(t, uploaded.Path, byNeID.Path)

	var buf bytes.Buffer
	n, err := client.DownloadFile(ctx, 0, uploaded.NeID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())

	// Second upload to the same path becomes a new revision.
	updated, err := client.UploadFile(ctx, bytes.NewReader([]byte("q3 numbers, revised")), "q3.txt", "/reports/2026/q3.txt", "ent")
	require.NoError(t, err)
	assert.Equal(t, uploaded.NeID, updated.NeID)

	history, err := client.FileHistory(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "create", history[0].Op)
	assert.Equal(t, "update", history[1].Op)
	assert.Equal(t, "v2", history[1].Version)

	previewURL, err := client.PreviewURL(ctx, 0, uploaded.NeID)
	require.NoError(t, err)
	assert.Contains(t, previewURL, "neid=")
}

func TestMockCopyMoveRenameDelete(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	_, err := client.CreateFolder(ctx, "/src", "ent")
	require.NoError(t, err)
	_, err = client.CreateFolder(ctx, "/dst", "ent")
	require.NoError(t, err)
	file, err := client.UploadFile(ctx, strings.NewReader("payload"), "a.txt", "/src/a.txt", "ent")
	require.NoError(t, err)

	copied, err := client.CopyFile(ctx, filez.CopyRequest{FromNeID: file.NeID, ToPath: "/dst"})
	require.NoError(t, err)
	assert.Equal(t, "/dst/a.txt", copied.Path)
	assert.NotEqual(t, file.NeID, copied.NeID)

	// Original still in place after copy.
	_, err = client.FileByPath(ctx, "/src/a.txt")
	require.NoError(t, err)

	err = client.MoveFile(ctx, filez.CopyRequest{FromNeID: file.NeID, ToPath: "/dst/archive"})
	require.NoError(t, err)
	moved, err := client.FileByPath(ctx, "/dst/archive/a.txt")
	require.NoError(t, err)
	assert.Equal(t, file.NeID, moved.NeID, "move keeps the neid")
	_, err = client.FileByPath(ctx, "/src/a.txt")
	assert.ErrorIs(t, err, filez.ErrNotFound)

	err = client.RenameFile(ctx, 0, file.NeID, "b.txt")
	require.NoError(t, err)
	renamed, err := client.FileByNeID(ctx, 0, file.NeID)
	require.NoError(t, err)
	assert.Equal(t, "/dst/archive/b.txt", renamed.Path)

	// Deleting a folder removes its subtree.
	dst, err := client.FileByPath(ctx, "/dst")
	require.NoError(t, err)
	err = client.DeleteFile(ctx, 0, dst.NeID)
	require.NoError(t, err)
	_, err = client.FileByNeID(ctx, 0, file.NeID)
	assert.ErrorIs(t, err, filez.ErrNotFound)
}

func TestMockMoveFolderRebasesChildren(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	_, err := client.UploadFile(ctx, strings.NewReader("x"), "n.txt", "/proj/docs/n.txt", "ent")
	require.NoError(t, err)
	docs, err := client.FileByPath(ctx, "/proj/docs")
	require.NoError(t, err)

	err = client.MoveFile(ctx, filez.CopyRequest{FromNeID: docs.NeID, ToPath: "/attic"})
	require.NoError(t, err)

	_, err = client.FileByPath(ctx, "/attic/docs/n.txt")
	require.NoError(t, err)
	_, err = client.FileByPath(ctx, "/proj/docs/n.txt")
	assert.ErrorIs(t, err, filez.ErrNotFound)
}

func TestMockRejectsFolderIntoOwnSubtree(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	_, err := client.UploadFile(ctx, strings.NewReader("x"), "n.txt", "/a/b/n.txt", "ent")
	require.NoError(t, err)
	top, err := client.FileByPath(ctx, "/a")
	require.NoError(t, err)

	_, err = client.CopyFile(ctx, filez.CopyRequest{FromNeID: top.NeID, ToPath: "/a/b"})
	require.Error(t, err)
	err = client.MoveFile(ctx, filez.CopyRequest{FromNeID: top.NeID, ToPath: "/a/b"})
	require.Error(t, err)
	err = client.MoveFile(ctx, filez.CopyRequest{FromNeID: top.NeID, ToPath: "/a"})
	require.Error(t, err, "a folder cannot be moved into itself")

	// The tree is untouched after the rejected operations.
	_, err = client.FileByPath(ctx, "/a/b/n.txt")
	require.NoError(t, err)
	listing, err := client.Files(ctx, "/a", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Total)
}

func TestMockGrants(t *testing.T) {
	client, _ := newMockClient(t)
	ctx := context.Background()

	kate, err := client.CreateUser(ctx, filez.UserInfo{
		Email: "kate@example.com", Password: "pw", UserName: "Kate", UserSlug: "kate",
	})
	require.NoError(t, err)
	omar, err := client.CreateUser(ctx, filez.UserInfo{
		Email: "omar@example.com", Password: "pw", UserName: "Omar", UserSlug: "omar",
	})
	require.NoError(t, err)

	file, err := client.UploadFile(ctx, strings.NewReader("x"), "a.txt", "/a.txt", "ent")
	require.NoError(t, err)

	results, err := client.GrantFile(ctx, 0, "ent", file.NeID, []filez.Grant{
		{UID: kate.ID, Privilege: filez.PrivilegeEdit},
		{UID: omar.ID, Privilege: filez.PrivilegeDownload},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "succeed", results[0].Result)

	grants, err := client.FileGrants(ctx, 0, "ent", file.NeID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Len(t, grants[0].AuthList, 2)
	assert.Equal(t, kate.ID, grants[0].AuthList[0].AgentID)
	assert.Equal(t, int(filez.PrivilegeEdit), grants[0].AuthList[0].PrivilegeID)
	assert.Equal(t, "Kate", grants[0].AuthList[0].AgentName)

	_, err = client.RevokeFile(ctx, 0, "ent", file.NeID, []int64{kate.ID})
	require.NoError(t, err)
	grants, err = client.FileGrants(ctx, 0, "ent", file.NeID)
	require.NoError(t, err)
	require.Len(t, grants[0].AuthList, 1)
	assert.Equal(t, omar.ID, grants[0].AuthList[0].AgentID)

	_, err = client.GrantFile(ctx, 0, "ent", file.NeID, []filez.Grant{{UID: 999, Privilege: filez.PrivilegeEdit}})
	assert.ErrorIs(t, err, filez.ErrNotFound)
}

func TestMockSeed(t *testing.T) {
	backend := filez.NewMockBackend()
	err := backend.Seed(&devseed.Seed{
		Users: []devseed.UserSeed{
			{Email: "kate@example.com", Password: "pw", UserName: "Kate", UserSlug: "kate", Quota: 2048},
		},
		Teams: []devseed.TeamSeed{
			{Name: "research", MemberSlugs: []string{"kate"}},
		},
		Files: []devseed.FileSeed{
			{Path: "/reports", Dir: true},
			{Path: "/reports/q3.txt", Base64: "cTMgbnVtYmVycw=="},
		},
	})
	require.NoError(t, err)

	client := filez.NewWithBackend(backend)
	ctx := context.Background()
	_, err = client.Token(ctx, "admin")
	require.NoError(t, err)

	user, err := client.UserBySlug(ctx, "kate")
	require.NoError(t, err)
	byID, err := client.UserByID(ctx, user.UID)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), byID.Quota)

	teams, err := client.Teams(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, teams.Total)

	file, err := client.FileByPath(ctx, "/reports/q3.txt")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = client.DownloadFile(ctx, 0, file.NeID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "q3 numbers", buf.String())
}

func TestMockContextCancellation(t *testing.T) {
	client, _ := newMockClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Teams(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
