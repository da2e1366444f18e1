package filez

import (
	"errors"
	"time"
)

// DefaultNsID is the namespace the vendor assumes when none is supplied.
const DefaultNsID int64 = 1

// Path types accepted by the vendor for file operations.
const (
	// PathTypeEnterprise targets the shared enterprise space.
	PathTypeEnterprise = "ent"
	// PathTypePersonal targets the calling user's personal space.
	PathTypePersonal = "self"
)

// Privilege is a vendor-defined access level used in file grants.
type Privilege int

const (
	PrivilegePreview        Privilege = 2009
	PrivilegeUpload         Privilege = 2007
	PrivilegeDownload       Privilege = 2005
	PrivilegeUploadDownload Privilege = 2003
	PrivilegeEdit           Privilege = 2001
	PrivilegeListOnly       Privilege = 1011
	PrivilegeDeny           Privilege = 1000
)

// Valid reports whether p is one of the codes the vendor accepts.
func (p Privilege) Valid() bool {
	switch p {
	case PrivilegePreview, PrivilegeUpload, PrivilegeDownload,
		PrivilegeUploadDownload, PrivilegeEdit, PrivilegeListOnly, PrivilegeDeny:
		return true
	}
	return false
}

// Token holds the bearer credentials returned by /oauth/token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`

	// ExpiresAt is extracted from the token's JWT exp claim when present.
	ExpiresAt *time.Time `json:"-"`
}

// Expired reports whether the token's exp claim has passed. Tokens without
// an exp claim never report expiry.
func (t *Token) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt == nil {
		return false
	}
	return !now.Before(*t.ExpiresAt)
}

// UserInfo carries the fields for account creation. Email, Password,
// UserName and UserSlug are required by the vendor.
type UserInfo struct {
	Email    string
	Mobile   string
	Password string
	Quota    *int64 // bytes
	Status   *int   // frozen: -1, active: 1
	UserName string
	UserSlug string
}

// User is an account as returned by the id-keyed user endpoints.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Quota    int64  `json:"quota"`
	Status   int    `json:"status"`
	Used     int64  `json:"used"`
	UserName string `json:"userName"`
	UserSlug string `json:"userSlug"`
}

// UserProfile is the slug-keyed lookup shape; the vendor returns different
// field names than the id-keyed endpoint.
type UserProfile struct {
	UID      int64  `json:"uid"`
	Slug     string `json:"slug"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	CTime    string `json:"ctime"`
}

// UserPage is one page of accounts.
type UserPage struct {
	Total int    `json:"total"`
	Users []User `json:"userList"`
}

// Team describes a team and its quota usage.
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberLimit int    `json:"memberLimit"`
	Quota       int64  `json:"quota"`
	Used        int64  `json:"used"`
}

// TeamPage is the full team listing.
type TeamPage struct {
	Total int    `json:"total"`
	Teams []Team `json:"teamList"`
}

// TeamMember is a user's membership record within a team.
type TeamMember struct {
	UID               int64  `json:"uid"`
	UserName          string `json:"userName"`
	Email             string `json:"email"`
	Team              string `json:"team"`
	Path              string `json:"path"`
	Role              string `json:"role"`
	Status            int    `json:"status"`
	CTime             string `json:"ctime"`
	FromDomainAccount bool   `json:"fromDomainAccount"`
}

// MemberPage is one page of team members.
type MemberPage struct {
	Total   int          `json:"total"`
	Members []TeamMember `json:"memberList"`
}

// FileModel describes a file or folder entry. Size is the vendor's
// human-readable string (e.g. "200.9 KB"), not a byte count.
type FileModel struct {
	NeID           int64  `json:"neid"`
	NsID           int64  `json:"nsid"`
	Path           string `json:"path"`
	PathType       string `json:"pathType"`
	Dir            bool   `json:"dir"`
	Size           string `json:"size"`
	Rev            string `json:"rev"`
	Desc           string `json:"desc"`
	Creator        string `json:"creator"`
	CreatorUID     int64  `json:"creatorUid"`
	Updator        string `json:"updator"`
	UpdatorUID     int64  `json:"updatorUid"`
	Modified       string `json:"modified"`
	SupportPreview bool   `json:"supportPreview"`
	IsTeam         *bool  `json:"isTeam"`
	IsBookmark     bool   `json:"isBookmark"`
	BookmarkID     *int64 `json:"bookmarkId"`
	DeliveryCode   string `json:"deliveryCode"`
}

// FilePage is one page of a directory listing.
type FilePage struct {
	Total int         `json:"total"`
	Files []FileModel `json:"fileModelList"`
}

// Revision is one entry of a file's version history.
type Revision struct {
	Bytes     int64  `json:"bytes"`
	Dir       bool   `json:"dir"`
	Hash      string `json:"hash"`
	IsDeleted bool   `json:"isDeleted"`
	Modified  string `json:"modified"`
	Op        string `json:"op"`
	Path      string `json:"path"`
	Rev       string `json:"rev"`
	Root      string `json:"root"`
	User      string `json:"user"`
	UTime     int64  `json:"utime"`
	Version   string `json:"version"`
}

// CopyRequest names the source entry and destination folder for copy and
// move operations. ToPathType defaults to the enterprise space.
type CopyRequest struct {
	FromNsID   int64
	FromNeID   int64
	ToPath     string
	ToPathType string
}

// Grant assigns a privilege to a user.
type Grant struct {
	UID       int64
	Privilege Privilege
}

// AuthResult is one entry of a batch grant/revoke response.
type AuthResult struct {
	ErrMsg string `json:"errmsg"`
	Path   string `json:"path"`
	Result string `json:"result"`
}

// AuthEntry is one effective grant on a file.
type AuthEntry struct {
	ID                   int64  `json:"id"`
	AgentID              int64  `json:"agentId"`
	AgentName            string `json:"agentName"`
	AgentType            string `json:"agentType"`
	AllowedMask          string `json:"allowedMask"`
	IsSubteamInheritable bool   `json:"isSubteamInheritable"`
	IsTeam               bool   `json:"isTeam"`
	NsID                 int64  `json:"nsid"`
	Path                 string `json:"path"`
	PrivilegeID          int    `json:"privilegeId"`
	PrivilegeName        string `json:"privilegeName"`
}

// AuthFile groups the direct and inherited grants of one path.
type AuthFile struct {
	Path            string      `json:"path"`
	AuthList        []AuthEntry `json:"authList"`
	InheritAuthList []AuthEntry `json:"inheritAuthList"`
}

var (
	// ErrNoToken is returned when an authorized call runs before Token.
	ErrNoToken = errors.New("filez: no access token, call Token first")
	// ErrTokenExpired signals the stored token's exp claim has passed.
	ErrTokenExpired = errors.New("filez: access token expired")
	// ErrInvalidPathType rejects path types other than "ent" and "self".
	ErrInvalidPathType = errors.New(`filez: path type must be "ent" or "self"`)
	// ErrInvalidPrivilege rejects privilege codes the vendor does not define.
	ErrInvalidPrivilege = errors.New("filez: unknown privilege code")
	// ErrNotFound indicates a missing entry in the mock backend.
	ErrNotFound = errors.New("filez: not found")
)
