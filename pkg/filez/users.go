package filez

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CreateUser registers a new account. Email, Password, UserName and
// UserSlug are required.
func (c *Client) CreateUser(ctx context.Context, user UserInfo) (*User, error) {
	if strings.TrimSpace(user.Email) == "" || strings.TrimSpace(user.Password) == "" ||
		strings.TrimSpace(user.UserName) == "" || strings.TrimSpace(user.UserSlug) == "" {
		return nil, fmt.Errorf("filez: email, password, user name and user slug are required")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.CreateUser(ctx, token, user)
}

// UserByID fetches an account by its numeric id.
func (c *Client) UserByID(ctx context.Context, uid int64) (*User, error) {
	if uid <= 0 {
		return nil, fmt.Errorf("filez: uid must be positive")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.UserByID(ctx, token, uid)
}

// UserBySlug fetches an account by its slug. The vendor returns a different
// shape than the id-keyed lookup.
func (c *Client) UserBySlug(ctx context.Context, slug string) (*UserProfile, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("filez: user slug is required")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.UserBySlug(ctx, token, slug)
}

// Users lists accounts one page at a time. Pages are numbered from 0.
func (c *Client) Users(ctx context.Context, pageNum, pageSize int) (*UserPage, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.Users(ctx, token, pageNum, pageSize)
}

func (b *httpBackend) CreateUser(ctx context.Context, token string, user UserInfo) (*User, error) {
	form := url.Values{
		"email":     {user.Email},
		"password":  {user.Password},
		"user_name": {user.UserName},
		"user_slug": {user.UserSlug},
	}
	if user.Mobile != "" {
		form.Set("mobile", user.Mobile)
	}
	if user.Quota != nil {
		form.Set("quota", strconv.FormatInt(*user.Quota, 10))
	}
	if user.Status != nil {
		form.Set("status", strconv.Itoa(*user.Status))
	}

	var created User
	if err := b.postForm(ctx, "user", token, form, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (b *httpBackend) UserByID(ctx context.Context, token string, uid int64) (*User, error) {
	var user User
	path := "api/user/" + strconv.FormatInt(uid, 10)
	if err := b.getJSON(ctx, path, nil, token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (b *httpBackend) UserBySlug(ctx context.Context, token string, slug string) (*UserProfile, error) {
	var profile UserProfile
	query := url.Values{"user_slug": {slug}}
	if err := b.getJSON(ctx, "api/user/slug", query, token, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (b *httpBackend) Users(ctx context.Context, token string, pageNum, pageSize int) (*UserPage, error) {
	query := url.Values{
		"page_num":  {strconv.Itoa(pageNum)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	var page UserPage
	// The vendor route requires the trailing slash before the query.
	if err := b.getJSON(ctx, "api/user/", query, token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
