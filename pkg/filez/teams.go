package filez

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Teams lists every team visible to the authenticated application.
func (c *Client) Teams(ctx context.Context) (*TeamPage, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.Teams(ctx, token)
}

// TeamByID fetches a single team.
func (c *Client) TeamByID(ctx context.Context, tid int64) (*Team, error) {
	if tid <= 0 {
		return nil, fmt.Errorf("filez: tid must be positive")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.TeamByID(ctx, token, tid)
}

// TeamMembers lists the members of a team one page at a time. Pages are
// numbered from 0.
func (c *Client) TeamMembers(ctx context.Context, tid int64, pageNum, pageSize int) (*MemberPage, error) {
	if tid <= 0 {
		return nil, fmt.Errorf("filez: tid must be positive")
	}
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}
	return c.backend.TeamMembers(ctx, token, tid, pageNum, pageSize)
}

func (b *httpBackend) Teams(ctx context.Context, token string) (*TeamPage, error) {
	var page TeamPage
	if err := b.getJSON(ctx, "api/team", nil, token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (b *httpBackend) TeamByID(ctx context.Context, token string, tid int64) (*Team, error) {
	var team Team
	path := "api/team/" + strconv.FormatInt(tid, 10)
	if err := b.getJSON(ctx, path, nil, token, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (b *httpBackend) TeamMembers(ctx context.Context, token string, tid int64, pageNum, pageSize int) (*MemberPage, error) {
	query := url.Values{
		"page_num":  {strconv.Itoa(pageNum)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	var page MemberPage
	path := "api/teamuser/" + strconv.FormatInt(tid, 10) + "/users"
	if err := b.getJSON(ctx, path, query, token, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
