package filez

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filez-io/filez_sdk_go/internal/httpx"
)

// Token performs the OAuth client-credentials exchange for the given user
// slug and stores the resulting bearer token on the client.
func (c *Client) Token(ctx context.Context, slug string) (*Token, error) {
	if c == nil || c.backend == nil {
		return nil, fmt.Errorf("filez: client is nil")
	}
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("filez: slug is required")
	}
	token, err := c.backend.Authenticate(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.SetToken(token)
	return token, nil
}

func (b *httpBackend) Authenticate(ctx context.Context, slug string) (*Token, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("filez: http backend not configured")
	}

	form := url.Values{
		"grant_type": {"client_with_su"},
		"scope":      {"all"},
		"slug":       {slug},
	}
	body, contentType := httpx.FormBody(form)

	basic := base64.StdEncoding.EncodeToString([]byte(b.appKey + ":" + b.appSecret))
	header := http.Header{
		"Authorization": {"Basic " + basic},
		"Content-Type":  {contentType},
	}

	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "oauth/token",
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

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("filez: decode token response: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("filez: token response missing access_token")
	}
	if exp := tokenExpiry(token.AccessToken); exp != nil {
		token.ExpiresAt = exp
	}
	return &token, nil
}

// tokenExpiry extracts the exp claim from a JWT access token. The signature
// is not verified; only the expiry matters for the pre-flight check. Opaque
// (non-JWT) tokens yield nil.
func tokenExpiry(accessToken string) *time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
