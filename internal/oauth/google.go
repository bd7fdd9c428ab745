package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrNotConfigured = errors.New("oauth client not configured")

// Profile is the subset of the Google userinfo document the library keeps.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified_email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Provider is the identity provider as seen by the sign-in handlers.
type Provider interface {
	MakeState(raw string) string
	VerifyState(got string) bool
	AuthURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error)
}

type GoogleOAuth struct {
	cfg         *oauth2.Config
	stateKey    []byte
	userInfoURL string
}

func NewGoogle(clientID, clientSecret, redirectURI, stateSecret string) *GoogleOAuth {
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"profile", "email"},
			Endpoint:     ggoogle.Endpoint,
		},
		stateKey:    []byte(stateSecret),
		userInfoURL: googleUserInfoURL,
	}
}

// WithEndpoint points the client at a different authorization server.
func (g *GoogleOAuth) WithEndpoint(ep oauth2.Endpoint, userInfoURL string) *GoogleOAuth {
	g.cfg.Endpoint = ep
	g.userInfoURL = userInfoURL
	return g
}

// MakeState signs raw with HMAC so the callback can reject forged state values.
func (g *GoogleOAuth) MakeState(raw string) string {
	return raw + "." + base64.RawURLEncoding.EncodeToString(g.sign(raw))
}

func (g *GoogleOAuth) VerifyState(got string) bool {
	i := strings.LastIndexByte(got, '.')
	if i <= 0 {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(got[i+1:])
	if err != nil {
		return false
	}
	return hmac.Equal(g.sign(got[:i]), sig)
}

func (g *GoogleOAuth) sign(raw string) []byte {
	mac := hmac.New(sha256.New, g.stateKey)
	mac.Write([]byte(raw))
	return mac.Sum(nil)
}

func (g *GoogleOAuth) AuthURL(state string) (string, error) {
	if g.cfg.ClientID == "" || g.cfg.RedirectURL == "" {
		return "", ErrNotConfigured
	}
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades the authorization code for tokens. When Google includes an id_token its
// issuer and audience are checked against this client.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		if err := g.checkIDToken(raw); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// checkIDToken only inspects claims; the token came straight from the token endpoint over TLS.
func (g *GoogleOAuth) checkIDToken(raw string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return fmt.Errorf("parse id_token: %w", err)
	}
	iss, _ := claims.GetIssuer()
	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return errors.New("bad iss")
	}
	aud, _ := claims.GetAudience()
	for _, a := range aud {
		if a == g.cfg.ClientID {
			return nil
		}
	}
	return errors.New("bad aud")
}

func (g *GoogleOAuth) FetchProfile(ctx context.Context, tok *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	if p.Email == "" {
		return nil, errors.New("userinfo: missing email")
	}
	return &p, nil
}
