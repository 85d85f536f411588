package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spec-kit/points-service/internal/config"
	"github.com/spec-kit/points-service/internal/domain"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	// ErrEmailNotVerified is returned when the provider has not verified the address.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrEmailDomain is returned when the address is outside the organization.
	ErrEmailDomain = errors.New("email outside organization domain")
)

// Identity is a verified principal returned by the identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleProvider signs members in through Google OAuth2 restricted to one email domain.
type GoogleProvider struct {
	oauth       *oauth2.Config
	emailDomain string
	userInfoURL string
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewGoogleProvider builds the provider from auth configuration.
func NewGoogleProvider(cfg config.AuthConfig) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		emailDomain: cfg.EmailDomain,
		userInfoURL: googleUserInfoURL,
	}
}

// WithEndpoints points the provider at other OAuth and userinfo URLs.
func (p *GoogleProvider) WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	p.oauth.Endpoint = endpoint
	p.userInfoURL = userInfoURL
	return p
}

// AuthCodeURL returns the consent page URL; the hd hint limits the account chooser
// to the organization.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "select_account")}
	if hd := p.hostedDomain(); hd != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", hd))
	}
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a verified organization identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if !info.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	email := domain.NormalizeEmail(info.Email)
	if !domain.HasEmailDomain(email, p.emailDomain) {
		return nil, ErrEmailDomain
	}
	return &Identity{Subject: info.Sub, Email: email, Name: info.Name}, nil
}

func (p *GoogleProvider) hostedDomain() string {
	if len(p.emailDomain) > 1 {
		return p.emailDomain[1:]
	}
	return ""
}
