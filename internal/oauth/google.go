package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Profile is the verified identity returned by the provider after a
// successful code exchange.
type Profile struct {
	Email         string
	Name          string
	EmailVerified bool
}

// ProviderError carries the provider's failure details. Handlers only ever
// surface its presence, never its contents.
type ProviderError struct {
	Operation   string
	Status      int
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("google %s failed: status %d: %s", e.Operation, e.Status, e.Description)
}

// Config holds the Google OAuth client settings. AuthURL, TokenURL and
// UserInfoURL default to Google's endpoints and are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// GoogleProvider exchanges authorization codes with Google for a verified
// email address.
type GoogleProvider struct {
	cfg        Config
	httpClient *http.Client
}

func NewGoogle(cfg Config) *GoogleProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleProvider{cfg: cfg, httpClient: client}
}

// AuthCodeURL builds the provider authorization URL the frontend redirects
// the user to.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(p.cfg.Scopes, " ")},
		"state":         {state},
	}
	return p.cfg.AuthURL + "?" + params.Encode()
}

// Exchange trades an authorization code for the user's profile. It performs
// the token exchange and the userinfo lookup back to back; callers get a
// verified identity or a *ProviderError.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	accessToken, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.userInfo(ctx, accessToken)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

func (p *GoogleProvider) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.cfg.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &ProviderError{Operation: "exchange", Status: resp.StatusCode, Description: "invalid token response"}
	}
	if resp.StatusCode != http.StatusOK || tok.Error != "" {
		desc := tok.ErrorDesc
		if desc == "" {
			desc = tok.Error
		}
		return "", &ProviderError{Operation: "exchange", Status: resp.StatusCode, Description: desc}
	}
	if tok.AccessToken == "" {
		return "", &ProviderError{Operation: "exchange", Status: resp.StatusCode, Description: "missing access token"}
	}
	return tok.AccessToken, nil
}

type userInfoResponse struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (p *GoogleProvider) userInfo(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Operation: "user_info", Status: resp.StatusCode, Description: strings.TrimSpace(string(body))}
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &ProviderError{Operation: "user_info", Status: resp.StatusCode, Description: "invalid userinfo response"}
	}
	if info.Email == "" {
		return nil, &ProviderError{Operation: "user_info", Status: resp.StatusCode, Description: "missing email"}
	}

	return &Profile{
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: info.EmailVerified,
	}, nil
}
