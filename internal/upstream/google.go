package upstream

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Gmail scopes requested on consent.
var GmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Google wraps the OAuth2 web flow for connecting a Gmail account.
type Google struct {
	OAuth       *oauth2.Config
	UserInfoURL string
	HTTP        *http.Client
}

// NewGoogle builds the OAuth2 config for Google's endpoints. A non-zero
// endpoint overrides google.Endpoint.
func NewGoogle(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint) *Google {
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	return &Google{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       GmailScopes,
			Endpoint:     endpoint,
		},
		UserInfoURL: GoogleUserInfo,
	}
}

// AuthURL is the consent page URL. Offline access with forced consent makes
// Google return a refresh token.
func (g *Google) AuthURL(state string) string {
	return g.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token.
func (g *Google) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if g.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTP)
	}
	return g.OAuth.Exchange(ctx, code)
}

// Email returns the address of the account that granted tok.
func (g *Google) Email(ctx context.Context, tok *oauth2.Token) (string, error) {
	if g.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTP)
	}
	hc := g.OAuth.Client(ctx, tok)
	hc.Timeout = DefaultTimeout

	req, err := http.NewRequest(http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return "", err
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := doJSON(ctx, hc, req, &info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", errors.New("userinfo response has no email")
	}
	return info.Email, nil
}
