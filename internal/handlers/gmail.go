package handlers

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
	"github.com/PratikDhanave/intake-edge/internal/oauthstate"
	"github.com/PratikDhanave/intake-edge/internal/upstream"
)

const gmailProvider = "gmail"

// googleFlow resolves the OAuth client and state signer for this invocation.
func (f *Functions) googleFlow() (*upstream.Google, *oauthstate.Signer, error) {
	creds, err := config.Require(f.Secrets,
		config.GoogleClientID, config.GoogleClientSecret, config.GoogleRedirectURI, config.OAuthStateSecret)
	if err != nil {
		return nil, nil, err
	}
	g := upstream.NewGoogle(creds[0], creds[1], creds[2], f.Upstreams.GoogleEndpoint)
	if f.Upstreams.GoogleUserInfo != "" {
		g.UserInfoURL = f.Upstreams.GoogleUserInfo
	}
	g.HTTP = f.Upstreams.HTTP
	return g, oauthstate.New(creds[3], 0), nil
}

func (f *Functions) gmailAuth(c *gin.Context) (any, error) {
	g, signer, err := f.googleFlow()
	if err != nil {
		return nil, err
	}
	state, err := signer.Issue(gmailProvider)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to sign oauth state", err)
	}
	return models.GmailAuthResponse{AuthURL: g.AuthURL(state)}, nil
}

// gmailCallback finishes the consent flow. Failures after the code is
// present are reported to the browser through the redirect.
func (f *Functions) gmailCallback(c *gin.Context) (any, error) {
	g, signer, err := f.googleFlow()
	if err != nil {
		return nil, err
	}

	if denied := c.Query("error"); denied != "" {
		return f.settingsRedirect(url.Values{"gmail": {"error"}, "message": {denied}}), nil
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		return nil, apperr.Invalid("code is required")
	}

	log := edge.Logger(c)
	fail := func(msg string, err error) (any, error) {
		log.Warn().Err(err).Msg("gmail connect failed")
		return f.settingsRedirect(url.Values{"gmail": {"error"}, "message": {msg}}), nil
	}

	if _, err := signer.Verify(c.Query("state"), gmailProvider); err != nil {
		return fail("invalid state", err)
	}

	ctx := c.Request.Context()
	tok, err := g.Exchange(ctx, code)
	if err != nil {
		return fail("token exchange failed", err)
	}
	email, err := g.Email(ctx, tok)
	if err != nil {
		return fail("could not read account email", err)
	}

	if f.Gmail != nil {
		conn := models.GmailConnection{
			Email:        email,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		}
		if err := f.Gmail.SaveGmailConnection(ctx, conn); err != nil {
			return fail("could not save connection", err)
		}
	}

	log.Info().Str("email", email).Msg("gmail connected")
	return f.settingsRedirect(url.Values{"gmail": {"connected"}, "email": {email}}), nil
}

func (f *Functions) settingsRedirect(q url.Values) edge.Responder {
	return edge.Redirect(f.AppURL + "/admin/settings?" + q.Encode())
}
