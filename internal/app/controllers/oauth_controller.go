package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hverma/enrollhub/internal/app/services"
	"github.com/hverma/enrollhub/internal/middleware"
	"github.com/hverma/enrollhub/internal/pkg/googleauth"
	"github.com/hverma/enrollhub/internal/pkg/logger"
)

// Session cookie lifetime, fixed at one hour.
const sessionCookieMaxAge = 3600

// CodeExchanger is the provider surface the OAuth controller needs.
// Satisfied by googleauth.Client.
type CodeExchanger interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*googleauth.Tokens, error)
}

// OAuthController brokers the authorization-code flow with the identity
// provider and manages the session cookies.
type OAuthController struct {
	exchanger      CodeExchanger
	sessionService *services.SessionService
	frontendOrigin string
}

// NewOAuthController creates a new OAuthController
func NewOAuthController(exchanger CodeExchanger, sessionService *services.SessionService, frontendOrigin string) *OAuthController {
	return &OAuthController{
		exchanger:      exchanger,
		sessionService: sessionService,
		frontendOrigin: frontendOrigin,
	}
}

// Login redirects the browser to the provider's consent screen
// @Summary Start OAuth login
// @Tags auth
// @Success 307 "Redirect to the identity provider"
// @Router /login [get]
func (c *OAuthController) Login(ctx *gin.Context) {
	ctx.Redirect(http.StatusTemporaryRedirect, c.exchanger.AuthCodeURL(""))
}

// Callback handles the provider redirect: exchanges the code, validates the
// identity, enforces the allowlist and the single-session policy, then sets
// the session cookies.
// @Summary OAuth callback
// @Tags auth
// @Param code query string true "Authorization code"
// @Success 303 "Redirect to the frontend"
// @Router /oauth2/callback [get]
func (c *OAuthController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	if code == "" {
		c.redirectWithError(ctx, "login_failed")
		return
	}

	tokens, err := c.exchanger.ExchangeCode(ctx.Request.Context(), code)
	if err != nil {
		logger.Error().Err(err).Msg("Token exchange failed")
		c.redirectWithError(ctx, "login_failed")
		return
	}

	identity, err := c.sessionService.ValidateAndAuthorize(ctx.Request.Context(), tokens.IDToken)
	if err != nil {
		logger.Warn().Err(err).Msg("Login rejected")
		c.redirectWithError(ctx, "unauthorized")
		return
	}

	err = c.sessionService.Login(identity, services.SessionTokens{
		IDToken:      tokens.IDToken,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
	if err != nil {
		logger.Warn().Str("identity", identity).Msg("Duplicate login attempt")
		c.redirectWithError(ctx, "already_logged_in")
		return
	}

	// HTTP-only cookie carries the id token; a companion readable cookie
	// exposes the identity to the frontend.
	ctx.SetCookie(middleware.IDTokenCookie, tokens.IDToken, sessionCookieMaxAge, "/", "", false, true)
	ctx.SetCookie(middleware.EmailCookie, identity, sessionCookieMaxAge, "/", "", false, false)

	ctx.Redirect(http.StatusSeeOther, c.frontendOrigin+"/home")
}

// Signout drops the session and expires both cookies immediately
// @Summary Sign out
// @Tags auth
// @Success 200 {object} dto.SuccessResponse
// @Router /signout [post]
func (c *OAuthController) Signout(ctx *gin.Context) {
	if email, err := ctx.Cookie(middleware.EmailCookie); err == nil && email != "" {
		c.sessionService.Logout(email)
	}

	ctx.SetCookie(middleware.IDTokenCookie, "", -1, "/", "", false, true)
	ctx.SetCookie(middleware.EmailCookie, "", -1, "/", "", false, false)

	ctx.Status(http.StatusOK)
}

func (c *OAuthController) redirectWithError(ctx *gin.Context, reason string) {
	ctx.Redirect(http.StatusSeeOther, c.frontendOrigin+"/?error="+reason)
}
