// Package api exposes the authentication HTTP surface: the authorization
// initiator, the callback exchanger with its popup relay, the session issuer,
// and the local-credentials endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillsenselab/portal-auth/errors"
	"github.com/skillsenselab/portal-auth/logger"
	"github.com/skillsenselab/portal-auth/oauth"
	"github.com/skillsenselab/portal-auth/password"
	"github.com/skillsenselab/portal-auth/session"
	"github.com/skillsenselab/portal-auth/user"
	"github.com/skillsenselab/portal-auth/validation"
)

const tracerName = "github.com/skillsenselab/portal-auth/api"

// Handler carries the collaborators behind the auth routes.
type Handler struct {
	oauthCfg oauth.Config
	provider *oauth.Client
	states   oauth.StateStore
	users    user.Store
	sessions *session.Service
	hasher   password.Hasher
	tracer   trace.Tracer
	log      *logger.Logger
}

// NewHandler wires the auth handler. The oauth config must already be
// validated at startup.
func NewHandler(
	oauthCfg oauth.Config,
	provider *oauth.Client,
	states oauth.StateStore,
	users user.Store,
	sessions *session.Service,
	hasher password.Hasher,
	log *logger.Logger,
) *Handler {
	oauthCfg.ApplyDefaults()
	return &Handler{
		oauthCfg: oauthCfg,
		provider: provider,
		states:   states,
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tracer:   otel.Tracer(tracerName),
		log:      log.WithComponent("api"),
	}
}

// userBody is the user shape returned by every login-ish endpoint.
type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toUserBody(u *user.User) userBody {
	return userBody{ID: u.ID, Email: u.Email, Name: u.Name}
}

// respondError writes an AppError as the flat {"message": ...} body.
func respondError(c *gin.Context, appErr *errors.AppError) {
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// respondValidationError maps any validation failure to its AppError form.
func respondValidationError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Validation(err.Error())
	}
	respondError(c, appErr)
}

// respondCallbackError writes an AppError with the {"error": ...} key the
// callback endpoint has always used.
func respondCallbackError(c *gin.Context, appErr *errors.AppError) {
	c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message})
}

// Redirect handles GET /auth/oauth/redirect: it issues a fresh state token,
// records it for later callback validation, and returns the provider
// authorization URL. No outbound calls are made.
func (h *Handler) Redirect(c *gin.Context) {
	state, err := oauth.GenerateState()
	if err != nil {
		h.log.WithError(err).Error("Failed to generate state token")
		respondError(c, errors.Internal(err))
		return
	}

	req := oauth.AuthorizationRequest{
		State:       state,
		RedirectURI: h.oauthCfg.CallbackURL,
	}
	if err := h.states.Save(c.Request.Context(), req, h.oauthCfg.StateTTL); err != nil {
		h.log.WithError(err).Error("Failed to persist state token")
		respondError(c, errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"redirect_uri": h.provider.AuthorizationURL(state)})
}

// Callback handles GET /auth/oauth/callback: it validates the state token,
// exchanges the authorization code, fetches the profile, and relays the
// result to the opener window. Provider-side failures become AUTH_ERROR
// relays rather than HTTP errors because the popup has no handler attached
// mid-redirect.
func (h *Handler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		respondCallbackError(c, errors.InvalidInput("Authorization code is missing"))
		return
	}

	state := c.Query("state")
	req, err := h.states.Consume(c.Request.Context(), state)
	if err != nil {
		h.log.WithError(err).Error("State lookup failed")
		respondError(c, errors.Internal(err))
		return
	}
	if req == nil {
		respondCallbackError(c, errors.InvalidInput("Invalid or expired state"))
		return
	}

	token, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.WithError(errors.ExternalServiceError("token exchange", err)).Warn("Token exchange failed")
		h.relayError(c)
		return
	}

	profile, err := h.provider.UserInfo(c.Request.Context(), token.AccessToken)
	if err != nil {
		h.log.WithError(errors.ExternalServiceError("user info", err)).Warn("Profile fetch failed")
		h.relayError(c)
		return
	}

	page, err := oauth.SuccessRelay(profile, h.oauthCfg.FrontendOrigin)
	if err != nil {
		h.log.WithError(err).Error("Relay render failed")
		h.relayError(c)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// relayError responds with the AUTH_ERROR page. Provider error internals are
// never forwarded to the browser.
func (h *Handler) relayError(c *gin.Context) {
	page, err := oauth.ErrorRelay("Failed to authenticate", h.oauthCfg.FrontendOrigin)
	if err != nil {
		c.String(http.StatusInternalServerError, "Server error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

type oauthLoginRequest struct {
	OAuthData oauth.Profile `json:"oauthData"`
}

// OAuthLogin handles POST /auth/oauth-login: it validates the relayed profile,
// finds or creates the local user keyed on (email, oauthId), and issues a
// session token.
func (h *Handler) OAuthLogin(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "api.oauth_login")
	defer span.End()

	var body oauthLoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, errors.InvalidInput("Invalid request body"))
		return
	}
	if err := validation.Validate(&body.OAuthData); err != nil {
		respondValidationError(c, err)
		return
	}

	u, err := h.users.FindOrCreateOAuth(ctx, body.OAuthData.Email, body.OAuthData.ID, body.OAuthData.Name)
	if err != nil {
		appErr := errors.OAuthLoginFailed(err)
		h.log.WithError(appErr).Error("OAuth find-or-create failed")
		respondError(c, appErr)
		return
	}

	token, err := h.sessions.Issue(u.ID, u.Email)
	if err != nil {
		appErr := errors.OAuthLoginFailed(err)
		h.log.WithError(appErr).Error("Session issuance failed")
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserBody(u)})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /auth/login with local credentials.
func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, errors.InvalidInput("Invalid request body"))
		return
	}
	if err := validation.Validate(&body); err != nil {
		respondValidationError(c, err)
		return
	}

	u, err := h.users.FindByEmail(c.Request.Context(), body.Email)
	if err != nil {
		h.log.WithError(err).Error("User lookup failed")
		respondError(c, errors.DatabaseError(err))
		return
	}
	// Users provisioned through the identity provider have no password.
	if u == nil || u.PasswordHash == "" || h.hasher.Verify(body.Password, u.PasswordHash) != nil {
		respondError(c, errors.InvalidCredentials())
		return
	}

	token, err := h.sessions.Issue(u.ID, u.Email)
	if err != nil {
		h.log.WithError(err).Error("Session issuance failed")
		respondError(c, errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserBody(u)})
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
}

// Register handles POST /auth/register for local accounts.
func (h *Handler) Register(c *gin.Context) {
	var body registerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, errors.InvalidInput("Invalid request body"))
		return
	}
	if err := validation.Validate(&body); err != nil {
		respondValidationError(c, err)
		return
	}

	existing, err := h.users.FindByEmail(c.Request.Context(), body.Email)
	if err != nil {
		h.log.WithError(err).Error("User lookup failed")
		respondError(c, errors.DatabaseError(err))
		return
	}
	if existing != nil {
		respondError(c, errors.AlreadyExists("User"))
		return
	}

	hash, err := h.hasher.Hash(body.Password)
	if err != nil {
		respondError(c, errors.Validation("Invalid password").WithCause(err))
		return
	}

	u := &user.User{Email: body.Email, Name: body.Name, PasswordHash: hash}
	if err := h.users.Create(c.Request.Context(), u); err != nil {
		if err == user.ErrDuplicateEmail {
			respondError(c, errors.AlreadyExists("User"))
			return
		}
		h.log.WithError(err).Error("User creation failed")
		respondError(c, errors.DatabaseError(err))
		return
	}

	token, err := h.sessions.Issue(u.ID, u.Email)
	if err != nil {
		h.log.WithError(err).Error("Session issuance failed")
		respondError(c, errors.Internal(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": toUserBody(u)})
}

// Verify handles GET /auth/verify: the auth middleware has already validated
// the bearer token; this reloads the user and rotates the session token.
func (h *Handler) Verify(c *gin.Context) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		respondError(c, errors.InvalidToken())
		return
	}

	u, err := h.users.FindByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.log.WithError(err).Error("User lookup failed")
		respondError(c, errors.DatabaseError(err))
		return
	}
	if u == nil {
		respondError(c, errors.NotFound("User"))
		return
	}

	token, err := h.sessions.Issue(u.ID, u.Email)
	if err != nil {
		h.log.WithError(err).Error("Session issuance failed")
		respondError(c, errors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": toUserBody(u)})
}
