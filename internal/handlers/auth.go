package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nvrgate/internal/errs"
	"nvrgate/internal/middleware"
	"nvrgate/internal/models"
	"nvrgate/internal/security"
	"nvrgate/internal/server"
	"nvrgate/internal/service"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Bearer also returns a bearer token wrapping the new session.
	Bearer bool `json:"bearer"`
}

type loginResponse struct {
	CSRF        string `json:"csrf"`
	BearerToken string `json:"bearerToken,omitempty"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := bindBody(c, &req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	if req.Username == "" {
		middleware.AbortWithError(c, errs.New(errs.InvalidArgument, "username must be specified"))
		return
	}

	input := service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	}
	if ua := c.GetHeader("User-Agent"); ua != "" {
		input.UserAgent = &ua
	}
	addr := c.ClientIP()
	if info, ok := server.ConnInfoFrom(c.Request.Context()); ok && info.RemoteAddr != "" {
		addr = info.RemoteAddr
	}
	input.Addr = &addr

	issued, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	resp := loginResponse{CSRF: security.CSRFToken(h.cfg.Security.CSRFSecret, issued.Session.Hash)}
	if req.Bearer {
		token, err := h.auth.BearerToken(issued)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		resp.BearerToken = token
	}

	http.SetCookie(c.Writer, issued.HTTPCookie())
	c.JSON(http.StatusOK, resp)
}

type sessionUser struct {
	ID          int32              `json:"id"`
	Username    string             `json:"username"`
	Permissions models.Permissions `json:"permissions"`
	Preferences models.Preferences `json:"preferences"`
}

type sessionResponse struct {
	User sessionUser `json:"user"`
	// Permissions are the session's own, which may be narrower than the user's.
	Permissions models.Permissions `json:"permissions"`
	CSRF        string             `json:"csrf,omitempty"`
}

func (h HandlerSet) Session(c *gin.Context) {
	caller := middleware.CurrentCaller(c)
	view := service.NewUserView(*caller.User)

	resp := sessionResponse{
		User: sessionUser{
			ID:          caller.User.ID,
			Username:    view.Username,
			Permissions: view.Permissions,
			Preferences: view.Preferences,
		},
		Permissions: caller.Permissions,
	}
	if caller.ViaSession {
		resp.CSRF = caller.CSRF
	}
	c.JSON(http.StatusOK, resp)
}
