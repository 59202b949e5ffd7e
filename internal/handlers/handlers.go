package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"

	"nvrgate/internal/config"
	"nvrgate/internal/errs"
	"nvrgate/internal/middleware"
	"nvrgate/internal/service"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Resolver middleware.CallerResolver
	// Health checks by component name, e.g. "database".
	Health map[string]HealthCheck
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	users    *service.UserService
	resolver middleware.CallerResolver
	health   map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     deps.Auth,
		users:    deps.Users,
		resolver: deps.Resolver,
		health:   deps.Health,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.POST("/login", h.Login)

	api := router.Group("")
	api.Use(middleware.Caller(h.resolver))
	{
		api.GET("/session", middleware.RequireUser(), h.Session)

		api.GET("/users", h.ListUsers)
		api.POST("/users", h.CreateUser)
		api.GET("/users/:id", h.GetUser)
		api.PATCH("/users/:id", h.PatchUser)
		api.DELETE("/users/:id", h.DeleteUser)
	}
}

// bindBody decodes a JSON request body. Unknown top-level members are rejected; an empty
// body leaves v at its zero value.
func bindBody(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindWith(v, binding.JSON); err != nil {
		return errs.Wrap(err, errs.InvalidArgument, "bad request body")
	}
	return nil
}

func userIDParam(c *gin.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		return 0, errs.New(errs.InvalidArgument, "invalid user id %q", c.Param("id"))
	}
	return int32(id), nil
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
