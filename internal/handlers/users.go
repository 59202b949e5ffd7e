package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nvrgate/internal/middleware"
	"nvrgate/internal/service"
)

type listUsersResponse struct {
	Users []service.UserWithID `json:"users"`
}

type createUserResponse struct {
	ID int32 `json:"id"`
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.CurrentCaller(c))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listUsersResponse{Users: users})
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req service.PostUsersRequest
	if err := bindBody(c, &req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	id, err := h.users.Create(c.Request.Context(), middleware.CurrentCaller(c), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, createUserResponse{ID: id})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	id, err := userIDParam(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	user, err := h.users.Get(c.Request.Context(), middleware.CurrentCaller(c), id)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h HandlerSet) PatchUser(c *gin.Context) {
	id, err := userIDParam(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	var req service.PatchUserRequest
	if err := bindBody(c, &req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if err := h.users.Patch(c.Request.Context(), middleware.CurrentCaller(c), id, req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	noContent(c)
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	id, err := userIDParam(c)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	var req service.DeleteUserRequest
	if err := bindBody(c, &req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	if err := h.users.Delete(c.Request.Context(), middleware.CurrentCaller(c), id, req); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	noContent(c)
}
