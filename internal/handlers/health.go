package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Components  map[string]string `json:"components"`
	Environment string            `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Components:  make(map[string]string, len(h.health)),
		Environment: h.cfg.Environment,
	}
	status := http.StatusOK
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			h.log.Error().Err(err).Str("component", name).Msg("health check failed")
			resp.Components[name] = "error"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}

	c.JSON(status, resp)
}
