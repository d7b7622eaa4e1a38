package conversations

import (
	"log/slog"
	"net/http"

	"github.com/chirpverse/chirp/backend/internal/auth"
	"github.com/chirpverse/chirp/backend/internal/httpx"
	"github.com/gin-gonic/gin"
)

func Register(rg *gin.RouterGroup, svc *Service) {
	rg.GET("/conversations", func(c *gin.Context) {
		uid := auth.MustUserID(c)

		list, err := svc.ListForUser(uid)
		if err != nil {
			// All or nothing: never a truncated list.
			slog.Error("list conversations failed", "user", uid, "err", err)
			httpx.Err(c, http.StatusInternalServerError, "server error")
			return
		}
		httpx.OK(c, list)
	})
}
