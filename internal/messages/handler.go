package messages

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/chirpverse/chirp/backend/internal/auth"
	"github.com/chirpverse/chirp/backend/internal/httpx"
	"github.com/chirpverse/chirp/backend/internal/metrics"
	"github.com/chirpverse/chirp/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Service struct {
	Store    *Store
	Notifier Notifier
}

type sendReq struct {
	RecipientID int64  `json:"recipientId" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

func Register(rg *gin.RouterGroup, store *Store, notifier Notifier) {
	s := Service{
		Store:    store,
		Notifier: notifier,
	}
	rg.POST("/messages/send", s.send)
	rg.GET("/messages/:userId", s.history)
	rg.PUT("/messages/read/:partnerId", s.markRead)
}

func (s Service) send(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := s.Store.Send(uid, req.RecipientID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrContentTooLong), errors.Is(err, ErrSelfMessage):
			httpx.Err(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			httpx.Err(c, http.StatusNotFound, "recipient not found")
		default:
			slog.Error("send message failed", "sender", uid, "err", err)
			httpx.Err(c, http.StatusInternalServerError, "server error")
		}
		return
	}

	metrics.MessagesSent.Inc()

	// Fire-and-forget realtime push; never affects the HTTP response.
	s.Notifier.Push(msg.RecipientID, *msg)

	httpx.Created(c, msg)
}

func (s Service) history(c *gin.Context) {
	uid := auth.MustUserID(c)
	partner, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid user id")
		return
	}

	list, err := s.Store.History(uid, partner)
	if err != nil {
		slog.Error("fetch history failed", "user", uid, "partner", partner, "err", err)
		httpx.Err(c, http.StatusInternalServerError, "server error")
		return
	}
	if list == nil {
		list = []Message{}
	}
	httpx.OK(c, list)
}

func (s Service) markRead(c *gin.Context) {
	uid := auth.MustUserID(c)
	partner, err := strconv.ParseInt(c.Param("partnerId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid partner id")
		return
	}

	if err := s.Store.MarkRead(uid, partner); err != nil {
		slog.Error("mark read failed", "user", uid, "partner", partner, "err", err)
		httpx.Err(c, http.StatusInternalServerError, "server error")
		return
	}
	httpx.OK(c, gin.H{"message": "messages marked as read"})
}
