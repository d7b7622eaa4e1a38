package users

import (
	"log/slog"
	"net/http"

	"github.com/chirpverse/chirp/backend/internal/auth"
	"github.com/chirpverse/chirp/backend/internal/config"
	"github.com/chirpverse/chirp/backend/internal/httpx"
	"github.com/chirpverse/chirp/backend/internal/mailer"
	"github.com/chirpverse/chirp/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
)

type Service struct {
	DB        *sqlx.DB
	JWTSecret string
	JWTTTLMin int
	Mail      mailer.Mailer
}

type registerReq struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func RegisterPublic(rg *gin.RouterGroup, db *sqlx.DB, cfg config.Config) {
	s := Service{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		JWTTTLMin: cfg.JWTTTLMin,
		Mail: mailer.Mailer{
			APIKey: cfg.SendGridAPIKey,
			From:   cfg.SendGridFrom,
		},
	}

	rg.POST("/auth/register", s.register)
	rg.POST("/auth/login", s.login)
}

func (s Service) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	var count int
	q := s.DB.Rebind(`SELECT COUNT(1) FROM users WHERE username=? OR email=?`)
	if err := s.DB.QueryRowx(q, req.Username, req.Email).Scan(&count); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if count > 0 {
		httpx.Err(c, http.StatusConflict, "username or email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "server error")
		return
	}

	var uid int64
	q = s.DB.Rebind(`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?) RETURNING id`)
	if err := s.DB.QueryRowx(q, req.Username, req.Email, hash).Scan(&uid); err != nil {
		httpx.Err(c, http.StatusBadRequest, "create user failed")
		return
	}

	tok, err := auth.NewToken(s.JWTSecret, uid, s.JWTTTLMin)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "token generation failed")
		return
	}

	// Welcome mail is best effort; registration never waits on it.
	go func(email, username string) {
		if err := s.Mail.SendWelcome(email, username); err != nil {
			slog.Warn("welcome email failed", "user", username, "err", err)
		}
	}(req.Email, req.Username)

	httpx.Created(c, gin.H{"token": tok, "userId": uid, "username": req.Username})
}

func (s Service) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	var id int64
	var hash string
	q := s.DB.Rebind(`SELECT id, password_hash FROM users WHERE username=?`)
	if err := s.DB.QueryRowx(q, req.Username).Scan(&id, &hash); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	tok, _ := auth.NewToken(s.JWTSecret, id, s.JWTTTLMin)
	httpx.OK(c, gin.H{"token": tok, "userId": id, "username": req.Username})
}
