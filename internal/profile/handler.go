package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chirpverse/chirp/backend/internal/auth"
	"github.com/chirpverse/chirp/backend/internal/httpx"
	"github.com/chirpverse/chirp/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
)

type Service struct {
	DB *sqlx.DB
}

type updateReq struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Bio      string `json:"bio" binding:"max=240"`
}

func Register(rg *gin.RouterGroup, db *sqlx.DB) {
	s := Service{
		DB: db,
	}
	rg.GET("/users/profile", s.getMe)
	rg.GET("/users/profile/:userId", s.getByID)
	rg.PUT("/users/profile", s.update)
	rg.PUT("/users/follow/:userId", s.toggleFollow)
	rg.GET("/users/follow-status/:userId", s.followStatus)
	rg.GET("/users/following", s.following)
	rg.GET("/users/followers", s.followers)
	rg.GET("/users/search", s.search)
}

type profileRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	Bio          string `db:"bio"`
	ProfileImage string `db:"profile_image"`
	Posts        int    `db:"posts_count"`
	Followers    int    `db:"followers_count"`
	Following    int    `db:"following_count"`
}

func (s Service) fetchProfile(id int64) (*profileRow, error) {
	var p profileRow
	q := s.DB.Rebind(`
		SELECT u.id, u.username, u.email, u.bio, u.profile_image,
		       (SELECT COUNT(1) FROM posts WHERE author_id=u.id) AS posts_count,
		       (SELECT COUNT(1) FROM follows WHERE followee_id=u.id) AS followers_count,
		       (SELECT COUNT(1) FROM follows WHERE follower_id=u.id) AS following_count
		FROM users u WHERE u.id=?`)
	if err := s.DB.Get(&p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s Service) getMe(c *gin.Context) {
	uid := auth.MustUserID(c)

	p, err := s.fetchProfile(uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Err(c, http.StatusNotFound, "user not found")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "database error")
		}
		return
	}

	httpx.OK(c, gin.H{
		"id":             p.ID,
		"username":       p.Username,
		"email":          p.Email,
		"bio":            p.Bio,
		"profileImage":   p.ProfileImage,
		"postsCount":     p.Posts,
		"followersCount": p.Followers,
		"followingCount": p.Following,
	})
}

func (s Service) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid user id")
		return
	}

	p, err := s.fetchProfile(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Err(c, http.StatusNotFound, "user not found")
		} else {
			httpx.Err(c, http.StatusInternalServerError, "database error")
		}
		return
	}

	// Email stays private on other people's profiles.
	httpx.OK(c, gin.H{
		"id":             p.ID,
		"username":       p.Username,
		"bio":            p.Bio,
		"profileImage":   p.ProfileImage,
		"postsCount":     p.Posts,
		"followersCount": p.Followers,
		"followingCount": p.Following,
	})
}

func (s Service) update(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	var taken int
	q := s.DB.Rebind(`SELECT COUNT(1) FROM users WHERE username=? AND id<>?`)
	if err := s.DB.QueryRowx(q, req.Username, uid).Scan(&taken); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if taken > 0 {
		httpx.Err(c, http.StatusBadRequest, "username already taken")
		return
	}

	q = s.DB.Rebind(`UPDATE users SET username=?, bio=? WHERE id=?`)
	if _, err := s.DB.Exec(q, req.Username, req.Bio, uid); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "update failed")
		return
	}
	s.getMe(c)
}

func (s Service) toggleFollow(c *gin.Context) {
	uid := auth.MustUserID(c)
	target, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid user id")
		return
	}
	if target == uid {
		httpx.Err(c, http.StatusBadRequest, "cannot follow yourself")
		return
	}

	var exists int
	q := s.DB.Rebind(`SELECT COUNT(1) FROM users WHERE id=?`)
	if err := s.DB.QueryRowx(q, target).Scan(&exists); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if exists == 0 {
		httpx.Err(c, http.StatusNotFound, "user not found")
		return
	}

	var following int
	q = s.DB.Rebind(`SELECT COUNT(1) FROM follows WHERE follower_id=? AND followee_id=?`)
	if err := s.DB.QueryRowx(q, uid, target).Scan(&following); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}

	if following > 0 {
		q = s.DB.Rebind(`DELETE FROM follows WHERE follower_id=? AND followee_id=?`)
		if _, err := s.DB.Exec(q, uid, target); err != nil {
			httpx.Err(c, http.StatusInternalServerError, "unfollow failed")
			return
		}
	} else {
		q = s.DB.Rebind(`INSERT INTO follows (follower_id, followee_id) VALUES (?, ?)`)
		if _, err := s.DB.Exec(q, uid, target); err != nil {
			httpx.Err(c, http.StatusInternalServerError, "follow failed")
			return
		}
	}

	// Friendship means both directions exist after the toggle.
	var followedBy, followersCount int
	q = s.DB.Rebind(`SELECT COUNT(1) FROM follows WHERE follower_id=? AND followee_id=?`)
	_ = s.DB.QueryRowx(q, target, uid).Scan(&followedBy)
	q = s.DB.Rebind(`SELECT COUNT(1) FROM follows WHERE followee_id=?`)
	_ = s.DB.QueryRowx(q, target).Scan(&followersCount)

	isFollowing := following == 0
	httpx.OK(c, gin.H{
		"isFollowing":    isFollowing,
		"isFriend":       isFollowing && followedBy > 0,
		"followersCount": followersCount,
	})
}

func (s Service) followStatus(c *gin.Context) {
	uid := auth.MustUserID(c)
	target, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid user id")
		return
	}

	var exists int
	q := s.DB.Rebind(`SELECT COUNT(1) FROM users WHERE id=?`)
	if err := s.DB.QueryRowx(q, target).Scan(&exists); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if exists == 0 {
		httpx.Err(c, http.StatusNotFound, "user not found")
		return
	}

	var isFollowing, isFollowedBy int
	q = s.DB.Rebind(`SELECT COUNT(1) FROM follows WHERE follower_id=? AND followee_id=?`)
	if err := s.DB.QueryRowx(q, uid, target).Scan(&isFollowing); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if err := s.DB.QueryRowx(q, target, uid).Scan(&isFollowedBy); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}

	httpx.OK(c, gin.H{
		"isFollowing":  isFollowing > 0,
		"isFollowedBy": isFollowedBy > 0,
		"isFriend":     isFollowing > 0 && isFollowedBy > 0,
	})
}

type userCard struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Bio          string `db:"bio"`
	ProfileImage string `db:"profile_image"`
	Posts        int    `db:"posts_count"`
	Followers    int    `db:"followers_count"`
	Following    int    `db:"following_count"`
}

func (s Service) listFollowGraph(c *gin.Context, joinCol, filterCol string) {
	uid := auth.MustUserID(c)

	q := s.DB.Rebind(fmt.Sprintf(`
		SELECT u.id, u.username, u.bio, u.profile_image,
		       (SELECT COUNT(1) FROM posts WHERE author_id=u.id) AS posts_count,
		       (SELECT COUNT(1) FROM follows WHERE followee_id=u.id) AS followers_count,
		       (SELECT COUNT(1) FROM follows WHERE follower_id=u.id) AS following_count
		FROM users u
		JOIN follows f ON f.%s = u.id
		WHERE f.%s = ?
		ORDER BY u.username ASC`, joinCol, filterCol))

	var cards []userCard
	if err := s.DB.Select(&cards, q, uid); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}

	list := []gin.H{}
	for _, u := range cards {
		list = append(list, gin.H{
			"id":             u.ID,
			"username":       u.Username,
			"bio":            u.Bio,
			"profileImage":   u.ProfileImage,
			"postsCount":     u.Posts,
			"followersCount": u.Followers,
			"followingCount": u.Following,
		})
	}
	httpx.OK(c, list)
}

func (s Service) following(c *gin.Context) {
	s.listFollowGraph(c, "followee_id", "follower_id")
}

func (s Service) followers(c *gin.Context) {
	s.listFollowGraph(c, "follower_id", "followee_id")
}

func (s Service) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		httpx.Err(c, http.StatusBadRequest, "query parameter is required")
		return
	}

	q := s.DB.Rebind(`SELECT id, username, profile_image FROM users WHERE username LIKE ? LIMIT 10`)
	rows, err := s.DB.Queryx(q, "%"+query+"%")
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database query failed")
		return
	}
	defer rows.Close()

	users := []gin.H{}
	for rows.Next() {
		var (
			id           int64
			username     string
			profileImage string
		)
		if err := rows.Scan(&id, &username, &profileImage); err != nil {
			continue
		}
		users = append(users, gin.H{
			"id":           id,
			"username":     username,
			"profileImage": profileImage,
		})
	}

	httpx.OK(c, gin.H{"users": users})
}
