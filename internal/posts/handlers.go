package posts

import (
	"net/http"
	"strconv"
	"time"

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

type createReq struct {
	Content string `json:"content" binding:"required,max=500"`
}

type commentReq struct {
	Content  string `json:"content" binding:"required,max=500"`
	ParentID *int64 `json:"parentId"`
}

func Register(rg *gin.RouterGroup, db *sqlx.DB) {
	s := Service{
		DB: db,
	}
	rg.GET("/posts", s.feed)
	rg.GET("/posts/user/:userId", s.byUser)
	rg.POST("/posts", s.create)
	rg.PUT("/posts/edit/:postId", s.edit)
	rg.DELETE("/posts/:postId", s.remove)
	rg.PUT("/posts/like/:postId", s.toggleLike)
	rg.POST("/posts/comments/:postId", s.addComment)
	rg.GET("/posts/comments/:postId", s.listComments)
}

type postRow struct {
	ID        int64     `db:"id"`
	AuthorID  int64     `db:"author_id"`
	Author    string    `db:"author"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	Likes     int       `db:"likes"`
	Comments  int       `db:"comments"`
	IsLiked   bool      `db:"is_liked"`
}

func (s Service) listPosts(c *gin.Context, filterAuthor int64) {
	uid := auth.MustUserID(c)

	query := `
		SELECT p.id, p.author_id, u.username AS author, p.content, p.created_at,
		       (SELECT COUNT(1) FROM post_likes WHERE post_id=p.id) AS likes,
		       (SELECT COUNT(1) FROM comments WHERE post_id=p.id) AS comments,
		       EXISTS(SELECT 1 FROM post_likes WHERE post_id=p.id AND user_id=?) AS is_liked
		FROM posts p
		JOIN users u ON u.id = p.author_id`
	args := []any{uid}
	if filterAuthor != 0 {
		query += ` WHERE p.author_id=?`
		args = append(args, filterAuthor)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	var rows []postRow
	if err := s.DB.Select(&rows, s.DB.Rebind(query), args...); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "failed to fetch posts")
		return
	}

	list := []gin.H{}
	for _, p := range rows {
		list = append(list, gin.H{
			"id":        p.ID,
			"authorId":  p.AuthorID,
			"author":    p.Author,
			"content":   p.Content,
			"timestamp": p.CreatedAt,
			"likes":     p.Likes,
			"comments":  p.Comments,
			"isLiked":   p.IsLiked,
		})
	}
	httpx.OK(c, list)
}

func (s Service) feed(c *gin.Context) {
	s.listPosts(c, 0)
}

func (s Service) byUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid user id")
		return
	}
	s.listPosts(c, id)
}

func (s Service) create(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	var id int64
	q := s.DB.Rebind(`INSERT INTO posts (author_id, content, created_at) VALUES (?, ?, ?) RETURNING id`)
	if err := s.DB.QueryRowx(q, uid, req.Content, now).Scan(&id); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "create post failed")
		return
	}

	var author string
	q = s.DB.Rebind(`SELECT username FROM users WHERE id=?`)
	_ = s.DB.QueryRowx(q, uid).Scan(&author)

	httpx.Created(c, gin.H{
		"id":        id,
		"authorId":  uid,
		"author":    author,
		"content":   req.Content,
		"timestamp": now,
		"likes":     0,
		"comments":  0,
		"isLiked":   false,
	})
}

func (s Service) edit(c *gin.Context) {
	uid := auth.MustUserID(c)
	id, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid post id")
		return
	}
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	q := s.DB.Rebind(`UPDATE posts SET content=? WHERE id=? AND author_id=?`)
	res, err := s.DB.Exec(q, req.Content, id, uid)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "update failed")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		httpx.Err(c, http.StatusNotFound, "post not found")
		return
	}
	httpx.OK(c, gin.H{"ok": true})
}

func (s Service) remove(c *gin.Context) {
	uid := auth.MustUserID(c)
	id, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid post id")
		return
	}

	q := s.DB.Rebind(`DELETE FROM posts WHERE id=? AND author_id=?`)
	res, err := s.DB.Exec(q, id, uid)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "delete failed")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		httpx.Err(c, http.StatusNotFound, "post not found")
		return
	}
	httpx.OK(c, gin.H{"ok": true})
}

func (s Service) toggleLike(c *gin.Context) {
	uid := auth.MustUserID(c)
	id, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid post id")
		return
	}

	var exists int
	q := s.DB.Rebind(`SELECT COUNT(1) FROM posts WHERE id=?`)
	if err := s.DB.QueryRowx(q, id).Scan(&exists); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if exists == 0 {
		httpx.Err(c, http.StatusNotFound, "post not found")
		return
	}

	var liked int
	q = s.DB.Rebind(`SELECT COUNT(1) FROM post_likes WHERE post_id=? AND user_id=?`)
	if err := s.DB.QueryRowx(q, id, uid).Scan(&liked); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}

	if liked > 0 {
		q = s.DB.Rebind(`DELETE FROM post_likes WHERE post_id=? AND user_id=?`)
		_, err = s.DB.Exec(q, id, uid)
	} else {
		q = s.DB.Rebind(`INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)`)
		_, err = s.DB.Exec(q, id, uid)
	}
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "like toggle failed")
		return
	}

	var likes int
	q = s.DB.Rebind(`SELECT COUNT(1) FROM post_likes WHERE post_id=?`)
	_ = s.DB.QueryRowx(q, id).Scan(&likes)

	httpx.OK(c, gin.H{"isLiked": liked == 0, "likes": likes})
}

func (s Service) addComment(c *gin.Context) {
	uid := auth.MustUserID(c)
	id, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid post id")
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	var exists int
	q := s.DB.Rebind(`SELECT COUNT(1) FROM posts WHERE id=?`)
	if err := s.DB.QueryRowx(q, id).Scan(&exists); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database error")
		return
	}
	if exists == 0 {
		httpx.Err(c, http.StatusNotFound, "post not found")
		return
	}

	now := time.Now().UTC()
	var cid int64
	q = s.DB.Rebind(`INSERT INTO comments (post_id, author_id, parent_id, content, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := s.DB.QueryRowx(q, id, uid, req.ParentID, req.Content, now).Scan(&cid); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "comment failed")
		return
	}

	httpx.Created(c, gin.H{"id": cid, "postId": id, "parentId": req.ParentID, "content": req.Content, "timestamp": now})
}

func (s Service) listComments(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "invalid post id")
		return
	}

	q := s.DB.Rebind(`
		SELECT c.id, c.author_id, u.username, c.parent_id, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id=?
		ORDER BY c.created_at ASC, c.id ASC`)
	rows, err := s.DB.Queryx(q, id)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "failed to fetch comments")
		return
	}
	defer rows.Close()

	list := []gin.H{}
	for rows.Next() {
		var (
			cid, authorID int64
			username      string
			parentID      *int64
			content       string
			createdAt     time.Time
		)
		if err := rows.Scan(&cid, &authorID, &username, &parentID, &content, &createdAt); err != nil {
			continue
		}
		list = append(list, gin.H{
			"id":        cid,
			"authorId":  authorID,
			"author":    username,
			"parentId":  parentID,
			"content":   content,
			"timestamp": createdAt,
		})
	}
	httpx.OK(c, list)
}
