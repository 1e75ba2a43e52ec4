package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatgate/logger"
	midsec "chatgate/middleware/security"
	usersvc "chatgate/module/user/service"
	"chatgate/service/storage"
	"chatgate/tools/errs"
	"chatgate/tools/security"
)

// Handler issues credentials. Login is where "last login wins"
// originates: every successful login overwrites the account's SSO
// binding, superseding any still-unexpired earlier token.
type Handler struct {
	dir     usersvc.Directory
	sso     storage.SsoStore
	jwtOpts security.Options
}

func NewHandler(dir usersvc.Directory, sso storage.SsoStore, jwtOpts security.Options) *Handler {
	return &Handler{dir: dir, sso: sso, jwtOpts: jwtOpts}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}

	u, err := usersvc.Authenticate(c.Request.Context(), h.dir, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errs.ErrBadCredentials)
		return
	}

	token, jti, expireAt, err := security.Generate(h.jwtOpts, u.Username)
	if err != nil {
		logger.Errorf("[auth] token generation failed for %s: %v", u.Username, err)
		c.JSON(http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}

	// Overwrite unconditionally; TTL tracks the credential lifetime.
	if err := h.sso.Bind(c.Request.Context(), u.Username, jti, h.jwtOpts.TTL); err != nil {
		logger.Errorf("[auth] sso bind failed for %s: %v", u.Username, err)
		c.JSON(http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}

	logger.Infof("[auth] login user=%s", u.Username)
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"token":    token,
			"expireAt": expireAt.Unix(),
			"user": gin.H{
				"id":       u.ID,
				"username": u.Username,
				"nickname": u.DisplayName(),
			},
		},
	})
}

// Logout drops the SSO binding so the presented token stops being
// current even before it expires.
func (h *Handler) Logout(c *gin.Context) {
	username := midsec.Username(c)
	if username == "" {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenMissing)
		return
	}
	if err := h.sso.Invalidate(c.Request.Context(), username); err != nil {
		logger.Warnf("[auth] sso invalidate failed for %s: %v", username, err)
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}
