package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	midsec "chatgate/middleware/security"
	chatsvc "chatgate/module/chat/service"
	usersvc "chatgate/module/user/service"
	"chatgate/tools/errs"
)

// Handler is the REST read side: history, roster, status, and the
// administrative sweep trigger. All routes sit behind the auth
// middleware.
type Handler struct {
	svc *chatsvc.ChatService
	dir usersvc.Directory
}

func NewHandler(svc *chatsvc.ChatService, dir usersvc.Directory) *Handler {
	return &Handler{svc: svc, dir: dir}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/messages/public", h.RecentPublicMessages)
	rg.GET("/messages/private/:userId", h.PrivateMessages)
	rg.GET("/users/online", h.OnlineUsers)
	rg.GET("/users/:userId/status", h.UserStatus)
	rg.POST("/admin/cleanup", h.TriggerCleanup)
}

func (h *Handler) RecentPublicMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	roomID := c.DefaultQuery("roomId", "public")

	msgs, err := h.svc.RecentPublic(c.Request.Context(), roomID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": msgs})
}

func (h *Handler) PrivateMessages(c *gin.Context) {
	other, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	caller, err := h.dir.FindByUsername(c.Request.Context(), midsec.Username(c))
	if err != nil || caller == nil {
		c.JSON(http.StatusUnauthorized, errs.ErrUserNotFound)
		return
	}

	msgs, err := h.svc.PrivateBetween(c.Request.Context(), caller.ID, other, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errs.ErrStoreUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": msgs})
}

func (h *Handler) OnlineUsers(c *gin.Context) {
	roster := h.svc.OnlineUsers(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": roster})
}

func (h *Handler) UserStatus(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}
	online := h.svc.IsOnline(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"userId": userID, "online": online}})
}

func (h *Handler) TriggerCleanup(c *gin.Context) {
	cleaned := h.svc.SweepExpired(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"cleaned": cleaned}})
}
