package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"babel-relay/auth"
	"babel-relay/domain"
	errs "babel-relay/errors"
	"babel-relay/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const defaultSearchLimit = 20

type AdminHandler struct {
	log      *slog.Logger
	service  services.IChatService
	tokens   *auth.TokenManager
	validate *validator.Validate
}

func NewAdminHandler(log *slog.Logger, service services.IChatService, tokens *auth.TokenManager) *AdminHandler {
	return &AdminHandler{
		log:      log,
		service:  service,
		tokens:   tokens,
		validate: validator.New(),
	}
}

type issueTokenRequest struct {
	UserID string   `json:"userId" validate:"required,min=1,max=64"`
	Roles  []string `json:"roles"`
}

// IssueToken mints a bearer token for the admin surface. Who may call this
// is a deployment concern; the relay itself holds no user directory.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var body issueTokenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validate.Struct(body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.tokens.GenerateToken(body.UserID, body.Roles)
	if err != nil {
		h.log.Error("Token generation failed", "user", body.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AdminHandler) ListChats(c *gin.Context) {
	chats, err := h.service.ListChats()
	if err != nil {
		c.JSON(errs.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	if chats == nil {
		chats = []domain.ChatID{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *AdminHandler) CreateChat(c *gin.Context) {
	chat, err := h.service.CreateChat()
	if err != nil {
		c.JSON(errs.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chatId": chat})
}

// DeleteChat removes a chat and everything under it. Deleting a chat that
// does not exist is a no-op, so retried deletes stay idempotent.
func (h *AdminHandler) DeleteChat(c *gin.Context) {
	chat := domain.ChatID(c.Param("chatId"))
	if err := h.service.DeleteChat(chat); err != nil && !errors.Is(err, errs.ErrChatNotFound) {
		c.JSON(errs.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) SearchChat(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	hits, err := h.service.Search(c.Request.Context(), domain.ChatID(c.Param("chatId")), query, limit)
	if err != nil {
		c.JSON(errs.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}
