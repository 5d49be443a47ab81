package api

import (
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"learnassist/internal/auth"
	"learnassist/internal/models"
	"learnassist/internal/service/assistant"
)

const (
	detailInvalidCourseID = "Course ID is not a valid course ID."
	detailInvalidBody     = "Invalid request body."
	requestIDHeader       = "X-Request-ID"
	courseRunContextKey   = "course_run_id"
)

// courseKeyPattern accepts both legacy slash-separated course keys and
// modern keys like course-v1:org+course+run.
var courseKeyPattern = regexp.MustCompile(`^([^/+]+(/|\+)[^/+]+(/|\+)[^/?]+|[A-Za-z0-9\-_:]+)$`)

// Handler wires HTTP routes to the assistant service.
type Handler struct {
	assistant *assistant.Service
	auth      *auth.Service
}

// NewHandler constructs a Handler instance.
func NewHandler(service *assistant.Service, authService *auth.Service) *Handler {
	return &Handler{
		assistant: service,
		auth:      authService,
	}
}

// RequestID tags every request with an id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(RequestID())

	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)

	authMW := h.auth.Middleware()
	users := api.Group("/users")
	users.Use(authMW)
	users.POST("/logout", h.logoutUser)
	users.DELETE("", h.deleteUser)

	courses := router.Group("/api/v1/courses/:course_run_id")
	courses.Use(authMW, h.requireCourseRun())
	courses.POST("/chat", h.chat)
	courses.GET("/enabled", h.courseEnabled)
	courses.PUT("/enabled", h.setCourseEnabled)
	courses.GET("/history", h.courseHistory)
	courses.GET("/chat-summary", h.chatSummary)
}

// requireCourseRun validates the course run id path segment before any
// course handler runs.
func (h *Handler) requireCourseRun() gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("course_run_id")
		if runID == "" || !courseKeyPattern.MatchString(runID) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": detailInvalidCourseID})
			return
		}
		c.Set(courseRunContextKey, runID)
		c.Next()
	}
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

func courseRunID(c *gin.Context) string {
	return c.GetString(courseRunContextKey)
}

// messageCount reads the message_count query parameter; zero means the
// configured default.
func messageCount(c *gin.Context) (int, bool) {
	raw := c.Query("message_count")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// writeServiceError maps the orchestrator's typed errors onto the wire.
func writeServiceError(c *gin.Context, err error) {
	var verr *assistant.ValidationError
	if errors.As(err, &verr) {
		body := gin.H{"detail": verr.Detail}
		if len(verr.Errors) > 0 {
			body["errors"] = verr.Errors
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	var aerr *assistant.AccessError
	if errors.As(err, &aerr) {
		c.JSON(http.StatusForbidden, gin.H{"detail": aerr.Reason})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
}

func (h *Handler) chat(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var messages []models.ChatMessage
	if err := c.ShouldBindJSON(&messages); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": detailInvalidBody})
		return
	}

	result, err := h.assistant.Chat(c.Request.Context(), userID, courseRunID(c), c.Query("unit_id"), messages)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if result.StatusCode == http.StatusOK && result.Message != nil {
		c.JSON(http.StatusOK, result.Message)
		return
	}
	c.JSON(result.StatusCode, gin.H{"detail": result.Detail})
}

func (h *Handler) courseEnabled(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	enabled, err := h.assistant.Enabled(c.Request.Context(), courseRunID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) setCourseEnabled(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": detailInvalidBody})
		return
	}
	row, err := h.assistant.SetCourseEnabled(c.Request.Context(), userID, courseRunID(c), *req.Enabled)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler) courseHistory(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	count, ok := messageCount(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message_count must be a non-negative integer."})
		return
	}
	messages, err := h.assistant.History(c.Request.Context(), userID, courseRunID(c), count)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) chatSummary(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	count, ok := messageCount(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message_count must be a non-negative integer."})
		return
	}
	summary, err := h.assistant.ChatSummary(c.Request.Context(), userID, courseRunID(c), count)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// User create&login interface
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.assistant.RegisterUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.assistant.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookie(c, authToken)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
		"auth_token": authToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	if err := h.auth.RevokeUserTokens(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.assistant.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.clearAuthCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAuthCookie(c *gin.Context, authToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookie(c *gin.Context) {
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
