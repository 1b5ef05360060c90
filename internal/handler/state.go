package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valuator/internal/model"
	"valuator/internal/service"
)

// StateHandler exposes the persisted client state
type StateHandler struct {
	state *service.ClientState
}

// NewStateHandler creates a new state handler
func NewStateHandler(state *service.ClientState) *StateHandler {
	return &StateHandler{
		state: state,
	}
}

// Register mounts the state routes on an API group
func (h *StateHandler) Register(api *gin.RouterGroup) {
	state := api.Group("/state")
	state.GET("/token", h.GetToken)
	state.PUT("/token", h.PutToken)
	state.DELETE("/token", h.DeleteToken)
	state.GET("/profile", h.Profile)
	state.PUT("/profile", h.PutProfile)
	state.GET("/sidebar", h.GetSidebar)
	state.PUT("/sidebar", h.PutSidebar)
}

// GetToken handles GET /api/v1/state/token
func (h *StateHandler) GetToken(c *gin.Context) {
	token, err := h.state.AuthToken(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read token: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": token != "",
		"token":         token,
	})
}

// PutToken handles PUT /api/v1/state/token
func (h *StateHandler) PutToken(c *gin.Context) {
	var req model.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.state.SetAuthToken(c.Request.Context(), req.Token); err != nil {
		if err == service.ErrEmptyToken {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store token: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// DeleteToken handles DELETE /api/v1/state/token (logout)
func (h *StateHandler) DeleteToken(c *gin.Context) {
	if err := h.state.ClearAuthToken(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear token: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// Profile handles GET /api/v1/state/profile
func (h *StateHandler) Profile(c *gin.Context) {
	profile, err := h.state.UserProfile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile handles PUT /api/v1/state/profile. The sign-in flow caches the
// user blob here after depositing the token.
func (h *StateHandler) PutProfile(c *gin.Context) {
	var req model.UserProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: empty profile"})
		return
	}

	if err := h.state.SetUserProfile(c.Request.Context(), &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store profile: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetSidebar handles GET /api/v1/state/sidebar
func (h *StateHandler) GetSidebar(c *gin.Context) {
	collapsed, err := h.state.SidebarCollapsed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read sidebar state: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collapsed": collapsed})
}

// PutSidebar handles PUT /api/v1/state/sidebar
func (h *StateHandler) PutSidebar(c *gin.Context) {
	var req model.SidebarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.state.SetSidebarCollapsed(c.Request.Context(), *req.Collapsed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store sidebar state: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collapsed": *req.Collapsed})
}
