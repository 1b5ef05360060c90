package handler

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"valuator/internal/attachment"
	"valuator/internal/geo"
	"valuator/internal/model"
	"valuator/internal/service"
	"valuator/internal/utils"
)

// FormHandler exposes form sessions over HTTP
type FormHandler struct {
	registry *service.Registry
	layer    geo.TileLayer
	msgs     *utils.Messages
}

// NewFormHandler creates a new form handler
func NewFormHandler(registry *service.Registry, layer geo.TileLayer, msgs *utils.Messages) *FormHandler {
	if msgs == nil {
		msgs = utils.NewMessages("en")
	}
	return &FormHandler{
		registry: registry,
		layer:    layer,
		msgs:     msgs,
	}
}

// Register mounts the form routes on an API group
func (h *FormHandler) Register(api *gin.RouterGroup) {
	api.GET("/domains", h.Domains)

	forms := api.Group("/forms")
	forms.POST("", h.Open)
	forms.GET("/:id", h.Get)
	forms.DELETE("/:id", h.Close)
	forms.PUT("/:id/fields", h.SetFields)
	forms.POST("/:id/amenities/:amenity/toggle", h.ToggleAmenity)
	forms.POST("/:id/map/click", h.MapClick)
	forms.POST("/:id/location", h.Location)
	forms.POST("/:id/location/resolve", h.ResolveLocation)
	forms.POST("/:id/images/gallery", h.Gallery)
	forms.POST("/:id/images/camera", h.Camera)
	forms.POST("/:id/submit", h.Submit)
	forms.POST("/:id/reset", h.Reset)
}

// Domains handles GET /api/v1/domains
func (h *FormHandler) Domains(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"domains": model.Domains(),
		"map": gin.H{
			"center": geo.DefaultCenter,
			"zoom":   geo.DefaultZoom,
			"layer":  h.layer,
		},
		"max_gallery_selection": attachment.MaxGallerySelection,
	})
}

// Open handles POST /api/v1/forms
func (h *FormHandler) Open(c *gin.Context) {
	var req model.OpenFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	s, err := h.registry.Open(req.Domain)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, s.Snapshot())
}

// Get handles GET /api/v1/forms/:id
func (h *FormHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// Close handles DELETE /api/v1/forms/:id
func (h *FormHandler) Close(c *gin.Context) {
	if err := h.registry.Close(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetFields handles PUT /api/v1/forms/:id/fields
func (h *FormHandler) SetFields(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	names := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.SetField(name, req.Fields[name]); err != nil {
			h.fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

// ToggleAmenity handles POST /api/v1/forms/:id/amenities/:amenity/toggle.
// The amenity may be given by id, label or a known alias.
func (h *FormHandler) ToggleAmenity(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	id, found := utils.ResolveAmenity(s.Domain(), c.Param("amenity"))
	if !found {
		h.fail(c, service.ErrUnknownAmenity)
		return
	}
	if _, err := s.ToggleAmenity(id); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

// MapClick handles POST /api/v1/forms/:id/map/click
func (h *FormHandler) MapClick(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.MapClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: coordinate out of range"})
		return
	}

	if err := s.OnMapClick(*req.Lat, *req.Lng); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

// Location handles POST /api/v1/forms/:id/location. A geolocation failure
// is part of the form state, so it still answers 200.
func (h *FormHandler) Location(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req model.LocationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}

	var locator geo.Locator
	if !req.IsEmpty() {
		locator = geo.ReportedLocator{
			Position: req.Position,
			Code:     req.ErrorCode,
			Message:  req.ErrorMessage,
		}
	}

	if _, err := s.UseDeviceLocation(c.Request.Context(), locator); err != nil {
		var gerr *service.GeolocationError
		if !errors.As(err, &gerr) {
			h.fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

// ResolveLocation handles POST /api/v1/forms/:id/location/resolve?fill=true
func (h *FormHandler) ResolveLocation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	fill, _ := strconv.ParseBool(c.Query("fill"))
	addr, err := s.SuggestAddress(c.Request.Context(), fill)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": addr,
		"form":    s.Snapshot(),
	})
}

// Gallery handles POST /api/v1/forms/:id/images/gallery (multipart "images")
func (h *FormHandler) Gallery(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	headers := form.File["images"]
	files := make([]attachment.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, attachment.FromFileHeader(fh))
	}

	added, err := s.AddFromGallery(c.Request.Context(), files)
	h.respondImages(c, s, added, err)
}

// Camera handles POST /api/v1/forms/:id/images/camera (multipart "image")
func (h *FormHandler) Camera(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	added, err := s.AddFromCamera(c.Request.Context(), attachment.FromFileHeader(fh))
	h.respondImages(c, s, added, err)
}

func (h *FormHandler) respondImages(c *gin.Context, s *service.Session, added int, err error) {
	if errors.Is(err, service.ErrSessionClosed) {
		h.fail(c, err)
		return
	}

	resp := model.ImagesResponse{Added: added}
	for _, e := range multierr.Errors(err) {
		resp.Errors = append(resp.Errors, e.Error())
	}
	resp.Skipped = len(resp.Errors)
	if resp.Skipped > 0 {
		resp.Warning = h.msgs.Text("attachment.skipped", map[string]interface{}{"Count": resp.Skipped})
	}

	c.JSON(http.StatusOK, gin.H{
		"images": resp,
		"form":   s.Snapshot(),
	})
}

// Submit handles POST /api/v1/forms/:id/submit. Validation and prediction
// failures are reported through the snapshot's status and error.
func (h *FormHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Submit(c.Request.Context()); errors.Is(err, service.ErrSessionClosed) {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, s.Snapshot())
}

// Reset handles POST /api/v1/forms/:id/reset
func (h *FormHandler) Reset(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Reset()
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *FormHandler) session(c *gin.Context) (*service.Session, bool) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return s, true
}

func (h *FormHandler) fail(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnknownField), errors.Is(err, service.ErrUnknownAmenity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Message})
	case errors.Is(err, service.ErrSessionClosed), errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoResolver):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, geo.ErrNoGeoInfoFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
