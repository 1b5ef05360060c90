package model

// OpenFormRequest mounts a form session
type OpenFormRequest struct {
	Domain DomainID `json:"domain" binding:"required"`
}

// SetFieldsRequest sets one or more field values
type SetFieldsRequest struct {
	Fields map[string]interface{} `json:"fields" binding:"required"`
}

// MapClickRequest represents a click on the form's map
type MapClickRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// LocationRequest carries what the browser's geolocation reported. An empty
// request asks the server-side locator instead.
type LocationRequest struct {
	Position     *GeoCoordinate `json:"position,omitempty"`
	ErrorCode    int            `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// IsEmpty reports whether the browser reported nothing
func (r *LocationRequest) IsEmpty() bool {
	return r.Position == nil && r.ErrorCode == 0
}

// ImagesResponse reports the outcome of an image upload
type ImagesResponse struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Warning string   `json:"warning,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// TokenRequest deposits the auth token obtained by the sign-in flow
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// SidebarRequest sets the persisted sidebar flag
type SidebarRequest struct {
	Collapsed *bool `json:"collapsed" binding:"required"`
}
