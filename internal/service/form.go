package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"valuator/internal/model"
	"valuator/internal/utils"
)

// Form holds the field values and amenity flags of one valuation form.
// It is not safe for concurrent use; Session serializes access.
type Form struct {
	domain    *model.Domain
	values    map[string]string
	amenities map[string]bool
	msgs      *utils.Messages
}

// NewForm creates a form with enum defaults applied and all amenities off
func NewForm(d *model.Domain, msgs *utils.Messages) *Form {
	if msgs == nil {
		msgs = utils.NewMessages("en")
	}
	f := &Form{
		domain:    d,
		values:    make(map[string]string, len(d.Fields)),
		amenities: make(map[string]bool, len(d.Amenities)),
		msgs:      msgs,
	}
	for _, field := range d.Fields {
		f.values[field.Name] = field.Default
	}
	for _, a := range d.Amenities {
		f.amenities[a.ID] = false
	}
	return f
}

func (f *Form) Domain() *model.Domain {
	return f.domain
}

// SetField stores value under name in its string form. Only names outside
// the domain's field list are refused.
func (f *Form) SetField(name string, value interface{}) error {
	if _, ok := f.domain.Field(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		s = fmt.Sprint(value)
	}
	f.values[name] = s
	return nil
}

// Value returns the stored value of a field
func (f *Form) Value(name string) string {
	return f.values[name]
}

// Values returns a copy of all field values
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// ToggleAmenity flips one catalog flag and returns its new state
func (f *Form) ToggleAmenity(id string) (bool, error) {
	if _, ok := f.domain.Amenity(id); !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownAmenity, id)
	}
	f.amenities[id] = !f.amenities[id]
	return f.amenities[id], nil
}

// Amenities returns a copy of the amenity flags
func (f *Form) Amenities() map[string]bool {
	out := make(map[string]bool, len(f.amenities))
	for k, v := range f.amenities {
		out[k] = v
	}
	return out
}

// SelectedAmenities returns the ids of enabled amenities in catalog order
func (f *Form) SelectedAmenities() []string {
	selected := []string{}
	for _, a := range f.domain.Amenities {
		if f.amenities[a.ID] {
			selected = append(selected, a.ID)
		}
	}
	return selected
}

func (f *Form) missingRequired() []string {
	var missing []string
	for _, field := range f.domain.Fields {
		if field.Required && strings.TrimSpace(f.values[field.Name]) == "" {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

// IsSubmittable reports whether every required field is filled and a
// coordinate was picked. A nil or zero Form is never submittable.
func (f *Form) IsSubmittable(coord *model.GeoCoordinate) bool {
	if f == nil || f.domain == nil || f.values == nil {
		return false
	}
	return len(f.missingRequired()) == 0 && coord != nil
}

// BuildPayload validates the form and assembles the request body.
// Missing required fields are reported before a missing coordinate.
func (f *Form) BuildPayload(coord *model.GeoCoordinate, now time.Time) (model.Payload, error) {
	if f == nil || f.domain == nil {
		return nil, fmt.Errorf("form is not initialized")
	}

	if missing := f.missingRequired(); len(missing) > 0 {
		return nil, f.invalid(ReasonRequired, missing[0], "validation.required."+string(f.domain.ID), nil)
	}
	if coord == nil {
		return nil, f.invalid(ReasonLocation, "", "validation.location."+string(f.domain.ID), nil)
	}

	payload := make(model.Payload, len(f.domain.Fields)+3)
	for _, field := range f.domain.Fields {
		v, err := f.coerce(field, strings.TrimSpace(f.values[field.Name]), now)
		if err != nil {
			return nil, err
		}
		payload[field.PayloadKey] = v
	}

	if f.domain.HasAmenities() {
		payload["amenities"] = f.SelectedAmenities()
	}
	payload["lat"] = coord.Latitude
	payload["lng"] = coord.Longitude

	return payload, nil
}

func (f *Form) coerce(field model.Field, raw string, now time.Time) (interface{}, error) {
	switch field.Kind {
	case model.FieldNumber:
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, f.invalid(ReasonNumber, field.Name, "validation.number", map[string]interface{}{
				"Field": field.Label,
			})
		}
		min, max := field.Bounds(now)
		if (min != nil && v < *min) || (max != nil && v > *max) {
			if min == nil || max == nil {
				return nil, f.invalid(ReasonNumber, field.Name, "validation.number", map[string]interface{}{
					"Field": field.Label,
				})
			}
			return nil, f.invalid(ReasonRange, field.Name, "validation.range", map[string]interface{}{
				"Field": field.Label,
				"Min":   strconv.FormatFloat(*min, 'f', -1, 64),
				"Max":   strconv.FormatFloat(*max, 'f', -1, 64),
			})
		}
		return v, nil

	case model.FieldEnum, model.FieldFlag:
		if raw == "" {
			raw = field.Default
		}
		if !field.HasOption(raw) {
			return nil, f.invalid(ReasonOption, field.Name, "validation.option", map[string]interface{}{
				"Field": field.Label,
				"Value": raw,
			})
		}
		if field.Kind == model.FieldFlag {
			return raw == "Yes", nil
		}
		return raw, nil

	default:
		if raw == "" {
			return nil, nil
		}
		return raw, nil
	}
}

func (f *Form) invalid(reason, field, messageID string, data map[string]interface{}) *ValidationError {
	return &ValidationError{
		Domain:  f.domain.ID,
		Reason:  reason,
		Field:   field,
		Message: f.msgs.Text(messageID, data),
	}
}
