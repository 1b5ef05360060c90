package model

import "time"

// DomainID identifies one of the valuation forms
type DomainID string

const (
	DomainHousePrice DomainID = "house-price"
	DomainHouseRent  DomainID = "house-rent"
	DomainLandPrice  DomainID = "land-price"
)

// FieldKind describes how a form value is coerced into the outbound payload
type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldNumber FieldKind = "number"
	FieldEnum   FieldKind = "enum"
	FieldFlag   FieldKind = "flag" // Yes/No option sent as a boolean
)

// Field describes one input of a valuation form
type Field struct {
	Name       string    `json:"name"`
	PayloadKey string    `json:"payload_key"`
	Label      string    `json:"label"`
	Kind       FieldKind `json:"kind"`
	Required   bool      `json:"required"`
	Options    []string  `json:"options,omitempty"`
	Default    string    `json:"default,omitempty"`
	Min        *float64  `json:"min,omitempty"`
	Max        *float64  `json:"max,omitempty"`

	// MaxCurrentYear caps the value at the current calendar year (build year)
	MaxCurrentYear bool `json:"max_current_year,omitempty"`
}

// Bounds returns the inclusive numeric range of the field, evaluated at now
func (f Field) Bounds(now time.Time) (min, max *float64) {
	min = f.Min
	max = f.Max
	if f.MaxCurrentYear {
		year := float64(now.Year())
		max = &year
	}
	return min, max
}

// HasOption reports whether value is one of the declared options
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Amenity is one togglable flag of a domain's amenity catalog
type Amenity struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Aliases []string `json:"aliases,omitempty"`
}

// ResponseFields lists, per logical value, the backend field names tried in order
type ResponseFields struct {
	Predicted    []string `json:"predicted"`
	Min          []string `json:"min"`
	Max          []string `json:"max"`
	Confidence   []string `json:"confidence"`
	PricePerUnit []string `json:"price_per_unit,omitempty"`
	Insights     []string `json:"insights"`
}

// Domain is the configuration that turns the generic orchestrator into one form
type Domain struct {
	ID         DomainID       `json:"id"`
	Title      string         `json:"title"`
	Path       string         `json:"path"`
	Fields     []Field        `json:"fields"`
	Amenities  []Amenity      `json:"amenities"`
	Response   ResponseFields `json:"response"`
	LocateZoom int            `json:"locate_zoom"`
}

// Field looks up a field by name
func (d *Domain) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Amenity looks up a catalog entry by id
func (d *Domain) Amenity(id string) (Amenity, bool) {
	for _, a := range d.Amenities {
		if a.ID == id {
			return a, true
		}
	}
	return Amenity{}, false
}

// HasAmenities reports whether the domain sends an amenity list at all
func (d *Domain) HasAmenities() bool {
	return len(d.Amenities) > 0
}

func float64Ptr(v float64) *float64 {
	return &v
}

var zero = float64Ptr(0)

var (
	fieldCity = Field{
		Name: "city", PayloadKey: "city", Label: "City",
		Kind: FieldText, Required: true,
	}
	fieldLocality = Field{
		Name: "locality", PayloadKey: "locality", Label: "Locality / Area",
		Kind: FieldText, Required: true,
	}
	fieldArea = Field{
		Name: "area", PayloadKey: "area", Label: "Area (sqft)",
		Kind: FieldNumber, Required: true, Min: zero,
	}
	fieldBedrooms = Field{
		Name: "bedrooms", PayloadKey: "bedrooms", Label: "Bedrooms",
		Kind: FieldNumber, Required: true, Min: zero,
	}
	fieldBathrooms = Field{
		Name: "bathrooms", PayloadKey: "bathrooms", Label: "Bathrooms",
		Kind: FieldNumber, Required: true, Min: zero,
	}
)

// HousePrice is the residential sale price estimator
var HousePrice = Domain{
	ID:    DomainHousePrice,
	Title: "Residential Price Estimator",
	Path:  "/predict/house-price",
	Fields: []Field{
		fieldArea,
		fieldBedrooms,
		fieldBathrooms,
		{
			Name: "propertyType", PayloadKey: "property_type", Label: "Property type",
			Kind: FieldEnum, Options: []string{"Apartment", "Independent House", "Villa", "Studio"}, Default: "Apartment",
		},
		{
			Name: "bhk", PayloadKey: "bhk", Label: "BHK",
			Kind: FieldEnum, Options: []string{"1BHK", "2BHK", "3BHK", "4BHK+"}, Default: "2BHK",
		},
		{
			Name: "furnishing", PayloadKey: "furnishing", Label: "Furnishing",
			Kind: FieldEnum, Options: []string{"Unfurnished", "Semi-Furnished", "Furnished"}, Default: "Semi-Furnished",
		},
		{
			Name: "buildYear", PayloadKey: "build_year", Label: "Year Built",
			Kind: FieldNumber, Min: float64Ptr(1900), MaxCurrentYear: true,
		},
		fieldCity,
		fieldLocality,
	},
	Amenities: []Amenity{
		{ID: "pool", Label: "Pool", Aliases: []string{"swimming pool"}},
		{ID: "gym", Label: "Gym", Aliases: []string{"gymnasium", "fitness", "fitness center"}},
		{ID: "lift", Label: "Lift", Aliases: []string{"elevator"}},
		{ID: "parking", Label: "Parking", Aliases: []string{"car park", "covered parking"}},
		{ID: "security", Label: "Security", Aliases: []string{"24-hour security", "24hr security", "guard"}},
		{ID: "power", Label: "Power Backup", Aliases: []string{"power backup", "generator", "backup"}},
	},
	Response: ResponseFields{
		Predicted:  []string{"predicted_price", "price"},
		Min:        []string{"min_price"},
		Max:        []string{"max_price"},
		Confidence: []string{"confidence"},
		Insights:   []string{"insights"},
	},
	LocateZoom: 14,
}

// HouseRent is the monthly rent estimator
var HouseRent = Domain{
	ID:    DomainHouseRent,
	Title: "House Rent Estimator",
	Path:  "/predict/house-rent",
	Fields: []Field{
		fieldArea,
		fieldBedrooms,
		fieldBathrooms,
		{
			Name: "furnishing", PayloadKey: "furnishing", Label: "Furnishing",
			Kind: FieldEnum, Options: []string{"Unfurnished", "Semi-Furnished", "Fully Furnished"}, Default: "Semi-Furnished",
		},
		{
			Name: "propertyType", PayloadKey: "property_type", Label: "Property type",
			Kind: FieldEnum, Options: []string{"Apartment", "Independent House", "Studio", "Villa"}, Default: "Apartment",
		},
		fieldCity,
		fieldLocality,
		{
			Name: "floor", PayloadKey: "floor", Label: "Floor",
			Kind: FieldNumber, Min: zero,
		},
		{
			Name: "parking", PayloadKey: "parking", Label: "Parking",
			Kind: FieldEnum, Options: []string{"Yes", "No"}, Default: "Yes",
		},
	},
	Amenities: []Amenity{
		{ID: "parking", Label: "Parking", Aliases: []string{"car park", "covered parking"}},
		{ID: "power", Label: "Power Backup", Aliases: []string{"power backup", "generator", "backup"}},
		{ID: "security", Label: "Security", Aliases: []string{"24-hour security", "24hr security", "guard"}},
		{ID: "lift", Label: "Lift", Aliases: []string{"elevator"}},
		{ID: "gym", Label: "Gym", Aliases: []string{"gymnasium", "fitness", "fitness center"}},
		{ID: "water", Label: "24/7 Water", Aliases: []string{"24/7 water", "water supply"}},
	},
	Response: ResponseFields{
		Predicted:  []string{"predicted_rent", "rent"},
		Min:        []string{"min_rent"},
		Max:        []string{"max_rent"},
		Confidence: []string{"confidence"},
		Insights:   []string{"insights"},
	},
	LocateZoom: 15,
}

// LandPrice is the plot price estimator
var LandPrice = Domain{
	ID:    DomainLandPrice,
	Title: "Land Price Estimator",
	Path:  "/predict/land-price",
	Fields: []Field{
		{
			Name: "area", PayloadKey: "area", Label: "Plot area (sqft)",
			Kind: FieldNumber, Required: true, Min: zero,
		},
		fieldCity,
		fieldLocality,
		{
			Name: "zoneType", PayloadKey: "zone_type", Label: "Zone",
			Kind: FieldEnum, Options: []string{"Residential", "Commercial", "Industrial", "Agricultural"}, Default: "Residential",
		},
		{
			Name: "roadWidth", PayloadKey: "road_width", Label: "Road width (ft)",
			Kind: FieldNumber, Min: zero,
		},
		{
			Name: "cornerPlot", PayloadKey: "corner_plot", Label: "Corner plot",
			Kind: FieldFlag, Options: []string{"No", "Yes"}, Default: "No",
		},
	},
	Response: ResponseFields{
		Predicted:    []string{"predicted_price", "price"},
		Min:          []string{"min_price"},
		Max:          []string{"max_price"},
		Confidence:   []string{"confidence"},
		PricePerUnit: []string{"price_per_sqft", "price_per_unit"},
		Insights:     []string{"insights"},
	},
	LocateZoom: 15,
}

// Domains returns every configured domain in navigation order
func Domains() []*Domain {
	return []*Domain{&HousePrice, &HouseRent, &LandPrice}
}

// LookupDomain finds a domain by id
func LookupDomain(id DomainID) (*Domain, bool) {
	for _, d := range Domains() {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}
