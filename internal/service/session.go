package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"valuator/internal/attachment"
	"valuator/internal/geo"
	"valuator/internal/logger"
	"valuator/internal/model"
	"valuator/internal/utils"
)

// ErrNoResolver is returned when reverse geocoding is not configured
var ErrNoResolver = errors.New("reverse geocoding is not configured")

// TokenSource yields the bearer token attached to prediction requests
type TokenSource interface {
	AuthToken(ctx context.Context) (string, error)
}

// SessionDeps wires a form session to its collaborators. Only Dispatcher
// is required.
type SessionDeps struct {
	Dispatcher Dispatcher
	Tokens     TokenSource
	Encoder    *attachment.Encoder
	Locator    geo.Locator
	Resolver   geo.Resolver
	TileLayer  geo.TileLayer
	Messages   *utils.Messages
	Metrics    *Metrics
	Logger     logger.Logger
	Now        func() time.Time
}

// Snapshot is a consistent copy of a session's observable state
type Snapshot struct {
	ID            string                  `json:"id"`
	Domain        model.DomainID          `json:"domain"`
	Values        map[string]string       `json:"values"`
	Amenities     map[string]bool         `json:"amenities"`
	Coordinate    *model.GeoCoordinate    `json:"coordinate"`
	Map           geo.View                `json:"map"`
	Images        []string                `json:"images"`
	Status        model.SubmissionStatus  `json:"status"`
	Result        *model.PredictionResult `json:"result"`
	Error         string                  `json:"error,omitempty"`
	LocationError string                  `json:"location_error,omitempty"`
	Submittable   bool                    `json:"submittable"`
}

// Session is one mounted valuation form: field state, map picker, image
// attachments and the submission state machine. All methods are safe for
// concurrent use. Blocking work runs outside the lock under a context that
// Close cancels; results that arrive after Close, or after a newer
// submission started, are dropped.
type Session struct {
	id     string
	domain *model.Domain
	deps   SessionDeps

	picker *geo.Picker
	images attachment.List

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	form         *Form
	status       model.SubmissionStatus
	result       *model.PredictionResult
	errMsg       string
	locErr       string
	generation   uint64
	cancelSubmit context.CancelFunc
	closed       bool
}

// NewSession mounts a form for domain d
func NewSession(id string, d *model.Domain, deps SessionDeps) *Session {
	if deps.Messages == nil {
		deps.Messages = utils.NewMessages("en")
	}
	if deps.Encoder == nil {
		deps.Encoder = attachment.NewEncoder(0)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		domain: d,
		deps:   deps,
		picker: geo.NewPicker(deps.TileLayer, deps.Locator, d.LocateZoom),
		ctx:    ctx,
		cancel: cancel,
		form:   NewForm(d, deps.Messages),
		status: model.StatusIdle,
	}
	deps.Metrics.sessionOpened()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Domain() *model.Domain {
	return s.domain
}

// opContext derives a context from parent that is also canceled when the
// session closes
func (s *Session) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Session) SetField(name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.form.SetField(name, value)
}

func (s *Session) ToggleAmenity(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	return s.form.ToggleAmenity(id)
}

// OnMapClick picks the clicked coordinate
func (s *Session) OnMapClick(lat, lng float64) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	s.picker.OnMapClick(lat, lng)
	return nil
}

// UseDeviceLocation picks the device position. A nil locator uses the one
// the session was mounted with. Failures are kept as the location error and
// never change the submission status.
func (s *Session) UseDeviceLocation(ctx context.Context, locator geo.Locator) (model.GeoCoordinate, error) {
	if s.isClosed() {
		return model.GeoCoordinate{}, ErrSessionClosed
	}

	opCtx, done := s.opContext(ctx)
	defer done()

	var (
		c   model.GeoCoordinate
		err error
	)
	if locator != nil {
		c, err = s.picker.LocateWith(opCtx, locator)
	} else {
		c, err = s.picker.UseDeviceLocation(opCtx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || errors.Is(err, geo.ErrPickerClosed) {
		return model.GeoCoordinate{}, ErrSessionClosed
	}
	if err != nil {
		gerr := s.geolocationError(err)
		s.locErr = gerr.Message
		s.deps.Metrics.observeLocation("failed")
		s.deps.Logger.Warnw("device location failed", "session", s.id, "error", err)
		return model.GeoCoordinate{}, gerr
	}

	s.locErr = ""
	s.deps.Metrics.observeLocation("ok")
	return c, nil
}

func (s *Session) geolocationError(err error) *GeolocationError {
	if errors.Is(err, geo.ErrUnsupported) {
		return &GeolocationError{Err: err, Message: s.deps.Messages.Text("geolocation.unsupported", nil)}
	}
	return &GeolocationError{
		Err:     err,
		Message: s.deps.Messages.Text("geolocation.failed", map[string]interface{}{"Reason": err.Error()}),
	}
}

// AddFromGallery encodes up to five of files and appends the successes in
// selection order. It returns how many were added; unreadable files are
// skipped and reported in the error.
func (s *Session) AddFromGallery(ctx context.Context, files []attachment.File) (int, error) {
	if s.isClosed() {
		return 0, ErrSessionClosed
	}

	opCtx, done := s.opContext(ctx)
	defer done()

	uris, err := s.deps.Encoder.EncodeGallery(opCtx, files)
	return s.appendImages("gallery", uris, err)
}

// AddFromCamera encodes one captured photo and appends it
func (s *Session) AddFromCamera(ctx context.Context, file attachment.File) (int, error) {
	if s.isClosed() {
		return 0, ErrSessionClosed
	}

	opCtx, done := s.opContext(ctx)
	defer done()

	uri, err := s.deps.Encoder.Encode(opCtx, file)
	if err != nil {
		return s.appendImages("camera", nil, err)
	}
	return s.appendImages("camera", []string{uri}, nil)
}

func (s *Session) appendImages(source string, uris []string, err error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}

	s.images.Append(uris...)
	failed := len(multierr.Errors(err))
	s.deps.Metrics.observeImages(source, len(uris), failed)
	if err != nil {
		s.deps.Logger.Warnw("image attachment skipped", "session", s.id, "source", source, "failed", failed, "error", err)
	}
	return len(uris), err
}

// IsSubmittable reports whether required fields and the coordinate are set
func (s *Session) IsSubmittable() bool {
	if s == nil || s.form == nil {
		return false
	}
	coord := s.coordinate()
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.form.IsSubmittable(coord)
}

func (s *Session) coordinate() *model.GeoCoordinate {
	if c, ok := s.picker.Coordinate(); ok {
		return &c
	}
	return nil
}

// Submit runs one submission cycle. Result and error are cleared first.
// Validation failures go straight to Error; otherwise the session is Loading
// while the request is in flight and ends in Success or Error. Any later
// Submit, including one that fails validation, or Close cancels this one
// and its outcome is dropped.
func (s *Session) Submit(ctx context.Context) error {
	coord := s.coordinate()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	s.result = nil
	s.errMsg = ""

	payload, err := s.form.BuildPayload(coord, s.deps.Now())
	if err != nil {
		if s.cancelSubmit != nil {
			s.cancelSubmit()
			s.cancelSubmit = nil
		}
		s.generation++
		s.status = model.StatusError
		s.errMsg = UserMessage(err)
		s.mu.Unlock()
		s.deps.Metrics.observeSubmission(s.domain.ID, OutcomeInvalid)
		return err
	}

	if s.cancelSubmit != nil {
		s.cancelSubmit()
	}
	s.generation++
	gen := s.generation
	reqCtx, done := s.opContext(ctx)
	s.cancelSubmit = done
	s.status = model.StatusLoading
	s.mu.Unlock()
	defer done()

	token := ""
	if s.deps.Tokens != nil {
		if token, err = s.deps.Tokens.AuthToken(reqCtx); err != nil {
			s.deps.Logger.Warnw("auth token unavailable", "session", s.id, "error", err)
			token = ""
		}
	}

	start := time.Now()
	obj, raw, err := s.deps.Dispatcher.Predict(reqCtx, s.domain, payload, token)
	latency := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		s.deps.Metrics.observeSubmission(s.domain.ID, OutcomeSuperseded)
		return ErrSuperseded
	}
	s.cancelSubmit = nil
	s.deps.Metrics.observeLatency(s.domain.ID, latency)

	if err != nil {
		s.status = model.StatusError
		s.result = nil
		s.errMsg = UserMessage(err)
		s.deps.Metrics.observeSubmission(s.domain.ID, OutcomeTransport)
		s.deps.Logger.Warnw("valuation failed", "session", s.id, "domain", s.domain.ID, "latency", latency, "error", err)
		return err
	}

	result := Normalize(s.domain, obj, raw)
	s.result = &result
	s.errMsg = ""
	s.status = model.StatusSuccess
	s.deps.Metrics.observeSubmission(s.domain.ID, OutcomeSuccess)
	s.deps.Logger.Infow("valuation completed", "session", s.id, "domain", s.domain.ID, "latency", latency)
	return nil
}

// Reset clears the result and error; field values are kept
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
	s.errMsg = ""
	if s.status != model.StatusLoading {
		s.status = model.StatusIdle
	}
}

// SuggestAddress reverse geocodes the picked coordinate. With fill set,
// blank city and locality fields take the suggestion.
func (s *Session) SuggestAddress(ctx context.Context, fill bool) (geo.Address, error) {
	if s.isClosed() {
		return geo.Address{}, ErrSessionClosed
	}
	if s.deps.Resolver == nil {
		return geo.Address{}, ErrNoResolver
	}
	coord := s.coordinate()
	if coord == nil {
		return geo.Address{}, &ValidationError{
			Domain:  s.domain.ID,
			Reason:  ReasonLocation,
			Message: s.deps.Messages.Text("validation.location."+string(s.domain.ID), nil),
		}
	}

	opCtx, done := s.opContext(ctx)
	defer done()

	addr, err := s.deps.Resolver.Resolve(opCtx, *coord)
	if err != nil {
		return geo.Address{}, err
	}

	if fill {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return geo.Address{}, ErrSessionClosed
		}
		if strings.TrimSpace(s.form.Value("city")) == "" && addr.City != "" {
			_ = s.form.SetField("city", addr.City)
		}
		if strings.TrimSpace(s.form.Value("locality")) == "" && addr.Locality != "" {
			_ = s.form.SetField("locality", addr.Locality)
		}
	}
	return addr, nil
}

// Snapshot returns the current observable state
func (s *Session) Snapshot() Snapshot {
	coord := s.coordinate()
	view := s.picker.View()

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *model.PredictionResult
	if s.result != nil {
		r := *s.result
		result = &r
	}
	return Snapshot{
		ID:            s.id,
		Domain:        s.domain.ID,
		Values:        s.form.Values(),
		Amenities:     s.form.Amenities(),
		Coordinate:    coord,
		Map:           view,
		Images:        s.images.All(),
		Status:        s.status,
		Result:        result,
		Error:         s.errMsg,
		LocationError: s.locErr,
		Submittable:   !s.closed && s.form.IsSubmittable(coord),
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the form down: in-flight work is canceled, the map is removed
// and later results are dropped
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.picker.Close()
	s.deps.Metrics.sessionClosed()
}
