package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"valuator/internal/attachment"
	"valuator/internal/config"
	"valuator/internal/geo"
	"valuator/internal/model"
)

type dispatcherFunc func(ctx context.Context, d *model.Domain, payload model.Payload, token string) (map[string]interface{}, string, error)

func (f dispatcherFunc) Predict(ctx context.Context, d *model.Domain, payload model.Payload, token string) (map[string]interface{}, string, error) {
	return f(ctx, d, payload, token)
}

type staticToken string

func (t staticToken) AuthToken(context.Context) (string, error) { return string(t), nil }

func okDispatcher(obj map[string]interface{}) dispatcherFunc {
	return func(context.Context, *model.Domain, model.Payload, string) (map[string]interface{}, string, error) {
		return obj, "", nil
	}
}

func newTestSession(t *testing.T, d *model.Domain, deps SessionDeps) *Session {
	t.Helper()
	deps.Now = func() time.Time { return testNow }
	s := NewSession("test", d, deps)
	t.Cleanup(s.Close)
	return s
}

func fillLand(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.SetField("area", "2400"))
	require.NoError(t, s.SetField("city", "Mysuru"))
	require.NoError(t, s.SetField("locality", "Vijayanagar"))
	require.NoError(t, s.OnMapClick(12.3, 76.6))
}

func TestSession_ValidationFailureSkipsLoading(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	called := false
	s := newTestSession(t, &model.HousePrice, SessionDeps{
		Dispatcher: dispatcherFunc(func(context.Context, *model.Domain, model.Payload, string) (map[string]interface{}, string, error) {
			called = true
			return nil, "", nil
		}),
	})

	err := s.Submit(context.Background())

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.False(t, called)

	snap := s.Snapshot()
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Equal(t, "Please fill area, bedrooms, bathrooms, city and locality.", snap.Error)
	assert.Nil(t, snap.Result)
	assert.False(t, snap.Submittable)
}

func TestSession_MissingLocation(t *testing.T) {
	s := newTestSession(t, &model.LandPrice, SessionDeps{Dispatcher: okDispatcher(nil)})
	require.NoError(t, s.SetField("area", "2400"))
	require.NoError(t, s.SetField("city", "Mysuru"))
	require.NoError(t, s.SetField("locality", "Vijayanagar"))

	assert.False(t, s.IsSubmittable())
	require.Error(t, s.Submit(context.Background()))
	assert.Equal(t, "Please select the plot location on the map.", s.Snapshot().Error)
}

func TestSession_SubmitEndToEnd(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"predicted_price": 4800000, "min_price": 4500000, "max_price": 5100000, "price_per_sqft": 2000, "confidence": 0.74, "insights": "Corner plots command a premium."}`))
	}))
	defer server.Close()

	client := NewPredictionClient(&config.BackendConfig{BaseURL: server.URL, Timeout: 5}, nil)
	s := newTestSession(t, &model.LandPrice, SessionDeps{Dispatcher: client, Tokens: staticToken("tok")})
	fillLand(t, s)
	require.NoError(t, s.SetField("cornerPlot", "Yes"))
	assert.True(t, s.IsSubmittable())

	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, string(gotBody), `"corner_plot":true`)
	assert.Contains(t, string(gotBody), `"lat":12.3`)

	snap := s.Snapshot()
	assert.Equal(t, model.StatusSuccess, snap.Status)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 4800000.0, *snap.Result.PredictedValue)
	assert.Equal(t, 2000.0, *snap.Result.PricePerUnit)
	assert.Equal(t, "Corner plots command a premium.", snap.Result.Insights)
}

func TestSession_ErrorThenSuccess(t *testing.T) {
	fail := true
	s := newTestSession(t, &model.LandPrice, SessionDeps{
		Dispatcher: dispatcherFunc(func(context.Context, *model.Domain, model.Payload, string) (map[string]interface{}, string, error) {
			if fail {
				return nil, "", &TransportError{Status: 500, Body: "boom", Message: "Server error: 500 boom"}
			}
			return map[string]interface{}{"price": 10.0}, "", nil
		}),
	})
	fillLand(t, s)

	require.Error(t, s.Submit(context.Background()))
	snap := s.Snapshot()
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Equal(t, "Server error: 500 boom", snap.Error)
	assert.Nil(t, snap.Result)

	fail = false
	require.NoError(t, s.Submit(context.Background()))
	snap = s.Snapshot()
	assert.Equal(t, model.StatusSuccess, snap.Status)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 10.0, *snap.Result.PredictedValue)
}

func TestSession_NewerSubmissionWins(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	s := newTestSession(t, &model.LandPrice, SessionDeps{
		Dispatcher: dispatcherFunc(func(ctx context.Context, _ *model.Domain, _ model.Payload, _ string) (map[string]interface{}, string, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(started)
				<-ctx.Done()
				return map[string]interface{}{"price": 1.0}, "", nil
			}
			return map[string]interface{}{"price": 2.0}, "", nil
		}),
	})
	fillLand(t, s)

	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Submit(context.Background()) }()
	<-started
	assert.Equal(t, model.StatusLoading, s.Snapshot().Status)

	require.NoError(t, s.Submit(context.Background()))
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, model.StatusSuccess, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 2.0, *snap.Result.PredictedValue)
}

func TestSession_InvalidSubmissionSupersedesPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	s := newTestSession(t, &model.LandPrice, SessionDeps{
		Dispatcher: dispatcherFunc(func(ctx context.Context, _ *model.Domain, _ model.Payload, _ string) (map[string]interface{}, string, error) {
			close(started)
			<-ctx.Done()
			return map[string]interface{}{"price": 1.0}, "", nil
		}),
	})
	fillLand(t, s)

	firstErr := make(chan error, 1)
	go func() { firstErr <- s.Submit(context.Background()) }()
	<-started

	require.NoError(t, s.SetField("city", ""))
	var ve *ValidationError
	require.ErrorAs(t, s.Submit(context.Background()), &ve)
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Equal(t, "Please fill area, city and locality.", snap.Error)
	assert.Nil(t, snap.Result)
}

func TestSession_SuccessThenServerError(t *testing.T) {
	fail := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
			return
		}
		_, _ = w.Write([]byte(`{"predicted_price": 4800000}`))
	}))
	defer server.Close()

	client := NewPredictionClient(&config.BackendConfig{BaseURL: server.URL, Timeout: 5}, nil)
	s := newTestSession(t, &model.LandPrice, SessionDeps{Dispatcher: client})
	fillLand(t, s)

	require.NoError(t, s.Submit(context.Background()))
	require.NotNil(t, s.Snapshot().Result)

	fail = true
	err := s.Submit(context.Background())

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.Status)

	snap := s.Snapshot()
	assert.Equal(t, model.StatusError, snap.Status)
	assert.Equal(t, "Server error: 500 boom", snap.Error)
	assert.Nil(t, snap.Result)
}

func TestSession_HousePricePayload(t *testing.T) {
	var got model.Payload
	s := newTestSession(t, &model.HousePrice, SessionDeps{
		Dispatcher: dispatcherFunc(func(_ context.Context, _ *model.Domain, payload model.Payload, _ string) (map[string]interface{}, string, error) {
			got = payload
			return map[string]interface{}{"price": 9500000.0}, "", nil
		}),
	})
	for k, v := range map[string]string{"area": "1200", "bedrooms": "2", "bathrooms": "2", "city": "Pune", "locality": "Kothrud"} {
		require.NoError(t, s.SetField(k, v))
	}
	require.NoError(t, s.OnMapClick(18.52, 73.85))

	require.NoError(t, s.Submit(context.Background()))

	assert.Equal(t, model.Payload{
		"area":          1200.0,
		"bedrooms":      2.0,
		"bathrooms":     2.0,
		"property_type": "Apartment",
		"bhk":           "2BHK",
		"furnishing":    "Semi-Furnished",
		"build_year":    nil,
		"city":          "Pune",
		"locality":      "Kothrud",
		"amenities":     []string{},
		"lat":           18.52,
		"lng":           73.85,
	}, got)
}

func TestSession_ResponseAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	s := NewSession("closing", &model.LandPrice, SessionDeps{
		Dispatcher: dispatcherFunc(func(ctx context.Context, _ *model.Domain, _ model.Payload, _ string) (map[string]interface{}, string, error) {
			close(started)
			<-ctx.Done()
			return map[string]interface{}{"price": 1.0}, "", nil
		}),
	})
	fillLand(t, s)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Submit(context.Background()) }()
	<-started
	s.Close()

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Nil(t, s.Snapshot().Result)
	assert.ErrorIs(t, s.Submit(context.Background()), ErrSessionClosed)
	assert.True(t, s.Snapshot().Map.Marker == nil)
}

func TestSession_GeolocationFailureLeavesStatus(t *testing.T) {
	s := newTestSession(t, &model.HouseRent, SessionDeps{
		Dispatcher: okDispatcher(map[string]interface{}{"rent": 20000.0}),
		Locator:    geo.ReportedLocator{Code: geo.CodeTimeout, Message: "Timeout expired"},
	})
	for k, v := range map[string]string{"area": "900", "bedrooms": "2", "bathrooms": "1", "city": "Pune", "locality": "Baner"} {
		require.NoError(t, s.SetField(k, v))
	}
	require.NoError(t, s.OnMapClick(18.56, 73.78))
	require.NoError(t, s.Submit(context.Background()))

	_, err := s.UseDeviceLocation(context.Background(), nil)

	var gerr *GeolocationError
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, err, geo.ErrTimeout)

	snap := s.Snapshot()
	assert.Equal(t, model.StatusSuccess, snap.Status)
	assert.Equal(t, "Unable to get location: timeout expired: Timeout expired", snap.LocationError)
	assert.Equal(t, &model.GeoCoordinate{Latitude: 18.56, Longitude: 73.78}, snap.Coordinate)

	here := model.GeoCoordinate{Latitude: 18.5, Longitude: 73.8}
	got, err := s.UseDeviceLocation(context.Background(), geo.ReportedLocator{Position: &here})
	require.NoError(t, err)
	assert.Equal(t, here, got)

	snap = s.Snapshot()
	assert.Empty(t, snap.LocationError)
	assert.Equal(t, &here, snap.Coordinate)
	assert.Equal(t, 15, snap.Map.Zoom)
}

func TestSession_UnsupportedGeolocation(t *testing.T) {
	s := newTestSession(t, &model.HousePrice, SessionDeps{Dispatcher: okDispatcher(nil)})

	_, err := s.UseDeviceLocation(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "Geolocation not supported.", s.Snapshot().LocationError)
	assert.Equal(t, model.StatusIdle, s.Snapshot().Status)
}

func TestSession_Images(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	s := newTestSession(t, &model.HousePrice, SessionDeps{Dispatcher: okDispatcher(nil)})

	files := make([]attachment.File, 7)
	for i := range files {
		files[i] = attachment.FromBytes("photo.png", png)
	}

	added, err := s.AddFromGallery(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 5, added)

	added, err = s.AddFromCamera(context.Background(), attachment.FromBytes("cam.png", png))
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	_, err = s.AddFromCamera(context.Background(), attachment.FromBytes("notes.txt", []byte("text")))
	assert.ErrorIs(t, err, attachment.ErrNotImage)

	assert.Len(t, s.Snapshot().Images, 6)
}

func TestSession_ResetKeepsFields(t *testing.T) {
	s := newTestSession(t, &model.LandPrice, SessionDeps{Dispatcher: okDispatcher(map[string]interface{}{"price": 5.0})})
	fillLand(t, s)
	require.NoError(t, s.Submit(context.Background()))

	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, model.StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Equal(t, "2400", snap.Values["area"])
}

func TestSession_NilIsNotSubmittable(t *testing.T) {
	var s *Session
	assert.False(t, s.IsSubmittable())
}

type fakeResolver struct{ addr geo.Address }

func (f fakeResolver) Resolve(context.Context, model.GeoCoordinate) (geo.Address, error) {
	return f.addr, nil
}

func TestSession_SuggestAddress(t *testing.T) {
	s := newTestSession(t, &model.LandPrice, SessionDeps{
		Dispatcher: okDispatcher(nil),
		Resolver:   fakeResolver{geo.Address{City: "Bengaluru", Locality: "Whitefield"}},
	})

	_, err := s.SuggestAddress(context.Background(), true)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	require.NoError(t, s.SetField("city", "Mysuru"))
	require.NoError(t, s.OnMapClick(12.97, 77.75))

	addr, err := s.SuggestAddress(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", addr.City)

	snap := s.Snapshot()
	assert.Equal(t, "Mysuru", snap.Values["city"])
	assert.Equal(t, "Whitefield", snap.Values["locality"])
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(SessionDeps{Dispatcher: okDispatcher(nil)})

	s, err := r.Open(model.DomainHouseRent)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Open("villa-price")
	assert.ErrorIs(t, err, ErrUnknownDomain)

	require.NoError(t, r.Close(s.ID()))
	assert.ErrorIs(t, r.Close(s.ID()), ErrSessionNotFound)
	assert.ErrorIs(t, s.SetField("area", "1"), ErrSessionClosed)

	_, _ = r.Open(model.DomainLandPrice)
	r.CloseAll()
	assert.Equal(t, 0, r.Len())
}
