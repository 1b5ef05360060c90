package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuator/internal/model"
	"valuator/internal/repository"
	"valuator/internal/service"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type recordingDispatcher struct {
	payload model.Payload
	token   string
	resp    map[string]interface{}
	err     error
}

func (r *recordingDispatcher) Predict(ctx context.Context, d *model.Domain, payload model.Payload, token string) (map[string]interface{}, string, error) {
	r.payload = payload
	r.token = token
	return r.resp, "", r.err
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"city=Pune", "locality= Baner", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"city": "Pune", "locality": " Baner", "note": "a=b"}, got)

	for _, bad := range []string{"city", "=Pune", " =x"} {
		_, err := parseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRunValuation_LandPrice(t *testing.T) {
	dir := t.TempDir()
	photo := filepath.Join(dir, "plot.png")
	require.NoError(t, os.WriteFile(photo, pngBytes, 0o644))

	dispatcher := &recordingDispatcher{resp: map[string]interface{}{
		"predicted_price": 4200000.0,
		"min_price":       4000000.0,
		"max_price":       4500000.0,
		"confidence":      0.8,
		"price_per_sqft":  3500.0,
		"insights":        "Corner plots fetch a premium.",
	}}

	opts := &valuationOptions{
		fields:   []string{"area=1200", "city=Mysuru", "locality=Vijayanagar", "cornerPlot=Yes"},
		lat:      12.3,
		lng:      76.6,
		hasCoord: true,
		images:   []string{photo},
	}

	var out bytes.Buffer
	err := runValuation(context.Background(), &out, &model.LandPrice, opts, service.SessionDeps{Dispatcher: dispatcher})
	require.NoError(t, err)

	assert.Equal(t, 1200.0, dispatcher.payload["area"])
	assert.Equal(t, true, dispatcher.payload["corner_plot"])
	assert.Equal(t, 12.3, dispatcher.payload["lat"])
	assert.NotContains(t, dispatcher.payload, "amenities")

	text := out.String()
	assert.Contains(t, text, "Confidence: 80%")
	assert.Contains(t, text, "Per unit:")
	assert.Contains(t, text, "Photos:     1 attached")
	assert.Contains(t, text, "Corner plots fetch a premium.")
}

func TestRunValuation_AmenityAliases(t *testing.T) {
	dispatcher := &recordingDispatcher{resp: map[string]interface{}{"price": 100.0}}
	opts := &valuationOptions{
		fields: []string{
			"area=900", "bedrooms=2", "bathrooms=1",
			"city=Bengaluru", "locality=Indiranagar",
		},
		lat: 12.97, lng: 77.64, hasCoord: true,
		amenities: []string{"Swimming Pool", "pool", "power backup"},
	}

	var out bytes.Buffer
	err := runValuation(context.Background(), &out, &model.HousePrice, opts, service.SessionDeps{Dispatcher: dispatcher})
	require.NoError(t, err)
	assert.Equal(t, []string{"pool", "power"}, dispatcher.payload["amenities"])
}

func TestRunValuation_Errors(t *testing.T) {
	t.Run("missing location", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		opts := &valuationOptions{fields: []string{"area=1200", "city=Mysuru", "locality=Vijayanagar"}}

		err := runValuation(context.Background(), &bytes.Buffer{}, &model.LandPrice, opts, service.SessionDeps{Dispatcher: dispatcher})
		require.Error(t, err)
		assert.Equal(t, "Please select the plot location on the map.", err.Error())
		assert.Nil(t, dispatcher.payload)
	})

	t.Run("unknown field", func(t *testing.T) {
		opts := &valuationOptions{fields: []string{"colour=blue"}}
		err := runValuation(context.Background(), &bytes.Buffer{}, &model.LandPrice, opts, service.SessionDeps{Dispatcher: &recordingDispatcher{}})
		assert.ErrorIs(t, err, service.ErrUnknownField)
	})

	t.Run("unknown amenity", func(t *testing.T) {
		opts := &valuationOptions{amenities: []string{"helipad"}}
		err := runValuation(context.Background(), &bytes.Buffer{}, &model.HouseRent, opts, service.SessionDeps{Dispatcher: &recordingDispatcher{}})
		assert.ErrorIs(t, err, service.ErrUnknownAmenity)
	})

	t.Run("backend failure", func(t *testing.T) {
		dispatcher := &recordingDispatcher{err: errors.New("boom")}
		opts := &valuationOptions{
			fields: []string{"area=1200", "city=Mysuru", "locality=Vijayanagar"},
			lat:    12.3, lng: 76.6, hasCoord: true,
		}
		err := runValuation(context.Background(), &bytes.Buffer{}, &model.LandPrice, opts, service.SessionDeps{Dispatcher: dispatcher})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestTokenCommands(t *testing.T) {
	repo, err := repository.NewStateRepository("sqlite", repository.MemoryDSN(t.Name()))
	require.NoError(t, err)
	defer repo.Close()
	clientState = service.NewClientState(repo)
	defer func() { clientState = nil }()

	run := func(c *cobra.Command, args ...string) string {
		var out bytes.Buffer
		c.SetOut(&out)
		c.SetContext(context.Background())
		require.NoError(t, c.RunE(c, args))
		return out.String()
	}

	assert.Equal(t, "Not logged in.\n", run(tokenShowCmd))
	assert.Equal(t, "Token stored.\n", run(tokenSetCmd, "abcdefghijklmnopqrstuvwxyz"))
	assert.Contains(t, run(tokenShowCmd), "Token: abcdef...wxyz")
	assert.Equal(t, "Logged out.\n", run(tokenClearCmd))
	assert.Equal(t, "Not logged in.\n", run(tokenShowCmd))
}

func TestDomainCommands(t *testing.T) {
	cmds := domainCommands()
	require.Len(t, cmds, 3)
	assert.Equal(t, "house-price", cmds[0].Use)
	assert.NotNil(t, cmds[1].Flags().Lookup("amenity"))
	assert.Nil(t, cmds[2].Flags().Lookup("amenity"), "land has no amenity catalog")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("short"))
	assert.Equal(t, "eyJhbG...sig1", maskToken("eyJhbGciOiJIUzI1NiJ9.body.sig1"))
}
