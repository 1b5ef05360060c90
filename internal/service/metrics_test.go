package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"valuator/internal/model"
)

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	s := NewSession("m", &model.LandPrice, SessionDeps{
		Dispatcher: okDispatcher(map[string]interface{}{"price": 1.0}),
		Metrics:    m,
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))

	_ = s.Submit(context.Background())
	fillLand(t, s)
	_ = s.Submit(context.Background())
	s.Close()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("land-price", OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("land-price", OutcomeSuccess)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.observeSubmission(model.DomainHousePrice, OutcomeSuccess)
	m.sessionOpened()
}
