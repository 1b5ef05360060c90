package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessages_Text(t *testing.T) {
	m := NewMessages("en")

	assert.Equal(t, "Please fill area, city and locality.", m.Text("validation.required.land-price", nil))
	assert.Equal(t, "Server error: 502 bad gateway", m.Text("transport.status", map[string]interface{}{
		"Status": 502,
		"Body":   "bad gateway",
	}))
	assert.Equal(t, "no.such.message", m.Text("no.such.message", nil))
}

func TestMessages_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	m := NewMessages("fr")

	assert.Equal(t, "Geolocation not supported.", m.Text("geolocation.unsupported", nil))
}
