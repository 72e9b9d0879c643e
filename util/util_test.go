package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
	assert.Len(t, ShortID(a), 8)
}

func TestShortIDWithoutDash(t *testing.T) {
	assert.Equal(t, "abc", ShortID("abc"))
}

func TestFormatKB(t *testing.T) {
	assert.Equal(t, "2.0 MB", FormatKB(2048))
	assert.Equal(t, "512.0 KB", FormatKB(512))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12.5%", FormatPercent(12.46))
}
