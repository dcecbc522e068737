package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBestMatchSubstring(t *testing.T) {
	elements := []Element{
		{Index: 0, Text: "Sign up"},
		{Index: 1, Text: "Login to your account"},
	}
	idx, score := BestMatch("login", elements)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1.0, score)
}

func TestBestMatchWordOverlap(t *testing.T) {
	elements := []Element{
		{Index: 0, Text: "Delete everything"},
		{Index: 1, Text: "Order submission form"},
	}
	idx, score := BestMatch("submit order form", elements)
	assert.Equal(t, 1, idx)
	assert.GreaterOrEqual(t, score, matchFloor)
	assert.Less(t, score, 1.0)
}

func TestBestMatchFuzzy(t *testing.T) {
	elements := []Element{
		{Index: 0, Text: "Contact"},
		{Index: 1, Text: "Pricing"},
	}
	// Misrecognized speech still lands on the closest text.
	idx, score := BestMatch("contct", elements)
	assert.Equal(t, 0, idx)
	assert.Greater(t, score, 0.8)
}

func TestBestMatchFloor(t *testing.T) {
	elements := []Element{
		{Index: 0, Text: "Hello world"},
		{Index: 1, Text: "Something else"},
	}
	idx, score := BestMatch("xyzzy", elements)
	assert.Equal(t, -1, idx)
	assert.Zero(t, score)
}

func TestBestMatchEmptyInputs(t *testing.T) {
	idx, _ := BestMatch("", []Element{{Text: "Home"}})
	assert.Equal(t, -1, idx)

	idx, _ = BestMatch("home", nil)
	assert.Equal(t, -1, idx)

	idx, _ = BestMatch("home", []Element{{Text: "   "}})
	assert.Equal(t, -1, idx)
}
