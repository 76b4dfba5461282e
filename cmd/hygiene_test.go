package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHygieneScope(t *testing.T) {
	foodSlugs := []string{"restaurants", "cafes", "pubs"}

	// A bare run is scoped to the configured food categories.
	assert.Equal(t, foodSlugs, hygieneScope(nil, foodSlugs))

	// Explicit flags override the configured scope.
	assert.Equal(t, []string{"cafes"}, hygieneScope([]string{"cafes"}, foodSlugs))
}
