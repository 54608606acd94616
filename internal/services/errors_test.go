package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputCollectsFieldNames(t *testing.T) {
	input := struct {
		Title   string `json:"title" validate:"required"`
		Content string `json:"content" validate:"required"`
		Email   string `json:"email" validate:"omitempty,email"`
		Ignored string `json:"-" validate:"omitempty"`
	}{Email: "nope"}

	err := validateInput(input)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"title", "content"}, verr.Missing)
	assert.Equal(t, []string{"email"}, verr.Invalid)
	assert.Equal(t, "Missing required fields: title, content; Invalid fields: email", verr.Error())
}

func TestValidateInputPasses(t *testing.T) {
	input := struct {
		Title string `json:"title" validate:"required"`
	}{Title: "ok"}
	assert.NoError(t, validateInput(input))
}
