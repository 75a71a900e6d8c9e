package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aoideee/libraryhub/internal/validator"
)

func Test_Validator_KeepsFirstErrorPerField(t *testing.T) {
	v := validator.New()

	v.Check(false, "email", "must be provided")
	v.Check(false, "email", "must be a valid email address")
	v.Check(true, "name", "must be provided")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"email": "must be provided"}, v.Errors)
}

func Test_NotBlank(t *testing.T) {
	assert.True(t, validator.NotBlank("Dune"))
	assert.False(t, validator.NotBlank(""))
	assert.False(t, validator.NotBlank(" \t\n"))
}

func Test_MaxChars_CountsRunes(t *testing.T) {
	assert.True(t, validator.MaxChars("Łódź", 4))
	assert.False(t, validator.MaxChars("Łódź!", 4))
}

func Test_PermittedValue(t *testing.T) {
	assert.True(t, validator.PermittedValue("premium", "standard", "premium"))
	assert.False(t, validator.PermittedValue("gold", "standard", "premium"))
	assert.True(t, validator.PermittedValue(3, 1, 2, 3))
}

func Test_EmailRX(t *testing.T) {
	assert.True(t, validator.Matches("ada@example.com", validator.EmailRX))
	assert.False(t, validator.Matches("ada@", validator.EmailRX))
	assert.False(t, validator.Matches("not an email", validator.EmailRX))
}
