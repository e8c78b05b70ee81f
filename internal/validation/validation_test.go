package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingoquest/internal/apperr"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid email", "test@example.com", false},
		{"valid email with subdomain", "user@mail.example.com", false},
		{"valid email with plus", "user+tag@example.com", false},
		{"missing @", "testexample.com", true},
		{"missing domain", "test@", true},
		{"missing local part", "@example.com", true},
		{"empty string", "", true},
		{"spaces in email", "test @example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				appErr, _ := apperr.As(err)
				assert.Contains(t, appErr.Fields, "email")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "ana", false},
		{"allowed symbols", "ana.maria+es@home_1-x", false},
		{"unicode letters", "josé", false},
		{"empty", "", true},
		{"space", "ana maria", true},
		{"slash", "ana/maria", true},
		{"too long", string(make([]byte, 151)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "password123", false},
		{"password exactly 8 characters", "pass1234", false},
		{"password too short", "pass123", true},
		{"empty password", "", true},
		{"long password", "thisIsAVeryLongPasswordThatShouldBeValid123", false},
		{"72 bytes", strings.Repeat("p", 72), false},
		{"73 bytes", strings.Repeat("p", 73), true},
		{"40 runes over 72 bytes", strings.Repeat("é", 40), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestPasswordByteLimitMessage(t *testing.T) {
	appErr, ok := apperr.As(ValidatePassword(strings.Repeat("p", 80)))
	require.True(t, ok)
	assert.Equal(t, "Ensure this field has no more than 72 bytes.", appErr.Fields["password"])
}

func TestStructUsesJSONNames(t *testing.T) {
	type payload struct {
		PhotoURL  string   `json:"profile_photo_url" validate:"omitempty,url"`
		Interests []string `json:"interests" validate:"max=2"`
	}

	err := Struct(payload{PhotoURL: "not a url", Interests: []string{"a", "b", "c"}})
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "Enter a valid URL.", appErr.Fields["profile_photo_url"])
	assert.Contains(t, appErr.Fields["interests"], "2 elements")

	assert.NoError(t, Struct(payload{}))
}

func TestMerge(t *testing.T) {
	err := Merge(ValidateEmail("nope"), nil, ValidatePassword("short"))
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Len(t, appErr.Fields, 2)

	assert.NoError(t, Merge(nil, nil))
}
