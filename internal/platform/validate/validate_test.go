// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "title", "Prologue", false},
		{"empty_string", "title", "", true},
		{"whitespace_only", "title", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Extension checks the raster allow-list rule.
*/
func TestValidator_Extension(t *testing.T) {
	allowed := []string{".jpg", ".jpeg", ".png", ".webp"}

	tests := []struct {
		name    string
		file    string
		isValid bool
	}{
		{"lower_png", "page-01.png", true},
		{"upper_jpeg", "PAGE-02.JPEG", true},
		{"double_ext", "archive.tar.webp", true},
		{"svg", "vector.svg", false},
		{"no_ext", "README", false},
		{"executable", "page.png.exe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Extension("images", tt.file, allowed...)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Finite rejects negative and non-finite chapter numbers.
*/
func TestValidator_Finite(t *testing.T) {
	assert.False(t, (&validate.Validator{}).Finite("number", 10.5).HasErrors())
	assert.False(t, (&validate.Validator{}).Finite("number", 0).HasErrors())
	assert.True(t, (&validate.Validator{}).Finite("number", -1).HasErrors())
	assert.True(t, (&validate.Validator{}).Finite("number", math.NaN()).HasErrors())
	assert.True(t, (&validate.Validator{}).Finite("number", math.Inf(1)).HasErrors())
}

/*
TestValidator_Numeric bounds integer digits and decimal places.
*/
func TestValidator_Numeric(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		isValid bool
	}{
		{"integer", 42, true},
		{"two_decimals", 10.55, true},
		{"float_noise", 0.1 + 0.2, false},
		{"three_decimals", 10.555, false},
		{"largest", 99999999.99, true},
		{"overflow", 1e8, false},
		{"nan_left_to_finite", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := (&validate.Validator{}).Numeric("chapter_number", tt.value, 10, 2)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("title", "Side Story").
		MaxLen("title", "Side Story", 255).
		UUID("work_id", "0190f3a2-7c1e-7d4b-9a55-3f2d1c0b9e8a").
		OneOf("mime", "image/png", "image/png", "image/jpeg").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("title", "").            // Fails
		UUID("work_id", "not-a-uuid").    // Fails
		Extension("images", "notes.txt"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}
