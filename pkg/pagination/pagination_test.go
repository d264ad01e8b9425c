// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/chapterhub/pkg/pagination"
)

/*
TestFromRequest_Clamping falls back to defaults for unusable values.
*/
func TestFromRequest_Clamping(t *testing.T) {
	tests := []struct {
		name  string
		query string
		page  int
		limit int
	}{
		{"defaults", "", pagination.DefaultPage, pagination.DefaultLimit},
		{"explicit", "?page=3&limit=50", 3, 50},
		{"garbage", "?page=abc&limit=x", pagination.DefaultPage, pagination.DefaultLimit},
		{"negative", "?page=-2&limit=-1", pagination.DefaultPage, pagination.DefaultLimit},
		{"over_max", "?limit=1000", pagination.DefaultPage, pagination.DefaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := pagination.FromRequest(httptest.NewRequest("GET", "/chapters"+tt.query, nil))
			assert.Equal(t, tt.page, params.Page)
			assert.Equal(t, tt.limit, params.Limit)
		})
	}
}

/*
TestNewMeta_TotalPages rounds partial pages up.
*/
func TestNewMeta_TotalPages(t *testing.T) {
	assert.Equal(t, 3, pagination.NewMeta(1, 20, 41).TotalPages)
	assert.Equal(t, 0, pagination.NewMeta(1, 20, 0).TotalPages)
	assert.Equal(t, 40, pagination.Params{Page: 3, Limit: 20}.Offset())
}
