package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"talentapp/internal/config"
)

func TestParsePagination_DefaultsAndBounds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotPage, gotSize int

	r.GET("/test", func(c *gin.Context) {
		gotPage, gotSize = ParsePagination(c)
		c.Status(http.StatusOK)
	})

	// No params -> defaults
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, config.DefaultPage, gotPage)
	assert.Equal(t, config.DefaultPageSize, gotSize)

	// Explicit values pass through
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test?page=3&page_size=50", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 3, gotPage)
	assert.Equal(t, 50, gotSize)

	// Over max -> clamped
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test?page=2&page_size=5000", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, config.MaxPageSize, gotSize)
}

func TestParsePagination_InvalidValuesFallBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotPage, gotSize int

	r.GET("/test", func(c *gin.Context) {
		gotPage, gotSize = ParsePagination(c)
		c.Status(http.StatusOK)
	})

	cases := []string{
		"/test?page=abc&page_size=xyz",
		"/test?page=0&page_size=0",
		"/test?page=-5&page_size=-20",
	}
	for _, url := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", url, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, config.DefaultPage, gotPage, "url %s", url)
		assert.Equal(t, config.DefaultPageSize, gotSize, "url %s", url)
	}
}
