package handlers

import (
	"strconv"

	"talentapp/internal/config"

	"github.com/gin-gonic/gin"
)

// ParsePagination parses the standard page/page_size query params. It
// enforces bounds and applies the configured defaults when values are
// missing or invalid.
func ParsePagination(c *gin.Context) (int, int) {
	pageStr := c.DefaultQuery("page", strconv.Itoa(config.DefaultPage))
	sizeStr := c.DefaultQuery("page_size", strconv.Itoa(config.DefaultPageSize))

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = config.DefaultPage
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		size = config.DefaultPageSize
	}
	if size > config.MaxPageSize {
		size = config.MaxPageSize
	}

	return page, size
}
