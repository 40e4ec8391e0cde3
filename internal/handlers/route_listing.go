package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"talentapp/internal/observability"
)

// RouteInfo represents information about a single route
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler serves the root path route index, handy when poking at
// the API from a browser.
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{
		serviceName: serviceName,
		routes:      []RouteInfo{},
	}
}

// CollectRoutes extracts all registered routes from a Gin engine
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	h.routes = []RouteInfo{}

	for _, route := range engine.Routes() {
		if strings.HasPrefix(route.Path, "/debug/") {
			continue
		}

		h.routes = append(h.routes, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			HandlerName: route.Handler,
		})
	}

	sort.Slice(h.routes, func(i, j int) bool {
		return h.routes[i].Path < h.routes[j].Path
	})
}

// GetRouteListingPage shows all available routes as HTML
func (h *RouteListingHandler) GetRouteListingPage(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_page")
	defer observability.FinishSpan(span, nil)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.String(http.StatusOK, h.generateHTML())
}

// GetRouteListingJSON returns the route listing as JSON
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_json")
	defer observability.FinishSpan(span, nil)
	c.JSON(http.StatusOK, h.routes)
}

// generateHTML creates a plain HTML page listing all routes
func (h *RouteListingHandler) generateHTML() string {
	var html strings.Builder

	html.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>` + h.serviceName + ` - Routes</title>
    <style>
        body { font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.5; padding: 20px; background-color: #f8f9fa; color: #212529; }
        .container { max-width: 960px; margin: auto; background: #fff; padding: 30px; border-radius: 8px; }
        h1 { color: #0056b3; border-bottom: 2px solid #dee2e6; padding-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px 12px; text-align: left; border-bottom: 1px solid #dee2e6; }
        th { background-color: #f8f9fa; }
        .path { font-family: "Menlo", "Ubuntu Mono", monospace; font-size: 14px; color: #6f42c1; }
        .footer { margin-top: 20px; color: #6c757d; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>` + h.serviceName + `</h1>
        <p>` + fmt.Sprintf("%d routes, generated %s", len(h.routes), time.Now().Format("2006-01-02 15:04:05")) + `</p>
        <table>
            <thead><tr><th>Method</th><th>Path</th><th>Handler</th></tr></thead>
            <tbody>`)

	for _, route := range h.routes {
		html.WriteString(fmt.Sprintf(`
                <tr><td>%s</td><td><span class="path">%s</span></td><td>%s</td></tr>`,
			route.Method, route.Path, route.HandlerName,
		))
	}

	html.WriteString(`
            </tbody>
        </table>
        <div class="footer"><a href="/?json=true">View as JSON</a></div>
    </div>
</body>
</html>`)

	return html.String()
}
