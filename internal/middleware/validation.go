package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"talentapp/internal/observability"
)

// ImportRequestSchema is the schema name checked against bulk import payloads.
const ImportRequestSchema = "ImportRequest"

// ImportValidationMiddleware validates bulk import payloads against the
// ImportRequest JSON schema before they reach the handler. Import bodies come
// from spreadsheet exports and other systems, so the full payload is checked
// up front and rejected with field-level details instead of failing row by
// row. When no schema is loaded the check is skipped and binding validation
// still applies.
func ImportValidationMiddleware(schemaLoader *SchemaLoader, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "import_validation")
		defer span.End()

		if schemaLoader == nil || !schemaLoader.HasSchema(ImportRequestSchema) {
			c.Next()
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			logger.Warn(ctx, "Failed to read import request body", map[string]interface{}{
				"error": err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"message": "Request body could not be read",
			})
			c.Abort()
			return
		}
		// Hand the body back so the handler can bind it.
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		var requestData interface{}
		if err := json.Unmarshal(body, &requestData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"message": "Request body is not valid JSON",
			})
			c.Abort()
			return
		}

		if err := schemaLoader.ValidateData(requestData, ImportRequestSchema); err != nil {
			logger.Warn(ctx, "Import payload failed schema validation", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"message": "Import payload does not match the expected schema",
				"schema":  ImportRequestSchema,
				"details": err.Error(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
