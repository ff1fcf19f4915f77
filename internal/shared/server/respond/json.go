package respond

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Disposition selects how a browser treats a streamed file.
type Disposition string

const (
	Inline     Disposition = "inline"
	Attachment Disposition = "attachment"
)

// File streams r with a Content-Disposition carrying fileName.
func File(c *gin.Context, disp Disposition, fileName, mimeType string, r io.Reader) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Type", mimeType)
	c.Header("Content-Disposition", string(disp)+"; filename="+strconv.Quote(fileName))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, r)
}
