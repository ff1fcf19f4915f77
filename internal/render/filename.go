package render

import (
	"fmt"
	"time"

	"templatefill-backend/internal/shared/util"
)

// FileName builds "<name with dashes>-<unix millis>.pdf".
func FileName(templateName string, now time.Time) string {
	base := util.DashSpaces(templateName)
	if base == "" {
		base = "document"
	}
	return fmt.Sprintf("%s-%d.pdf", base, now.UnixMilli())
}

func fallbackFileName(now time.Time) string {
	return fmt.Sprintf("fallback-document-%d.pdf", now.UnixMilli())
}
