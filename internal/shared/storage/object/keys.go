package object

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewObjectName builds a collision-resistant object name: <unix millis>-<random>_<name>.
func NewObjectName(sanitizedName string, now time.Time) string {
	return fmt.Sprintf("%d-%s_%s", now.UnixMilli(), randomID(), sanitizedName)
}

func randomID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
