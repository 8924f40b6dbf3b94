package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNo returns a unique, human-readable order number. It is also the
// idempotency key of the gateway authorization.
func NewOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
	return "OR" + now.UTC().Format("20060102150405") + suffix
}
