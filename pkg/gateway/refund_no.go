package gateway

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRefundNo returns a unique refund number. The gateway treats it as the
// idempotency key of the refund call.
func NewRefundNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:20])
	return "RF" + now.UTC().Format("20060102") + suffix
}
