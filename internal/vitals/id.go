package vitals

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const idVersion = 5

// NewMetricID returns a page-unique metric id of the form
// v5-<unix millis>-<13 digit random number>.
func NewMetricID() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8])%9_000_000_000_000 + 1_000_000_000_000
	return fmt.Sprintf("v%d-%d-%d", idVersion, time.Now().UnixMilli(), n)
}
