package logger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var counter atomic.Uint64

// GenerateRequestID returns timestamp-counter-random, e.g. 20250301102830-000001-a3f2b1c4
func GenerateRequestID() string {
	id := uuid.New()
	return fmt.Sprintf("%s-%06d-%x", time.Now().Format("20060102150405"), counter.Add(1), id[:4])
}
