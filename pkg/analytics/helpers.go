package analytics

import (
	"strconv"
	"time"
)

// msToTime converts epoch milliseconds to a time.Time.
func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// parseCount reads a counter field out of a Redis hash; absent or malformed
// values read as zero.
func parseCount(values map[string]string, field string) int64 {
	v, ok := values[field]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
