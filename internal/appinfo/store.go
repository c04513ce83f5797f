// Package appinfo keeps process-wide counters for registered images and the
// process start time. Guest data is counted by the guest store itself.
package appinfo

import (
	"sync/atomic"
	"time"
)

var (
	TotalAssetsCount atomic.Int64
	TotalAssetsSize  atomic.Int64

	startTime = time.Now()
)

// AddAsset: Called when a registered image is confirmed
func AddAsset(size int64) {
	TotalAssetsCount.Add(1)
	TotalAssetsSize.Add(size)
}

// RemoveAssets: Called when n images totalling size bytes are deleted
func RemoveAssets(n, size int64) {
	TotalAssetsCount.Add(-n)
	TotalAssetsSize.Add(-size)
}

// SetInitialStats: Writes the first data received from the database when the server starts up.
func SetInitialStats(count, size int64) {
	TotalAssetsCount.Store(count)
	TotalAssetsSize.Store(size)
}

// Uptime reports how long the process has been running.
func Uptime() time.Duration {
	return time.Since(startTime)
}
