package cluster

import (
	"fmt"
	"time"
)

func errShardNotRunning(index int) error {
	return fmt.Errorf("cluster: shard %d is not running", index)
}

// pollTicker fires every 30 seconds; frequent enough that a crash loses at
// most half a minute of sequence progress, infrequent enough not to
// contend with sessionstore's own connection pool under a full shard count.
func pollTicker() *time.Ticker {
	return time.NewTicker(30 * time.Second)
}
