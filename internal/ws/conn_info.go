package ws

import "time"

type ConnInfo struct {
	ConnID      string
	UID         string
	IP          string
	ConnectedAt time.Time
}
