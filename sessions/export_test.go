package sessions

import "time"

func (kv *InMemoryKV) SetClock(now func() time.Time) {
	kv.now = now
}
