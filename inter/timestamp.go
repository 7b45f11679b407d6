package inter

import (
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
)

// Timestamp is a unix time in nanoseconds.
type Timestamp uint64

func FromUnix(t int64) Timestamp {
	return Timestamp(int64(t) * int64(time.Second))
}

func FromMillis(ms uint64) Timestamp {
	return Timestamp(ms * uint64(time.Millisecond))
}

func (t Timestamp) Unix() int64 {
	return int64(t) / int64(time.Second)
}

func (t Timestamp) Millis() uint64 {
	return uint64(t) / uint64(time.Millisecond)
}

func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t)/int64(time.Second), int64(t)%int64(time.Second))
}

func (t Timestamp) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(t))
}

func BytesToTimestamp(b []byte) Timestamp {
	return Timestamp(bigendian.BytesToUint64(b))
}

// MaxTimestamp returns the latest of the two.
func MaxTimestamp(x, y Timestamp) Timestamp {
	if x > y {
		return x
	}
	return y
}
