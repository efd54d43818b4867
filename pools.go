package pagevault

import "sync"

var valueBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 65536)
	},
}

func valueBytes() []byte {
	return valueBytesPool.Get().([]byte)
}

func releaseValueBytes(b []byte) {
	valueBytesPool.Put(b[:0])
}
