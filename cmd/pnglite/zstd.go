package main

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// --- ZSTD helpers ---

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

var zstdEncPool = sync.Pool{
	New: func() any {
		return mustNewZstdEncoder()
	},
}

// compressSamples returns data as a single zstd frame.
func compressSamples(data []byte) []byte {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(data, make([]byte, 0, len(data)/2))
	zstdEncPool.Put(enc)
	return out
}
