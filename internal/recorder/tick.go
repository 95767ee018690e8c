package recorder

import (
	"encoding/binary"
	"math"
)

// TickSize is the packed record size. The format is bit-exact and
// versioned only by the file extension.
const TickSize = 40

// FileExt is the extension of recorded tick files.
const FileExt = ".tick"

// MarketTick is one top-of-book observation.
type MarketTick struct {
	TimestampNs uint64
	BidPrice    float64
	AskPrice    float64
	BidQty      float64
	AskQty      float64
}

func encodeTick(dst []byte, tick MarketTick) {
	_ = dst[TickSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], tick.TimestampNs)
	binary.LittleEndian.PutUint64(dst[8:16], math.Float64bits(tick.BidPrice))
	binary.LittleEndian.PutUint64(dst[16:24], math.Float64bits(tick.AskPrice))
	binary.LittleEndian.PutUint64(dst[24:32], math.Float64bits(tick.BidQty))
	binary.LittleEndian.PutUint64(dst[32:40], math.Float64bits(tick.AskQty))
}

func decodeTick(src []byte) (MarketTick, bool) {
	if len(src) < TickSize {
		return MarketTick{}, false
	}
	return MarketTick{
		TimestampNs: binary.LittleEndian.Uint64(src[0:8]),
		BidPrice:    math.Float64frombits(binary.LittleEndian.Uint64(src[8:16])),
		AskPrice:    math.Float64frombits(binary.LittleEndian.Uint64(src[16:24])),
		BidQty:      math.Float64frombits(binary.LittleEndian.Uint64(src[24:32])),
		AskQty:      math.Float64frombits(binary.LittleEndian.Uint64(src[32:40])),
	}, true
}
