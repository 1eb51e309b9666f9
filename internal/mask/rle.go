package mask

import (
	"github.com/banshee-data/cocoset/internal/coco"
)

// The ASCII codec stores each run length as a signed variable-length integer
// using 5 data bits per byte, offset into the printable range at 48. Bit 0x20
// of each (post-offset-removed) byte flags that more bytes follow; bit 0x10 of
// the terminating byte flags sign extension. From the fourth count onward,
// each run length is delta-coded against the count two positions earlier:
// consecutive scanlines of a typical object mask have similar single-run
// structure, so the deltas stay small and encode in fewer bytes.

const (
	asciiOffset   = 48
	dataBits      = 5
	dataMask      = 0x1f
	continueBit   = 0x20
	signExtendBit = 0x10
)

// Encode compresses an Rle into its ASCII form. The result is byte-for-byte
// compatible with the COCO reference encoding.
func Encode(rle *coco.Rle) (*coco.EncodedRle, error) {
	encoded := make([]byte, 0, len(rle.Counts))
	for i, count := range rle.Counts {
		value := int64(count)
		if i > 2 {
			value -= int64(rle.Counts[i-2])
		}
		for more := true; more; {
			b := byte(value & dataMask)
			value >>= dataBits // arithmetic shift, preserves sign
			// A value of 0 terminates a cleared top bit, -1 a set one:
			// two's-complement sign extension reproduces either on decode.
			if b&signExtendBit == 0 {
				more = value != 0
			} else {
				more = value != -1
			}
			if more {
				b |= continueBit
			}
			if int64(b)+asciiOffset > 0x7f {
				return nil, &IntConversionError{Value: int64(b)}
			}
			encoded = append(encoded, b+asciiOffset)
		}
	}
	for _, b := range encoded {
		if b > 0x7f {
			return nil, &StrConversionError{Bytes: encoded}
		}
	}
	return &coco.EncodedRle{
		Size:   append([]uint32(nil), rle.Size...),
		Counts: string(encoded),
	}, nil
}

// Decode expands an ASCII encoded RLE back into its uncompressed form. Input
// containing non-ASCII bytes is rejected before any counts are read; input
// ending mid-integer yields a TruncatedEncodingError.
func Decode(enc *coco.EncodedRle) (*coco.Rle, error) {
	data := []byte(enc.Counts)
	for i, b := range data {
		if b > 0x7f {
			return nil, &NotASCIIError{Pos: i, Byte: b}
		}
	}

	counts := make([]uint32, 0, len(data))
	for pos := 0; pos < len(data); {
		var value int32
		shift := uint(0)
		for {
			if pos >= len(data) {
				return nil, &TruncatedEncodingError{Pos: pos}
			}
			b := data[pos] - asciiOffset
			value |= int32(b&dataMask) << shift
			pos++
			shift += dataBits
			if b&continueBit == 0 {
				if b&signExtendBit != 0 {
					value |= -1 << shift
				}
				break
			}
		}
		if len(counts) > 2 {
			value += int32(counts[len(counts)-2])
		}
		counts = append(counts, uint32(value))
	}

	return &coco.Rle{
		Size:   append([]uint32(nil), enc.Size...),
		Counts: trimTrailingZeroRuns(counts),
	}, nil
}

// trimTrailingZeroRuns drops zero-length runs from the end of a decoded count
// sequence. Encodings produced by Encode never decode to trailing zeros, but
// reference-tool output has been observed to carry them; trimming keeps the
// decoded counts identical to what a fresh mask scan would produce.
func trimTrailingZeroRuns(counts []uint32) []uint32 {
	for len(counts) > 0 && counts[len(counts)-1] == 0 {
		counts = counts[:len(counts)-1]
	}
	return counts
}
