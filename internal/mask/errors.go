package mask

import (
	"fmt"

	"github.com/banshee-data/cocoset/internal/coco"
)

// IntConversionError reports a run-length delta whose encoded byte fell
// outside the ASCII range the codec may emit. Unreachable for counts derived
// from a valid mask, but kept reportable for diagnosability.
type IntConversionError struct {
	Value int64
}

func (e *IntConversionError) Error() string {
	return fmt.Sprintf("encode rle: value %d does not fit an encoded byte", e.Value)
}

// StrConversionError reports an assembled encoding that is not valid ASCII
// text. Also unreachable for in-range input.
type StrConversionError struct {
	Bytes []byte
}

func (e *StrConversionError) Error() string {
	return fmt.Sprintf("encode rle: assembled bytes %v are not valid ascii text", e.Bytes)
}

// NotASCIIError reports an encoded RLE input containing a byte outside the
// ASCII range. Decoding rejects such input before reading any counts.
type NotASCIIError struct {
	Pos  int
	Byte byte
}

func (e *NotASCIIError) Error() string {
	return fmt.Sprintf("decode rle: byte 0x%02x at offset %d is not ascii", e.Byte, e.Pos)
}

// TruncatedEncodingError reports an encoded RLE input that ends while the
// continuation bit of the last byte is still set.
type TruncatedEncodingError struct {
	Pos int
}

func (e *TruncatedEncodingError) Error() string {
	return fmt.Sprintf("decode rle: input truncated inside a varint at offset %d", e.Pos)
}

// UnsupportedConversionError reports a conversion leg that has no
// implementation. Batch conversion records it per annotation and continues
// rather than aborting the run.
type UnsupportedConversionError struct {
	From coco.Format
	To   coco.Format
}

func (e *UnsupportedConversionError) Error() string {
	return fmt.Sprintf("conversion from %s to %s is not supported", e.From, e.To)
}
