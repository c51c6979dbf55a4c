package sourcemap

import (
	"strings"

	"go.trai.ch/zerr"
)

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase
)

var base64Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := range len(base64Chars) {
		idx[base64Chars[i]] = int8(i) //nolint:gosec // bounded by the alphabet
	}
	return idx
}()

// ErrInvalidMappings is returned when a mappings string is not valid base64 VLQ.
var ErrInvalidMappings = zerr.New("invalid source map mappings")

func writeVLQ(b *strings.Builder, value int) {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}
	for {
		digit := vlq & vlqBaseMask
		vlq >>= vlqBaseShift
		if vlq > 0 {
			digit |= vlqContinuationBit
		}
		b.WriteByte(base64Chars[digit])
		if vlq == 0 {
			return
		}
	}
}

// readVLQ decodes one value from s starting at i and returns it with the next index.
func readVLQ(s string, i int) (value, next int, err error) {
	var result, shift int
	for {
		if i >= len(s) {
			return 0, i, zerr.With(zerr.Wrap(ErrInvalidMappings, ""), "offset", i)
		}
		digit := base64Index[s[i]]
		if digit < 0 {
			return 0, i, zerr.With(zerr.Wrap(ErrInvalidMappings, ""), "offset", i)
		}
		i++
		d := int(digit)
		result += (d & vlqBaseMask) << shift
		shift += vlqBaseShift
		if d&vlqContinuationBit == 0 {
			break
		}
	}
	if result&1 == 1 {
		return -(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
