package sourcemap

import "fmt"

const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase
)

var base64Values [256]int8

func init() {
	for i := range base64Values {
		base64Values[i] = -1
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	for i := 0; i < len(alphabet); i++ {
		base64Values[alphabet[i]] = int8(i)
	}
}

// decodeVLQ decodes one base64 VLQ value starting at s[pos]. It returns the
// value and the position following it.
func decodeVLQ(s string, pos int) (int, int, error) {
	var result, shift int
	for {
		if pos >= len(s) {
			return 0, pos, fmt.Errorf("unexpected end of VLQ value")
		}
		digit := base64Values[s[pos]]
		if digit < 0 {
			return 0, pos, fmt.Errorf("invalid base64 character %q", s[pos])
		}
		pos++
		if shift > 31 {
			return 0, pos, fmt.Errorf("VLQ value out of range")
		}
		result += int(digit&vlqBaseMask) << shift
		shift += vlqBaseShift
		if digit&vlqContinuationBit == 0 {
			break
		}
	}
	if result&1 == 1 {
		return -(result >> 1), pos, nil
	}
	return result >> 1, pos, nil
}
