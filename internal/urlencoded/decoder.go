package urlencoded

import (
	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/internal/hexconv"
	"github.com/indigo-web/utils/uf"
)

// Decode decodes percent-encoded sequences and pluses (standing for spaces) into dst. If
// there's nothing to decode, src is returned as is and dst stays untouched. dst can be
// src[:0] as well in order to decode "into itself".
func Decode(src, dst []byte) (decoded, buffer []byte, err error) {
	dsthead := len(dst)
	modified := false

loop:
	for i, c := range src {
		switch c {
		case '+':
			modified = true
			dst = append(dst, src[:i]...)
			dst = append(dst, ' ')
			src = src[i+1:]
			goto loop
		case '%':
			modified = true

			if len(src)-i < 3 {
				return nil, dst, status.ErrURLDecoding
			}

			a, b := hexconv.Halfbyte[src[i+1]], hexconv.Halfbyte[src[i+2]]
			if a|b > 0x0f {
				return nil, dst, status.ErrURLDecoding
			}

			dst = append(dst, src[:i]...)
			dst = append(dst, (a<<4)|b)
			src = src[i+3:]
			goto loop
		}
	}

	if !modified {
		return src, dst, nil
	}

	dst = append(dst, src...)
	return dst[dsthead:], dst, nil
}

// DecodeString is Decode for strings. The decoded string may point into the source or
// into the buffer, so none of them may be modified afterward.
func DecodeString(src string, buff []byte) (decoded string, buffer []byte, err error) {
	d, buffer, err := Decode(uf.S2B(src), buff)
	return uf.B2S(d), buffer, err
}
