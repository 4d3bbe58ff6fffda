package query

import (
	"strings"

	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/internal/urlencoded"
	"github.com/indigo-web/schnell/kv"
)

// replace empty value (or so-called parameter without value) with the following string
const defaultEmptyValueContent = "1"

// Parse decodes the raw query string into params. Pairs are separated by ampersands, keys
// and values are percent-decoded with pluses standing for spaces. A key without an equal
// sign is a flag and gets the default value.
//
// Parameters that need no decoding point into raw.
func Parse(raw string, params *kv.Storage) error {
	var (
		buff []byte
		err  error
	)

	for len(raw) > 0 {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if len(pair) == 0 {
			continue
		}

		key, value, found := strings.Cut(pair, "=")
		if len(key) == 0 {
			return status.ErrBadQuery
		}

		key, buff, err = urlencoded.DecodeString(key, buff)
		if err != nil {
			return status.ErrBadQuery
		}

		if !found {
			params.Set(key, defaultEmptyValueContent)
			continue
		}

		value, buff, err = urlencoded.DecodeString(value, buff)
		if err != nil {
			return status.ErrBadQuery
		}

		params.Set(key, value)
	}

	return nil
}
