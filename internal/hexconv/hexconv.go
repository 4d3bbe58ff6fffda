package hexconv

// Halfbyte maps an ASCII hex digit into its value. Every other character is mapped into
// 0xFF, so x|y > 0x0f tells that at least one of the two digits is invalid.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = 0xFF
	}

	for c := byte('0'); c <= '9'; c++ {
		table[c] = c - '0'
	}

	for c := byte('a'); c <= 'f'; c++ {
		table[c] = c - 'a' + 0xa
		table[c-'a'+'A'] = c - 'a' + 0xa
	}

	return table
}()
