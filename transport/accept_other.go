//go:build !unix

package transport

func isTransient(err error) bool {
	return isTimeout(err)
}

func ErrnoName(error) string {
	return ""
}
