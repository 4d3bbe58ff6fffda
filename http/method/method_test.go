package method

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethod(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, method := range List {
			assert.Equal(t, method, Parse(method.String()))
		}

		require.Len(t, List, int(Count))
	})

	t.Run("unsupported", func(t *testing.T) {
		for _, token := range []string{"", "get", "Post", "CONNECT", "PRI", "BREW", "GETS", "DELETED"} {
			assert.Equal(t, Unknown, Parse(token), token)
		}
	})

	t.Run("out of range stringifies as unknown", func(t *testing.T) {
		require.Equal(t, "UNKNOWN", Method(200).String())
		require.Equal(t, "UNKNOWN", Unknown.String())
	})
}
