package ctx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, 5, opts.MaxInferredTypes)
	require.Equal(t, "recursive", opts.RecursiveVLPGenerator)
}

func TestNextCTENameIsMonotoneAndSharedAcrossCopies(t *testing.T) {
	c := New(nil, DefaultOptions())
	copyOfC := c

	first := c.NextCTEName("with")
	second := copyOfC.NextCTEName("with")

	require.Equal(t, "with_1", first)
	require.Equal(t, "with_2", second, "counter must be shared across copies of CompileContext")
}

func TestVLPNameAndWithCTENameAreDeterministic(t *testing.T) {
	require.Equal(t, "vlp_a_b", VLPName("a", "b"))
	require.Equal(t, "with_a_b_cte", WithCTEName([]string{"a", "b"}))
}
