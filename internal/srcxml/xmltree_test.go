package srcxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleUnit = `<?xml version="1.0"?>
<unit xmlns="http://www.srcML.org/srcML/src" xmlns:cpp="http://www.srcML.org/srcML/cpp" xmlns:pos="http://www.srcML.org/srcML/position">
<cpp:include>#<cpp:directive>include</cpp:directive> <cpp:file>"foo.h"</cpp:file>
</cpp:include>
<function pos:line="3"><type><name>void</name></type> <name>bar</name><parameter_list>()</parameter_list> <block>{<block_content>
<expr_stmt><expr><call><name>foo</name><argument_list>()</argument_list></call></expr></expr_stmt>
</block_content>}</block></function>
</unit>`

func TestDecodeBuildsTree(t *testing.T) {
	root, err := Decode(strings.NewReader(sampleUnit))
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, TagUnit, root.Tag())

	fns := root.FindAll(func(n *Node) bool { return n.Tag() == TagFunction })
	require.Len(t, fns, 1)
	line, ok := fns[0].Attr(NSPos, "line")
	assert.True(t, ok)
	assert.Equal(t, "3", line)
}

func TestDecodeRecoversPartialTreeOnMalformedInput(t *testing.T) {
	truncated := `<unit xmlns="http://www.srcML.org/srcML/src"><function><name>f</name>`
	root, err := Decode(strings.NewReader(truncated))
	assert.Error(t, err)
	require.NotNil(t, root)
	assert.Equal(t, TagUnit, root.Tag())
}

func TestPositionLinesCollectsDescendants(t *testing.T) {
	root, err := Decode(strings.NewReader(sampleUnit))
	require.NoError(t, err)
	lines := root.PositionLines()
	assert.Contains(t, lines, 3)
}
