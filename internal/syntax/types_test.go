package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"src/UserService.cs", LangCSharp, true},
		{"cmd/main.go", LangGo, true},
		{"web/App.TSX", LangTSX, true},
		{"lib/util.mjs", LangJavaScript, true},
		{"README.md", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := LanguageFromPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLanguageFromName(t *testing.T) {
	got, ok := LanguageFromName("CSharp")
	assert.True(t, ok)
	assert.Equal(t, LangCSharp, got)

	_, ok = LanguageFromName("fortran")
	assert.False(t, ok)
}

func TestNodeCalls(t *testing.T) {
	callee := Point{Row: 1, Column: 4}
	tree := &Node{
		Type: "method_declaration",
		Children: []*Node{
			{Type: "identifier"},
			{Type: "block", Children: []*Node{
				{Type: "invocation_expression", Call: true, Callee: &callee, CalleeText: "A", Children: []*Node{
					{Type: "invocation_expression", Call: true, CalleeText: "B"},
				}},
			}},
		},
	}

	calls := tree.Calls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "A", calls[0].CalleeText)
	assert.Equal(t, "B", calls[1].CalleeText)
	assert.True(t, tree.HasBody())
	assert.Nil(t, (*Node)(nil).Calls())
}

func TestPointBefore(t *testing.T) {
	assert.True(t, Point{0, 5}.Before(Point{1, 0}))
	assert.True(t, Point{1, 2}.Before(Point{1, 3}))
	assert.False(t, Point{1, 3}.Before(Point{1, 3}))
}
