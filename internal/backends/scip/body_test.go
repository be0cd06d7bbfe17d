//go:build cgo

package scip

import (
	"context"
	"testing"

	"symnav/internal/analyzer"
	"symnav/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callees(t *testing.T, a *Analyzer, ws analyzer.Workspace, method string) []analyzer.SymbolID {
	t.Helper()
	ctx := context.Background()
	bodies, err := a.BodySyntax(ctx, ws, analyzer.SymbolID(method))
	require.NoError(t, err)

	var out []analyzer.SymbolID
	for _, body := range bodies {
		analyzer.Walk(body, func(n analyzer.SyntaxNode) {
			if !n.IsCall() {
				return
			}
			sym, err := a.ResolveExpression(ctx, ws, n)
			require.NoError(t, err)
			if sym != nil {
				out = append(out, sym.ID)
			}
		})
	}
	return out
}

func TestBodySyntax_Callees(t *testing.T) {
	a, snap, fx := loadSample(t)

	assert.Equal(t,
		[]analyzer.SymbolID{analyzer.SymbolID(fx.Symbol(testutil.UserGetByID))},
		callees(t, a, snap, fx.Symbol(testutil.ControllerGet)))

	assert.Equal(t,
		[]analyzer.SymbolID{
			analyzer.SymbolID(fx.Symbol(testutil.UserCtor)),
			analyzer.SymbolID(fx.Symbol(testutil.UserActivate)),
		},
		callees(t, a, snap, fx.Symbol(testutil.UserGetByID)))
}

func TestBodySyntax_Bodiless(t *testing.T) {
	a, snap, fx := loadSample(t)

	bodies, err := a.BodySyntax(context.Background(), snap, analyzer.SymbolID(fx.Symbol(testutil.IUserGetByID)))
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.Equal(t, "method_declaration", bodies[0].Type())
	assert.Empty(t, callees(t, a, snap, fx.Symbol(testutil.IUserGetByID)))
}

func TestBodySyntax_Location(t *testing.T) {
	a, snap, fx := loadSample(t)

	bodies, err := a.BodySyntax(context.Background(), snap, analyzer.SymbolID(fx.Symbol(testutil.ControllerGet)))
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	loc := bodies[0].Location()
	assert.Equal(t, "Controllers/UserController.cs", loc.Path)
	assert.Equal(t, 15, loc.Line)
	assert.Equal(t, 18, loc.EndLine)
}
