package hierarchy

import (
	"context"
	"testing"

	"symnav/internal/analyzer"
	scipbackend "symnav/internal/backends/scip"
	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/slogutil"
	"symnav/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	r   *Resolver
	idx *index.Index
	fx  *testutil.FixtureContext
}

func loadFixture(t *testing.T) *fixture {
	t.Helper()
	fx := testutil.LoadSample(t)
	a := scipbackend.New(scipbackend.Options{ReadSources: true}, slogutil.NewDiscardLogger())
	ws, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	idx, err := index.Build(context.Background(), a, ws, index.Options{}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	return &fixture{r: New(a, ws, idx, Options{}, slogutil.NewDiscardLogger()), idx: idx, fx: fx}
}

func (f *fixture) decl(t *testing.T, desc string) *index.Declaration {
	t.Helper()
	d := f.idx.ByID(analyzer.SymbolID(f.fx.Symbol(desc)))
	require.NotNil(t, d, desc)
	return d
}

func names(decls []*index.Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		out = append(out, d.Name)
	}
	return out
}

func TestAncestors(t *testing.T) {
	f := loadFixture(t)

	chain, err := f.r.Ancestors(f.decl(t, testutil.AdminUserService))
	require.NoError(t, err)
	assert.Equal(t, []string{"UserService"}, names(chain))

	chain, err = f.r.Ancestors(f.decl(t, testutil.User))
	require.NoError(t, err)
	assert.Empty(t, chain, "System.Object is outside the workspace")

	chain, err = f.r.Ancestors(f.decl(t, testutil.IUserService))
	require.NoError(t, err)
	assert.Empty(t, chain, "interfaces have no base classes")

	chain, err = f.r.Ancestors(f.decl(t, testutil.UserActivate))
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestDescendants(t *testing.T) {
	f := loadFixture(t)
	svc := f.decl(t, testutil.UserService)

	assert.Equal(t, []string{"AdminUserService"}, names(f.r.Descendants(svc)))
	assert.Equal(t, []string{"AdminUserService"}, names(f.r.AllDescendants(svc)))
	assert.Empty(t, f.r.Descendants(f.decl(t, testutil.AdminUserService)))
	assert.Empty(t, f.r.Descendants(nil))

	for _, d := range f.idx.All() {
		assert.NotContains(t, f.r.Descendants(d), d)
	}
}

func TestImplementations(t *testing.T) {
	f := loadFixture(t)

	impls, err := f.r.Implementations(context.Background(), f.decl(t, testutil.IUserService))
	require.NoError(t, err)
	assert.Equal(t, []string{"AdminUserService", "UserService"}, names(impls))

	impls, err = f.r.Implementations(context.Background(), f.decl(t, testutil.UserController))
	require.NoError(t, err)
	assert.Empty(t, impls)
}

func TestView(t *testing.T) {
	f := loadFixture(t)

	v, err := f.r.View(context.Background(), f.decl(t, testutil.UserService))
	require.NoError(t, err)
	assert.Equal(t, "UserService", v.Subject.Name)
	assert.Empty(t, v.Ancestors)
	assert.Equal(t, []string{"AdminUserService"}, names(v.Descendants))
	assert.Equal(t, []string{"IUserService"}, names(v.Interfaces))
	assert.Equal(t, []string{"AdminUserService"}, names(v.Implementations))
	assert.Empty(t, v.Warnings)

	_, err = f.r.View(context.Background(), nil)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

// syntheticHierarchy builds an index from raw symbols in a single file.
func syntheticHierarchy(t *testing.T, opts Options, syms ...analyzer.RawSymbol) (*Resolver, *index.Index) {
	t.Helper()
	for i := range syms {
		syms[i].Location = &analyzer.Location{Path: "a.cs", Line: i + 1, Column: 1}
		if syms[i].Kind == 0 {
			syms[i].Kind = analyzer.KindClass
		}
	}
	fa := &fakeAnalyzer{symbols: syms}
	ws := &fakeWorkspace{}
	idx, err := index.Build(context.Background(), fa, ws, index.Options{}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	return New(fa, ws, idx, opts, slogutil.NewDiscardLogger()), idx
}

func TestAncestors_Cycle(t *testing.T) {
	r, idx := syntheticHierarchy(t, Options{},
		analyzer.RawSymbol{ID: "A", Name: "A", BaseType: "B"},
		analyzer.RawSymbol{ID: "B", Name: "B", BaseType: "C"},
		analyzer.RawSymbol{ID: "C", Name: "C", BaseType: "A"},
	)

	chain, err := r.Ancestors(idx.ByID("A"))
	require.Error(t, err)
	assert.Equal(t, errors.CyclicHierarchy, errors.CodeOf(err))
	assert.Equal(t, []string{"B", "C"}, names(chain))

	v, err := r.View(context.Background(), idx.ByID("A"))
	require.NoError(t, err)
	assert.Len(t, v.Warnings, 1)
	assert.Equal(t, []string{"B", "C"}, names(v.Ancestors))

	all := r.AllDescendants(idx.ByID("A"))
	assert.Equal(t, []string{"C", "B"}, names(all))
}

func TestAncestors_DepthCap(t *testing.T) {
	r, idx := syntheticHierarchy(t, Options{MaxDepth: 2},
		analyzer.RawSymbol{ID: "A", Name: "A"},
		analyzer.RawSymbol{ID: "B", Name: "B", BaseType: "A"},
		analyzer.RawSymbol{ID: "C", Name: "C", BaseType: "B"},
		analyzer.RawSymbol{ID: "D", Name: "D", BaseType: "C"},
	)

	chain, err := r.Ancestors(idx.ByID("D"))
	assert.Equal(t, errors.CyclicHierarchy, errors.CodeOf(err))
	assert.Equal(t, []string{"C", "B"}, names(chain))

	chain, err = r.Ancestors(idx.ByID("C"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, names(chain))

	assert.Equal(t, []string{"B", "C", "D"}, names(r.AllDescendants(idx.ByID("A"))))
}

func TestAncestors_StopsBeforeRootType(t *testing.T) {
	r, idx := syntheticHierarchy(t, Options{},
		analyzer.RawSymbol{ID: "Obj", Name: "Object"},
		analyzer.RawSymbol{ID: "Base", Name: "Base", BaseType: "Obj"},
		analyzer.RawSymbol{ID: "Leaf", Name: "Leaf", BaseType: "Base"},
	)
	chain, err := r.Ancestors(idx.ByID("Leaf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Base"}, names(chain))

	r, idx = syntheticHierarchy(t, Options{},
		analyzer.RawSymbol{ID: "Obj", Name: "Object", Namespace: "App.Models"},
		analyzer.RawSymbol{ID: "Leaf", Name: "Leaf", Namespace: "App.Models", BaseType: "Obj"},
	)
	chain, err = r.Ancestors(idx.ByID("Leaf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Object"}, names(chain), "a workspace type named Object is not a root")

	custom, idx2 := syntheticHierarchy(t, Options{RootTypes: []string{"Base"}},
		analyzer.RawSymbol{ID: "Base", Name: "Base"},
		analyzer.RawSymbol{ID: "Leaf", Name: "Leaf", BaseType: "Base"},
	)
	chain, err = custom.Ancestors(idx2.ByID("Leaf"))
	require.NoError(t, err)
	assert.Empty(t, chain)
}

type fakeWorkspace struct{}

func (fakeWorkspace) ID() string                 { return "fake" }
func (fakeWorkspace) Root() string               { return "/fake" }
func (fakeWorkspace) Files() []string            { return []string{"a.cs"} }
func (fakeWorkspace) Text(string) (string, bool) { return "", false }

type fakeAnalyzer struct {
	analyzer.Analyzer
	symbols []analyzer.RawSymbol
}

func (f *fakeAnalyzer) CompilationUnits(ctx context.Context, ws analyzer.Workspace) ([]analyzer.Unit, error) {
	return []analyzer.Unit{{Name: "fake", Files: ws.Files()}}, nil
}

func (f *fakeAnalyzer) DeclaredSymbols(ctx context.Context, ws analyzer.Workspace, unit analyzer.Unit) ([]analyzer.RawSymbol, error) {
	return f.symbols, nil
}
