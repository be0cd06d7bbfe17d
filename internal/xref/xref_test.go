package xref

import (
	"context"
	"encoding/json"
	"strings"
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
	analyzer analyzer.Analyzer
	ws       analyzer.Workspace
	idx      *index.Index
	fx       *testutil.FixtureContext
}

func loadFixture(t *testing.T) *fixture {
	t.Helper()
	fx := testutil.LoadSample(t)
	a := scipbackend.New(scipbackend.Options{ReadSources: true}, slogutil.NewDiscardLogger())
	ws, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	idx, err := index.Build(context.Background(), a, ws, index.Options{}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	return &fixture{analyzer: a, ws: ws, idx: idx, fx: fx}
}

func (f *fixture) resolver(opts Options) *Resolver {
	return New(f.analyzer, f.ws, f.idx, opts, slogutil.NewDiscardLogger())
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
		out = append(out, d.QualifiedName)
	}
	return out
}

func TestFindReferences(t *testing.T) {
	f := loadFixture(t)
	activate := f.decl(t, testutil.UserActivate)

	sites, err := f.resolver(Options{}).FindReferences(context.Background(), activate)
	require.NoError(t, err)

	require.Len(t, sites, 3)
	assert.Equal(t, ReferenceSite{Declaration: activate, Path: "Services/UserService.cs", Line: 10, Column: 18, SurroundingText: "user.Activate();"}, sites[0])
	assert.Equal(t, ReferenceSite{Declaration: activate, Path: "Services/UserService.cs", Line: 16, Column: 19, SurroundingText: "first.Activate();"}, sites[1])
	assert.Equal(t, ReferenceSite{Declaration: activate, Path: "Services/UserService.cs", Line: 17, Column: 20, SurroundingText: "second.Activate();"}, sites[2])
}

func TestFindReferences_ImplicitTagged(t *testing.T) {
	fx := testutil.LoadImplicitCalls(t)
	a := scipbackend.New(scipbackend.Options{ReadSources: true}, slogutil.NewDiscardLogger())
	ws, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	idx, err := index.Build(context.Background(), a, ws, index.Options{}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	f := &fixture{analyzer: a, ws: ws, idx: idx, fx: fx}
	ctor := f.decl(t, testutil.BaseCtor)

	sites, err := f.resolver(Options{}).FindReferences(context.Background(), ctor)
	require.NoError(t, err)

	require.Len(t, sites, 2, "implicit usages count toward the total")
	assert.Equal(t, ReferenceSite{Declaration: ctor, Path: "Models/Shapes.cs", Line: 12, Column: 16, SurroundingText: "public Derived()", IsImplicit: true}, sites[0])
	assert.Equal(t, ReferenceSite{Declaration: ctor, Path: "Models/Shapes.cs", Line: 18, Column: 24, SurroundingText: "return new Base();"}, sites[1])
}

func TestFindReferences_TypeAcrossFiles(t *testing.T) {
	f := loadFixture(t)

	sites, err := f.resolver(Options{}).FindReferences(context.Background(), f.decl(t, testutil.User))
	require.NoError(t, err)
	require.NotEmpty(t, sites)

	paths := make(map[string]bool)
	for i, s := range sites {
		paths[s.Path] = true
		if i > 0 {
			prev := sites[i-1]
			assert.True(t, prev.Path < s.Path || (prev.Path == s.Path && (prev.Line < s.Line || (prev.Line == s.Line && prev.Column <= s.Column))))
		}
	}
	assert.True(t, paths["Services/UserService.cs"])
	assert.True(t, paths["Controllers/UserController.cs"])
}

func TestFindReferences_DerivedNamespace(t *testing.T) {
	f := loadFixture(t)
	ns := f.idx.ByID("namespace:App.Models")
	require.NotNil(t, ns)

	sites, err := f.resolver(Options{}).FindReferences(context.Background(), ns)
	require.NoError(t, err)
	assert.Empty(t, sites)

	sites, err = f.resolver(Options{}).FindReferences(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestFindCallers(t *testing.T) {
	f := loadFixture(t)
	r := f.resolver(Options{})

	callers, err := r.FindCallers(context.Background(), f.decl(t, testutil.UserActivate))
	require.NoError(t, err)
	assert.Equal(t, []string{"App.Services.UserService.GetById", "App.Services.UserService.Enable"}, names(callers))

	callers, err = r.FindCallers(context.Background(), f.decl(t, testutil.UserGetByID))
	require.NoError(t, err)
	assert.Equal(t, []string{"App.Controllers.UserController.GetUser"}, names(callers))

	callers, err = r.FindCallers(context.Background(), f.decl(t, testutil.ControllerGet))
	require.NoError(t, err)
	assert.Empty(t, callers)
}

func TestCallGraph_Callers(t *testing.T) {
	f := loadFixture(t)
	activate := f.decl(t, testutil.UserActivate)

	g, err := f.resolver(Options{}).CallGraph(context.Background(), activate, DirectionCallers, 2)
	require.NoError(t, err)

	assert.Equal(t, activate, g.Root)
	assert.Equal(t, 2, g.Depth)
	assert.False(t, g.Truncated)
	assert.Equal(t, []string{
		"App.Models.User.Activate",
		"App.Services.UserService.GetById",
		"App.Services.UserService.Enable",
		"App.Controllers.UserController.GetUser",
	}, names(g.Nodes))

	var edges []string
	for _, e := range g.Edges {
		edges = append(edges, e.From.Name+"->"+e.To.Name)
	}
	assert.Equal(t, []string{"GetById->Activate", "Enable->Activate", "GetUser->GetById"}, edges)
}

func TestCallGraph_DepthAndNodeCaps(t *testing.T) {
	f := loadFixture(t)
	activate := f.decl(t, testutil.UserActivate)

	g, err := f.resolver(Options{}).CallGraph(context.Background(), activate, DirectionCallers, 1)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)

	g, err = f.resolver(Options{}).CallGraph(context.Background(), activate, DirectionCallers, 99)
	require.NoError(t, err)
	assert.Equal(t, MaxCallGraphDepth, g.Depth)

	g, err = f.resolver(Options{MaxCallGraphNodes: 2}).CallGraph(context.Background(), activate, DirectionCallers, 4)
	require.NoError(t, err)
	assert.True(t, g.Truncated)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}

func TestCallEdge_JSON(t *testing.T) {
	f := loadFixture(t)
	edge := CallEdge{From: f.decl(t, testutil.ControllerGet), To: f.decl(t, testutil.UserGetByID)}

	data, err := json.Marshal(edge)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"`+f.fx.Symbol(testutil.ControllerGet)+`","to":"`+f.fx.Symbol(testutil.UserGetByID)+`"}`, string(data))
}

func TestFindCallees_BodyFailure(t *testing.T) {
	f := loadFixture(t)
	broken := &failingBodies{Analyzer: f.analyzer, err: errors.Newf(errors.AnalyzerUnavailable, "tree-sitter unavailable")}
	r := New(broken, f.ws, f.idx, Options{}, slogutil.NewDiscardLogger())

	_, err := r.FindCallees(context.Background(), f.decl(t, testutil.ControllerGet))
	require.Error(t, err)
	assert.Equal(t, errors.AnalyzerUnavailable, errors.CodeOf(err))

	_, err = r.CallGraph(context.Background(), f.decl(t, testutil.ControllerGet), DirectionCallees, 2)
	require.Error(t, err)
}

func TestFindCallees_NotAMethod(t *testing.T) {
	f := loadFixture(t)
	callees, err := f.resolver(Options{}).FindCallees(context.Background(), f.decl(t, testutil.User))
	require.NoError(t, err)
	assert.Empty(t, callees)
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"callers": DirectionCallers,
		"CALLEES": DirectionCallees,
		"both":    DirectionBoth,
		"":        DirectionBoth,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDirection("sideways")
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
	long := strings.Repeat("é", 150)
	got := Truncate(long, 100)
	assert.Equal(t, strings.Repeat("é", 100)+"...", got)
	assert.Equal(t, strings.Repeat("x", 100), Truncate(strings.Repeat("x", 100), 100))
}

// failingBodies fails every BodySyntax call.
type failingBodies struct {
	analyzer.Analyzer
	err error
}

func (f *failingBodies) BodySyntax(ctx context.Context, ws analyzer.Workspace, method analyzer.SymbolID) ([]analyzer.SyntaxNode, error) {
	return nil, f.err
}
