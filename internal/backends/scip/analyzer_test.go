package scip

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/slogutil"
	"symnav/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return New(Options{ReadSources: true}, slogutil.NewDiscardLogger())
}

func loadSample(t *testing.T) (*Analyzer, *Snapshot, *testutil.FixtureContext) {
	t.Helper()
	fx := testutil.LoadSample(t)
	a := newTestAnalyzer()
	ws, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	return a, ws.(*Snapshot), fx
}

func symbolsByID(t *testing.T, a *Analyzer, ws analyzer.Workspace) map[analyzer.SymbolID]analyzer.RawSymbol {
	t.Helper()
	ctx := context.Background()
	units, err := a.CompilationUnits(ctx, ws)
	require.NoError(t, err)

	out := make(map[analyzer.SymbolID]analyzer.RawSymbol)
	for _, u := range units {
		syms, err := a.DeclaredSymbols(ctx, ws, u)
		require.NoError(t, err)
		for _, s := range syms {
			out[s.ID] = s
		}
	}
	return out
}

func TestLoadWorkspace(t *testing.T) {
	_, snap, fx := loadSample(t)

	assert.Equal(t, fx.Root, snap.Root())
	assert.Equal(t, []string{
		"Controllers/UserController.cs",
		"Models/User.cs",
		"Services/AdminUserService.cs",
		"Services/IUserService.cs",
		"Services/UserService.cs",
	}, snap.Files())

	text, ok := snap.Text("Models/User.cs")
	require.True(t, ok)
	assert.Equal(t, fx.ReadFile(t, "Models/User.cs"), text)
	assert.NotEmpty(t, snap.ID())
}

func TestLoadWorkspace_FromIndexFile(t *testing.T) {
	fx := testutil.LoadSample(t)
	ws, err := newTestAnalyzer().LoadWorkspace(context.Background(), fx.SCIPPath)
	require.NoError(t, err)
	assert.Equal(t, fx.Root, ws.Root())
}

func TestLoadWorkspace_SameContentSameID(t *testing.T) {
	fx := testutil.LoadSample(t)
	a := newTestAnalyzer()
	first, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	second, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	require.NoError(t, os.WriteFile(filepath.Join(fx.Root, "Models", "User.cs"), []byte("// edited\n"), 0o644))
	third, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), third.ID())
}

func TestLoadWorkspace_Errors(t *testing.T) {
	a := newTestAnalyzer()

	_, err := a.LoadWorkspace(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.Is(err, errors.FileNotFound), "got %v", err)

	_, err = a.LoadWorkspace(context.Background(), t.TempDir())
	assert.True(t, errors.Is(err, errors.IndexMissing), "got %v", err)

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".scip"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scip", "index.scip"), []byte("not a protobuf \xff\xff"), 0o644))
	_, err = a.LoadWorkspace(context.Background(), dir)
	assert.True(t, errors.Is(err, errors.AnalyzerUnavailable), "got %v", err)
}

func TestDeclaredSymbols(t *testing.T) {
	a, snap, fx := loadSample(t)
	syms := symbolsByID(t, a, snap)

	user := syms[analyzer.SymbolID(fx.Symbol(testutil.User))]
	assert.Equal(t, "User", user.Name)
	assert.Equal(t, analyzer.KindClass, user.Kind)
	assert.Equal(t, "App.Models", user.Namespace)
	assert.Equal(t, "public", user.Visibility)
	require.NotNil(t, user.Location)
	assert.Equal(t, analyzer.Location{Path: "Models/User.cs", Line: 3, Column: 18, EndLine: 3, EndColumn: 22}, *user.Location)

	ctor := syms[analyzer.SymbolID(fx.Symbol(testutil.UserCtor))]
	assert.Equal(t, "User", ctor.Name, "constructors take their type's name")
	assert.Equal(t, analyzer.KindConstructor, ctor.Kind)
	assert.Equal(t, analyzer.SymbolID(fx.Symbol(testutil.User)), ctor.ContainerID)

	getByID := syms[analyzer.SymbolID(fx.Symbol(testutil.UserGetByID))]
	assert.Equal(t, analyzer.KindMethod, getByID.Kind)
	assert.True(t, getByID.HasModifier("virtual"))

	iface := syms[analyzer.SymbolID(fx.Symbol(testutil.IUserService))]
	assert.Equal(t, analyzer.KindInterface, iface.Kind)

	svc := syms[analyzer.SymbolID(fx.Symbol(testutil.UserService))]
	assert.Empty(t, svc.BaseType)
	assert.Equal(t, []analyzer.SymbolID{analyzer.SymbolID(fx.Symbol(testutil.IUserService))}, svc.Interfaces)

	admin := syms[analyzer.SymbolID(fx.Symbol(testutil.AdminUserService))]
	assert.Equal(t, analyzer.SymbolID(fx.Symbol(testutil.UserService)), admin.BaseType)

	assert.Equal(t, analyzer.SymbolID(fx.Symbol(testutil.SystemObject)), user.BaseType)
	assert.Equal(t, analyzer.KindField, syms[analyzer.SymbolID(fx.Symbol(testutil.ControllerField))].Kind)
	assert.Equal(t, analyzer.KindProperty, syms[analyzer.SymbolID(fx.Symbol(testutil.UserID))].Kind)

	_, external := syms[analyzer.SymbolID(fx.Symbol(testutil.SystemObject))]
	assert.False(t, external, "external symbols are not declared in the workspace")
	assert.Len(t, syms, 16)
}

func TestFindReferences(t *testing.T) {
	a, snap, fx := loadSample(t)

	refs, err := a.FindReferences(context.Background(), snap, analyzer.SymbolID(fx.Symbol(testutil.UserActivate)))
	require.NoError(t, err)
	require.Len(t, refs, 3)
	for _, r := range refs {
		assert.Equal(t, "Services/UserService.cs", r.Location.Path)
		assert.False(t, r.Implicit)
	}
	assert.Equal(t, []int{10, 16, 17}, []int{refs[0].Location.Line, refs[1].Location.Line, refs[2].Location.Line})

	none, err := a.FindReferences(context.Background(), snap, "scip-dotnet nuget App 1.0.0 App/Nothing#")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindReferences_Generated(t *testing.T) {
	fx := testutil.LoadImplicitCalls(t)
	a := newTestAnalyzer()
	ws, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)

	refs, err := a.FindReferences(context.Background(), ws, analyzer.SymbolID(fx.Symbol(testutil.BaseCtor)))
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, 12, refs[0].Location.Line)
	assert.True(t, refs[0].Implicit, "the base constructor call from Derived() is compiler generated")
	assert.Equal(t, 18, refs[1].Location.Line)
	assert.False(t, refs[1].Implicit)
}

func TestFindCallers(t *testing.T) {
	a, snap, fx := loadSample(t)
	ctx := context.Background()

	callers, err := a.FindCallers(ctx, snap, analyzer.SymbolID(fx.Symbol(testutil.UserGetByID)))
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, analyzer.SymbolID(fx.Symbol(testutil.ControllerGet)), callers[0].ID)

	callers, err = a.FindCallers(ctx, snap, analyzer.SymbolID(fx.Symbol(testutil.UserActivate)))
	require.NoError(t, err)
	var names []string
	for _, c := range callers {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"GetById", "Enable"}, names)
}

func TestFindCallers_InferredBodies(t *testing.T) {
	fx := testutil.LoadSample(t)
	a := newTestAnalyzer()
	ws, err := a.LoadWorkspace(context.Background(), fx.Root)
	require.NoError(t, err)

	// Drop enclosing ranges the way scip-go does.
	for _, doc := range ws.(*Snapshot).index.Documents {
		for _, occ := range doc.Occurrences {
			occ.EnclosingRange = nil
		}
	}
	callers, err := a.FindCallers(context.Background(), ws, analyzer.SymbolID(fx.Symbol(testutil.UserGetByID)))
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "GetUser", callers[0].Name)
}

func TestFindImplementations(t *testing.T) {
	a, snap, fx := loadSample(t)

	impls, err := a.FindImplementations(context.Background(), snap, analyzer.SymbolID(fx.Symbol(testutil.IUserService)))
	require.NoError(t, err)
	var ids []analyzer.SymbolID
	for _, s := range impls {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []analyzer.SymbolID{
		analyzer.SymbolID(fx.Symbol(testutil.AdminUserService)),
		analyzer.SymbolID(fx.Symbol(testutil.UserService)),
	}, ids)

	impls, err = a.FindImplementations(context.Background(), snap, analyzer.SymbolID(fx.Symbol(testutil.UserController)))
	require.NoError(t, err)
	assert.Empty(t, impls)
}

func TestDiagnostics(t *testing.T) {
	a, snap, _ := loadSample(t)
	ctx := context.Background()

	all, err := a.Diagnostics(ctx, snap, analyzer.DiagnosticFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "CA1822", all[0].Code)
	assert.Equal(t, analyzer.SeverityInfo, all[0].Severity)
	assert.Equal(t, "info", all[0].Level)
	assert.Equal(t, "Services/AdminUserService.cs", all[0].Location.Path)

	byFile, err := a.Diagnostics(ctx, snap, analyzer.DiagnosticFilter{File: "adminuserservice.CS"})
	require.NoError(t, err)
	assert.Len(t, byFile, 1)

	otherFile, err := a.Diagnostics(ctx, snap, analyzer.DiagnosticFilter{File: "User.cs"})
	require.NoError(t, err)
	assert.Empty(t, otherFile)

	warnings, err := a.Diagnostics(ctx, snap, analyzer.DiagnosticFilter{MinSeverity: analyzer.SeverityWarning})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestForeignWorkspaceRejected(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.CompilationUnits(context.Background(), foreignWorkspace{})
	assert.True(t, errors.Is(err, errors.InvalidArgument))
}

type foreignWorkspace struct{}

func (foreignWorkspace) ID() string                 { return "x" }
func (foreignWorkspace) Root() string               { return "/" }
func (foreignWorkspace) Files() []string            { return nil }
func (foreignWorkspace) Text(string) (string, bool) { return "", false }
