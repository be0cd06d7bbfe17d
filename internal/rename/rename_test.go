package rename

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"symnav/internal/analyzer"
	scipbackend "symnav/internal/backends/scip"
	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/slogutil"
	"symnav/internal/storage"
	"symnav/internal/testutil"

	godiff "github.com/sourcegraph/go-diff/diff"
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

func (f *fixture) decl(t *testing.T, desc string) *index.Declaration {
	t.Helper()
	d := f.idx.ByID(analyzer.SymbolID(f.fx.Symbol(desc)))
	require.NotNil(t, d, desc)
	return d
}

func (f *fixture) tx(j *storage.Journal, opts Options) *Transaction {
	return New(f.analyzer, f.ws, j, opts, slogutil.NewDiscardLogger())
}

// snapshotDisk reads every source file of the fixture.
func snapshotDisk(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".cs") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func openJournal(t *testing.T) *storage.Journal {
	t.Helper()
	j, err := storage.OpenJournal(t.TempDir(), slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestPreview_ActivateToStart(t *testing.T) {
	f := loadFixture(t)
	p, err := f.tx(nil, Options{}).Preview(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	assert.Equal(t, StatePreviewed, p.State)
	assert.Equal(t, "Activate", p.OldName)
	assert.Equal(t, "Start", p.NewName)
	assert.Equal(t, 4, p.TotalEditCount)
	assert.Equal(t, []string{"Models/User.cs", "Services/UserService.cs"}, p.Paths())

	assert.Equal(t, []Edit{
		{Line: 14, OldText: "public void Activate()", NewText: "public void Start()"},
	}, p.Files["Models/User.cs"].Edits)
	assert.Equal(t, []Edit{
		{Line: 10, OldText: "user.Activate();", NewText: "user.Start();"},
		{Line: 16, OldText: "first.Activate();", NewText: "first.Start();"},
		{Line: 17, OldText: "second.Activate();", NewText: "second.Start();"},
	}, p.Files["Services/UserService.cs"].Edits)
	assert.Empty(t, p.Files["Models/User.cs"].SuggestedNewFileName)
}

func TestPreview_Idempotent(t *testing.T) {
	f := loadFixture(t)
	tx := f.tx(nil, Options{SuggestFileRename: true})
	subject := f.decl(t, testutil.User)

	first, err := tx.Preview(context.Background(), subject, "Person")
	require.NoError(t, err)
	second, err := tx.Preview(context.Background(), subject, "Person")
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, first.ID, second.ID)

	disk := snapshotDisk(t, f.fx.Root)
	text, _ := f.ws.Text("Models/User.cs")
	assert.Equal(t, text, disk["Models/User.cs"], "preview must not write")
}

func TestCommit_MatchesPlan(t *testing.T) {
	f := loadFixture(t)
	before := snapshotDisk(t, f.fx.Root)
	subject := f.decl(t, testutil.UserActivate)

	preview, err := f.tx(nil, Options{}).Preview(context.Background(), subject, "Start")
	require.NoError(t, err)

	j := openJournal(t)
	tx := f.tx(j, Options{})
	p, err := tx.Plan(context.Background(), subject, "Start")
	require.NoError(t, err)
	res, err := tx.Commit(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, p.State)
	assert.NotEmpty(t, res.JournalID)

	after := snapshotDisk(t, f.fx.Root)
	require.Len(t, after, len(before))
	for path, text := range before {
		change, changed := p.Files[path]
		if !changed {
			assert.Equal(t, text, after[path], "%s must be untouched", path)
			continue
		}
		oldLines := strings.Split(text, "\n")
		newLines := strings.Split(after[path], "\n")
		require.Len(t, newLines, len(oldLines))
		edited := make(map[int]Edit)
		for _, e := range change.Edits {
			edited[e.Line] = e
		}
		for i := range oldLines {
			e, ok := edited[i+1]
			if !ok {
				assert.Equal(t, oldLines[i], newLines[i], "%s:%d", path, i+1)
				continue
			}
			assert.Equal(t, e.OldText, strings.TrimSpace(oldLines[i]))
			assert.Equal(t, e.NewText, strings.TrimSpace(newLines[i]))
		}
	}

	// The preview and the applied plan differ only in state.
	pj, err := json.Marshal(preview)
	require.NoError(t, err)
	cj, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t,
		strings.Replace(string(pj), `"state":"previewed"`, `"state":"committed"`, 1),
		string(cj))

	rec, err := j.Get(res.JournalID)
	require.NoError(t, err)
	assert.Equal(t, storage.CommitCommitted, rec.State)
	assert.Equal(t, p.ID, rec.PlanID)
	require.Len(t, rec.Files, 2)
	for _, fr := range rec.Files {
		assert.Equal(t, storage.FileWritten, fr.Status)
		assert.Equal(t, before[fr.Path], string(fr.PreImage))
		assert.Equal(t, Hash([]byte(after[fr.Path])), fr.PostHash)
	}

	text, ok := res.Workspace.Text("Models/User.cs")
	require.True(t, ok)
	assert.Equal(t, after["Models/User.cs"], text)
}

func TestCommit_DirectWrite(t *testing.T) {
	f := loadFixture(t)
	tx := f.tx(nil, Options{DirectWrite: true})
	p, err := tx.Plan(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)
	_, err = tx.Commit(context.Background(), p)
	require.NoError(t, err)

	want, _ := p.Renamed().Text("Services/UserService.cs")
	assert.Equal(t, want, f.fx.ReadFile(t, "Services/UserService.cs"))
}

func TestRename_RoundTrip(t *testing.T) {
	f := loadFixture(t)
	ctx := context.Background()

	forward, err := f.tx(nil, Options{}).Plan(ctx, f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	renamed := forward.Renamed()
	idx, err := index.Build(ctx, f.analyzer, renamed, index.Options{}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	start := idx.ByID(analyzer.SymbolID(f.fx.Symbol("App/Models/User#Start().")))
	require.NotNil(t, start)

	back, err := New(f.analyzer, renamed, nil, Options{}, slogutil.NewDiscardLogger()).Plan(ctx, start, "Activate")
	require.NoError(t, err)

	assert.Equal(t, positions(forward), positions(back))
	for path, c := range forward.Files {
		for i, e := range c.Edits {
			assert.Equal(t, e.OldText, back.Files[path].Edits[i].NewText)
		}
	}
	for _, path := range f.ws.Files() {
		original, _ := f.ws.Text(path)
		restored, _ := back.Renamed().Text(path)
		assert.Equal(t, original, restored, path)
	}
}

func positions(p *Plan) []string {
	var out []string
	for path, c := range p.Files {
		for _, e := range c.Edits {
			out = append(out, fmt.Sprintf("%s:%d", path, e.Line))
		}
	}
	sort.Strings(out)
	return out
}

func TestCommit_StaleDisk(t *testing.T) {
	f := loadFixture(t)
	tx := f.tx(nil, Options{})
	p, err := tx.Plan(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	path := filepath.Join(f.fx.Root, "Services", "UserService.cs")
	require.NoError(t, os.WriteFile(path, []byte("// edited elsewhere\n"), 0o644))
	before := snapshotDisk(t, f.fx.Root)

	_, err = tx.Commit(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, errors.WorkspaceStale, errors.CodeOf(err))
	assert.Equal(t, before, snapshotDisk(t, f.fx.Root), "a stale commit writes nothing")
}

func TestCommit_TerminalPlan(t *testing.T) {
	f := loadFixture(t)
	tx := f.tx(nil, Options{})
	p, err := tx.Preview(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	_, err = tx.Commit(context.Background(), p)
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestCommit_PartialFailure(t *testing.T) {
	f := loadFixture(t)
	j := openJournal(t)
	tx := f.tx(j, Options{})
	p, err := tx.Plan(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	calls := 0
	replaceFile = func(from, to string) error {
		calls++
		if calls == 2 {
			return os.ErrPermission
		}
		return os.Rename(from, to)
	}
	t.Cleanup(func() { replaceFile = os.Rename })

	_, err = tx.Commit(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, errors.PartialCommit, errors.CodeOf(err))

	var ne *errors.NavError
	require.ErrorAs(t, err, &ne)
	details, ok := ne.Details.(errors.PartialCommitDetails)
	require.True(t, ok)
	assert.Equal(t, []string{"Models/User.cs"}, details.Succeeded)
	assert.Equal(t, []string{"Services/UserService.cs"}, details.Failed)
	assert.NotEmpty(t, details.JournalID)

	assert.Contains(t, f.fx.ReadFile(t, "Models/User.cs"), "public void Start()")
	assert.Contains(t, f.fx.ReadFile(t, "Services/UserService.cs"), "user.Activate();")

	entries, err := os.ReadDir(filepath.Join(f.fx.Root, "Services"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".symnav-"), "staged file %s left behind", e.Name())
	}

	rec, err := j.Get(details.JournalID)
	require.NoError(t, err)
	assert.Equal(t, storage.CommitPartial, rec.State)
}

func TestCommit_FirstReplaceFails(t *testing.T) {
	f := loadFixture(t)
	before := snapshotDisk(t, f.fx.Root)
	j := openJournal(t)
	tx := f.tx(j, Options{})
	p, err := tx.Plan(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	replaceFile = func(from, to string) error { return os.ErrPermission }
	t.Cleanup(func() { replaceFile = os.Rename })

	_, err = tx.Commit(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, errors.InternalError, errors.CodeOf(err))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, before, snapshotDisk(t, f.fx.Root))

	recs, err := j.List(10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, storage.CommitFailed, recs[0].State)
}

func TestCommit_TypeWithFileRenameAndRestore(t *testing.T) {
	f := loadFixture(t)
	before := snapshotDisk(t, f.fx.Root)
	j := openJournal(t)
	tx := f.tx(j, Options{SuggestFileRename: true})

	p, err := tx.Plan(context.Background(), f.decl(t, testutil.User), "Person")
	require.NoError(t, err)
	assert.Equal(t, "Person.cs", p.Files["Models/User.cs"].SuggestedNewFileName)
	assert.Equal(t, map[string]string{"Models/User.cs": "Models/Person.cs"}, p.Moves())
	assert.Len(t, p.Files, 5)

	res, err := tx.Commit(context.Background(), p)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(f.fx.Root, "Models", "User.cs"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, f.fx.ReadFile(t, "Models/Person.cs"), "public class Person")
	assert.Contains(t, res.Workspace.Files(), "Models/Person.cs")
	assert.NotContains(t, res.Workspace.Files(), "Models/User.cs")

	rec, err := Restore(context.Background(), j, f.fx.Root, res.JournalID[:8], false, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, storage.CommitRestored, rec.State)
	assert.Equal(t, before, snapshotDisk(t, f.fx.Root))

	_, err = Restore(context.Background(), j, f.fx.Root, res.JournalID, false, slogutil.NewDiscardLogger())
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestRestore_RefusesLaterEdits(t *testing.T) {
	f := loadFixture(t)
	j := openJournal(t)
	tx := f.tx(j, Options{})
	p, err := tx.Plan(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)
	res, err := tx.Commit(context.Background(), p)
	require.NoError(t, err)

	path := filepath.Join(f.fx.Root, "Models", "User.cs")
	require.NoError(t, os.WriteFile(path, []byte("// rewritten\n"), 0o644))

	_, err = Restore(context.Background(), j, f.fx.Root, res.JournalID, false, slogutil.NewDiscardLogger())
	assert.Equal(t, errors.WorkspaceStale, errors.CodeOf(err))

	_, err = Restore(context.Background(), j, f.fx.Root, res.JournalID, true, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	assert.Contains(t, f.fx.ReadFile(t, "Models/User.cs"), "public void Activate()")
}

func TestPlan_InvalidNames(t *testing.T) {
	f := loadFixture(t)
	tx := f.tx(nil, Options{})
	subject := f.decl(t, testutil.UserActivate)

	for _, name := range []string{"", "  ", "Activate", "1Start", "Start Now"} {
		_, err := tx.Plan(context.Background(), subject, name)
		assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err), "%q", name)
	}

	_, err := tx.Plan(context.Background(), nil, "Start")
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))

	ns := f.idx.ByID("namespace:App.Models")
	require.NotNil(t, ns)
	_, err = tx.Plan(context.Background(), ns, "Domain")
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestSuggestFileName(t *testing.T) {
	tests := []struct {
		file, oldName, newName string
		rule                   MatchRule
		want                   string
	}{
		{"Models/User.cs", "User", "Person", MatchExact, "Person.cs"},
		{"Models/user.cs", "User", "Person", MatchExact, "Person.cs"},
		{"Services/UserService.cs", "User", "Person", MatchExact, ""},
		{"Services/UserService.cs", "User", "Person", MatchPrefix, "PersonService.cs"},
		{"Models/User.cs", "User", "Person", MatchPrefix, "Person.cs"},
		{"Models/Account.cs", "User", "Person", MatchPrefix, ""},
		{"Models/Us.cs", "User", "Person", MatchPrefix, ""},
	}
	for _, tt := range tests {
		t.Run(tt.file+"/"+string(tt.rule), func(t *testing.T) {
			assert.Equal(t, tt.want, suggestFileName(tt.file, tt.oldName, tt.newName, tt.rule))
		})
	}
}

func TestParseMatchRule(t *testing.T) {
	r, err := ParseMatchRule("")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, r)

	r, err = ParseMatchRule("Prefix")
	require.NoError(t, err)
	assert.Equal(t, MatchPrefix, r)

	_, err = ParseMatchRule("glob")
	assert.Equal(t, errors.InvalidArgument, errors.CodeOf(err))
}

func TestDiffLines(t *testing.T) {
	edits, err := diffLines("a.cs", "a\n  b x\nc\n", "a\n  b y\nc\n")
	require.NoError(t, err)
	assert.Equal(t, []Edit{{Line: 2, OldText: "b x", NewText: "b y"}}, edits)

	_, err = diffLines("a.cs", "a\nb\n", "a\n")
	assert.Equal(t, errors.InternalError, errors.CodeOf(err))
}

func TestUnifiedDiff(t *testing.T) {
	f := loadFixture(t)
	p, err := f.tx(nil, Options{SuggestFileRename: true}).Preview(context.Background(), f.decl(t, testutil.UserActivate), "Start")
	require.NoError(t, err)

	out, err := UnifiedDiff(p)
	require.NoError(t, err)

	fds, err := godiff.ParseMultiFileDiff(out)
	require.NoError(t, err)
	require.Len(t, fds, 2)

	assert.Equal(t, "a/Models/User.cs", fds[0].OrigName)
	require.Len(t, fds[0].Hunks, 1)
	assert.Contains(t, string(fds[0].Hunks[0].Body), "-        public void Activate()\n+        public void Start()\n")

	assert.Equal(t, "b/Services/UserService.cs", fds[1].NewName)
	require.Len(t, fds[1].Hunks, 1, "nearby edits share a hunk")
	h := fds[1].Hunks[0]
	assert.Equal(t, int32(7), h.OrigStartLine)
	assert.Equal(t, int32(14), h.OrigLines)
	assert.Equal(t, 3, strings.Count(string(h.Body), "\n+"))
}

func TestUnifiedDiff_FileRename(t *testing.T) {
	f := loadFixture(t)
	p, err := f.tx(nil, Options{SuggestFileRename: true}).Preview(context.Background(), f.decl(t, testutil.User), "Person")
	require.NoError(t, err)

	out, err := UnifiedDiff(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "rename from Models/User.cs\nrename to Models/Person.cs\n")
	assert.Contains(t, string(out), "+++ b/Models/Person.cs\n")
}
