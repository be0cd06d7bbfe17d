package rename

import (
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// diffContext is the number of unchanged lines around each change.
const diffContext = 3

// UnifiedDiff renders the plan as a git-style multi-file unified diff. Lines
// are shown untrimmed, and a suggested file rename appears as the new name.
func UnifiedDiff(p *Plan) ([]byte, error) {
	moves := p.Moves()
	var fds []*godiff.FileDiff
	for _, f := range p.Paths() {
		to := f
		if m, ok := moves[f]; ok {
			to = m
		}
		fd := &godiff.FileDiff{
			OrigName: "a/" + f,
			NewName:  "b/" + to,
			Extended: []string{"diff --git a/" + f + " b/" + to},
		}
		if to != f {
			fd.Extended = append(fd.Extended, "rename from "+f, "rename to "+to)
		}
		before, _ := p.base.Text(f)
		after, _ := p.renamed.Text(f)
		fd.Hunks = hunks(splitForDiff(before), splitForDiff(after), p.Files[f].Edits)
		fds = append(fds, fd)
	}
	return godiff.PrintMultiFileDiff(fds)
}

func splitForDiff(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// hunks groups edits whose context windows overlap.
func hunks(before, after []string, edits []Edit) []*godiff.Hunk {
	if len(edits) == 0 || len(before) != len(after) {
		return nil
	}
	changed := make(map[int]bool, len(edits))
	for _, e := range edits {
		changed[e.Line-1] = true
	}

	var out []*godiff.Hunk
	for i := 0; i < len(edits); {
		start := max(edits[i].Line-1-diffContext, 0)
		end := min(edits[i].Line+diffContext, len(before))
		j := i + 1
		for j < len(edits) && edits[j].Line-1-diffContext <= end {
			end = min(edits[j].Line+diffContext, len(before))
			j++
		}

		var body strings.Builder
		for l := start; l < end; l++ {
			if changed[l] {
				body.WriteString("-" + before[l] + "\n")
				body.WriteString("+" + after[l] + "\n")
				continue
			}
			body.WriteString(" " + before[l] + "\n")
		}
		n := int32(end - start)
		out = append(out, &godiff.Hunk{
			OrigStartLine: int32(start + 1),
			OrigLines:     n,
			NewStartLine:  int32(start + 1),
			NewLines:      n,
			Body:          []byte(body.String()),
		})
		i = j
	}
	return out
}
