package version

import "testing"

func TestInfo(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	tests := []struct {
		commit string
		want   string
	}{
		{"", "0.9.1"},
		{"unknown", "0.9.1"},
		{"1a2b3c4", "0.9.1"},
		{"1a2b3c4d5e6f", "0.9.1 (1a2b3c4)"},
	}

	Version = "0.9.1"
	for _, tt := range tests {
		t.Run(tt.want+" "+tt.commit, func(t *testing.T) {
			Commit = tt.commit
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}
