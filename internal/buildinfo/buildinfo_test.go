package buildinfo

import "testing"

func TestCurrentUsesLinkerOverrides(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version = "v1.2.3"
	Commit = "abc1234"

	info := Current()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", info.Version)
	}
	if info.Commit != "abc1234" {
		t.Errorf("Commit = %q, want abc1234", info.Commit)
	}
}

func TestCurrentNeverEmpty(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version = ""
	Commit = ""

	info := Current()
	if info.Version == "" {
		t.Error("Version empty")
	}
	if info.Commit == "" {
		t.Error("Commit empty")
	}
}
