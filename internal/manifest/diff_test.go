package manifest

import "testing"

func entry(path, hash string) FileEntry {
	return FileEntry{Path: path, Hash: hash, LastModifiedBy: "dev-a"}
}

func manifestOf(entries ...FileEntry) *SyncManifest {
	m := NewManifest()
	for _, e := range entries {
		m.Files[e.Path] = e
	}
	return m
}

func TestDiff_FreshUpload(t *testing.T) {
	local := manifestOf(entry("a.md", "aa11"))
	remote := manifestOf()

	d := Diff(local, remote, nil)
	if len(d.ToUpload) != 1 || d.ToUpload[0].Path != "a.md" {
		t.Fatalf("expected upload of a.md, got %+v", d)
	}
	if len(d.ToDownload) != 0 || len(d.Conflicts) != 0 {
		t.Fatalf("unexpected extra entries: %+v", d)
	}
}

func TestDiff_NonConflictingEdits(t *testing.T) {
	base := manifestOf(entry("a.md", "h1"), entry("b.md", "h1"))
	local := manifestOf(entry("a.md", "h2"), entry("b.md", "h1"))
	remote := manifestOf(entry("a.md", "h1"), entry("b.md", "h3"))

	d := Diff(local, remote, base)
	if len(d.ToUpload) != 1 || d.ToUpload[0].Path != "a.md" {
		t.Fatalf("expected upload of a.md, got %+v", d.ToUpload)
	}
	if len(d.ToDownload) != 1 || d.ToDownload[0].Path != "b.md" {
		t.Fatalf("expected download of b.md, got %+v", d.ToDownload)
	}
	if len(d.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %+v", d.Conflicts)
	}
}

func TestDiff_DeleteVsModifyConflict(t *testing.T) {
	base := manifestOf(entry("a.md", "h1"))
	local := manifestOf() // deleted locally
	remote := manifestOf(entry("a.md", "h2"))

	d := Diff(local, remote, base)
	if len(d.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", d.Conflicts)
	}
	c := d.Conflicts[0]
	if c.Path != "a.md" || c.Local == nil || c.Local.Hash != "h1" || c.Remote == nil || c.Remote.Hash != "h2" {
		t.Fatalf("unexpected conflict shape: %+v", c)
	}
}

func TestDiff_HashesEqualShortCircuits(t *testing.T) {
	// P3: if hashes are equal, path never appears in upload/download/conflicts,
	// regardless of a present-but-stale base.
	base := manifestOf(entry("a.md", "stale"))
	local := manifestOf(entry("a.md", "same"))
	remote := manifestOf(entry("a.md", "same"))

	d := Diff(local, remote, base)
	if d.HasChanges() {
		t.Fatalf("expected no-op, got %+v", d)
	}
}

func TestDiff_EqualManifestsProduceEmptyDiff(t *testing.T) {
	// P2
	for _, base := range []*SyncManifest{nil, manifestOf(entry("a.md", "h1"))} {
		m := manifestOf(entry("a.md", "h1"), entry("b.md", "h2"))
		d := Diff(m, m, base)
		if d.HasChanges() {
			t.Fatalf("expected empty diff with base=%v, got %+v", base, d)
		}
	}
}

func TestDiff_AtMostOneBucketPerPath(t *testing.T) {
	// P1, exercised across a mixed scenario.
	base := manifestOf(entry("up.md", "h1"), entry("down.md", "h1"), entry("gone-l.md", "h1"), entry("gone-r.md", "h1"), entry("conflict.md", "h1"))
	local := manifestOf(entry("up.md", "h2"), entry("down.md", "h1"), entry("gone-r.md", "h1"), entry("conflict.md", "h2"), entry("new.md", "h1"))
	remote := manifestOf(entry("up.md", "h1"), entry("down.md", "h2"), entry("gone-l.md", "h1"), entry("conflict.md", "h3"))

	d := Diff(local, remote, base)

	seen := map[string]int{}
	for _, e := range d.ToUpload {
		seen[e.Path]++
	}
	for _, e := range d.ToDownload {
		seen[e.Path]++
	}
	for _, p := range d.ToDeleteRemote {
		seen[p]++
	}
	for _, p := range d.ToDeleteLocal {
		seen[p]++
	}
	for _, c := range d.Conflicts {
		seen[c.Path]++
	}
	for path, count := range seen {
		if count != 1 {
			t.Fatalf("path %q appeared in %d buckets", path, count)
		}
	}
}

func TestApplyDiffToManifest_DoesNotMutateInput(t *testing.T) {
	remote := manifestOf(entry("a.md", "h1"))
	before := remote.Clone()

	_ = ApplyDiffToManifest(remote, []FileEntry{entry("b.md", "h2")}, nil, nil, []string{"a.md"}, nil)

	if len(remote.Files) != len(before.Files) {
		t.Fatalf("input manifest was mutated: %+v vs %+v", remote.Files, before.Files)
	}
	for k, v := range before.Files {
		if remote.Files[k] != v {
			t.Fatalf("input manifest entry changed for %q", k)
		}
	}
}

func TestValidatePath(t *testing.T) {
	cases := []struct {
		path    string
		wantErr bool
	}{
		{"notes/2024.md", false},
		{"", true},
		{"/abs.md", true},
		{`\abs.md`, true},
		{"../secrets.md", true},
		{"a/../../b.md", true},
		{ReservedPrefix + "/manifest.json", true},
	}
	for _, tc := range cases {
		err := ValidatePath(tc.path)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidatePath(%q) err=%v, wantErr=%v", tc.path, err, tc.wantErr)
		}
	}
}
