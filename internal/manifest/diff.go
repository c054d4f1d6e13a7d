package manifest

// ConflictEntry describes a path modified on both sides relative to base.
type ConflictEntry struct {
	Path     string     `json:"path"`
	Local    *FileEntry `json:"local,omitempty"`
	Remote   *FileEntry `json:"remote,omitempty"`
	BaseHash string     `json:"baseHash,omitempty"`
}

// DiffResult is the plan produced by diffing local/remote against base. Every
// path appears in at most one bucket (P1).
type DiffResult struct {
	ToUpload       []FileEntry     `json:"toUpload"`
	ToDownload     []FileEntry     `json:"toDownload"`
	ToDeleteRemote []string        `json:"toDeleteRemote"`
	ToDeleteLocal  []string        `json:"toDeleteLocal"`
	Conflicts      []ConflictEntry `json:"conflicts"`
}

// HasChanges reports whether the plan requires any action at all.
func (d *DiffResult) HasChanges() bool {
	return len(d.ToUpload) > 0 || len(d.ToDownload) > 0 ||
		len(d.ToDeleteRemote) > 0 || len(d.ToDeleteLocal) > 0 || len(d.Conflicts) > 0
}

// Diff computes the three-manifest diff between local, remote, and the last
// agreed-upon base. base may be nil (forceFullSync or first sync ever), in
// which case every path is treated as having no base entry.
func Diff(local, remote, base *SyncManifest) *DiffResult {
	result := &DiffResult{}

	localFiles := filesOf(local)
	remoteFiles := filesOf(remote)
	baseFiles := filesOf(base)

	union := make(map[string]struct{}, len(localFiles)+len(remoteFiles)+len(baseFiles))
	for p := range localFiles {
		union[p] = struct{}{}
	}
	for p := range remoteFiles {
		union[p] = struct{}{}
	}
	for p := range baseFiles {
		union[p] = struct{}{}
	}

	for path := range union {
		l, lok := localFiles[path]
		r, rok := remoteFiles[path]
		b, bok := baseFiles[path]

		switch {
		case lok && rok:
			if l.Hash == r.Hash {
				// no-op: hashes equal short-circuits before the base check (P3).
				continue
			}
			localChanged := bok && l.Hash != b.Hash
			remoteChanged := bok && r.Hash != b.Hash
			switch {
			case !bok:
				// no base available, hashes differ: conflict.
				result.Conflicts = append(result.Conflicts, conflictFor(path, &l, &r, FileEntry{}, false))
			case localChanged && !remoteChanged:
				result.ToUpload = append(result.ToUpload, l)
			case !localChanged && remoteChanged:
				result.ToDownload = append(result.ToDownload, r)
			default:
				// both changed, or (conservatively) neither changed but hashes differ.
				result.Conflicts = append(result.Conflicts, conflictFor(path, &l, &r, b, true))
			}

		case lok && !rok:
			if !bok {
				result.ToUpload = append(result.ToUpload, l)
				continue
			}
			if l.Hash != b.Hash {
				// modify/delete conflict: local changed, remote deleted.
				result.Conflicts = append(result.Conflicts, conflictFor(path, &l, nil, b, true))
			} else {
				result.ToDeleteLocal = append(result.ToDeleteLocal, path)
			}

		case !lok && rok:
			if !bok {
				result.ToDownload = append(result.ToDownload, r)
				continue
			}
			if r.Hash != b.Hash {
				// delete/modify conflict: local deleted, remote changed.
				result.Conflicts = append(result.Conflicts, conflictFor(path, nil, &r, b, true))
			} else {
				result.ToDeleteRemote = append(result.ToDeleteRemote, path)
			}

		default:
			// neither local nor remote: already deleted on both sides, no-op.
		}
	}

	return result
}

func conflictFor(path string, local, remote *FileEntry, base FileEntry, haveBase bool) ConflictEntry {
	ce := ConflictEntry{Path: path}
	if local != nil {
		ce.Local = local
	} else if haveBase {
		// synthesize a local entry from base so callers always have something
		// to show for the "delete vs modify" case (§8 scenario 5).
		synth := base
		ce.Local = &synth
	}
	ce.Remote = remote
	if haveBase {
		ce.BaseHash = base.Hash
	}
	return ce
}

func filesOf(m *SyncManifest) map[string]FileEntry {
	if m == nil {
		return nil
	}
	return m.Files
}

// ApplyDiffToManifest builds the next manifest from the remote manifest
// overlaid with the outcome of a completed cycle. It never mutates its
// inputs (P4).
func ApplyDiffToManifest(remote *SyncManifest, uploaded, downloaded, resolved []FileEntry, deletedRemote, deletedLocal []string) *SyncManifest {
	next := NewManifest()
	if remote != nil {
		for k, v := range remote.Files {
			next.Files[k] = v
		}
		next.LastUpdated = remote.LastUpdated
		next.LastUpdatedBy = remote.LastUpdatedBy
	}

	for _, e := range uploaded {
		next.Files[e.Path] = e
	}
	for _, e := range downloaded {
		next.Files[e.Path] = e
	}
	for _, e := range resolved {
		next.Files[e.Path] = e
	}
	for _, p := range deletedRemote {
		delete(next.Files, p)
	}
	for _, p := range deletedLocal {
		delete(next.Files, p)
	}

	return next
}
