package brain

// CommitIndex maps commit hashes to the (project, entity, version)
// triplet that produced them. The index is derived state: the version
// ledgers are authoritative and the index is rebuilt, never trusted,
// whenever an inconsistency is suspected.
type CommitIndex map[string]CommitEntry

// Lookup resolves a commit hash to its location.
func (ci CommitIndex) Lookup(hash string) (CommitEntry, bool) {
	entry, ok := ci[hash]
	return entry, ok
}

// Insert registers a commit hash.
func (ci CommitIndex) Insert(hash string, entry CommitEntry) {
	ci[hash] = entry
}

// Remove drops a commit hash, if present.
func (ci CommitIndex) Remove(hash string) {
	delete(ci, hash)
}

// RebuildCommits recomputes the whole commit index by replaying every
// entity's version ledger. Used by compaction and repair when the index
// is suspected stale or the file was edited by hand.
func (d *Document) RebuildCommits() CommitIndex {
	rebuilt := CommitIndex{}
	for slug, project := range d.Projects {
		for path, entity := range project.Entities {
			for n, v := range entity.Versions {
				if v.Commit == "" {
					continue
				}
				rebuilt[v.Commit] = CommitEntry{Project: slug, Entity: path, Version: n}
			}
		}
	}
	return rebuilt
}

// FindCommit resolves a commit hash via the index, falling back to a
// full ledger scan when the index entry is missing or points at a
// version that no longer exists.
func (d *Document) FindCommit(hash string) (CommitEntry, bool) {
	if entry, ok := d.Commits.Lookup(hash); ok {
		if project, pok := d.Projects[entry.Project]; pok {
			if entity, eok := project.Entities[entry.Entity]; eok {
				if v, vok := entity.Versions[entry.Version]; vok && v.Commit == hash {
					return entry, true
				}
			}
		}
	}

	// Stale or missing index entry: scan the ledgers.
	for slug, project := range d.Projects {
		for path, entity := range project.Entities {
			for n, v := range entity.Versions {
				if v.Commit == hash {
					return CommitEntry{Project: slug, Entity: path, Version: n}, true
				}
			}
		}
	}
	return CommitEntry{}, false
}
