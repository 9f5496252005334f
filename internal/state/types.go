package state

// WorkspaceRecord is a single workspace's entry in the state file.
type WorkspaceRecord struct {
	SSHPort     int    `json:"sshPort"`
	Forwards    []int  `json:"forwards"`
	ConfigDir   string `json:"configDir"`
	SelectedKey string `json:"selectedKey,omitempty"`
}

// SharedImageState tracks the shared image's build freshness.
type SharedImageState struct {
	LastBuildAt string `json:"lastBuildAt,omitempty"`
}

// File is the on-disk schema of state.json.
type File struct {
	Workspaces  map[string]WorkspaceRecord `json:"workspaces"`
	SharedImage SharedImageState           `json:"sharedImage"`
}

func emptyFile() *File {
	return &File{Workspaces: map[string]WorkspaceRecord{}}
}

// normalize drops malformed records rather than propagating corruption:
// a record without a positive sshPort or with an empty configDir is
// removed, and a record with no forwards list gets an empty one.
func (f *File) normalize() {
	if f.Workspaces == nil {
		f.Workspaces = map[string]WorkspaceRecord{}
		return
	}
	for name, rec := range f.Workspaces {
		if rec.SSHPort <= 0 || rec.ConfigDir == "" {
			delete(f.Workspaces, name)
			continue
		}
		if rec.Forwards == nil {
			rec.Forwards = []int{}
			f.Workspaces[name] = rec
		}
	}
}
