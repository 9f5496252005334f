package config

import "github.com/subroutinecom/workspace/internal/fsutil"

// RuntimeFile is the bit-exact, lowerCamelCase JSON blob mounted read-only
// into the container at state.runtimeConfigPath.
type RuntimeFile struct {
	Workspace struct {
		Name string `json:"name"`
		Repo struct {
			Remote    string   `json:"remote"`
			Branch    string   `json:"branch"`
			CloneArgs []string `json:"cloneArgs"`
		} `json:"repo"`
	} `json:"workspace"`
	SSH struct {
		Port        int     `json:"port"`
		SelectedKey *string `json:"selectedKey"`
	} `json:"ssh"`
	Forwards  []int `json:"forwards"`
	Bootstrap struct {
		Scripts []BootstrapScript `json:"scripts"`
	} `json:"bootstrap"`
}

// BuildRuntimeFile assembles the RuntimeFile for a resolved workspace given
// its allocated SSH port and selected key basename (empty when none).
func BuildRuntimeFile(resolved *ResolvedWorkspaceConfig, sshPort int, selectedKey string) *RuntimeFile {
	rf := &RuntimeFile{}
	rf.Workspace.Name = resolved.Name
	rf.Workspace.Repo.Remote = resolved.Repo.Remote
	rf.Workspace.Repo.Branch = resolved.Repo.Branch
	rf.Workspace.Repo.CloneArgs = resolved.Repo.CloneArgs
	rf.SSH.Port = sshPort
	if selectedKey != "" {
		rf.SSH.SelectedKey = &selectedKey
	}
	rf.Forwards = append([]int{}, resolved.Forwards...)
	rf.Bootstrap.Scripts = append([]BootstrapScript{}, resolved.Bootstrap...)
	return rf
}

// WriteRuntimeFile writes rf as indented JSON at path via the atomic
// write-then-rename helper.
func WriteRuntimeFile(path string, rf *RuntimeFile) error {
	return fsutil.WriteJSONAtomic(path, rf)
}
