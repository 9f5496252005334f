package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestNormalizeForwardsTable(t *testing.T) {
	cases := []struct {
		name string
		in   []ForwardRaw
		want []int
	}{
		{"single int", []ForwardRaw{{Int: intPtr(3000)}}, []int{3000}},
		{"zero rejected", []ForwardRaw{{Int: intPtr(0)}}, nil},
		{"negative rejected", []ForwardRaw{{Int: intPtr(-1)}}, nil},
		{"range dash", []ForwardRaw{{Str: "5000-5003"}}, []int{5000, 5001, 5002, 5003}},
		{"range colon", []ForwardRaw{{Str: "9000:9001"}}, []int{9000, 9001}},
		{"single-element range", []ForwardRaw{{Str: "7000-7000"}}, []int{7000}},
		{"inverted range dropped", []ForwardRaw{{Str: "100-50"}}, nil},
		{"malformed range dropped", []ForwardRaw{{Str: "abc-def"}}, nil},
		{"object internal number", []ForwardRaw{{Object: map[string]interface{}{"internal": 8080}}}, []int{8080}},
		{"object internal string", []ForwardRaw{{Object: map[string]interface{}{"internal": "8081"}}}, []int{8081}},
		{"object missing internal dropped", []ForwardRaw{{Object: map[string]interface{}{"other": 1}}}, nil},
		{
			"full scenario 3",
			[]ForwardRaw{
				{Int: intPtr(3000)}, {Str: "5000-5003"}, {Int: intPtr(8080)}, {Str: "9000-9001"}, {Str: "7000-7000"},
			},
			[]int{3000, 5000, 5001, 5002, 5003, 8080, 9000, 9001, 7000},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := normalizeForwards(c.in)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestNormalizeMountsTable(t *testing.T) {
	dir := "/project"
	home := "/home/user"

	m := normalizeMounts([]string{"rel/path:/container/path"}, dir, home, false)
	require.Len(t, m, 1)
	assert.Equal(t, filepath.Join(dir, "rel/path"), m[0].Source)
	assert.Equal(t, "/container/path", m[0].Target)
	assert.Equal(t, "rw", m[0].Mode)

	m = normalizeMounts([]string{"/abs/path:/container/path:ro"}, dir, home, false)
	require.Len(t, m, 1)
	assert.Equal(t, "ro", m[0].Mode)

	m = normalizeMounts([]string{"/abs/path:/container/path:bogus"}, dir, home, false)
	require.Len(t, m, 1)
	assert.Equal(t, "rw", m[0].Mode)

	m = normalizeMounts([]string{"/a"}, dir, home, false)
	assert.Empty(t, m, "fewer than two colon-separated parts must be dropped")

	m = normalizeMounts([]string{"C:/path:/container/path:ro"}, dir, home, false)
	require.Len(t, m, 1)
	assert.Equal(t, "C:/path", m[0].Source)
	assert.Equal(t, "/container/path", m[0].Target)
	assert.Equal(t, "ro", m[0].Mode)

	m = normalizeMounts([]string{"~/data:/container/data"}, dir, home, false)
	require.Len(t, m, 1)
	assert.Equal(t, filepath.Join(home, "data"), m[0].Source)
}

func TestNormalizeMountsCredentials(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".codex"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".codex", "auth.json"), []byte("{}"), 0o644))

	m := normalizeMounts(nil, "/project", home, true)
	require.Len(t, m, 1)
	assert.Equal(t, filepath.Join(home, ".codex", "auth.json"), m[0].Source)
	assert.Equal(t, "rw", m[0].Mode, "credential mounts preserve rw per design note")
}

func TestMergeBootstrapScripts(t *testing.T) {
	project := []BootstrapScript{{Path: "01.sh"}, {Path: "02.sh", Source: "project"}}
	user := []BootstrapScript{{Path: "extra.sh"}}
	merged := mergeBootstrapScripts(project, user)
	require.Len(t, merged, 3)
	assert.Equal(t, "project", merged[0].Source)
	assert.Equal(t, "project", merged[1].Source)
	assert.Equal(t, "user", merged[2].Source)
}

func TestResolveRejectsNilConfig(t *testing.T) {
	_, err := Resolve(nil, nil, "/project", "/home/user", ResolveOptions{})
	require.Error(t, err)
}

func TestResolveDerivesStatePaths(t *testing.T) {
	raw := &ProjectConfig{}
	resolved, err := Resolve(raw, nil, "/home/user/proj", "/home/user", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "proj", resolved.Name)
	assert.Equal(t, "workspace-proj", resolved.ContainerName)
	assert.Equal(t, "/home/user/.workspaces/state/proj/runtime.json", resolved.State.RuntimeConfigPath)
	assert.Equal(t, "/home/user/.workspaces/state/proj/ssh/id_ed25519", resolved.State.KeyPath)
}
