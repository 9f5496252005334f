package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/subroutinecom/workspace/internal/fsutil"
)

// normalizeForwards implements the Forwards normalization rules verbatim
// from the Config Resolver contract:
//   - integer -> single port
//   - string containing "-" or ":" -> inclusive range, silently dropped
//     when malformed or inverted
//   - object {internal: number|string} -> single port
//   - any other shape -> dropped
func normalizeForwards(raw []ForwardRaw) []int {
	var out []int
	for _, f := range raw {
		switch {
		case f.Int != nil:
			if *f.Int > 0 {
				out = append(out, *f.Int)
			}
		case f.Str != "":
			out = append(out, expandRangeOrPort(f.Str)...)
		case f.Object != nil:
			if v, ok := f.Object["internal"]; ok {
				if p, ok := singlePortFromAny(v); ok {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

func singlePortFromAny(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		if t > 0 {
			return t, true
		}
	case float64:
		if int(t) > 0 {
			return int(t), true
		}
	case string:
		if p, err := strconv.Atoi(strings.TrimSpace(t)); err == nil && p > 0 {
			return p, true
		}
	}
	return 0, false
}

func expandRangeOrPort(s string) []int {
	s = strings.TrimSpace(s)
	var sep string
	if strings.Contains(s, "-") {
		sep = "-"
	} else if strings.Contains(s, ":") {
		sep = ":"
	} else {
		if p, err := strconv.Atoi(s); err == nil && p > 0 {
			return []int{p}
		}
		return nil
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return nil
	}
	start, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || start <= 0 || end <= 0 || start > end {
		return nil
	}
	result := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		result = append(result, p)
	}
	return result
}

// WellKnownCredentialMounts are appended (mode rw) when
// mountAgentsCredentials is true and the file exists on the host.
var WellKnownCredentialMounts = []string{
	".codex/auth.json",
	".local/share/opencode/auth.json",
	".claude/.credentials.json",
}

// normalizeMounts implements the Mount normalization rules verbatim:
// split on ":" with arity-3 default "rw"; arity-4 treats parts[0]:parts[1]
// as the source (Windows drive compatibility); a mode that is not ro/rw is
// corrected to rw. Relative sources are resolved against configDir; "~" is
// expanded to hostHome.
func normalizeMounts(raw []string, configDir, hostHome string, mountAgentsCredentials bool) []Mount {
	var out []Mount
	for _, spec := range raw {
		if m := parseMountSpec(spec); m != nil {
			m.Source = resolveSource(m.Source, configDir, hostHome)
			out = append(out, *m)
		}
	}
	if mountAgentsCredentials {
		for _, rel := range WellKnownCredentialMounts {
			src := filepath.Join(hostHome, rel)
			if fsutil.PathExists(src) {
				out = append(out, Mount{
					Source: src,
					Target: filepath.Join("/home/workspace", rel),
					Mode:   "rw",
				})
			}
		}
	}
	return out
}

// parseMountSpec splits a SOURCE:TARGET[:ro|:rw] string, handling the
// 4-colon Windows-drive-letter heuristic: when there are 4 parts and the
// first is a single letter, parts[0]:parts[1] is treated as one
// drive-qualified source (e.g. "C:/path:/container/path:ro").
func parseMountSpec(spec string) *Mount {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		return &Mount{Source: parts[0], Target: parts[1], Mode: "rw"}
	case 3:
		return &Mount{Source: parts[0], Target: parts[1], Mode: correctMode(parts[2])}
	case 4:
		if isDriveLetter(parts[0]) {
			return &Mount{
				Source: parts[0] + ":" + parts[1],
				Target: parts[2],
				Mode:   correctMode(parts[3]),
			}
		}
		return nil
	default:
		return nil
	}
}

func isDriveLetter(s string) bool {
	return len(s) == 1 && ((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}

func correctMode(m string) string {
	if m == "ro" || m == "rw" {
		return m
	}
	return "rw"
}

func resolveSource(source, configDir, hostHome string) string {
	source = fsutil.ExpandHome(source, hostHome)
	if !filepath.IsAbs(source) && !isDriveQualified(source) {
		source = filepath.Join(configDir, source)
	}
	return source
}

func isDriveQualified(s string) bool {
	return len(s) >= 2 && isDriveLetter(s[:1]) && s[1] == ':'
}

// mergeBootstrapScripts concatenates project then user entries, tagging
// each with its source unless already explicitly set.
func mergeBootstrapScripts(project, user []BootstrapScript) []BootstrapScript {
	out := make([]BootstrapScript, 0, len(project)+len(user))
	for _, s := range project {
		if s.Source == "" {
			s.Source = "project"
		}
		out = append(out, s)
	}
	for _, s := range user {
		if s.Source == "" {
			s.Source = "user"
		}
		out = append(out, s)
	}
	return out
}

func mergeBool(project, user *bool) bool {
	if user != nil {
		return *user
	}
	if project != nil {
		return *project
	}
	return false
}

func mergeRepo(project, user *RepoConfig) RepoConfig {
	merged := RepoConfig{Branch: "main"}
	if project != nil {
		merged = *project
		if merged.Branch == "" {
			merged.Branch = "main"
		}
	}
	if user != nil {
		if user.Remote != "" {
			merged.Remote = user.Remote
		}
		if user.Branch != "" {
			merged.Branch = user.Branch
		}
		if len(user.CloneArgs) > 0 {
			merged.CloneArgs = user.CloneArgs
		}
	}
	return merged
}

// validateNonNil rejects a nil raw ProjectConfig with ConfigInvalid semantics;
// callers translate this into internal/errors.ConfigInvalid.
func validateNonNil(raw *ProjectConfig) error {
	if raw == nil {
		return fmt.Errorf("project config is empty")
	}
	return nil
}
