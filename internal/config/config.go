package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/ospawn/internal/logger"
	"github.com/loykin/ospawn/internal/runner"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Env      []string      `toml:"env" mapstructure:"env"`
	EnvFiles []string      `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv bool          `toml:"use_os_env" mapstructure:"use_os_env"`
	Log      logger.Config `toml:"log" mapstructure:"log"`
	Server   ServerConfig  `toml:"server" mapstructure:"server"`
	Jobs     []JobConfig   `toml:"jobs" mapstructure:"jobs"`
}

type ServerConfig struct {
	Listen     string `toml:"listen" mapstructure:"listen"`
	BasePath   string `toml:"base_path" mapstructure:"base_path"`
	HistoryDSN string `toml:"history_dsn" mapstructure:"history_dsn"`
}

type JobConfig struct {
	Name          string   `toml:"name" mapstructure:"name"`
	Path          string   `toml:"path" mapstructure:"path"`
	Args          []string `toml:"args" mapstructure:"args"`
	Env           []string `toml:"env" mapstructure:"env"`
	Cwd           string   `toml:"cwd" mapstructure:"cwd"`
	Stdin         string   `toml:"stdin" mapstructure:"stdin"`
	Stdout        string   `toml:"stdout" mapstructure:"stdout"`
	Stderr        string   `toml:"stderr" mapstructure:"stderr"`
	NewSession    bool     `toml:"new_session" mapstructure:"new_session"`
	SetPGroup     bool     `toml:"set_pgroup" mapstructure:"set_pgroup"`
	PGroup        int      `toml:"pgroup" mapstructure:"pgroup"`
	ResetIDs      bool     `toml:"reset_ids" mapstructure:"reset_ids"`
	UseVFork      bool     `toml:"use_vfork" mapstructure:"use_vfork"`
	SchedPolicy   string   `toml:"sched_policy" mapstructure:"sched_policy"`
	SchedPriority int      `toml:"sched_priority" mapstructure:"sched_priority"`
	SigMask       []string `toml:"sigmask" mapstructure:"sigmask"`
	SigDefault    []string `toml:"sigdefault" mapstructure:"sigdefault"`
}

// Load parses the TOML config file at path.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	for i := range fc.Jobs {
		if strings.TrimSpace(fc.Jobs[i].Name) == "" {
			return nil, fmt.Errorf("job #%d requires name", i)
		}
		if strings.TrimSpace(fc.Jobs[i].Path) == "" {
			return nil, fmt.Errorf("job %s requires path", fc.Jobs[i].Name)
		}
	}
	return &fc, nil
}

// GlobalEnv merges environment sources in precedence order: OS env
// (when use_os_env) as base, then env_files in listed order, then the
// top-level env list overriding last. Paths in env_files are resolved
// relative to the config file's directory.
func (fc *FileConfig) GlobalEnv(configPath string) ([]string, error) {
	m := make(map[string]string)
	if fc.UseOSEnv {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				m[kv[:i]] = kv[i+1:]
			}
		}
	}
	base := filepath.Dir(configPath)
	for _, p := range fc.EnvFiles {
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	for _, kv := range fc.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// Job converts a JobConfig into a runner.Job, layering global env under
// the job's own entries.
func (jc *JobConfig) Job(globalEnv []string) runner.Job {
	env := jc.Env
	if len(globalEnv) > 0 {
		env = append(append([]string{}, globalEnv...), jc.Env...)
	}
	return runner.Job{
		Name:          jc.Name,
		Path:          jc.Path,
		Args:          jc.Args,
		Env:           env,
		Cwd:           jc.Cwd,
		Stdin:         jc.Stdin,
		Stdout:        jc.Stdout,
		Stderr:        jc.Stderr,
		NewSession:    jc.NewSession,
		SetPGroup:     jc.SetPGroup,
		PGroup:        jc.PGroup,
		ResetIDs:      jc.ResetIDs,
		UseVFork:      jc.UseVFork,
		SchedPolicy:   jc.SchedPolicy,
		SchedPriority: jc.SchedPriority,
		SigMask:       jc.SigMask,
		SigDefault:    jc.SigDefault,
	}
}

// loadEnvFile parses a simple .env file with KEY=VALUE lines (no
// export, no quotes). Lines starting with # are ignored.
func loadEnvFile(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			m[strings.TrimSpace(line[:i])] = strings.TrimSpace(line[i+1:])
		}
	}
	return m, nil
}
