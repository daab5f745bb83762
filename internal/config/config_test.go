package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "ospawn.toml", `
env = ["FOO=bar"]
use_os_env = false

[log]
level = "debug"
format = "json"

[server]
listen = "127.0.0.1:9965"
base_path = "/api"
history_dsn = "sqlite:///tmp/ospawn.db"

[[jobs]]
name = "worker"
path = "/usr/bin/sleep"
args = ["5"]
new_session = true
sigmask = ["TERM"]

[[jobs]]
name = "batch"
path = "/bin/sh"
args = ["-c", "exit 0"]
stdout = "/tmp/batch.log"
stderr = "/tmp/batch.log"
`)
	fc, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fc.Log.Level != "debug" || fc.Log.Format != "json" {
		t.Fatalf("log config = %+v", fc.Log)
	}
	if fc.Server.Listen != "127.0.0.1:9965" || fc.Server.BasePath != "/api" {
		t.Fatalf("server config = %+v", fc.Server)
	}
	if len(fc.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(fc.Jobs))
	}
	j := fc.Jobs[0].Job(nil)
	if j.Name != "worker" || !j.NewSession || len(j.SigMask) != 1 {
		t.Fatalf("job = %+v", j)
	}
	if fc.Jobs[1].Stderr != fc.Jobs[1].Stdout {
		t.Fatalf("stderr should match stdout: %+v", fc.Jobs[1])
	}
}

func TestLoadRejectsNamelessJob(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.toml", `
[[jobs]]
path = "/bin/true"
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for job without name")
	}
	p = writeFile(t, dir, "bad2.toml", `
[[jobs]]
name = "x"
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for job without path")
	}
}

func TestGlobalEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.env", "A=from_file\nB=from_file\n# comment\n\n")
	p := writeFile(t, dir, "cfg.toml", `
env = ["A=from_toml"]
env_files = ["one.env"]
`)
	fc, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	env, err := fc.GlobalEnv(p)
	if err != nil {
		t.Fatalf("GlobalEnv: %v", err)
	}
	sort.Strings(env)
	if len(env) != 2 || env[0] != "A=from_toml" || env[1] != "B=from_file" {
		t.Fatalf("env = %v", env)
	}
}

func TestGlobalEnvMissingFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "cfg.toml", `
env_files = ["missing.env"]
`)
	fc, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := fc.GlobalEnv(p); err == nil {
		t.Fatalf("expected error for missing env file")
	}
}

func TestJobEnvLayering(t *testing.T) {
	jc := JobConfig{Name: "x", Path: "/bin/true", Env: []string{"C=job"}}
	j := jc.Job([]string{"A=global"})
	if len(j.Env) != 2 || j.Env[0] != "A=global" || j.Env[1] != "C=job" {
		t.Fatalf("env = %v", j.Env)
	}
	j = jc.Job(nil)
	if len(j.Env) != 1 || j.Env[0] != "C=job" {
		t.Fatalf("env = %v", j.Env)
	}
}
