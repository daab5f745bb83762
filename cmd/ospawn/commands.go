package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/ospawn"
)

// createRunCommand creates the run subcommand.
func createRunCommand(globalFlags *GlobalFlags, f *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- path [args...]",
		Short: "Spawn a program and wait for it",
		Long: `Spawn a program with the given file actions and attributes and wait
for it to exit. The command exits with the child's exit code. With
--name and --config, the named job is taken from the config file
instead of the command line.

Examples:
  ospawn run -- /bin/sh -c 'echo hello'
  ospawn run --stdout=/tmp/app.log --stderr=/tmp/app.log -- /usr/bin/myapp
  ospawn run --new-session --sigmask=TERM,HUP -- /usr/bin/worker
  ospawn run --config=config.toml --name=batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(globalFlags, f, args)
		},
	}

	cmd.Flags().StringVar(&f.Name, "name", "", "job name (defaults to the program basename)")
	cmd.Flags().StringArrayVar(&f.Env, "env", nil, "KEY=VALUE environment entry (repeatable; unset inherits)")
	cmd.Flags().StringVar(&f.Cwd, "cwd", "", "working directory for the child")
	cmd.Flags().StringVar(&f.Stdin, "stdin", "", "redirect child stdin from file")
	cmd.Flags().StringVar(&f.Stdout, "stdout", "", "redirect child stdout to file (append)")
	cmd.Flags().StringVar(&f.Stderr, "stderr", "", "redirect child stderr to file (append)")
	cmd.Flags().BoolVar(&f.NewSession, "new-session", false, "run the child in a new session")
	cmd.Flags().BoolVar(&f.SetPGroup, "set-pgroup", false, "put the child in a process group")
	cmd.Flags().IntVar(&f.PGroup, "pgroup", 0, "target process group (0 = own group)")
	cmd.Flags().BoolVar(&f.ResetIDs, "reset-ids", false, "reset effective uid/gid to real ids")
	cmd.Flags().BoolVar(&f.UseVFork, "vfork", false, "suspend the parent until the child execs")
	cmd.Flags().StringVar(&f.SchedPolicy, "sched-policy", "", "scheduling policy: other, fifo, rr, batch, idle")
	cmd.Flags().IntVar(&f.SchedPriority, "sched-priority", 0, "scheduling priority")
	cmd.Flags().StringSliceVar(&f.SigMask, "sigmask", nil, "signals to block in the child (e.g. TERM,HUP)")
	cmd.Flags().StringSliceVar(&f.SigDefault, "sigdefault", nil, "signals to reset to default disposition")
	cmd.Flags().BoolVar(&f.Detach, "detach", false, "do not wait for the child")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print the final status as JSON")

	return cmd
}

func runJob(globalFlags *GlobalFlags, f *RunFlags, args []string) error {
	job, err := buildJob(globalFlags, f, args)
	if err != nil {
		return err
	}

	ospawnRunner := ospawn.NewRunner(nil)
	if f.Detach {
		st, err := ospawnRunner.Run(job)
		if err != nil {
			return err
		}
		printStatus(st, f.JSON)
		return nil
	}

	st, err := ospawnRunner.RunAndWait(job)
	if err != nil {
		return err
	}
	printStatus(st, f.JSON)
	switch {
	case st.Signal != "":
		os.Exit(1)
	case st.ExitCode != 0:
		os.Exit(st.ExitCode)
	}
	return nil
}

// buildJob assembles a job from flags, or looks it up in the config
// file when --name is given without a program argument.
func buildJob(globalFlags *GlobalFlags, f *RunFlags, args []string) (ospawn.Job, error) {
	if len(args) == 0 {
		if globalFlags.ConfigPath == "" || f.Name == "" {
			return ospawn.Job{}, fmt.Errorf("program path required (or --config with --name)")
		}
		cfg, err := ospawn.LoadConfig(globalFlags.ConfigPath)
		if err != nil {
			return ospawn.Job{}, fmt.Errorf("error loading config: %w", err)
		}
		env, err := cfg.GlobalEnv(globalFlags.ConfigPath)
		if err != nil {
			return ospawn.Job{}, err
		}
		for i := range cfg.Jobs {
			if cfg.Jobs[i].Name == f.Name {
				return cfg.Jobs[i].Job(env), nil
			}
		}
		return ospawn.Job{}, fmt.Errorf("job %q not found in %s", f.Name, globalFlags.ConfigPath)
	}

	name := f.Name
	if name == "" {
		name = filepath.Base(args[0])
	}
	return ospawn.Job{
		Name:          name,
		Path:          args[0],
		Args:          args[1:],
		Env:           f.Env,
		Cwd:           f.Cwd,
		Stdin:         f.Stdin,
		Stdout:        f.Stdout,
		Stderr:        f.Stderr,
		NewSession:    f.NewSession,
		SetPGroup:     f.SetPGroup,
		PGroup:        f.PGroup,
		ResetIDs:      f.ResetIDs,
		UseVFork:      f.UseVFork,
		SchedPolicy:   f.SchedPolicy,
		SchedPriority: f.SchedPriority,
		SigMask:       f.SigMask,
		SigDefault:    f.SigDefault,
	}, nil
}

func printStatus(st ospawn.JobStatus, asJSON bool) {
	if asJSON {
		printJSON(st)
		return
	}
	if st.Running {
		fmt.Printf("%s: pid %d running\n", st.Name, st.PID)
		return
	}
	if st.Signal != "" {
		fmt.Printf("%s: pid %d killed by %s\n", st.Name, st.PID, st.Signal)
		return
	}
	fmt.Printf("%s: pid %d exited %d\n", st.Name, st.PID, st.ExitCode)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(b))
}

// createSignalCommand creates the signal subcommand, which talks to a
// running serve daemon over its HTTP API.
func createSignalCommand(f *SignalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Send a signal to a job managed by a running daemon",
		Long: `Send a signal to a running job by name via the daemon's HTTP API.

Examples:
  ospawn signal --name=worker --signal=TERM
  ospawn signal --name=worker --signal=USR1 --api-url=http://remote:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return signalViaAPI(f)
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "job name (required)")
	cmd.Flags().StringVar(&f.Signal, "signal", "TERM", "signal name")
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "http://127.0.0.1:8080/api", "daemon URL")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func signalViaAPI(f *SignalFlags) error {
	u := strings.TrimRight(f.APIUrl, "/") + "/signal?" + url.Values{
		"name":   {f.Name},
		"signal": {f.Signal},
	}.Encode()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(u, "application/json", nil)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s - start it first with 'ospawn serve'", f.APIUrl)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error != "" {
			return fmt.Errorf("signal failed: %s", er.Error)
		}
		return fmt.Errorf("signal failed: HTTP %d", resp.StatusCode)
	}
	fmt.Printf("sent %s to %s\n", f.Signal, f.Name)
	return nil
}
