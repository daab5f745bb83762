package main

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// RunFlags holds flags for the run command.
type RunFlags struct {
	Name          string
	Env           []string
	Cwd           string
	Stdin         string
	Stdout        string
	Stderr        string
	NewSession    bool
	SetPGroup     bool
	PGroup        int
	ResetIDs      bool
	UseVFork      bool
	SchedPolicy   string
	SchedPriority int
	SigMask       []string
	SigDefault    []string
	Detach        bool
	JSON          bool
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	ConfigPath string
}

// SignalFlags holds flags for the signal command.
type SignalFlags struct {
	Name   string
	Signal string
	APIUrl string
}
