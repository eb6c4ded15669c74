package sandbox

import "strconv"

// SecurityOptions defines the hardening applied to every verification
// container. Candidates are untrusted; the defaults leave no network,
// no writable root, no capabilities, and hard resource caps.
type SecurityOptions struct {
	// NetworkMode is the docker network mode ("none" disables networking).
	NetworkMode string

	// DropCapabilities specifies Linux capabilities to drop.
	DropCapabilities []string

	// NoNewPrivileges prevents processes from gaining new privileges.
	NoNewPrivileges bool

	// ReadOnlyRootFilesystem makes the root filesystem read-only.
	ReadOnlyRootFilesystem bool

	// PidsLimit limits the number of processes in the container.
	PidsLimit int

	// MemoryLimit sets the memory hard cap (e.g., "512m"). Swap is held
	// to the same value so the cap cannot be dodged through swapping.
	MemoryLimit string

	// CPULimit sets the CPU limit (e.g., "1").
	CPULimit string

	// TmpfsSize bounds the only writable scratch area (/tmp), mounted
	// non-executable.
	TmpfsSize string
}

// DefaultSecurityOptions returns the hardened defaults for verification
// containers.
func DefaultSecurityOptions() *SecurityOptions {
	return &SecurityOptions{
		NetworkMode:            "none",
		DropCapabilities:       []string{"ALL"},
		NoNewPrivileges:        true,
		ReadOnlyRootFilesystem: true,
		PidsLimit:              128,
		MemoryLimit:            "512m",
		CPULimit:               "1",
		TmpfsSize:              "64m",
	}
}

// ToDockerArgs converts security options to docker run arguments.
func (o *SecurityOptions) ToDockerArgs() []string {
	var args []string

	if o.NetworkMode != "" {
		args = append(args, "--network="+o.NetworkMode)
	}

	for _, cap := range o.DropCapabilities {
		args = append(args, "--cap-drop="+cap)
	}

	if o.NoNewPrivileges {
		args = append(args, "--security-opt=no-new-privileges:true")
	}

	if o.ReadOnlyRootFilesystem {
		args = append(args, "--read-only")
	}

	if o.PidsLimit > 0 {
		args = append(args, "--pids-limit="+strconv.Itoa(o.PidsLimit))
	}

	if o.MemoryLimit != "" {
		args = append(args, "--memory="+o.MemoryLimit, "--memory-swap="+o.MemoryLimit)
	}

	if o.CPULimit != "" {
		args = append(args, "--cpus="+o.CPULimit)
	}

	if o.TmpfsSize != "" {
		args = append(args, "--tmpfs=/tmp:rw,size="+o.TmpfsSize+",noexec")
	}

	return args
}
