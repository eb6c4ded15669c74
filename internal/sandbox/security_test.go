package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSecurityOptionsToDockerArgs(t *testing.T) {
	args := DefaultSecurityOptions().ToDockerArgs()
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "--network=none")
	assert.Contains(t, joined, "--cap-drop=ALL")
	assert.Contains(t, joined, "--security-opt=no-new-privileges:true")
	assert.Contains(t, joined, "--read-only")
	assert.Contains(t, joined, "--pids-limit=128")
	assert.Contains(t, joined, "--memory=512m")
	assert.Contains(t, joined, "--memory-swap=512m")
	assert.Contains(t, joined, "--cpus=1")
	assert.Contains(t, joined, "--tmpfs=/tmp:rw,size=64m,noexec")
}

func TestEmptySecurityOptionsProduceNoArgs(t *testing.T) {
	opts := &SecurityOptions{}
	assert.Empty(t, opts.ToDockerArgs())
}
