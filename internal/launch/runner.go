/*
Copyright 2025 The sparkboot authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"
)

// Command describes one external invocation.
type Command struct {
	Name string
	Args []string

	// Env entries are appended to the inherited environment.
	Env []string

	// Stdout and Stderr receive the process output when set; combined
	// output is returned by Run otherwise.
	Stdout *os.File
	Stderr *os.File
}

// Process is a started background command.
type Process interface {
	Pid() int
	Wait() error
}

// Runner executes external commands. Tests substitute a fake; production
// code uses NewExecRunner.
type Runner interface {
	// Run executes the command to completion and returns its combined
	// output.
	Run(ctx context.Context, cmd Command) ([]byte, error)

	// Start launches the command in the background. The context gates the
	// launch only; cancelling it after Start returns must not signal the
	// process, so that fan-out processes outlive the bootstrap.
	Start(ctx context.Context, cmd Command) (Process, error)
}

type execRunner struct {
	logger logr.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger logr.Logger) Runner {
	return &execRunner{logger: logger.WithName("exec")}
}

func (r *execRunner) build(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c
}

func (r *execRunner) Run(ctx context.Context, cmd Command) ([]byte, error) {
	r.logger.V(1).Info("running command", "name", cmd.Name, "args", cmd.Args)
	c := r.build(ctx, cmd)
	output, err := c.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", cmd.Name, err, string(output))
	}
	return output, nil
}

func (r *execRunner) Start(ctx context.Context, cmd Command) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.V(1).Info("starting background command", "name", cmd.Name, "args", cmd.Args)
	// No CommandContext here: the started process must keep running after
	// the bootstrap returns and its context is cancelled.
	c := exec.Command(cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cmd.Name, err)
	}
	return &execProcess{cmd: c}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
