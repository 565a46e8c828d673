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

// Package launch drives the external tools that stand the cluster up:
// directory provisioning, sbcast distribution, the master start, and the
// srun worker fan-out. Every failure is fatal to the bootstrap; there is no
// retry or rollback.
package launch

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/sparkhpc/sparkboot/internal/plan"
	"github.com/sparkhpc/sparkboot/pkg/common"
	"github.com/sparkhpc/sparkboot/pkg/util"
)

// probeInterval paces the master readiness probes.
const probeInterval = 500 * time.Millisecond

// Bootstrapper runs the launch sequence against a plan.
type Bootstrapper struct {
	runner Runner
	logger logr.Logger

	// dial is swapped out in tests.
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// New returns a Bootstrapper using the given runner.
func New(runner Runner, logger logr.Logger) *Bootstrapper {
	return &Bootstrapper{
		runner: runner,
		logger: logger.WithName("launch"),
		dial:   net.DialTimeout,
	}
}

// CheckPreconditions verifies the Spark install referenced by the plan has
// the launch scripts the bootstrap invokes.
func (b *Bootstrapper) CheckPreconditions(p *plan.Plan) error {
	if !util.DirExists(p.SparkHome) {
		return fmt.Errorf("%s %q is not a directory", common.EnvSparkHome, p.SparkHome)
	}
	for _, script := range []string{common.ScriptStartMaster, common.ScriptStopMaster, p.StartWorkerScript()} {
		path := filepath.Join(p.SparkHome, "sbin", script)
		if !util.FileExists(path) {
			return fmt.Errorf("spark launch script %s not found", path)
		}
	}
	return nil
}

// ProvisionDirs creates the per-job scratch area. The conf directory holds
// the generated secret, so the whole tree is private to the submitting user.
func (b *Bootstrapper) ProvisionDirs(p *plan.Plan) error {
	for _, dir := range []string{p.ScratchDir, p.ConfDir, p.LogDir, p.WorkDir, p.RunDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("provisioning %s: %w", dir, err)
		}
	}
	b.logger.Info("provisioned scratch area", "dir", p.ScratchDir)
	return nil
}

// Distribute copies the generated files to every allocated node with sbcast,
// preserving paths so the conf directory looks identical cluster-wide.
func (b *Bootstrapper) Distribute(ctx context.Context, p *plan.Plan, files []string) error {
	for _, file := range files {
		cmd := Command{
			Name: common.BinSbcast,
			Args: []string{"--force", file, file},
		}
		if _, err := b.runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("distributing %s: %w", file, err)
		}
	}
	b.logger.Info("distributed configuration", "files", len(files), "nodes", len(p.Nodes))
	return nil
}

// StartMaster launches the Spark master on this node and waits until it
// accepts connections.
func (b *Bootstrapper) StartMaster(ctx context.Context, p *plan.Plan, timeout time.Duration) error {
	cmd := Command{
		Name: filepath.Join(p.SparkHome, "sbin", common.ScriptStartMaster),
		Env: []string{
			common.EnvSparkConfDir + "=" + p.ConfDir,
			common.EnvSparkLogDir + "=" + p.LogDir,
			common.EnvSparkPidDir + "=" + p.RunDir,
		},
	}
	if _, err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("starting master: %w", err)
	}
	return b.WaitForMaster(ctx, p, timeout)
}

// WaitForMaster polls the master port until it accepts a TCP connection or
// the timeout passes.
func (b *Bootstrapper) WaitForMaster(ctx context.Context, p *plan.Plan, timeout time.Duration) error {
	addr := util.JoinHostPort(p.MasterHost, p.MasterPort)
	deadline := time.Now().Add(timeout)
	limiter := rate.NewLimiter(rate.Every(probeInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for master at %s: %w", addr, err)
		}
		conn, err := b.dial("tcp", addr, probeInterval)
		if err == nil {
			conn.Close()
			b.logger.Info("master is up", "addr", addr)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("master at %s not reachable after %s: %w", addr, timeout, err)
		}
	}
}

// WriteMasterInfo records the master address in the scratch area for later
// pipeline stages (e.g. a Spark client job) to discover.
func (b *Bootstrapper) WriteMasterInfo(p *plan.Plan) (string, error) {
	path := filepath.Join(p.ScratchDir, common.MasterInfoFileName)
	content := p.MasterHost + "\n" + p.MasterURL() + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing master info: %w", err)
	}
	return path, nil
}

// LaunchWorkers fans the worker script out to every allocated node with
// srun, one task per node, in the background. The srun pid is recorded so
// the surrounding batch job can wait on or signal it; the returned Process
// keeps the fan-out attached to this process for callers that block.
func (b *Bootstrapper) LaunchWorkers(ctx context.Context, p *plan.Plan, workerScript string) (Process, error) {
	logPath := filepath.Join(p.LogDir, "workers.out")
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening worker log: %w", err)
	}
	defer logFile.Close()

	nodes := strconv.Itoa(len(p.Nodes))
	cmd := Command{
		Name: common.BinSrun,
		Args: []string{
			"--nodes=" + nodes,
			"--ntasks=" + nodes,
			"--ntasks-per-node=1",
			"--cpus-per-task=" + strconv.Itoa(p.WorkerCores),
			"--label",
			workerScript,
		},
		Stdout: logFile,
		Stderr: logFile,
	}

	proc, err := b.runner.Start(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("launching workers: %w", err)
	}

	pidPath := filepath.Join(p.RunDir, common.WorkerPidFileName)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(proc.Pid())+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("recording worker launcher pid: %w", err)
	}
	b.logger.Info("launched workers", "nodes", len(p.Nodes), "pid", proc.Pid(), "log", logPath)
	return proc, nil
}

// Teardown stops the cluster: signal the recorded srun fan-out, stop the
// master, and optionally remove the scratch area. Missing pieces are
// tolerated so a half-started cluster can still be torn down.
func (b *Bootstrapper) Teardown(ctx context.Context, p *plan.Plan, removeScratch bool) error {
	if err := b.signalWorkers(p); err != nil {
		b.logger.Info("worker fan-out not signalled", "reason", err.Error())
	}

	stopMaster := filepath.Join(p.SparkHome, "sbin", common.ScriptStopMaster)
	cmd := Command{
		Name: stopMaster,
		Env: []string{
			common.EnvSparkConfDir + "=" + p.ConfDir,
			common.EnvSparkPidDir + "=" + p.RunDir,
		},
	}
	if _, err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("stopping master: %w", err)
	}

	if removeScratch {
		if err := os.RemoveAll(p.ScratchDir); err != nil {
			return fmt.Errorf("removing scratch area: %w", err)
		}
		b.logger.Info("removed scratch area", "dir", p.ScratchDir)
	}
	return nil
}

func (b *Bootstrapper) signalWorkers(p *plan.Plan) error {
	pidPath := filepath.Join(p.RunDir, common.WorkerPidFileName)
	raw, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("parsing pid from %s: %w", pidPath, err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	// srun forwards SIGTERM to the remote tasks, which takes the workers
	// down with it.
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signalling pid %d: %w", pid, err)
	}
	b.logger.Info("signalled worker fan-out", "pid", pid)
	return nil
}
