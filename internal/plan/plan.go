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

// Package plan turns a resolved Slurm allocation into the concrete launch
// parameters of a Spark standalone cluster: worker sizing after daemon
// overhead, ports, scratch layout, and the master URL.
package plan

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/sparkhpc/sparkboot/internal/allocation"
	"github.com/sparkhpc/sparkboot/pkg/common"
	"github.com/sparkhpc/sparkboot/pkg/util"
)

// Options are the tunables of plan computation. Zero values select the
// defaults below.
type Options struct {
	// ScratchRoot is the directory the per-job scratch area is created
	// under. Empty selects the job's submit directory, then os.TempDir.
	ScratchRoot string

	MasterPort      int
	MasterWebUIPort int
	WorkerWebUIPort int

	// WorkerCores caps the cores each worker advertises; 0 means all
	// allocated CPUs.
	WorkerCores int

	// DaemonOverheadMiB is subtracted from the per-node memory grant to
	// leave room for the master/worker daemon JVMs and OS headroom.
	DaemonOverheadMiB int64

	// MinWorkerMemoryMiB is the floor worker memory is clamped to after
	// overhead subtraction.
	MinWorkerMemoryMiB int64

	// DriverMemoryMiB sizes spark.driver.memory; 0 means the default.
	DriverMemoryMiB int64

	// SparkHome overrides $SPARK_HOME.
	SparkHome string
}

const (
	DefaultDaemonOverheadMiB  = 2048
	DefaultMinWorkerMemoryMiB = 1024
	DefaultDriverMemoryMiB    = 2048
)

// Plan is the fully resolved set of launch parameters. It is a write-once
// artifact: computed before any daemon starts and never mutated afterwards.
type Plan struct {
	// ID is a fresh identifier for this bootstrap, used in scratch naming
	// and metrics labels.
	ID string

	JobID string
	Nodes []string

	MasterHost      string
	MasterPort      int
	MasterWebUIPort int
	WorkerWebUIPort int

	WorkerCores     int
	WorkerMemoryMiB int64
	DriverMemoryMiB int64

	SparkHome string

	// SparkVersion is a semver string such as "3.4.1"; empty when the
	// install's RELEASE file is absent.
	SparkVersion string

	ScratchDir string
	ConfDir    string
	LogDir     string
	WorkDir    string
	RunDir     string
}

// Compute derives the launch plan for the given allocation.
func Compute(alloc *allocation.Allocation, opts Options) (*Plan, error) {
	sparkHome := opts.SparkHome
	if sparkHome == "" {
		sparkHome = os.Getenv(common.EnvSparkHome)
	}
	if sparkHome == "" {
		return nil, fmt.Errorf("%s is not set", common.EnvSparkHome)
	}

	cores := alloc.CPUsPerNode
	if opts.WorkerCores > 0 && opts.WorkerCores < cores {
		cores = opts.WorkerCores
	}

	overhead := opts.DaemonOverheadMiB
	if overhead == 0 {
		overhead = DefaultDaemonOverheadMiB
	}
	minMem := opts.MinWorkerMemoryMiB
	if minMem == 0 {
		minMem = DefaultMinWorkerMemoryMiB
	}

	workerMem, err := workerMemory(alloc.MemPerNodeMiB, overhead, minMem)
	if err != nil {
		return nil, err
	}

	driverMem := opts.DriverMemoryMiB
	if driverMem == 0 {
		driverMem = DefaultDriverMemoryMiB
	}

	masterPort := opts.MasterPort
	if masterPort == 0 {
		masterPort = common.DefaultMasterPort
	}
	masterWebUI := opts.MasterWebUIPort
	if masterWebUI == 0 {
		masterWebUI = common.DefaultMasterWebUIPort
	}
	workerWebUI := opts.WorkerWebUIPort
	if workerWebUI == 0 {
		workerWebUI = common.DefaultWorkerWebUIPort
	}

	root := opts.ScratchRoot
	if root == "" {
		root = alloc.SubmitDir
	}
	if root == "" {
		root = os.TempDir()
	}
	scratch := filepath.Join(root, "sparkboot-"+alloc.JobID)

	version, err := DetectSparkVersion(sparkHome)
	if err != nil {
		return nil, err
	}

	return &Plan{
		ID:              uuid.New().String(),
		JobID:           alloc.JobID,
		Nodes:           alloc.Nodes,
		MasterHost:      alloc.LaunchNode,
		MasterPort:      masterPort,
		MasterWebUIPort: masterWebUI,
		WorkerWebUIPort: workerWebUI,
		WorkerCores:     cores,
		WorkerMemoryMiB: workerMem,
		DriverMemoryMiB: driverMem,
		SparkHome:       sparkHome,
		SparkVersion:    version,
		ScratchDir:      scratch,
		ConfDir:         filepath.Join(scratch, "conf"),
		LogDir:          filepath.Join(scratch, "logs"),
		WorkDir:         filepath.Join(scratch, "work"),
		RunDir:          filepath.Join(scratch, "run"),
	}, nil
}

// workerMemory applies the daemon overhead and the floor. Overhead eating
// the whole grant is an error; a result under the floor is clamped up as
// long as the grant covers it.
func workerMemory(memMiB, overheadMiB, minMiB int64) (int64, error) {
	if memMiB <= overheadMiB {
		return 0, fmt.Errorf("node memory %d MiB does not cover the %d MiB daemon overhead", memMiB, overheadMiB)
	}
	mem := memMiB - overheadMiB
	if mem < minMiB {
		if memMiB < minMiB {
			return 0, fmt.Errorf("node memory %d MiB is under the %d MiB worker floor", memMiB, minMiB)
		}
		mem = minMiB
	}
	return mem, nil
}

// MasterURL returns the spark:// URL workers and clients connect to.
func (p *Plan) MasterURL() string {
	return "spark://" + util.JoinHostPort(p.MasterHost, p.MasterPort)
}

// WorkerMemory returns worker memory in Spark's size notation.
func (p *Plan) WorkerMemory() string {
	return FormatMemoryMiB(p.WorkerMemoryMiB)
}

// DriverMemory returns driver memory in Spark's size notation.
func (p *Plan) DriverMemory() string {
	return FormatMemoryMiB(p.DriverMemoryMiB)
}

// StartWorkerScript returns the worker launch script name for the installed
// Spark version. The script was renamed from start-slave.sh in Spark 3.1.
func (p *Plan) StartWorkerScript() string {
	if p.SparkVersion != "" && semver.Compare("v"+p.SparkVersion, "v3.1.0") < 0 {
		return common.ScriptStartSlave
	}
	return common.ScriptStartWorker
}

// StopWorkerScript returns the worker stop script name, see StartWorkerScript.
func (p *Plan) StopWorkerScript() string {
	if p.SparkVersion != "" && semver.Compare("v"+p.SparkVersion, "v3.1.0") < 0 {
		return common.ScriptStopSlave
	}
	return common.ScriptStopWorker
}

// FormatMemoryMiB renders a MiB count the way Spark sizes are written:
// whole gibibytes as "16g", anything else as "1536m".
func FormatMemoryMiB(mib int64) string {
	if mib > 0 && mib%1024 == 0 {
		return fmt.Sprintf("%dg", mib/1024)
	}
	return fmt.Sprintf("%dm", mib)
}

// DetectSparkVersion reads the version from $SPARK_HOME/RELEASE. A missing
// RELEASE file is not an error; version-gated behavior then assumes a
// current Spark.
func DetectSparkVersion(sparkHome string) (string, error) {
	f, err := os.Open(filepath.Join(sparkHome, "RELEASE"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading Spark RELEASE file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// First line looks like "Spark 3.4.1 built for Hadoop 3.3.4".
		fields := strings.Fields(scanner.Text())
		for i, field := range fields {
			if field == "Spark" && i+1 < len(fields) {
				version := fields[i+1]
				if semver.IsValid("v" + version) {
					return version, nil
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading Spark RELEASE file: %w", err)
	}
	return "", nil
}
