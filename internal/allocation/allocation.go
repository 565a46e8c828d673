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

// Package allocation resolves the Slurm batch allocation sparkboot is running
// inside from the environment the scheduler sets for every job step.
package allocation

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sparkhpc/sparkboot/pkg/common"
	"github.com/sparkhpc/sparkboot/pkg/util"
)

// Allocation describes the node set and per-node resources Slurm granted to
// the surrounding batch job.
type Allocation struct {
	// JobID is the Slurm job id.
	JobID string

	// Nodes are the allocated hostnames, in nodelist order.
	Nodes []string

	// CPUsPerNode is the CPU count granted on each node.
	CPUsPerNode int

	// MemPerNodeMiB is the memory granted on each node, in MiB.
	MemPerNodeMiB int64

	// LaunchNode is the node this process runs on; the Spark master is
	// started here.
	LaunchNode string

	// SubmitDir is the directory the batch job was submitted from.
	SubmitDir string
}

// Options controls how the allocation is resolved.
type Options struct {
	// Lookup resolves environment variables; defaults to os.LookupEnv.
	Lookup func(string) (string, bool)

	// Expander expands the compact nodelist; defaults to NativeExpander.
	// A scontrol-backed expander can be supplied for expressions the native
	// one rejects.
	Expander Expander

	// FallbackMemMiB is used when Slurm exports neither a per-node nor a
	// per-CPU memory grant.
	FallbackMemMiB int64
}

// ErrNotInJob is returned when sparkboot is run outside a Slurm allocation.
var ErrNotInJob = fmt.Errorf("not inside a Slurm allocation (%s unset)", common.EnvSlurmJobID)

// Resolve reads the Slurm environment and returns the allocation.
func Resolve(opts Options) (*Allocation, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	expander := opts.Expander
	if expander == nil {
		expander = NativeExpander{}
	}

	jobID, ok := lookup(common.EnvSlurmJobID)
	if !ok || jobID == "" {
		return nil, ErrNotInJob
	}

	nodelist, _ := lookup(common.EnvSlurmJobNodelist)
	nodes, err := expander.Expand(nodelist)
	if err != nil {
		return nil, fmt.Errorf("expanding nodelist %q: %w", nodelist, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("job %s has an empty node allocation", jobID)
	}

	if numStr, ok := lookup(common.EnvSlurmJobNumNodes); ok {
		num, err := strconv.Atoi(numStr)
		if err != nil {
			return nil, fmt.Errorf("parsing %s=%q: %w", common.EnvSlurmJobNumNodes, numStr, err)
		}
		if num != len(nodes) {
			return nil, fmt.Errorf("nodelist %q expands to %d nodes but %s is %d", nodelist, len(nodes), common.EnvSlurmJobNumNodes, num)
		}
	}

	cpus, err := resolveCPUs(lookup)
	if err != nil {
		return nil, err
	}

	mem, err := resolveMemory(lookup, cpus, opts.FallbackMemMiB)
	if err != nil {
		return nil, err
	}

	launchNode, ok := lookup(common.EnvSlurmdNodename)
	if ok && launchNode != "" {
		// The node running this step must be part of the allocation; a
		// mismatch means the nodelist expansion cannot be trusted.
		if !util.ContainsString(nodes, launchNode) {
			return nil, fmt.Errorf("%s=%q is not in nodelist %q", common.EnvSlurmdNodename, launchNode, nodelist)
		}
	} else {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("determining launch node: %w", err)
		}
		launchNode = hostname
	}

	submitDir, _ := lookup(common.EnvSlurmSubmitDir)

	return &Allocation{
		JobID:         jobID,
		Nodes:         nodes,
		CPUsPerNode:   cpus,
		MemPerNodeMiB: mem,
		LaunchNode:    launchNode,
		SubmitDir:     submitDir,
	}, nil
}

func resolveCPUs(lookup func(string) (string, bool)) (int, error) {
	for _, key := range []string{common.EnvSlurmCPUsPerTask, common.EnvSlurmCPUsOnNode} {
		raw, ok := lookup(key)
		if !ok || raw == "" {
			continue
		}
		cpus, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("parsing %s=%q: %w", key, raw, err)
		}
		if cpus <= 0 {
			return 0, fmt.Errorf("%s=%d is not a usable CPU count", key, cpus)
		}
		return cpus, nil
	}
	return 0, fmt.Errorf("neither %s nor %s is set", common.EnvSlurmCPUsPerTask, common.EnvSlurmCPUsOnNode)
}

func resolveMemory(lookup func(string) (string, bool), cpus int, fallback int64) (int64, error) {
	if raw, ok := lookup(common.EnvSlurmMemPerNode); ok && raw != "" {
		mem, err := ParseMemoryMiB(raw)
		if err != nil {
			return 0, fmt.Errorf("parsing %s=%q: %w", common.EnvSlurmMemPerNode, raw, err)
		}
		return mem, nil
	}
	if raw, ok := lookup(common.EnvSlurmMemPerCPU); ok && raw != "" {
		perCPU, err := ParseMemoryMiB(raw)
		if err != nil {
			return 0, fmt.Errorf("parsing %s=%q: %w", common.EnvSlurmMemPerCPU, raw, err)
		}
		return perCPU * int64(cpus), nil
	}
	if fallback > 0 {
		return fallback, nil
	}
	return 0, fmt.Errorf("neither %s nor %s is set and no fallback memory configured", common.EnvSlurmMemPerNode, common.EnvSlurmMemPerCPU)
}

// ParseMemoryMiB converts Slurm memory strings such as "4096", "16G" or
// "512M" to MiB. A bare number is already in MiB, which is how Slurm exports
// its memory variables.
func ParseMemoryMiB(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty memory value")
	}

	multiplier, divisor := int64(1), int64(1)
	switch s[len(s)-1] {
	case 'K':
		divisor = 1024
		s = s[:len(s)-1]
	case 'M':
		s = s[:len(s)-1]
	case 'G':
		multiplier = 1024
		s = s[:len(s)-1]
	case 'T':
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value %q", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative memory value %q", s)
	}
	return value * multiplier / divisor, nil
}
