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

package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestResolve(t *testing.T) {
	env := map[string]string{
		"SLURM_JOB_ID":        "4242",
		"SLURM_JOB_NODELIST":  "node[01-04]",
		"SLURM_JOB_NUM_NODES": "4",
		"SLURM_CPUS_PER_TASK": "32",
		"SLURM_MEM_PER_NODE":  "65536",
		"SLURMD_NODENAME":     "node01",
		"SLURM_SUBMIT_DIR":    "/scratch/jobs/4242",
	}

	alloc, err := Resolve(Options{Lookup: lookupFrom(env)})
	require.NoError(t, err)

	assert.Equal(t, "4242", alloc.JobID)
	assert.Equal(t, []string{"node01", "node02", "node03", "node04"}, alloc.Nodes)
	assert.Equal(t, 32, alloc.CPUsPerNode)
	assert.Equal(t, int64(65536), alloc.MemPerNodeMiB)
	assert.Equal(t, "node01", alloc.LaunchNode)
	assert.Equal(t, "/scratch/jobs/4242", alloc.SubmitDir)
}

func TestResolveOutsideJob(t *testing.T) {
	_, err := Resolve(Options{Lookup: lookupFrom(map[string]string{})})
	assert.True(t, errors.Is(err, ErrNotInJob))
}

func TestResolveMemPerCPU(t *testing.T) {
	env := map[string]string{
		"SLURM_JOB_ID":        "7",
		"SLURM_JOB_NODELIST":  "apollo1",
		"SLURM_CPUS_PER_TASK": "8",
		"SLURM_MEM_PER_CPU":   "2G",
		"SLURMD_NODENAME":     "apollo1",
	}

	alloc, err := Resolve(Options{Lookup: lookupFrom(env)})
	require.NoError(t, err)

	// 8 CPUs x 2 GiB per CPU.
	assert.Equal(t, int64(8*2048), alloc.MemPerNodeMiB)
}

func TestResolveCPUsOnNodeFallback(t *testing.T) {
	env := map[string]string{
		"SLURM_JOB_ID":       "7",
		"SLURM_JOB_NODELIST": "apollo1",
		"SLURM_CPUS_ON_NODE": "16",
		"SLURM_MEM_PER_NODE": "32768",
		"SLURMD_NODENAME":    "apollo1",
	}

	alloc, err := Resolve(Options{Lookup: lookupFrom(env)})
	require.NoError(t, err)
	assert.Equal(t, 16, alloc.CPUsPerNode)
}

func TestResolveMemoryFallback(t *testing.T) {
	env := map[string]string{
		"SLURM_JOB_ID":        "7",
		"SLURM_JOB_NODELIST":  "apollo1",
		"SLURM_CPUS_PER_TASK": "4",
		"SLURMD_NODENAME":     "apollo1",
	}

	_, err := Resolve(Options{Lookup: lookupFrom(env)})
	assert.Error(t, err)

	alloc, err := Resolve(Options{Lookup: lookupFrom(env), FallbackMemMiB: 4096})
	require.NoError(t, err)
	assert.Equal(t, int64(4096), alloc.MemPerNodeMiB)
}

func TestResolveNodeCountMismatch(t *testing.T) {
	env := map[string]string{
		"SLURM_JOB_ID":        "7",
		"SLURM_JOB_NODELIST":  "node[01-02]",
		"SLURM_JOB_NUM_NODES": "3",
		"SLURM_CPUS_PER_TASK": "4",
		"SLURM_MEM_PER_NODE":  "8192",
		"SLURMD_NODENAME":     "node01",
	}

	_, err := Resolve(Options{Lookup: lookupFrom(env)})
	assert.ErrorContains(t, err, "expands to 2 nodes")
}

func TestResolveLaunchNodeNotInNodelist(t *testing.T) {
	env := map[string]string{
		"SLURM_JOB_ID":        "7",
		"SLURM_JOB_NODELIST":  "node[01-02]",
		"SLURM_CPUS_PER_TASK": "4",
		"SLURM_MEM_PER_NODE":  "8192",
		"SLURMD_NODENAME":     "node09",
	}

	_, err := Resolve(Options{Lookup: lookupFrom(env)})
	assert.ErrorContains(t, err, "not in nodelist")
}

func TestParseMemoryMiB(t *testing.T) {
	testCases := []struct {
		in   string
		want int64
	}{
		{in: "4096", want: 4096},
		{in: "512M", want: 512},
		{in: "16G", want: 16384},
		{in: "1T", want: 1048576},
		{in: "2048K", want: 2},
		{in: " 64G ", want: 65536},
		{in: "8g", want: 8192},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMemoryMiB(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "G", "12X3", "-5", "-2048K", "-16G"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseMemoryMiB(bad)
			assert.Error(t, err)
		})
	}
}
