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

package common

// Slurm environment variables set inside a batch allocation.
const (
	EnvSlurmJobID = "SLURM_JOB_ID"

	EnvSlurmJobNodelist = "SLURM_JOB_NODELIST"

	EnvSlurmJobNumNodes = "SLURM_JOB_NUM_NODES"

	EnvSlurmCPUsPerTask = "SLURM_CPUS_PER_TASK"

	EnvSlurmCPUsOnNode = "SLURM_CPUS_ON_NODE"

	// EnvSlurmMemPerNode is the per-node memory grant in MiB.
	EnvSlurmMemPerNode = "SLURM_MEM_PER_NODE"

	// EnvSlurmMemPerCPU is the per-CPU memory grant in MiB, set when the job
	// was submitted with --mem-per-cpu instead of --mem.
	EnvSlurmMemPerCPU = "SLURM_MEM_PER_CPU"

	EnvSlurmdNodename = "SLURMD_NODENAME"

	EnvSlurmSubmitDir = "SLURM_SUBMIT_DIR"
)

// Slurm binaries sparkboot invokes.
const (
	BinSrun = "srun"

	BinSbcast = "sbcast"

	BinScontrol = "scontrol"
)
