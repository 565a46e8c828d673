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

package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkhpc/sparkboot/internal/allocation"
)

func testAlloc() *allocation.Allocation {
	return &allocation.Allocation{
		JobID:         "4242",
		Nodes:         []string{"node01", "node02", "node03"},
		CPUsPerNode:   32,
		MemPerNodeMiB: 65536,
		LaunchNode:    "node01",
		SubmitDir:     "/scratch/jobs/4242",
	}
}

func fakeSparkHome(t *testing.T, release string) string {
	t.Helper()
	home := t.TempDir()
	if release != "" {
		require.NoError(t, os.WriteFile(filepath.Join(home, "RELEASE"), []byte(release), 0o644))
	}
	return home
}

func TestCompute(t *testing.T) {
	home := fakeSparkHome(t, "Spark 3.4.1 built for Hadoop 3.3.4\n")

	p, err := Compute(testAlloc(), Options{SparkHome: home, ScratchRoot: "/tmp/scratch"})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "4242", p.JobID)
	assert.Equal(t, 32, p.WorkerCores)
	// 64 GiB minus the 2 GiB default overhead.
	assert.Equal(t, int64(65536-2048), p.WorkerMemoryMiB)
	assert.Equal(t, "62g", p.WorkerMemory())
	assert.Equal(t, "spark://node01:7077", p.MasterURL())
	assert.Equal(t, "3.4.1", p.SparkVersion)
	assert.Equal(t, "/tmp/scratch/sparkboot-4242", p.ScratchDir)
	assert.Equal(t, "/tmp/scratch/sparkboot-4242/conf", p.ConfDir)
	assert.Equal(t, "start-worker.sh", p.StartWorkerScript())
	assert.Equal(t, "stop-worker.sh", p.StopWorkerScript())
}

func TestComputeScratchDefaultsToSubmitDir(t *testing.T) {
	home := fakeSparkHome(t, "")

	p, err := Compute(testAlloc(), Options{SparkHome: home})
	require.NoError(t, err)
	assert.Equal(t, "/scratch/jobs/4242/sparkboot-4242", p.ScratchDir)
}

func TestComputeCoreCap(t *testing.T) {
	home := fakeSparkHome(t, "")

	p, err := Compute(testAlloc(), Options{SparkHome: home, WorkerCores: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, p.WorkerCores)

	// A cap above the allocation has no effect.
	p, err = Compute(testAlloc(), Options{SparkHome: home, WorkerCores: 64})
	require.NoError(t, err)
	assert.Equal(t, 32, p.WorkerCores)
}

func TestComputeMissingSparkHome(t *testing.T) {
	t.Setenv("SPARK_HOME", "")

	_, err := Compute(testAlloc(), Options{})
	assert.ErrorContains(t, err, "SPARK_HOME")
}

func TestWorkerMemory(t *testing.T) {
	testCases := []struct {
		name     string
		mem      int64
		overhead int64
		min      int64
		want     int64
		wantErr  bool
	}{
		{name: "plain subtraction", mem: 65536, overhead: 2048, min: 1024, want: 63488},
		{name: "clamped to floor", mem: 3072, overhead: 2560, min: 1024, want: 1024},
		{name: "overhead eats grant", mem: 2048, overhead: 2048, wantErr: true},
		{name: "grant under floor", mem: 512, overhead: 256, min: 1024, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := workerMemory(tc.mem, tc.overhead, tc.min)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatMemoryMiB(t *testing.T) {
	assert.Equal(t, "16g", FormatMemoryMiB(16384))
	assert.Equal(t, "1536m", FormatMemoryMiB(1536))
	assert.Equal(t, "0m", FormatMemoryMiB(0))
}

func TestStartWorkerScriptVersionGate(t *testing.T) {
	p := &Plan{SparkVersion: "2.4.8"}
	assert.Equal(t, "start-slave.sh", p.StartWorkerScript())
	assert.Equal(t, "stop-slave.sh", p.StopWorkerScript())

	p = &Plan{SparkVersion: "3.1.0"}
	assert.Equal(t, "start-worker.sh", p.StartWorkerScript())

	// Unknown version assumes a current install.
	p = &Plan{}
	assert.Equal(t, "start-worker.sh", p.StartWorkerScript())
}

func TestDetectSparkVersion(t *testing.T) {
	home := fakeSparkHome(t, "Spark 3.5.0 built for Hadoop 3.3.4\nBuild flags: ...\n")
	version, err := DetectSparkVersion(home)
	require.NoError(t, err)
	assert.Equal(t, "3.5.0", version)

	home = fakeSparkHome(t, "")
	version, err = DetectSparkVersion(home)
	require.NoError(t, err)
	assert.Empty(t, version)
}
