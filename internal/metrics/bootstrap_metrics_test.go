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

package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndWriteTextfile(t *testing.T) {
	m := NewBootstrapMetrics("sparkboot_")
	m.Record("4242", "boot-1", 3, 32, 63488, 12.5, 2.25, true)

	path := filepath.Join(t.TempDir(), "sparkboot.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, `sparkboot_bootstrap_success{bootstrap_id="boot-1",job_id="4242"} 1`)
	assert.Contains(t, text, `sparkboot_worker_node_count{bootstrap_id="boot-1",job_id="4242"} 3`)
	assert.Contains(t, text, `sparkboot_worker_cores{bootstrap_id="boot-1",job_id="4242"} 32`)
	assert.Contains(t, text, `sparkboot_worker_memory_mebibytes{bootstrap_id="boot-1",job_id="4242"} 63488`)
	assert.Contains(t, text, `sparkboot_bootstrap_duration_seconds{bootstrap_id="boot-1",job_id="4242"} 12.5`)
	assert.Contains(t, text, `sparkboot_master_wait_seconds{bootstrap_id="boot-1",job_id="4242"} 2.25`)
}

func TestRecordFailure(t *testing.T) {
	m := NewBootstrapMetrics("sparkboot_")
	m.Record("7", "boot-2", 0, 0, 0, 0.5, 0, false)

	path := filepath.Join(t.TempDir(), "sparkboot.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `sparkboot_bootstrap_success{bootstrap_id="boot-2",job_id="7"} 0`)
}
