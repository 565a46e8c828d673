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

// Bootstrap metric names.
const (
	MetricBootstrapDurationSeconds = "bootstrap_duration_seconds"

	MetricBootstrapSuccess = "bootstrap_success"

	MetricWorkerNodeCount = "worker_node_count"

	MetricWorkerCores = "worker_cores"

	MetricWorkerMemoryMebibytes = "worker_memory_mebibytes"

	MetricMasterWaitSeconds = "master_wait_seconds"
)
