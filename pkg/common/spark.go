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

// Spark environment variables.
const (
	EnvSparkHome = "SPARK_HOME"

	EnvSparkConfDir = "SPARK_CONF_DIR"

	EnvSparkLogDir = "SPARK_LOG_DIR"

	EnvSparkPidDir = "SPARK_PID_DIR"

	EnvSparkWorkerDir = "SPARK_WORKER_DIR"

	EnvSparkLocalDirs = "SPARK_LOCAL_DIRS"

	EnvSparkMasterHost = "SPARK_MASTER_HOST"

	EnvSparkMasterPort = "SPARK_MASTER_PORT"

	EnvSparkMasterWebUIPort = "SPARK_MASTER_WEBUI_PORT"

	EnvSparkWorkerCores = "SPARK_WORKER_CORES"

	EnvSparkWorkerMemory = "SPARK_WORKER_MEMORY"

	EnvSparkWorkerWebUIPort = "SPARK_WORKER_WEBUI_PORT"

	// EnvSparkNoDaemonize keeps the launch scripts in the foreground, which
	// is what a worker started under srun needs.
	EnvSparkNoDaemonize = "SPARK_NO_DAEMONIZE"
)

// Spark properties.
const (
	SparkMaster = "spark.master"

	SparkAuthenticate = "spark.authenticate"

	SparkAuthenticateSecret = "spark.authenticate.secret"

	SparkLocalDir = "spark.local.dir"

	SparkDriverMemory = "spark.driver.memory"

	SparkExecutorCores = "spark.executor.cores"

	SparkExecutorMemory = "spark.executor.memory"

	SparkUIReverseProxy = "spark.ui.reverseProxy"
)

// Spark standalone launch scripts under $SPARK_HOME/sbin. The worker scripts
// were renamed in Spark 3.1; the slave variants are kept for older installs.
const (
	ScriptStartMaster = "start-master.sh"

	ScriptStopMaster = "stop-master.sh"

	ScriptStartWorker = "start-worker.sh"

	ScriptStopWorker = "stop-worker.sh"

	ScriptStartSlave = "start-slave.sh"

	ScriptStopSlave = "stop-slave.sh"
)

// Default ports of a Spark standalone cluster.
const (
	DefaultMasterPort = 7077

	DefaultMasterWebUIPort = 8080

	DefaultWorkerWebUIPort = 8081
)

// Names of the artifacts sparkboot generates into the per-job scratch area.
const (
	SparkDefaultsFileName = "spark-defaults.conf"

	SparkEnvFileName = "spark-env.sh"

	WorkerScriptFileName = "sparkboot-worker.sh"

	MasterInfoFileName = "master"

	WorkerPidFileName = "workers.pid"

	MetricsFileName = "sparkboot.prom"
)
