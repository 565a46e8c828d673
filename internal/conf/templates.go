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

package conf

import (
	"fmt"
	"strings"

	"github.com/sparkhpc/sparkboot/pkg/common"
)

// The templates below render the three artifacts Spark's own daemons
// consume. Fields come from templateData in conf.go; property keys and
// environment variable names come from pkg/common so the generated files
// and the launch code cannot drift apart.

func propertyLine(key, value string) string {
	return fmt.Sprintf("%-32s %s", key, value)
}

func exportLine(name, value string) string {
	return "export " + name + "=" + value
}

var sparkDefaultsTemplate = strings.Join([]string{
	"# Generated by sparkboot for Slurm job {{.JobID}}. Do not edit.",
	propertyLine(common.SparkMaster, "{{.MasterURL}}"),
	propertyLine(common.SparkAuthenticate, "true"),
	propertyLine(common.SparkAuthenticateSecret, "{{.Secret}}"),
	propertyLine(common.SparkLocalDir, "{{.WorkDir}}"),
	propertyLine(common.SparkExecutorCores, "{{.WorkerCores}}"),
	propertyLine(common.SparkExecutorMemory, "{{.WorkerMemory}}"),
	propertyLine(common.SparkDriverMemory, "{{.DriverMemory}}"),
	propertyLine(common.SparkUIReverseProxy, "true"),
	"",
}, "\n")

var sparkEnvTemplate = strings.Join([]string{
	"#!/usr/bin/env bash",
	"# Generated by sparkboot for Slurm job {{.JobID}}. Do not edit.",
	exportLine(common.EnvSparkMasterHost, "{{.MasterHost}}"),
	exportLine(common.EnvSparkMasterPort, "{{.MasterPort}}"),
	exportLine(common.EnvSparkMasterWebUIPort, "{{.MasterWebUIPort}}"),
	exportLine(common.EnvSparkWorkerCores, "{{.WorkerCores}}"),
	exportLine(common.EnvSparkWorkerMemory, "{{.WorkerMemory}}"),
	exportLine(common.EnvSparkWorkerWebUIPort, "{{.WorkerWebUIPort}}"),
	exportLine(common.EnvSparkWorkerDir, "{{.WorkDir}}"),
	exportLine(common.EnvSparkLocalDirs, "{{.WorkDir}}"),
	exportLine(common.EnvSparkLogDir, "{{.LogDir}}"),
	exportLine(common.EnvSparkPidDir, "{{.RunDir}}"),
	"",
}, "\n")

var workerScriptTemplate = strings.Join([]string{
	"#!/usr/bin/env bash",
	"# Generated by sparkboot for Slurm job {{.JobID}}. Started once per node by srun.",
	"set -euo pipefail",
	"",
	exportLine(common.EnvSparkConfDir, "{{.ConfDir}}"),
	`source "{{.ConfDir}}/` + common.SparkEnvFileName + `"`,
	"",
	`mkdir -p "{{.WorkDir}}" "{{.LogDir}}" "{{.RunDir}}"`,
	"",
	"# Stay in the foreground so srun owns the worker lifetime.",
	exportLine(common.EnvSparkNoDaemonize, "1"),
	`exec "{{.SparkHome}}/sbin/{{.StartWorkerScript}}" "{{.MasterURL}}"`,
	"",
}, "\n")
