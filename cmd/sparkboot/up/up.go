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

package up

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparkhpc/sparkboot/internal/allocation"
	"github.com/sparkhpc/sparkboot/internal/conf"
	"github.com/sparkhpc/sparkboot/internal/launch"
	"github.com/sparkhpc/sparkboot/internal/logging"
	"github.com/sparkhpc/sparkboot/internal/metrics"
	"github.com/sparkhpc/sparkboot/internal/plan"
	"github.com/sparkhpc/sparkboot/pkg/common"
)

var (
	scratchRoot string
	sparkHome   string

	masterPort      int
	masterWebUIPort int
	workerWebUIPort int

	workerCores        int
	daemonOverheadMiB  int64
	minWorkerMemoryMiB int64
	driverMemoryMiB    int64
	fallbackMemMiB     int64

	masterTimeout time.Duration
	wait          bool

	enableMetrics bool
	metricsPrefix string

	development bool
)

func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap the Spark cluster on the current Slurm allocation",
		PreRun: func(_ *cobra.Command, args []string) {
			development = viper.GetBool("development")
		},
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.NewLogger(development).WithName("up")
			if err := run(logger); err != nil {
				logger.Error(err, "Cluster bootstrap failed")
				os.Exit(1)
			}
		},
	}

	command.Flags().StringVar(&scratchRoot, "scratch-root", "", "Directory the per-job scratch area is created under. Defaults to the Slurm submit directory.")
	command.Flags().StringVar(&sparkHome, "spark-home", "", "Spark installation directory. Defaults to $SPARK_HOME.")

	command.Flags().IntVar(&masterPort, "master-port", common.DefaultMasterPort, "Port the Spark master listens on.")
	command.Flags().IntVar(&masterWebUIPort, "master-webui-port", common.DefaultMasterWebUIPort, "Port of the master web UI.")
	command.Flags().IntVar(&workerWebUIPort, "worker-webui-port", common.DefaultWorkerWebUIPort, "Port of the worker web UI.")

	command.Flags().IntVar(&workerCores, "worker-cores", 0, "Cores each worker advertises. 0 uses all allocated CPUs.")
	command.Flags().Int64Var(&daemonOverheadMiB, "daemon-overhead-mib", plan.DefaultDaemonOverheadMiB, "Memory reserved per node for the Spark daemons and OS, in MiB.")
	command.Flags().Int64Var(&minWorkerMemoryMiB, "min-worker-memory-mib", plan.DefaultMinWorkerMemoryMiB, "Floor for worker memory after overhead subtraction, in MiB.")
	command.Flags().Int64Var(&driverMemoryMiB, "driver-memory-mib", plan.DefaultDriverMemoryMiB, "Memory for spark.driver.memory, in MiB.")
	command.Flags().Int64Var(&fallbackMemMiB, "fallback-memory-mib", 0, "Per-node memory assumed when Slurm exports no memory grant, in MiB.")

	command.Flags().DurationVar(&masterTimeout, "master-timeout", 60*time.Second, "How long to wait for the master to accept connections.")
	command.Flags().BoolVar(&wait, "wait", false, "Block until the worker fan-out exits instead of returning after the bootstrap.")

	command.Flags().BoolVar(&enableMetrics, "enable-metrics", true, "Write bootstrap metrics to the scratch area in textfile-collector format.")
	command.Flags().StringVar(&metricsPrefix, "metrics-prefix", "sparkboot_", "Prefix for the metrics.")

	return command
}

func run(logger logr.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	runner := launch.NewExecRunner(logger)

	alloc, err := allocation.Resolve(allocation.Options{
		Expander:       launch.ScontrolExpander{Runner: runner},
		FallbackMemMiB: fallbackMemMiB,
	})
	if err != nil {
		return err
	}
	logger.Info("resolved allocation", "job", alloc.JobID, "nodes", len(alloc.Nodes), "cpusPerNode", alloc.CPUsPerNode, "memPerNodeMiB", alloc.MemPerNodeMiB)

	p, err := plan.Compute(alloc, plan.Options{
		ScratchRoot:        scratchRoot,
		SparkHome:          sparkHome,
		MasterPort:         masterPort,
		MasterWebUIPort:    masterWebUIPort,
		WorkerWebUIPort:    workerWebUIPort,
		WorkerCores:        workerCores,
		DaemonOverheadMiB:  daemonOverheadMiB,
		MinWorkerMemoryMiB: minWorkerMemoryMiB,
		DriverMemoryMiB:    driverMemoryMiB,
	})
	if err != nil {
		return err
	}
	logger.Info("computed launch plan", "master", p.MasterURL(), "workerCores", p.WorkerCores, "workerMemory", p.WorkerMemory(), "scratch", p.ScratchDir)

	succeeded := false
	var masterWait time.Duration
	defer func() {
		if !enableMetrics {
			return
		}
		m := metrics.NewBootstrapMetrics(metricsPrefix)
		m.Record(p.JobID, p.ID, len(p.Nodes), p.WorkerCores, p.WorkerMemoryMiB,
			time.Since(started).Seconds(), masterWait.Seconds(), succeeded)
		path := filepath.Join(p.ScratchDir, common.MetricsFileName)
		if err := m.WriteTextfile(path); err != nil {
			logger.Error(err, "Failed to write bootstrap metrics", "path", path)
		}
	}()

	b := launch.New(runner, logger)

	if err := b.CheckPreconditions(p); err != nil {
		return err
	}
	if err := b.ProvisionDirs(p); err != nil {
		return err
	}

	files, err := conf.Generate(p)
	if err != nil {
		return err
	}
	logger.Info("generated cluster configuration", "confDir", p.ConfDir)

	if len(p.Nodes) > 1 {
		if err := b.Distribute(ctx, p, files.All()); err != nil {
			return err
		}
	}

	masterStarted := time.Now()
	if err := b.StartMaster(ctx, p, masterTimeout); err != nil {
		return err
	}
	masterWait = time.Since(masterStarted)

	infoPath, err := b.WriteMasterInfo(p)
	if err != nil {
		return err
	}
	logger.Info("recorded master address", "path", infoPath)

	proc, err := b.LaunchWorkers(ctx, p, files.WorkerScript)
	if err != nil {
		return err
	}

	succeeded = true
	logger.Info("cluster is up", "master", p.MasterURL(), "workers", len(p.Nodes))

	if wait {
		if err := proc.Wait(); err != nil {
			logger.Info("worker fan-out exited", "reason", err.Error())
		}
	}
	return nil
}
