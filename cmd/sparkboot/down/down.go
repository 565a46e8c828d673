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

package down

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparkhpc/sparkboot/internal/allocation"
	"github.com/sparkhpc/sparkboot/internal/launch"
	"github.com/sparkhpc/sparkboot/internal/logging"
	"github.com/sparkhpc/sparkboot/internal/plan"
)

var (
	scratchRoot   string
	sparkHome     string
	masterPort    int
	removeScratch bool

	development bool
)

func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "down",
		Short: "Stop the bootstrapped Spark cluster and clean up",
		PreRun: func(_ *cobra.Command, args []string) {
			development = viper.GetBool("development")
		},
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.NewLogger(development).WithName("down")
			if err := run(logger); err != nil {
				logger.Error(err, "Cluster teardown failed")
				os.Exit(1)
			}
		},
	}

	command.Flags().StringVar(&scratchRoot, "scratch-root", "", "Directory the per-job scratch area was created under. Must match the value given to up.")
	command.Flags().StringVar(&sparkHome, "spark-home", "", "Spark installation directory. Defaults to $SPARK_HOME.")
	command.Flags().IntVar(&masterPort, "master-port", 0, "Port the Spark master listens on. Must match the value given to up.")
	command.Flags().BoolVar(&removeScratch, "remove-scratch", false, "Remove the per-job scratch area after stopping the daemons.")

	return command
}

func run(logger logr.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := launch.NewExecRunner(logger)

	alloc, err := allocation.Resolve(allocation.Options{
		Expander: launch.ScontrolExpander{Runner: runner},
		// Teardown never sizes workers; any memory grant will do.
		FallbackMemMiB: plan.DefaultMinWorkerMemoryMiB + plan.DefaultDaemonOverheadMiB,
	})
	if err != nil {
		return err
	}

	p, err := plan.Compute(alloc, plan.Options{
		ScratchRoot: scratchRoot,
		SparkHome:   sparkHome,
		MasterPort:  masterPort,
	})
	if err != nil {
		return err
	}

	b := launch.New(runner, logger)
	if err := b.Teardown(ctx, p, removeScratch); err != nil {
		return err
	}
	logger.Info("cluster is down", "job", p.JobID)
	return nil
}
