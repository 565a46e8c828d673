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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparkhpc/sparkboot/internal/allocation"
	"github.com/sparkhpc/sparkboot/internal/launch"
	"github.com/sparkhpc/sparkboot/internal/logging"
	bootplan "github.com/sparkhpc/sparkboot/internal/plan"
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

	output string

	development bool
)

func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved allocation and launch plan without starting anything",
		PreRun: func(_ *cobra.Command, args []string) {
			development = viper.GetBool("development")
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return run()
		},
	}

	command.Flags().StringVar(&scratchRoot, "scratch-root", "", "Directory the per-job scratch area would be created under.")
	command.Flags().StringVar(&sparkHome, "spark-home", "", "Spark installation directory. Defaults to $SPARK_HOME.")

	command.Flags().IntVar(&masterPort, "master-port", common.DefaultMasterPort, "Port the Spark master listens on.")
	command.Flags().IntVar(&masterWebUIPort, "master-webui-port", common.DefaultMasterWebUIPort, "Port of the master web UI.")
	command.Flags().IntVar(&workerWebUIPort, "worker-webui-port", common.DefaultWorkerWebUIPort, "Port of the worker web UI.")

	command.Flags().IntVar(&workerCores, "worker-cores", 0, "Cores each worker advertises. 0 uses all allocated CPUs.")
	command.Flags().Int64Var(&daemonOverheadMiB, "daemon-overhead-mib", bootplan.DefaultDaemonOverheadMiB, "Memory reserved per node for the Spark daemons and OS, in MiB.")
	command.Flags().Int64Var(&minWorkerMemoryMiB, "min-worker-memory-mib", bootplan.DefaultMinWorkerMemoryMiB, "Floor for worker memory after overhead subtraction, in MiB.")
	command.Flags().Int64Var(&driverMemoryMiB, "driver-memory-mib", bootplan.DefaultDriverMemoryMiB, "Memory for spark.driver.memory, in MiB.")
	command.Flags().Int64Var(&fallbackMemMiB, "fallback-memory-mib", 0, "Per-node memory assumed when Slurm exports no memory grant, in MiB.")

	command.Flags().StringVarP(&output, "output", "o", "text", "Output format. One of: text, json.")

	return command
}

func run() error {
	logger := logging.NewLogger(development).WithName("plan")
	runner := launch.NewExecRunner(logger)

	alloc, err := allocation.Resolve(allocation.Options{
		Expander:       launch.ScontrolExpander{Runner: runner},
		FallbackMemMiB: fallbackMemMiB,
	})
	if err != nil {
		return err
	}

	p, err := bootplan.Compute(alloc, bootplan.Options{
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

	switch output {
	case "json":
		return printJSON(p)
	case "text":
		printText(p)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func printJSON(p *bootplan.Plan) error {
	type view struct {
		*bootplan.Plan
		MasterURL    string `json:"MasterURL"`
		WorkerMemory string `json:"WorkerMemory"`
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view{Plan: p, MasterURL: p.MasterURL(), WorkerMemory: p.WorkerMemory()})
}

func printText(p *bootplan.Plan) {
	fmt.Printf("Job ID:            %s\n", p.JobID)
	fmt.Printf("Bootstrap ID:      %s\n", p.ID)
	fmt.Printf("Nodes:             %d\n", len(p.Nodes))
	for _, node := range p.Nodes {
		fmt.Printf("  - %s\n", node)
	}
	fmt.Printf("Master URL:        %s\n", p.MasterURL())
	fmt.Printf("Master web UI:     http://%s:%d\n", p.MasterHost, p.MasterWebUIPort)
	fmt.Printf("Worker cores:      %d\n", p.WorkerCores)
	fmt.Printf("Worker memory:     %s\n", p.WorkerMemory())
	fmt.Printf("Driver memory:     %s\n", p.DriverMemory())
	fmt.Printf("Spark home:        %s\n", p.SparkHome)
	if p.SparkVersion != "" {
		fmt.Printf("Spark version:     %s\n", p.SparkVersion)
	}
	fmt.Printf("Scratch dir:       %s\n", p.ScratchDir)
	fmt.Printf("Worker script:     %s\n", p.StartWorkerScript())
}
