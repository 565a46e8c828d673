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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparkhpc/sparkboot/cmd/sparkboot/down"
	"github.com/sparkhpc/sparkboot/cmd/sparkboot/plan"
	"github.com/sparkhpc/sparkboot/cmd/sparkboot/up"
	"github.com/sparkhpc/sparkboot/cmd/sparkboot/version"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sparkboot",
		Short: "sparkboot bootstraps a temporary Spark standalone cluster inside a Slurm allocation",
		Long: `sparkboot bootstraps a temporary Apache Spark standalone cluster on the nodes of a
Slurm batch allocation. It provisions per-job scratch directories, generates the cluster
configuration with a shared authentication secret, distributes it to all allocated nodes,
starts the Spark master, and fans worker daemons out with srun.`,
	}

	cmd.PersistentFlags().Bool("development", false, "Enable development logging (console output, debug level)")
	viper.BindPFlag("development", cmd.PersistentFlags().Lookup("development"))

	viper.SetEnvPrefix("SPARKBOOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cmd.AddCommand(up.NewCommand())
	cmd.AddCommand(down.NewCommand())
	cmd.AddCommand(plan.NewCommand())
	cmd.AddCommand(version.NewCommand())

	return cmd
}

func main() {
	if err := NewCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
