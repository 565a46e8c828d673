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

// Package conf generates the cluster configuration consumed by Spark's own
// daemons: spark-defaults.conf, spark-env.sh, and the per-node worker launch
// script. The generated files embed a fresh shared authentication secret and
// must exist with restrictive permissions before any daemon starts.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/sparkhpc/sparkboot/internal/plan"
	"github.com/sparkhpc/sparkboot/pkg/common"
	"github.com/sparkhpc/sparkboot/pkg/util"
)

// secretBytes sizes the shared authentication secret (256 bits).
const secretBytes = 32

// Files records what Generate wrote. Paths are inside the plan's conf
// directory and are the ones distributed to the other nodes.
type Files struct {
	Defaults     string
	Env          string
	WorkerScript string
}

// All returns every generated path, in distribution order.
func (f Files) All() []string {
	return []string{f.Defaults, f.Env, f.WorkerScript}
}

type templateData struct {
	JobID             string
	MasterURL         string
	MasterHost        string
	MasterPort        int
	MasterWebUIPort   int
	WorkerWebUIPort   int
	WorkerCores       int
	WorkerMemory      string
	DriverMemory      string
	Secret            string
	ConfDir           string
	WorkDir           string
	LogDir            string
	RunDir            string
	SparkHome         string
	StartWorkerScript string
}

var (
	defaultsTmpl = template.Must(template.New(common.SparkDefaultsFileName).Parse(sparkDefaultsTemplate))
	envTmpl      = template.Must(template.New(common.SparkEnvFileName).Parse(sparkEnvTemplate))
	workerTmpl   = template.Must(template.New(common.WorkerScriptFileName).Parse(workerScriptTemplate))
)

// Generate renders the configuration for the given plan into its conf
// directory, which must already exist. The properties and env files carry
// the authentication secret and are written 0600; the worker script is 0700.
func Generate(p *plan.Plan) (Files, error) {
	secret, err := util.RandomHex(secretBytes)
	if err != nil {
		return Files{}, fmt.Errorf("generating cluster secret: %w", err)
	}

	data := templateData{
		JobID:             p.JobID,
		MasterURL:         p.MasterURL(),
		MasterHost:        p.MasterHost,
		MasterPort:        p.MasterPort,
		MasterWebUIPort:   p.MasterWebUIPort,
		WorkerWebUIPort:   p.WorkerWebUIPort,
		WorkerCores:       p.WorkerCores,
		WorkerMemory:      p.WorkerMemory(),
		DriverMemory:      p.DriverMemory(),
		Secret:            secret,
		ConfDir:           p.ConfDir,
		WorkDir:           p.WorkDir,
		LogDir:            p.LogDir,
		RunDir:            p.RunDir,
		SparkHome:         p.SparkHome,
		StartWorkerScript: p.StartWorkerScript(),
	}

	files := Files{
		Defaults:     filepath.Join(p.ConfDir, common.SparkDefaultsFileName),
		Env:          filepath.Join(p.ConfDir, common.SparkEnvFileName),
		WorkerScript: filepath.Join(p.ConfDir, common.WorkerScriptFileName),
	}

	if err := render(defaultsTmpl, files.Defaults, data, 0o600); err != nil {
		return Files{}, err
	}
	if err := render(envTmpl, files.Env, data, 0o600); err != nil {
		return Files{}, err
	}
	if err := render(workerTmpl, files.WorkerScript, data, 0o700); err != nil {
		return Files{}, err
	}
	return files, nil
}

func render(tmpl *template.Template, path string, data templateData, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// O_CREATE does not tighten the mode of a pre-existing file.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return nil
}
