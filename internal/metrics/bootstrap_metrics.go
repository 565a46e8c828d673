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

// Package metrics records bootstrap outcomes in Prometheus format. A
// one-shot CLI has nothing to scrape, so the registry is flushed to a
// textfile-collector file in the scratch area, where a node exporter can
// pick it up.
package metrics

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/sparkhpc/sparkboot/pkg/common"
	"github.com/sparkhpc/sparkboot/pkg/util"
)

var bootstrapLabels = []string{"job_id", "bootstrap_id"}

type BootstrapMetrics struct {
	prefix   string
	registry *prometheus.Registry

	durationSeconds   *prometheus.GaugeVec
	success           *prometheus.GaugeVec
	workerNodeCount   *prometheus.GaugeVec
	workerCores       *prometheus.GaugeVec
	workerMemoryMiB   *prometheus.GaugeVec
	masterWaitSeconds *prometheus.GaugeVec
}

func NewBootstrapMetrics(prefix string) *BootstrapMetrics {
	m := &BootstrapMetrics{
		prefix:   prefix,
		registry: prometheus.NewRegistry(),

		durationSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricBootstrapDurationSeconds),
				Help: "Wall-clock duration of the cluster bootstrap",
			},
			bootstrapLabels,
		),
		success: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricBootstrapSuccess),
				Help: "Whether the cluster bootstrap succeeded (1) or failed (0)",
			},
			bootstrapLabels,
		),
		workerNodeCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricWorkerNodeCount),
				Help: "Number of worker nodes in the bootstrapped cluster",
			},
			bootstrapLabels,
		),
		workerCores: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricWorkerCores),
				Help: "Cores advertised by each Spark worker",
			},
			bootstrapLabels,
		),
		workerMemoryMiB: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricWorkerMemoryMebibytes),
				Help: "Memory advertised by each Spark worker, in MiB",
			},
			bootstrapLabels,
		),
		masterWaitSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: util.CreateValidMetricNameLabel(prefix, common.MetricMasterWaitSeconds),
				Help: "Time spent waiting for the master to accept connections",
			},
			bootstrapLabels,
		),
	}
	m.register()
	return m
}

func (m *BootstrapMetrics) register() {
	m.registry.MustRegister(
		m.durationSeconds,
		m.success,
		m.workerNodeCount,
		m.workerCores,
		m.workerMemoryMiB,
		m.masterWaitSeconds,
	)
}

// Record captures one bootstrap outcome.
func (m *BootstrapMetrics) Record(jobID, bootstrapID string, nodes, cores int, memoryMiB int64, durationSeconds, masterWaitSeconds float64, succeeded bool) {
	labels := prometheus.Labels{"job_id": jobID, "bootstrap_id": bootstrapID}

	m.durationSeconds.With(labels).Set(durationSeconds)
	m.workerNodeCount.With(labels).Set(float64(nodes))
	m.workerCores.With(labels).Set(float64(cores))
	m.workerMemoryMiB.With(labels).Set(float64(memoryMiB))
	m.masterWaitSeconds.With(labels).Set(masterWaitSeconds)
	if succeeded {
		m.success.With(labels).Set(1)
	} else {
		m.success.With(labels).Set(0)
	}
}

// WriteTextfile flushes the registry to path in the node-exporter
// textfile-collector format.
func (m *BootstrapMetrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(f, family); err != nil {
			f.Close()
			return fmt.Errorf("writing metrics file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
