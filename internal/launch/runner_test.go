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

package launch

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSurvivesContextCancel(t *testing.T) {
	runner := NewExecRunner(logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	proc, err := runner.Start(ctx, Command{Name: "sleep", Args: []string{"0.2"}})
	require.NoError(t, err)
	assert.Positive(t, proc.Pid())

	// The worker fan-out must keep running after the bootstrap returns
	// and its context is cancelled.
	cancel()
	assert.NoError(t, proc.Wait())
}

func TestStartCancelledContext(t *testing.T) {
	runner := NewExecRunner(logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.Start(ctx, Command{Name: "sleep", Args: []string{"0.2"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReturnsCombinedOutputOnFailure(t *testing.T) {
	runner := NewExecRunner(logr.Discard())

	_, err := runner.Run(context.Background(), Command{Name: "false"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false")
}
