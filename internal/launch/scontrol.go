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
	"fmt"
	"strings"

	"github.com/sparkhpc/sparkboot/internal/allocation"
	"github.com/sparkhpc/sparkboot/pkg/common"
)

// ScontrolExpander expands nodelists by asking scontrol, covering the
// expressions allocation.NativeExpander rejects. It tries the native
// expansion first to avoid the subprocess in the common case.
type ScontrolExpander struct {
	Runner Runner
}

var _ allocation.Expander = ScontrolExpander{}

func (e ScontrolExpander) Expand(nodelist string) ([]string, error) {
	if hosts, err := (allocation.NativeExpander{}).Expand(nodelist); err == nil {
		return hosts, nil
	}

	output, err := e.Runner.Run(context.Background(), Command{
		Name: common.BinScontrol,
		Args: []string{"show", "hostnames", nodelist},
	})
	if err != nil {
		return nil, fmt.Errorf("scontrol show hostnames %q: %w", nodelist, err)
	}

	var hosts []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			hosts = append(hosts, line)
		}
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("scontrol returned no hostnames for %q", nodelist)
	}
	return hosts, nil
}
