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

package allocation

import (
	"fmt"
	"strconv"
	"strings"
)

// Expander turns a compact Slurm nodelist expression into individual
// hostnames. The native implementation below handles the common single-level
// bracket syntax; callers that may see anything fancier can wrap
// `scontrol show hostnames` instead.
type Expander interface {
	Expand(nodelist string) ([]string, error)
}

// NativeExpander expands nodelist expressions such as
// "node[01-03,07],login1" without shelling out to scontrol.
type NativeExpander struct{}

func (NativeExpander) Expand(nodelist string) ([]string, error) {
	nodelist = strings.TrimSpace(nodelist)
	if nodelist == "" {
		return nil, fmt.Errorf("empty nodelist")
	}

	var hosts []string
	for _, group := range splitGroups(nodelist) {
		expanded, err := expandGroup(group)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	return hosts, nil
}

// splitGroups splits on commas that are not inside brackets.
func splitGroups(nodelist string) []string {
	var groups []string
	depth := 0
	start := 0
	for i, r := range nodelist {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				groups = append(groups, nodelist[start:i])
				start = i + 1
			}
		}
	}
	groups = append(groups, nodelist[start:])
	return groups
}

func expandGroup(group string) ([]string, error) {
	open := strings.IndexByte(group, '[')
	if open < 0 {
		if strings.ContainsAny(group, "]") {
			return nil, fmt.Errorf("malformed nodelist group %q", group)
		}
		if group == "" {
			return nil, fmt.Errorf("empty nodelist group")
		}
		return []string{group}, nil
	}

	closing := strings.IndexByte(group, ']')
	if closing < open {
		return nil, fmt.Errorf("malformed nodelist group %q", group)
	}
	prefix := group[:open]
	suffix := group[closing+1:]
	if strings.ContainsAny(suffix, "[]") {
		// Nested or repeated bracket expressions; let scontrol handle it.
		return nil, fmt.Errorf("unsupported nodelist group %q", group)
	}

	var hosts []string
	for _, r := range strings.Split(group[open+1:closing], ",") {
		expanded, err := expandRange(prefix, r, suffix)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	return hosts, nil
}

// expandRange expands a single bracket element, either "07" or "01-03",
// preserving zero padding.
func expandRange(prefix, element, suffix string) ([]string, error) {
	element = strings.TrimSpace(element)
	if element == "" {
		return nil, fmt.Errorf("empty range in nodelist")
	}

	lo, hi, ok := strings.Cut(element, "-")
	if !ok {
		if _, err := strconv.Atoi(lo); err != nil {
			return nil, fmt.Errorf("non-numeric nodelist element %q", element)
		}
		return []string{prefix + lo + suffix}, nil
	}

	loN, err := strconv.Atoi(lo)
	if err != nil {
		return nil, fmt.Errorf("bad range start %q: %w", lo, err)
	}
	hiN, err := strconv.Atoi(hi)
	if err != nil {
		return nil, fmt.Errorf("bad range end %q: %w", hi, err)
	}
	if hiN < loN {
		return nil, fmt.Errorf("inverted range %q", element)
	}

	width := 0
	if len(lo) > 1 && lo[0] == '0' {
		width = len(lo)
	}

	hosts := make([]string, 0, hiN-loN+1)
	for n := loN; n <= hiN; n++ {
		num := strconv.Itoa(n)
		if width > 0 && len(num) < width {
			num = strings.Repeat("0", width-len(num)) + num
		}
		hosts = append(hosts, prefix+num+suffix)
	}
	return hosts, nil
}
