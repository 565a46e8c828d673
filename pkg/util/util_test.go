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

package util_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sparkhpc/sparkboot/pkg/util"
)

var _ = Describe("ContainsString", func() {
	slice := []string{"a", "b", "c"}

	Context("When the string is in the slice", func() {
		It("Should return true", func() {
			Expect(util.ContainsString(slice, "b")).To(BeTrue())
		})
	})

	Context("When the string is not in the slice", func() {
		It("Should return false", func() {
			Expect(util.ContainsString(slice, "d")).To(BeFalse())
		})
	})
})

var _ = Describe("FileExists", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Context("When the path is a regular file", func() {
		It("Should return true", func() {
			path := filepath.Join(dir, "f")
			Expect(os.WriteFile(path, []byte("x"), 0o600)).To(Succeed())
			Expect(util.FileExists(path)).To(BeTrue())
		})
	})

	Context("When the path is a directory", func() {
		It("Should return false", func() {
			Expect(util.FileExists(dir)).To(BeFalse())
		})
	})

	Context("When the path does not exist", func() {
		It("Should return false", func() {
			Expect(util.FileExists(filepath.Join(dir, "missing"))).To(BeFalse())
		})
	})
})

var _ = Describe("DirExists", func() {
	It("Should distinguish directories from files", func() {
		dir := GinkgoT().TempDir()
		Expect(util.DirExists(dir)).To(BeTrue())

		path := filepath.Join(dir, "f")
		Expect(os.WriteFile(path, []byte("x"), 0o600)).To(Succeed())
		Expect(util.DirExists(path)).To(BeFalse())
	})
})

var _ = Describe("JoinHostPort", func() {
	Context("IPv4 host", func() {
		It("Should join with a colon", func() {
			Expect(util.JoinHostPort("10.0.0.1", 7077)).To(Equal("10.0.0.1:7077"))
		})
	})

	Context("IPv6 host", func() {
		It("Should bracket the host", func() {
			Expect(util.JoinHostPort("::1", 7077)).To(Equal("[::1]:7077"))
		})
	})
})

var _ = Describe("RandomHex", func() {
	It("Should return 2n hex characters", func() {
		s, err := util.RandomHex(32)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(HaveLen(64))
		Expect(s).To(MatchRegexp("^[0-9a-f]+$"))
	})

	It("Should not repeat", func() {
		a, err := util.RandomHex(16)
		Expect(err).NotTo(HaveOccurred())
		b, err := util.RandomHex(16)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).NotTo(Equal(b))
	})
})

var _ = Describe("CreateValidMetricNameLabel", func() {
	It("Should replace dashes", func() {
		Expect(util.CreateValidMetricNameLabel("sparkboot_", "worker-node-count")).To(Equal("sparkboot_worker_node_count"))
	})
})
