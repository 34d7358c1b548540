// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

package plugin_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func TestDriverSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Plugin Driver Suite")
}
