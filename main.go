// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/nak-tools/addonpack/cmd/addonpack"

func main() {
	cmd.Execute()
}
