// pcrelease builds, boot-verifies and packages PyCoreOS release bundles.
package main

import (
	"github.com/pycoreos/pcforge/src/pcrelease/internal/cmd"
)

func main() {
	cmd.Execute()
}
