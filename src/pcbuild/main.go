// pcbuild compiles, links, packages and boot-tests the PyCoreOS kernel image.
package main

import (
	"github.com/pycoreos/pcforge/src/pcbuild/internal/cmd"
)

func main() {
	cmd.Execute()
}
