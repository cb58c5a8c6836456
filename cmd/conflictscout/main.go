// Command conflictscout finds potential higher-order merge conflicts
// across a set of branches by building a lexical call graph over the
// mainline's C/C++ sources and locating the earliest common caller of
// units changed on different branches.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/arl/conflictscout/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("conflictscout failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
