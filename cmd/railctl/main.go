// railctl is the operator command line of the rail cutting planner.
package main

import (
	"os"

	"github.com/tiagodcc/ikts/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
