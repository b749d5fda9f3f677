// chainboard: read-only operator console for the agentic governance
// board. Observation is free; the one mutation, the execution kill
// switch, sits behind a dwell timer and a confirming press.
package main

import "github.com/ppiankov/chainboard/internal/cli"

func main() {
	cli.Execute()
}
