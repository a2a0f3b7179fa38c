// Command monctl is the CLI front end for the version-aware configuration
// clone engine (spec.md §6): it parses flags/environment/config-file
// input, wires a Monitor client and a pluggable Store, and drives
// internal/orchestrator's worker or master state machine.
//
// Everything in this package is boundary glue per spec.md §1 ("argument
// and environment parsing... config-file loading... treated as external
// collaborators"); the replication logic itself lives entirely under
// internal/.
package main

import (
	"os"

	// Blank-imported so each backend's init() registers itself with
	// internal/store's tag registry (spec.md §4.3 "extensible").
	_ "github.com/monctl/monctl/internal/store/direct"
	_ "github.com/monctl/monctl/internal/store/filestore"
	_ "github.com/monctl/monctl/internal/store/kvmemory"
	_ "github.com/monctl/monctl/internal/store/kvtable"
)

func main() {
	os.Exit(Execute())
}
