package main

import (
    "log"

    "github.com/spf13/cobra"

    convergecli "github.com/amirimatin/go-converge/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "convergectl",
        Short:         "go-converge cluster verification CLI",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    // Attach all verification commands from pkg/cli for reuse in test drivers
    convergecli.AddAll(root)
    return root
}
