package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thiagokokada/gitbind/internal/buildinfo"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(a.stdout, "gitbind %s\n", buildinfo.Read())
			return err
		},
	}
}
