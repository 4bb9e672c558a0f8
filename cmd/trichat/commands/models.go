package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/trichat"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "Print the model registry and the endpoint serving each model",
		RunE: func(cmd *cobra.Command, args []string) error {
			relay, err := trichat.New(cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tMODEL\tPROVIDER\tENDPOINT")
			for _, s := range relay.Registry().Specs() {
				info, _ := relay.ModelInfo(s.Provider)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Key, s.ID, info.Provider, info.BaseURL)
			}
			return tw.Flush()
		},
	}
}
