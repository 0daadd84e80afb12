package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinkerhq/tinker/llm"
)

func newModelsCmd() *cobra.Command {
	var providerFilter string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known providers and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)

			fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tTOOLS\tKEY")
			for _, p := range llm.ListProviders() {
				if providerFilter != "" && p.ID != providerFilter {
					continue
				}
				key := p.APIKeyEnv
				if key == "" {
					key = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", p.ID, p.DefaultModel, p.SupportsTools, key)
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, "MODEL\tPROVIDER\tCONTEXT")
			for _, m := range llm.ListModels(providerFilter) {
				fmt.Fprintf(w, "%s\t%s\t%d\n", m.ID, m.Provider, m.ContextWindow)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&providerFilter, "provider", "p", "", "only show one provider")
	return cmd
}
