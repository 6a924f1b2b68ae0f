package main

import (
	"fmt"
	"strings"

	"storyboard/internal/template"

	"github.com/spf13/cobra"
)

var (
	templatesDir  string
	templatesVars []string
)

// templatesCmd lists the template corpus.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List prompt templates and their placeholders",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := template.LoadCorpus(templatesDir)
		if err != nil {
			return fmt.Errorf("failed to load template corpus: %w", err)
		}
		for _, id := range store.IDs() {
			tmpl, err := store.Get(id)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", id)
			for _, name := range tmpl.Placeholders() {
				if def, ok := tmpl.Defaults[name]; ok {
					fmt.Printf("  {{%s}} (default: %q)\n", name, def)
				} else {
					fmt.Printf("  {{%s}} (required)\n", name)
				}
			}
		}
		return nil
	},
}

// templatesResolveCmd resolves a single template from the command line.
var templatesResolveCmd = &cobra.Command{
	Use:   "resolve [template-id]",
	Short: "Resolve a template with --var name=value overrides",
	Long: `Resolves one template and prints the result.

Example:
  storyboard templates resolve scenery --var panels_per_scene=6`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := template.LoadCorpus(templatesDir)
		if err != nil {
			return fmt.Errorf("failed to load template corpus: %w", err)
		}

		overrides := make(map[string]string)
		for _, v := range templatesVars {
			name, value, ok := strings.Cut(v, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid --var %q, expected name=value", v)
			}
			overrides[name] = value
		}

		resolved, err := store.Resolve(args[0], overrides)
		if err != nil {
			return err
		}
		fmt.Println(resolved)
		return nil
	},
}

func init() {
	templatesCmd.PersistentFlags().StringVar(&templatesDir, "dir", "", "Directory of template overrides (*.yaml)")
	templatesResolveCmd.Flags().StringArrayVar(&templatesVars, "var", nil, "Placeholder override, name=value (repeatable)")
	templatesCmd.AddCommand(templatesResolveCmd)
}
