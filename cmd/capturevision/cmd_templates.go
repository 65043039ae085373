package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"capturevision/internal/format"
	"capturevision/internal/template"
)

var templatesFlags struct {
	file   string
	format string
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Validate and inspect capture template documents",
}

var templatesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a template document",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesValidate,
}

var templatesListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List the pipelines of a template document (default: the configured one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <pipeline>",
	Short: "Show the resolved execution graph of a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

func init() {
	templatesCmd.PersistentFlags().StringVar(&templatesFlags.format, "format", "table", "Output format: table or markdown")
	templatesShowCmd.Flags().StringVar(&templatesFlags.file, "file", "", "Template document (default: the configured one)")
	templatesCmd.AddCommand(templatesValidateCmd, templatesListCmd, templatesShowCmd)
}

func runTemplatesValidate(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry(args[0])
	if err != nil {
		if kind, ok := template.KindOf(err); ok {
			return fmt.Errorf("%s: invalid (%s): %w", args[0], kind, err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d pipelines)\n", args[0], len(reg.Pipelines()))
	return nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	mode, err := tableMode(templatesFlags.format)
	if err != nil {
		return err
	}
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	reg, err := loadRegistry(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Pipelines(mode, reg))
	return nil
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	mode, err := tableMode(templatesFlags.format)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(templatesFlags.file)
	if err != nil {
		return err
	}
	g, err := reg.Resolve(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Graph(mode, g))
	return nil
}

// loadRegistry loads path, or the configured document when path is empty.
func loadRegistry(path string) (*template.Registry, error) {
	if path == "" {
		path = cfg.Templates
	}
	var (
		doc []byte
		err error
	)
	if path != "" {
		doc, err = os.ReadFile(path)
	} else {
		doc, err = template.Builtin(cfg.Builtin)
	}
	if err != nil {
		return nil, err
	}
	return template.Load(doc)
}

func tableMode(s string) (format.Mode, error) {
	mode, ok := format.ParseMode(s)
	if !ok {
		return 0, fmt.Errorf("unknown format %q (want table or markdown)", s)
	}
	return mode, nil
}
