package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-chat-archive/internal/parser"
)

// errInvalid makes validate exit non-zero after printing its verdict.
var errInvalid = errors.New("transcript is not a valid chat export")

func init() {
	validate := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check whether a file looks like a chat export",
		Long:  "Sample the head of a file and report whether enough lines match the export format. Exits 1 when invalid.",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	preview := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the first messages and participants of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}

	RootCmd.AddCommand(validate, preview)
}

func localParser() (*parser.Parser, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return parser.New(parser.WithLocation(cfg.Location())), nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	p, err := localParser()
	if err != nil {
		return err
	}
	v := p.Validate(raw)
	if err := printJSON(cmd, v); err != nil {
		return err
	}
	if !v.IsValid {
		return errors.Join(errInvalid, errors.New(strings.Join(v.Errors, "; ")))
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	p, err := localParser()
	if err != nil {
		return err
	}
	return printJSON(cmd, p.Preview(raw))
}
