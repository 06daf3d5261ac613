package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/watzon/autoimport/internal/engine"
	"github.com/watzon/autoimport/internal/models"
)

// ErrInvalidConfigurations is returned by validate when any document fails.
var ErrInvalidConfigurations = errors.New("invalid configurations found")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration documents without running them",
	Long: `Parse every configuration document and report duplicate run scheme time
ids, duplicate action orders, unknown action kinds and run schemes that
cannot be scheduled. Nothing is executed.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.close(context.Background()) }()

	out := cmd.OutOrStdout()
	docs, loadErr := rt.source.Load()
	failed := 0
	if loadErr != nil {
		fmt.Fprintf(out, "✗ %v\n", loadErr)
		failed++
	}

	known := make(map[models.ActionKind]bool)
	for _, k := range rt.registry.Kinds() {
		known[k] = true
	}

	for _, doc := range docs {
		errs := checkConfiguration(rt, doc.Config, known)
		name := filepath.Base(doc.Path)
		if len(errs) == 0 {
			fmt.Fprintf(out, "✓ %s (%s): %d run scheme(s), %d action(s)\n",
				name, doc.Config.ServiceName, len(doc.Config.RunSchemes), len(doc.Config.AllActions()))
			continue
		}

		failed++
		fmt.Fprintf(out, "✗ %s (%s)\n", name, doc.Config.ServiceName)
		printErrors(out, errs)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d document(s)", ErrInvalidConfigurations, failed)
	}
	return nil
}

// checkConfiguration collects every problem with one configuration.
func checkConfiguration(rt *runtime, c *models.Configuration, known map[models.ActionKind]bool) []error {
	var errs []error
	if err := rt.scheduler.Check(c); err != nil {
		errs = append(errs, err)
	}
	for _, a := range c.AllActions() {
		if !known[a.Kind] {
			errs = append(errs, &engine.UnknownActionKindError{
				Kind:          a.Kind,
				Configuration: c.ServiceName,
				TimeID:        a.TimeID,
				Order:         a.Order,
			})
		}
	}
	return errs
}

func printErrors(out io.Writer, errs []error) {
	for _, err := range errs {
		var conflictErr *engine.ConflictError
		if errors.As(err, &conflictErr) {
			for _, c := range conflictErr.Conflicts {
				fmt.Fprintf(out, "    %s\n", c.String())
			}
			continue
		}
		fmt.Fprintf(out, "    %v\n", err)
	}
}
