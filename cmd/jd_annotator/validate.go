package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jd-annotator/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate <annotations.json>...",
	Short: "Validate annotation documents against the schema",
	Long: `Checks each file against the embedded annotation document schema.

With --schema the files are checked against that JSON Schema instead, for example a
downstream consumer's contract for exported documents.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var validateSchema string

func init() {
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "JSON Schema file to validate against instead of the embedded schema")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	check := schemas.ValidateDocumentFile
	if validateSchema != "" {
		sf, err := schemas.LoadSchemaFile(validateSchema)
		if err != nil {
			return err
		}
		check = sf.ValidateFile
	}

	failed := 0
	for _, path := range args {
		err := check(path)
		if err == nil {
			_, _ = fmt.Fprintf(os.Stdout, "✓ %s: Validation passed\n", path)
			continue
		}

		failed++
		var ve *schemas.ValidationError
		if !errors.As(err, &ve) {
			_, _ = fmt.Fprintf(os.Stdout, "✗ %s: %v\n", path, err)
			continue
		}
		_, _ = fmt.Fprintf(os.Stdout, "✗ %s: Validation failed\n", path)
		for _, fe := range ve.Errors {
			_, _ = fmt.Fprintf(os.Stdout, "    %s: %s\n", fe.Field, fe.Message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
	}
	return nil
}
