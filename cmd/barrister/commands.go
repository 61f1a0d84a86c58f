package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/danielgtaylor/barrister"
	"github.com/danielgtaylor/barrister/barristercli"
	"github.com/danielgtaylor/shorthand/v2"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// parseValue reads a command-line value written in shorthand, e.g.
// `{name: Ada, pets[]{name: Rex}}`. `@file.json` loads a file.
func parseValue(input string) (any, error) {
	v, err := shorthand.Unmarshal(input, shorthand.ParseOptions{
		EnableFileInput:       true,
		EnableObjectDetection: true,
		ForceStringKeys:       true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", input, err)
	}
	return v, nil
}

func writeValue(w io.Writer, format string, v any) error {
	var out []byte
	var err error
	switch format {
	case "json":
		out, err = json.MarshalIndent(v, "", "  ")
	case "yaml":
		out, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown output format %q, expected json or yaml", format)
	}
	if err != nil {
		return err
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	_, err = w.Write(out)
	return err
}

func dial(ctx context.Context, url string, opts ...barrister.ClientOption) (*barrister.Client, error) {
	return barrister.NewClient(ctx, barrister.NewHTTPTransport(url), opts...)
}

func idlCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "idl <url>",
		Short: "Fetch and print the IDL served at a URL",
		Args:  cobra.ExactArgs(1),
		RunE: barristercli.WithOptionsE(func(cmd *cobra.Command, args []string, opts *Options) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			client, err := dial(ctx, args[0])
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), output, client.Contract().IDL())
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	return cmd
}

func callCommand() *cobra.Command {
	var output string
	var noValidate bool
	cmd := &cobra.Command{
		Use:   "call <url> <method> [params...]",
		Short: "Call a function, passing each param in shorthand syntax",
		Args:  cobra.MinimumNArgs(2),
		RunE: barristercli.WithOptionsE(func(cmd *cobra.Command, args []string, opts *Options) error {
			params := make([]any, 0, len(args)-2)
			for _, arg := range args[2:] {
				v, err := parseValue(arg)
				if err != nil {
					return err
				}
				params = append(params, v)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			client, err := dial(ctx, args[0],
				barrister.WithValidateRequest(!noValidate),
				barrister.WithValidateResult(!noValidate),
			)
			if err != nil {
				return err
			}

			result, err := client.Call(ctx, args[1], params...)
			if err != nil {
				if e, ok := barrister.AsError(err); ok && e.Data != nil {
					return fmt.Errorf("%w (data: %v)", err, e.Data)
				}
				return err
			}
			return writeValue(cmd.OutOrStdout(), output, result)
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip client-side validation")
	return cmd
}

func checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report unresolved type references in an IDL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := barrister.LoadContract(args[0])
			if err != nil {
				return err
			}

			errs := contract.Check()
			for _, err := range errs {
				fmt.Fprintln(cmd.OutOrStdout(), err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%s: %d unresolved type references", args[0], len(errs))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK, %d interfaces", args[0], len(contract.Interfaces()))
			if sum := contract.Checksum(); sum != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", checksum %s", sum)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func validateCommand() *cobra.Command {
	var spec barrister.TypeSpec
	cmd := &cobra.Command{
		Use:   "validate <file> <type> <value>",
		Short: "Validate a shorthand value against a type from an IDL file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			contract, err := barrister.LoadContract(args[0])
			if err != nil {
				return err
			}

			value, err := parseValue(args[2])
			if err != nil {
				return err
			}

			spec.Type = args[1]
			if err := contract.Validate("value", spec, value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "valid %s\n", spec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&spec.IsArray, "array", false, "Expect an array of the type")
	cmd.Flags().BoolVar(&spec.Optional, "optional", false, "Allow null")
	return cmd
}
