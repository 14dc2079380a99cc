package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aponysus/cadence/classify"
	grpcint "github.com/aponysus/cadence/integrations/grpc"
	"github.com/aponysus/cadence/policy"
)

// knownClassifiers is the classifier registry a default executor with the gRPC integration
// installed would resolve names against.
func knownClassifiers() *classify.Registry {
	reg := classify.NewRegistry()
	classify.RegisterBuiltins(reg)
	grpcint.Register(reg)
	return reg
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a policy document and report the fields normalization changed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Policies
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no policy document: pass a file or set --policies")
			}

			doc, err := policy.LoadFile(path)
			if err != nil {
				return err
			}
			resolved, err := doc.Resolve()
			if err != nil {
				return err
			}

			keys := make([]policy.PolicyKey, 0, len(resolved))
			for k := range resolved {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

			classifiers := knownClassifiers()
			out := cmd.OutOrStdout()
			for _, k := range keys {
				p := resolved[k]
				if _, err := p.Build(); err != nil {
					return fmt.Errorf("policy %s: %w", k, err)
				}
				if name := p.Schedule.ClassifierName; name != "" {
					if _, ok := classifiers.Get(name); !ok {
						return fmt.Errorf("policy %s: unknown classifier %q (known: %s)", k, name, strings.Join(classifiers.Names(), ", "))
					}
				}
				changed := p.Meta.Normalization.ChangedFields
				if len(changed) == 0 {
					fmt.Fprintf(out, "%s: ok\n", k)
					continue
				}
				a.logger.Warn().Str("key", k.String()).Strs("fields", changed).Msg("policy normalized")
				fmt.Fprintf(out, "%s: ok (normalized %s)\n", k, strings.Join(changed, ", "))
			}
			fmt.Fprintf(out, "%d policies valid\n", len(keys))
			return nil
		},
	}
}
