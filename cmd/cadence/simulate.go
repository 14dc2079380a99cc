package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aponysus/cadence/clock"
	"github.com/aponysus/cadence/policy"
	"github.com/aponysus/cadence/schedule"
)

// maxSimulatedSteps bounds simulations of schedules that never finish on their own.
const maxSimulatedSteps = 1000

var errSimulatedFailure = errors.New("simulated failure")

// attemptPlan is one attempt of a simulated call.
type attemptPlan struct {
	Attempt int
	// At is the time of the attempt relative to the first one.
	At time.Duration
	// Delay is the wait before the attempt.
	Delay time.Duration
}

// simulate drives the schedule of pol against a fast-forwarding test clock, failing every attempt,
// and reports when each attempt would run. A nil rnd uses the process-wide random source.
func simulate(ctx context.Context, pol policy.EffectivePolicy, start time.Time, rnd schedule.Random, limit int) ([]attemptPlan, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sched, err := pol.Build()
	if err != nil {
		return nil, err
	}
	if rnd != nil {
		sched = schedule.ProvideRandom(sched, rnd)
	}
	if limit <= 0 || limit > maxSimulatedSteps {
		limit = maxSimulatedSteps
	}

	tc := clock.NewFastForward(start)
	drv := sched.Driver(tc)
	plan := []attemptPlan{{Attempt: 0}}
	for len(plan) < limit {
		delay, err := drv.Next(ctx, errSimulatedFailure)
		if errors.Is(err, schedule.ErrNoMoreDecisions) {
			break
		}
		if err != nil {
			return plan, err
		}
		plan = append(plan, attemptPlan{
			Attempt: len(plan),
			At:      clock.Now(ctx, tc).Sub(start),
			Delay:   delay,
		})
	}
	return plan, nil
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		seed  uint64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "simulate <namespace.name>",
		Short: "Print when each attempt of a failing call would run under a policy",
		Long: `Simulate runs the schedule of the policy for a key on a virtual clock, failing every
attempt, and prints the delay before each attempt and its offset from the first one.

Examples:
  cadence simulate billing.charge --policies policies.yaml
  cadence simulate svc.poll --seed 7 --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.cfg.document()
			if err != nil {
				return err
			}
			key := policy.ParseKey(args[0])
			pol, err := lookup(doc, key)
			if err != nil {
				return err
			}
			a.logger.Debug().Str("key", key.String()).Str("source", string(pol.Meta.Source)).Msg("policy resolved")

			var rnd schedule.Random
			if cmd.Flags().Changed("seed") {
				rnd = rand.New(rand.NewPCG(seed, seed))
			}
			plan, err := simulate(cmd.Context(), pol, time.Unix(0, 0), rnd, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "policy %s (%s, source %s)\n", key, pol.Schedule.Kind, pol.Meta.Source)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ATTEMPT\tDELAY\tAT")
			for _, p := range plan {
				fmt.Fprintf(tw, "%d\t%v\t%v\n", p.Attempt, p.Delay, p.At)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for jitter, for reproducible output")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of attempts to print")
	return cmd
}
