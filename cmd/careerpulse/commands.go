package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/careerpulse/internal/app"
	"github.com/okian/careerpulse/internal/domain/model"
)

const defaultTokenEnv = "GITHUB_TOKEN"

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func requireUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("%w: --user", errMissingFlag)
	}
	return nil
}

// profileFlags describe a profile to store before analyzing. Nothing is saved
// when all of them are empty.
type profileFlags struct {
	login   string
	team    string
	org     string
	company string
	region  string
	claimed []string
}

func (p profileFlags) set() bool {
	return p.login != "" || p.team != "" || p.org != "" || p.company != "" || p.region != "" || len(p.claimed) > 0
}

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	var (
		user     string
		tokenEnv string
		pf       profileFlags
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis cycle and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.close()

			if pf.set() {
				existing, err := e.svc.Profile(ctx, user)
				if err != nil {
					existing = model.Profile{UserID: user}
				}
				p := mergeProfile(existing, pf)
				if err := e.svc.SaveProfile(ctx, p); err != nil {
					return fmt.Errorf("save profile: %w", err)
				}
			}

			report, err := e.svc.Analyze(ctx, user, os.Getenv(tokenEnv))
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&tokenEnv, "token-env", defaultTokenEnv, "environment variable holding the access token")
	cmd.Flags().StringVar(&pf.login, "login", "", "code-hosting login")
	cmd.Flags().StringVar(&pf.team, "team", "", "team used as benchmark scope")
	cmd.Flags().StringVar(&pf.org, "org", "", "organization, the scope when no team is set")
	cmd.Flags().StringVar(&pf.company, "company", "", "company name")
	cmd.Flags().StringVar(&pf.region, "region", "", "region")
	cmd.Flags().StringSliceVar(&pf.claimed, "claimed", nil, "self-reported skills")
	return cmd
}

func mergeProfile(p model.Profile, pf profileFlags) model.Profile {
	if pf.login != "" {
		p.Login = pf.login
	}
	if pf.team != "" {
		p.Team = pf.team
	}
	if pf.org != "" {
		p.Organization = pf.org
	}
	if pf.company != "" {
		p.Company = pf.company
	}
	if pf.region != "" {
		p.Region = pf.region
	}
	if len(pf.claimed) > 0 {
		p.ClaimedSkills = pf.claimed
	}
	return p
}

func newVerifyCmd(flags *rootFlags) *cobra.Command {
	var (
		user     string
		tokenEnv string
		task     int
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a growth task against fresh activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.close()

			report, err := e.svc.VerifyTask(ctx, user, os.Getenv(tokenEnv), task)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().StringVar(&tokenEnv, "token-env", defaultTokenEnv, "environment variable holding the access token")
	cmd.Flags().IntVar(&task, "task", 1, "task id within the current plan")
	return cmd
}

func newBenchmarkCmd(flags *rootFlags) *cobra.Command {
	var (
		user string
		hire int
	)
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare a user's risk with their team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.close()

			var hireScore *int
			if cmd.Flags().Changed("hire") {
				hireScore = &hire
			}
			report, err := e.svc.Benchmark(ctx, user, hireScore)
			if err != nil {
				return fmt.Errorf("benchmark: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&hire, "hire", 0, "risk score of a candidate hire to simulate")
	return cmd
}

func newTrustCmd(flags *rootFlags) *cobra.Command {
	var (
		user  string
		notes int
	)
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Print trust, audit integrity and model health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.close()

			report, err := e.svc.Trust(ctx, user)
			if err != nil {
				return fmt.Errorf("trust: %w", err)
			}
			out := struct {
				Trust service.TrustReport  `json:"trust"`
				Notes []model.MentorMemory `json:"notes,omitempty"`
			}{Trust: report}
			if notes > 0 {
				if out.Notes, err = e.svc.MentorNotes(ctx, user, notes); err != nil {
					return fmt.Errorf("mentor notes: %w", err)
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id")
	cmd.Flags().IntVar(&notes, "notes", 0, "also print this many recent mentor notes")
	return cmd
}

func newRetentionCmd(flags *rootFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Delete governance entries older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, flags)
			if err != nil {
				return err
			}
			defer e.close()

			if !cmd.Flags().Changed("days") {
				days = e.cfg.GovernanceRetentionDays
			}
			deleted, err := e.svc.RunRetention(ctx, days)
			if err != nil {
				return fmt.Errorf("retention: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": deleted, "days": days})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default from config)")
	return cmd
}
