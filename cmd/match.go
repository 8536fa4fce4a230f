package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/workhive/internal/escrow"
	"github.com/spigell/workhive/internal/filtering"
	"github.com/spigell/workhive/internal/marketplace"
	"github.com/spigell/workhive/internal/matching"
)

const (
	PromptHireDone   = "done"
	PromptPaySuccess = "Payment succeeded"
	PromptPayFailure = "Payment failed"
	PromptPayAbort   = "Close checkout"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank the catalog for a job and optionally hire through escrow",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := runMatch(cmd); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("title", "", "job title")
	matchCmd.Flags().String("description", "", "job description")
	matchCmd.Flags().Int("budget", 0, "job budget in INR")
	matchCmd.Flags().StringSlice("skills", nil, "required skills, comma separated")
	matchCmd.Flags().String("location", "", "job location (default Remote)")
	matchCmd.Flags().String("language", "", "only freelancers speaking this language")
	matchCmd.Flags().String("near", "", "only freelancers whose location contains this text")
	matchCmd.Flags().Bool("verified", false, "only verified freelancers")
	matchCmd.Flags().Bool("hire", false, "pick a freelancer and open an escrow checkout")
}

func runMatch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := cmd.Flags()

	logger := newLogger(true)
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	var done cleanup
	defer done.run()

	draft := marketplace.JobDraft{}
	draft.Title, _ = flags.GetString("title")
	draft.Description, _ = flags.GetString("description")
	draft.Budget, _ = flags.GetInt("budget")
	draft.SkillsRequired, _ = flags.GetStringSlice("skills")
	draft.Location, _ = flags.GetString("location")

	job, err := marketplace.NewJob(draft)
	if err != nil {
		return err
	}

	criteria := &filtering.Config{}
	criteria.Language, _ = flags.GetString("language")
	criteria.Location, _ = flags.GetString("near")
	criteria.VerifiedOnly, _ = flags.GetBool("verified")

	catalog, err := marketplace.LoadCatalog(config.Matching.Catalog)
	if err != nil {
		return err
	}

	gen, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return fmt.Errorf("building gemini client: %w", err)
	}
	results := newResultCache(ctx, config.Redis, logger, &done)
	svc := newMatchingService(config.Matching, results, newMatcher(gen, config.AI, logger), logger)

	logger.Info("matching", zap.String("job", job.Title), zap.Int("catalog", catalog.Len()), zap.Bool("mock", svc.Mock()))

	found, err := svc.Discover(ctx, job, catalog, criteria)
	if err != nil {
		return err
	}
	for _, status := range found.Filters {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	ranked := found.Results
	if len(ranked) == 0 {
		logger.Info("exiting", zap.String("reason", "no freelancers left after filters"))
		return nil
	}

	printRanking(cmd.OutOrStdout(), ranked)

	if hire, _ := flags.GetBool("hire"); !hire {
		return nil
	}

	gateway, err := newGateway(config.Payments, logger)
	if err != nil {
		return err
	}
	return hire(ctx, cmd.OutOrStdout(), escrow.NewRegistry(gateway, logger), job, ranked, logger)
}

func printRanking(w io.Writer, ranked []matching.Ranked) {
	for i, r := range ranked {
		reasoning := ""
		if r.Match != nil {
			reasoning = r.Match.Reasoning
		}
		fmt.Fprintf(w, "%2d. %3d  %-20s %-32s %s\n", i+1, r.Score(), r.Freelancer.Name, r.Freelancer.Role, reasoning)
	}
}

func rankingLabels(ranked []matching.Ranked) []string {
	items := make([]string, 0, len(ranked)+1)
	for _, r := range ranked {
		items = append(items, fmt.Sprintf("%s %s (%d) %d INR/hr", r.Freelancer.ID, r.Freelancer.Name, r.Score(), r.Freelancer.HourlyRate))
	}
	return append(items, PromptHireDone)
}

func hire(ctx context.Context, out io.Writer, registry *escrow.Registry, job *marketplace.Job, ranked []matching.Ranked, logger *zap.Logger) error {
	for {
		pick := promptui.Select{
			Label: "Choose a freelancer to hire and press ENTER",
			Items: rankingLabels(ranked),
		}
		_, selected, err := pick.Run()
		if err != nil {
			return err
		}
		if selected == PromptHireDone {
			return nil
		}
		id := strings.Split(selected, " ")[0]

		amount, err := promptAmount(job.Budget)
		if err != nil {
			return err
		}
		payer, err := promptPayer()
		if err != nil {
			return err
		}

		flow, err := registry.Open("", amount, id)
		if err != nil {
			return err
		}
		if err := checkout(ctx, out, flow, payer); err != nil {
			return err
		}
		logger.Info("escrow flow finished", zap.String("flow_id", flow.ID()), zap.String("state", string(flow.State())))
	}
}

func promptAmount(budget int) (int, error) {
	p := promptui.Prompt{
		Label:   "Escrow amount (INR)",
		Default: strconv.Itoa(budget),
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n <= 0 {
				return errors.New("enter a positive whole number of rupees")
			}
			return nil
		},
	}
	raw, err := p.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

func promptPayer() (escrow.Payer, error) {
	var payer escrow.Payer
	for _, field := range []struct {
		label string
		dst   *string
	}{
		{"Your name", &payer.Name},
		{"Your email", &payer.Email},
		{"Phone (optional)", &payer.Contact},
	} {
		v, err := (&promptui.Prompt{Label: field.label}).Run()
		if err != nil {
			return payer, err
		}
		*field.dst = strings.TrimSpace(v)
	}
	return payer, nil
}

// checkout starts the flow, prints what the checkout widget needs and then
// records the outcome reported by the payer.
func checkout(ctx context.Context, out io.Writer, flow *escrow.Flow, payer escrow.Payer) error {
	co, err := flow.Start(ctx, payer)
	if err != nil {
		return err
	}

	pretty, _ := json.MarshalIndent(co, "", "  ")
	fmt.Fprintf(out, "checkout:\n%s\n", pretty)

	outcome := promptui.Select{
		Label: "Checkout result",
		Items: []string{PromptPaySuccess, PromptPayFailure, PromptPayAbort},
	}
	_, result, err := outcome.Run()
	if err != nil {
		return err
	}

	switch result {
	case PromptPaySuccess:
		paymentID, err := (&promptui.Prompt{Label: "Payment id"}).Run()
		if err != nil {
			return err
		}
		return flow.Succeed(paymentID)
	case PromptPayFailure:
		reason, err := (&promptui.Prompt{Label: "Failure reason"}).Run()
		if err != nil {
			return err
		}
		return flow.Fail(reason)
	default:
		return flow.Abort()
	}
}
