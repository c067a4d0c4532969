package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/opportunity-matcher/internal/autoapply"
	"github.com/spigell/opportunity-matcher/internal/opportunity"
)

const (
	PromptYes                 = "Yes"
	PromptNo                  = "No"
	PromptBack                = "back"
	PromptReportByCategory    = "Report by category"
	PromptManualApply         = "Apply opportunities in manual mode"
	PromptAppendToExcludeFile = "Append all opportunities to exclude file"
	PromptToFile              = "Dump opportunities to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptYes, PromptNo, PromptReportByCategory, PromptManualApply, PromptToFile},
}

var autoApplyCmd = &cobra.Command{
	Use:   "auto-apply",
	Short: "Apply a user to every opportunity that matches the profile",
	Run: func(cmd *cobra.Command, _ []string) {
		runAutoApply(cmd)
	},
}

func init() {
	rootCmd.AddCommand(autoApplyCmd)

	autoApplyCmd.Flags().StringP("user", "u", "", "id of the user to apply for")
	autoApplyCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude opportunities if already applied")
	autoApplyCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation if found suitable opportunities")
	autoApplyCmd.Flags().Bool("dry-run", false, "print what would be applied to and exit")
	autoApplyCmd.Flags().Int("min-score", 0, "minimum match score (overrides auto-apply.min-score)")
	autoApplyCmd.Flags().StringP("exclude-file", "e", "", "special file with opportunities to exclude. Default is unset.")

	autoApplyCmd.MarkFlagRequired("user")

	viper.BindPFlag("exclude-file", autoApplyCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("auto-apply.min-score", autoApplyCmd.Flags().Lookup("min-score"))
}

func runAutoApply(cmd *cobra.Command) {
	ctx := context.Background()

	l, config := setup()
	defer l.Sync()

	userID, _ := cmd.Flags().GetString("user")
	ignoreApplied, _ := cmd.Flags().GetBool("do-not-exclude-applied")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	l.Info("starting the opportunity-matcher", zap.String("version", version), zap.String("user_id", userID))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	repo, err := openStore(ctx, config, l)
	if err != nil {
		l.Fatal("opening the store", zap.Error(err))
	}
	defer repo.Close()

	scorer, err := newScorer(config)
	if err != nil {
		l.Fatal("building the scorer", zap.Error(err))
	}

	service := newAutoApply(ctx, config, repo, scorer, ignoreApplied, l)

	plan, err := service.Plan(ctx, userID)
	if err != nil {
		l.Fatal("planning", zap.Error(err))
	}

	if plan.Candidates.Len() == 0 {
		l.Info("exiting", zap.String("reason", "no opportunities left after filters"))
		return
	}

	if dryRun {
		report := service.Preview(plan)
		printJSON(report)
		l.Info(report.Message())
		return
	}

	action := PromptYes
	for {
		if !autoApprove {
			_, action, err = prompt.Run()
			if err != nil {
				l.Fatal("exiting", zap.Error(err))
			}
		}

		l.Info("current list of opportunities", zap.Int("count", plan.Candidates.Len()))

		if err := handleAction(ctx, action, service, plan, l); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			l.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, service *autoapply.Service, plan *autoapply.Plan, l *zap.Logger) error {
	switch action {
	case PromptYes:
		report, err := service.Execute(ctx, plan)
		if err != nil {
			return err
		}
		l.Info(report.Message(), zap.Int("failed", report.Failed), zap.Int("considered", report.Considered))
		return errExit
	case PromptNo:
		l.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptManualApply:
		return manualApply(ctx, service, plan, l)
	case PromptReportByCategory:
		pretty, _ := json.MarshalIndent(plan.Candidates.ReportByCategory(), "", "  ")
		l.Info(string(pretty), zap.Int("opportunities count", plan.Candidates.Len()))
		return nil
	case PromptToFile:
		filename, err := plan.Candidates.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		l.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func manualApply(ctx context.Context, service *autoapply.Service, plan *autoapply.Plan, l *zap.Logger) error {
	for {
		items := make([]string, 0, plan.Candidates.Len()+2)
		for _, opp := range plan.Candidates.Items {
			items = append(items, optionLabel(opp))
		}

		excludeFile := viper.GetString("exclude-file")
		if excludeFile != "" && plan.Candidates.Len() != 0 {
			items = append(items, PromptAppendToExcludeFile)
		}

		choice := promptui.Select{
			Label: "Choose an opportunity and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := choice.Run()
		if err != nil {
			return err
		}

		switch selected {
		case PromptBack:
			return nil
		case PromptAppendToExcludeFile:
			excluded, err := opportunity.LoadExcluded(excludeFile)
			if err != nil {
				return err
			}

			excluded.Append(plan.Candidates.ToExcluded("user", "manual", time.Now()))

			if err = excluded.ToFile(excludeFile); err != nil {
				return err
			}

			l.Info("appended to exclude file", zap.String("filename", excludeFile))

			plan.Candidates.Exclude(opportunity.IDField, excluded.IDs())
		default:
			id := strings.Split(selected, " ")[0]
			if plan.Candidates.FindByID(id) == nil {
				return fmt.Errorf("there is no such opportunity id %s", id)
			}

			app, err := service.Apply(ctx, plan.UserID, id)
			if err != nil {
				return err
			}

			l.Info("successfully applied to opportunity",
				zap.String("opportunity_id", id),
				zap.Int("match_score", app.MatchScore),
			)

			plan.Candidates.Exclude(opportunity.IDField, []string{id})
		}
	}
}

func optionLabel(opp *opportunity.Opportunity) string {
	score := "-"
	if opp.MatchScore != nil {
		score = fmt.Sprintf("%d%%", *opp.MatchScore)
	}
	return fmt.Sprintf("%s %s / %s / %s / %s", opp.ID, opp.Title, opp.Platform, opp.Deadline, score)
}
