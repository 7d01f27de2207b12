package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/iliyamo/wod-leaderboard/internal/model"
	"github.com/iliyamo/wod-leaderboard/internal/scoring"
	"github.com/iliyamo/wod-leaderboard/internal/service"
	"github.com/iliyamo/wod-leaderboard/pkg/client"
)

func apiClient() *client.Client { return client.New(serverURL) }

func openStore() (*client.OwnershipStore, error) {
	path := ownershipPath
	if path == "" {
		path = client.DefaultOwnershipPath()
	}
	return client.OpenOwnershipStore(path)
}

func leaderboardCmd() *cobra.Command {
	var (
		gender string
		mine   bool
	)
	cmd := &cobra.Command{
		Use:   "leaderboard <workout-id>",
		Short: "Show the ranked results of a workout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := apiClient()
			w, err := c.GetWorkout(ctx, args[0])
			if err != nil {
				return err
			}
			standings, err := c.Leaderboard(ctx, args[0], gender)
			if err != nil {
				return err
			}
			if mine {
				store, err := openStore()
				if err != nil {
					return err
				}
				standings = scoring.Filter(standings, scoring.ByIDs(store.MyResultIDs()))
			}
			if jsonOutput {
				return printJSON(standings)
			}
			fmt.Printf("%s (%s, %s)\n", firstLine(w.Description), w.WorkoutDate, w.SortDirection)
			renderLeaderboard(os.Stdout, standings)
			return nil
		},
	}
	cmd.Flags().StringVar(&gender, "gender", "", "only show M or F")
	cmd.Flags().BoolVar(&mine, "mine", false, "only show results submitted from this machine")
	return cmd
}

// renderLeaderboard writes standings as a table.
func renderLeaderboard(out io.Writer, standings []scoring.Standing) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Athlete", "Gender", "Result", "Rounds", "Comment"})
	for _, s := range standings {
		rounds := ""
		if s.RoundDetails != nil {
			parts := make([]string, len(s.RoundDetails.Rounds))
			for i, r := range s.RoundDetails.Rounds {
				parts[i] = strconv.FormatFloat(r, 'f', -1, 64)
			}
			rounds = strings.Join(parts, " ")
		}
		comment := ""
		if s.Comment != nil {
			comment = *s.Comment
		}
		tw.AppendRow(table.Row{s.Position, s.AthleteName, s.Gender, s.ResultValue, rounds, comment})
	}
	tw.Render()
}

func workoutCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "workout", Short: "Create, list and delete workouts"}
	cmd.AddCommand(workoutCreateCmd())
	cmd.AddCommand(workoutListCmd())
	cmd.AddCommand(workoutDeleteCmd())
	cmd.AddCommand(workoutTypesCmd())
	return cmd
}

func workoutCreateCmd() *cobra.Command {
	var in service.CreateWorkoutInput
	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "Create a workout and remember its owner token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Description = args[0]
			w, token, err := apiClient().CreateWorkout(cmd.Context(), in)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.AddWorkout(w.ID, token); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]any{"workout": w, "ownerToken": token})
			}
			fmt.Printf("created workout %s (%s)\nowner token: %s\n", w.ID, w.SortDirection, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.WorkoutDate, "date", "", "workout date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.WorkoutType, "type", "", "workout type, see 'workout types'")
	cmd.Flags().StringVar(&in.SortDirection, "sort", "", "asc or desc, required without --type")
	return cmd
}

func workoutListCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			workouts, err := apiClient().ListWorkouts(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(workouts)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Date", "Type", "Sort", "Results", "Description"})
			for _, w := range workouts {
				wt := ""
				if w.WorkoutType != nil {
					wt = string(*w.WorkoutType)
				}
				count := 0
				if w.ResultCount != nil {
					count = *w.ResultCount
				}
				tw.AppendRow(table.Row{w.ID, w.WorkoutDate, wt, w.SortDirection, count, firstLine(w.Description)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "today, 7days, 30days or all")
	return cmd
}

func workoutTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List workout types",
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := apiClient().WorkoutTypes(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(types)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Type", "Label", "Sort", "Unit", "Hint"})
			for _, t := range types {
				tw.AppendRow(table.Row{t.Type, t.Label, t.SortDirection, t.ResultUnit, t.Hint})
			}
			tw.Render()
			return nil
		},
	}
}

func workoutDeleteCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "delete <workout-id>",
		Short: "Delete a workout and all its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if token == "" {
				t, ok := store.OwnerToken(args[0])
				if !ok {
					return errors.New("no owner token stored for this workout, pass --token")
				}
				token = t
			}
			if err := apiClient().DeleteWorkout(cmd.Context(), args[0], token); err != nil {
				return err
			}
			if err := store.RemoveWorkout(args[0]); err != nil {
				return err
			}
			fmt.Println("workout deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "owner token (default: from the ownership file)")
	return cmd
}

func resultCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "result", Short: "Submit, edit and delete results"}
	cmd.AddCommand(resultSubmitCmd())
	cmd.AddCommand(resultUpdateCmd())
	cmd.AddCommand(resultDeleteCmd())
	return cmd
}

func resultSubmitCmd() *cobra.Command {
	var (
		in      service.SubmitResultInput
		rounds  []float64
		comment string
	)
	cmd := &cobra.Command{
		Use:   "submit <workout-id> [result]",
		Short: "Submit a result and remember its token",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.WorkoutID = args[0]
			if len(args) == 2 {
				in.ResultValue = args[1]
			}
			if len(rounds) > 0 {
				in.RoundDetails = &model.RoundDetails{Rounds: rounds}
			}
			if comment != "" {
				in.Comment = &comment
			}
			res, token, err := apiClient().SubmitResult(cmd.Context(), in)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.AddResult(res.ID, res.WorkoutID, token); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(map[string]any{"result": res, "resultToken": token})
			}
			fmt.Printf("submitted %s: %s\nresult token: %s\n", res.ID, res.ResultValue, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.AthleteName, "name", "", "athlete name")
	cmd.Flags().StringVar(&in.Gender, "gender", "", "M or F")
	cmd.Flags().Float64SliceVar(&rounds, "rounds", nil, "per-round values, e.g. --rounds 10,12,11")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	cmd.Flags().BoolVar(&in.IsDNF, "dnf", false, "did not finish")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("gender")
	return cmd
}

func resultUpdateCmd() *cobra.Command {
	var (
		token                     string
		name, gender, value, note string
		rounds                    []float64
		dnf                       bool
	)
	cmd := &cobra.Command{
		Use:   "update <result-id>",
		Short: "Edit a result you submitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resultToken(args[0], token)
			if err != nil {
				return err
			}
			var in service.UpdateResultInput
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.AthleteName = &name
			}
			if flags.Changed("gender") {
				in.Gender = &gender
			}
			if flags.Changed("value") {
				in.ResultValue = &value
			}
			if flags.Changed("comment") {
				in.Comment = &note
			}
			if flags.Changed("rounds") {
				in.RoundDetails = &model.RoundDetails{Rounds: rounds}
			}
			if flags.Changed("dnf") {
				in.IsDNF = &dnf
			}
			res, err := apiClient().UpdateResult(cmd.Context(), args[0], token, in)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(res)
			}
			fmt.Printf("updated %s: %s\n", res.ID, res.ResultValue)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "result token (default: from the ownership file)")
	cmd.Flags().StringVar(&name, "name", "", "athlete name")
	cmd.Flags().StringVar(&gender, "gender", "", "M or F")
	cmd.Flags().StringVar(&value, "value", "", "result value")
	cmd.Flags().StringVar(&note, "comment", "", "comment, empty to clear")
	cmd.Flags().Float64SliceVar(&rounds, "rounds", nil, "per-round values")
	cmd.Flags().BoolVar(&dnf, "dnf", false, "mark or unmark as did not finish")
	return cmd
}

func resultDeleteCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "delete <result-id>",
		Short: "Delete a result you submitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := resultToken(args[0], token)
			if err != nil {
				return err
			}
			if err := apiClient().DeleteResult(cmd.Context(), args[0], token); err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.RemoveResult(args[0]); err != nil {
				return err
			}
			fmt.Println("result deleted")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "result token (default: from the ownership file)")
	return cmd
}

// resultToken returns explicit when set, otherwise the stored token.
func resultToken(resultID, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	store, err := openStore()
	if err != nil {
		return "", err
	}
	t, ok := store.ResultToken(resultID)
	if !ok {
		return "", errors.New("no result token stored for this result, pass --token")
	}
	return t, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 60 {
		s = string(r[:60]) + "..."
	}
	return s
}
