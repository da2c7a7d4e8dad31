// Command runs lists, shows and deletes classifier runs kept in the run
// database.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"filter-classifier/internal/common"
	"filter-classifier/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: runs [-store DIR] <command> [args]

commands:
  list          list stored runs, oldest first
  show <id>     print a run with its sweep steps ("latest" for the newest)
  model <id>    print a run's model snapshot as JSON
  delete <id>   remove a run
`

func main() {
	storePath := flag.String("store", "", "Directory of the run database (default STORE_PATH)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *storePath == "" {
		*storePath = os.Getenv(common.EnvStorePath)
	}
	if *storePath == "" {
		log.Fatal().Msg("No store path: set -store or STORE_PATH")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	store, err := storage.New(*storePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open run store")
	}
	defer store.Close()

	if err := dispatch(os.Stdout, store, flag.Args()); err != nil {
		store.Close()
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func dispatch(w io.Writer, store *storage.Store, args []string) error {
	cmd, rest := args[0], args[1:]
	if cmd != "list" && len(rest) != 1 {
		return fmt.Errorf("%s takes exactly one run ID", cmd)
	}

	switch cmd {
	case "list":
		runs, err := store.ListRuns()
		if err != nil {
			return err
		}
		return printRuns(w, runs)
	case "show":
		run, err := getRun(store, rest[0])
		if err != nil {
			return err
		}
		return printRun(w, run)
	case "model":
		run, err := getRun(store, rest[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Model)
	case "delete":
		if err := store.DeleteRun(rest[0]); err != nil {
			return err
		}
		log.Info().Str("run", rest[0]).Msg("Run deleted")
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func getRun(store *storage.Store, id string) (*storage.Run, error) {
	if id == "latest" {
		return store.LatestRun()
	}
	return store.GetRun(id)
}

func printRuns(w io.Writer, runs []storage.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCRITERION\tVALUE\tDISCARD\tFEATURES\tTRAINING SCORES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.2f\t%d\t%s\n",
			r.ID, r.Criterion, r.Value, r.DiscardFraction, len(r.Model.Features), r.TrainingScores)
	}
	return tw.Flush()
}

func printRun(w io.Writer, r *storage.Run) error {
	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Training scores: %s\n", r.TrainingScores)
	fmt.Fprintf(w, "Criterion: %s = %.6f at discard fraction %.2f\n\n", r.Criterion, r.Value, r.DiscardFraction)

	fmt.Fprintf(w, "MODEL (%s)\n", r.Model.Solver)
	fmt.Fprintf(w, "-----\n")
	for i, name := range r.Model.Features {
		fmt.Fprintf(w, "%s: %.6f\n", name, r.Model.Weights[i])
	}
	fmt.Fprintf(w, "intercept: %.6f\n\n", r.Model.Intercept)

	fmt.Fprintf(w, "SWEEP\n")
	fmt.Fprintf(w, "-----\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tDISCARD\tPOSITIVES\tVALUE\tNOTE")
	for _, s := range r.Steps {
		note := ""
		switch {
		case s.Skipped:
			note = "skipped: " + s.Error
		case s.Error != "":
			note = "failed: " + s.Error
		case s.Improved:
			note = "improved"
		}
		fmt.Fprintf(tw, "%d\t%.2f\t%d/%d\t%.6f\t%s\n", s.Step+1, s.DiscardFraction, s.Positives, s.Rows, s.Value, note)
	}
	return tw.Flush()
}
