package commands

// Command to run one polling cycle without sending anything
// Prints the tokens the bot would alert on; --record stores them as seen

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"xrpl-listing-bot/internal/clients_api/listings"
	"xrpl-listing-bot/internal/features/detector"
	logging "xrpl-listing-bot/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkRecord bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll every source once and print the tokens that would be alerted",
	Long: `Poll every enabled source once and print the tokens not yet recorded in the seen store.
Nothing is sent to Telegram. With --record the printed tokens are stored as seen,
which is a way to baseline a fresh store before the first "bot" run.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkRecord, "record", false, "Store the new tokens as seen (no alerts are sent)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	det, err := openDetector(ctx, cfg)
	if err != nil {
		return err
	}
	defer det.Close()

	sources, err := listings.BuildSources(cfg)
	if err != nil {
		return err
	}

	failed := checkSources(ctx, cmd.OutOrStdout(), det, sources, checkRecord)
	if failed == len(sources) {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}

// checkSources prints pending tokens per source and returns how many sources failed
func checkSources(ctx context.Context, out io.Writer, det *detector.Detector, sources []listings.Source, record bool) int {
	failed := 0
	for _, src := range sources {
		tokens, err := src.Fetch(ctx)
		if err != nil {
			failed++
			logging.LogWarn("Source unreachable", zap.String("source", src.Name()), zap.Error(err))
			fmt.Fprintf(out, "%s: error: %v\n", src.Name(), err)
			continue
		}

		pending := det.Pending(src.Name(), tokens)
		fmt.Fprintf(out, "%s: %d listed, %d new\n", src.Name(), len(tokens), len(pending))
		for _, tok := range pending {
			fmt.Fprintf(out, "  + %s  %s\n", tok.ID, tok.DisplayName())
		}

		if !record || len(pending) == 0 {
			continue
		}
		res, err := det.Observe(ctx, src.Name(), tokens)
		if err != nil {
			logging.LogError("Failed to record seen tokens", zap.String("source", src.Name()), zap.Error(err))
			fmt.Fprintf(out, "  record failed: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "  recorded %d tokens\n", len(res.Records))
	}
	return failed
}
