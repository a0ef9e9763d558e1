package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ppiankov/casestrength/internal/analytics"
	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/render"
	"github.com/ppiankov/casestrength/internal/schema"
	"github.com/ppiankov/casestrength/internal/session"
)

var (
	answersFile string
	outPath     string
	narrative   bool
	calcTimeout time.Duration
)

// calcCmd represents the calc command
var calcCmd = &cobra.Command{
	Use:   "calc [notice-type]",
	Short: "Answer the questionnaire and get a case-strength score",
	Long: `Calc asks the questions for one notice type, one at a time, then scores
your answers:
- 0 to 39: weak, explore alternative remedies
- 40 to 59: moderate, consult a lawyer first
- 60 to 100: strong, a legal notice is a sensible next step

On a terminal the questionnaire is interactive (b = back, f = forward).
Elsewhere, pass a saved answer file with --answers.

Example:
  casestrength calc
  casestrength calc money-recovery
  casestrength calc --answers answers.yaml --format json
  casestrength calc cheque-bounce --narrative`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCalc,
}

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <answers-file>",
	Short: "Score a saved answer file",
	Long: `Score replays a saved answer file (YAML or JSON) through the questionnaire,
with exactly the rules of an interactive session, and prints the result.

Example:
  casestrength score answers.yaml
  casestrength score answers.json --format markdown --out report.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answersFile = args[0]
		return runCalc(cmd, nil)
	},
}

func init() {
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(scoreCmd)

	calcCmd.Flags().StringVar(&answersFile, "answers", "", "score a saved answer file instead of asking")
	for _, c := range []*cobra.Command{calcCmd, scoreCmd} {
		c.Flags().StringVar(&outPath, "out", "", "write the report to a file instead of stdout")
		c.Flags().BoolVar(&narrative, "narrative", false, "add a plain-language narrative (requires llm.provider)")
		c.Flags().DurationVar(&calcTimeout, "timeout", time.Minute, "timeout for analytics and narrative calls")
	}
}

func runCalc(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	var noticeType model.NoticeType
	if len(args) == 1 {
		noticeType = model.ParseNoticeType(args[0])
	}

	var result model.CaseStrengthResult
	source := ""
	if answersFile != "" {
		result, err = scoreFile(reg, answersFile, noticeType)
		source = answersFile
	} else {
		result, err = askInteractively(cmd, reg, noticeType)
	}
	if err != nil {
		return err
	}
	log.Debugf("scored %s: %d/100 (%s, confidence %s)", result.NoticeType, result.Score, result.RecommendationBucket, result.Confidence)

	ctx, cancel := context.WithTimeout(cmd.Context(), calcTimeout)
	defer cancel()

	sink, err := newAnalytics(cfg, log)
	if err != nil {
		return err
	}
	report := render.Report{Source: source, Result: result}
	if narrative {
		narrator, err := newNarrator(cfg, log)
		if err != nil {
			return err
		}
		if !narrator.Enabled() {
			log.Warnf("--narrative needs llm.provider set (openai or ollama)")
		}
		report.Narrative = narrator.Narrate(ctx, result)
	}

	if err := emit(cmd.OutOrStdout(), renderer, report, outPath); err != nil {
		return err
	}

	// The result is already printed; delivery only needs to finish before exit
	analytics.Forward(ctx, sink, result, log)
	return nil
}

// scoreFile replays an answer file. A notice type given on the command line
// fills in for a file that does not name one and must match one that does.
func scoreFile(reg *schema.Registry, path string, noticeType model.NoticeType) (model.CaseStrengthResult, error) {
	f, err := session.LoadAnswerFile(path)
	if err != nil {
		return model.CaseStrengthResult{}, err
	}
	switch {
	case f.NoticeType == "":
		f.NoticeType = noticeType
	case noticeType != "" && f.NoticeType != noticeType:
		return model.CaseStrengthResult{}, fmt.Errorf("%s is a %s answer file, not %s", path, f.NoticeType, noticeType)
	}

	result, err := session.NewReplayer(reg).Assess(f)
	if err != nil {
		return model.CaseStrengthResult{}, fmt.Errorf("score %s: %w", path, err)
	}
	return result, nil
}

func askInteractively(cmd *cobra.Command, reg *schema.Registry, noticeType model.NoticeType) (model.CaseStrengthResult, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return model.CaseStrengthResult{}, errors.New("stdin is not a terminal: pass a saved answer file with --answers")
	}

	q := newQuestionnaire(cmd.InOrStdin(), cmd.ErrOrStderr())
	if noticeType == "" {
		types := reg.NoticeTypes()
		titles := make(map[model.NoticeType]string, len(types))
		for _, t := range types {
			sc, err := reg.SchemaFor(t)
			if err != nil {
				return model.CaseStrengthResult{}, err
			}
			titles[t] = sc.Title
		}

		var err error
		if noticeType, err = q.chooseNoticeType(types, titles); err != nil {
			return model.CaseStrengthResult{}, err
		}
	}

	s, err := session.Start(reg, noticeType)
	if err != nil {
		return model.CaseStrengthResult{}, err
	}
	if err := q.run(s); err != nil {
		return model.CaseStrengthResult{}, err
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return s.Finalize()
}
