package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/session"
)

var errQuit = errors.New("questionnaire abandoned")

// questionnaire drives a session from line-based input
type questionnaire struct {
	in  *bufio.Reader
	out io.Writer
}

func newQuestionnaire(in io.Reader, out io.Writer) *questionnaire {
	return &questionnaire{in: bufio.NewReader(in), out: out}
}

// readLine returns the next trimmed line; io.EOF only when nothing was read
func (q *questionnaire) readLine() (string, error) {
	line, err := q.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// chooseNoticeType asks the user to pick one of types
func (q *questionnaire) chooseNoticeType(types []model.NoticeType, titles map[model.NoticeType]string) (model.NoticeType, error) {
	bold := color.New(color.Bold)
	fmt.Fprintln(q.out, bold.Sprint("What is your dispute about?"))
	for i, t := range types {
		fmt.Fprintf(q.out, "  %d) %s\n", i+1, titles[t])
	}

	for {
		fmt.Fprint(q.out, "> ")
		line, err := q.readLine()
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(types) {
			return types[n-1], nil
		}
		if t := model.ParseNoticeType(line); t != "" {
			for _, known := range types {
				if known == t {
					return t, nil
				}
			}
		}
		fmt.Fprintf(q.out, "Enter a number from 1 to %d\n", len(types))
	}
}

// run asks questions until the session is complete.
// "b" goes back, "f" goes forward over answered questions, "q" quits,
// and an empty line keeps a previous answer.
func (q *questionnaire) run(s *session.Session) error {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	warn := color.New(color.FgYellow)

	fmt.Fprintf(q.out, "\n%s\n", bold.Sprint(s.Title()))
	fmt.Fprintln(q.out, faint.Sprint("b = back, f = forward, q = quit"))

	for {
		question, ok := s.CurrentQuestion()
		if !ok {
			return nil
		}
		p := s.Progress()

		fmt.Fprintf(q.out, "\n[%d/%d] %s\n", p.Position, p.Total, bold.Sprint(question.Prompt))
		if question.Help != "" {
			fmt.Fprintln(q.out, faint.Sprint(question.Help))
		}
		printDomain(q.out, question)

		prev, hasPrev := s.PreviousAnswer(question.ID)
		if hasPrev {
			fmt.Fprintf(q.out, "%s\n", faint.Sprintf("(enter keeps %q)", prev))
		}
		fmt.Fprint(q.out, "> ")

		line, err := q.readLine()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("%w: input ended at question %d of %d", session.ErrIncompleteSession, p.Position, p.Total)
			}
			return err
		}

		switch strings.ToLower(line) {
		case "b", "back":
			s.Back()
			continue
		case "f", "forward":
			if !s.Forward() {
				fmt.Fprintln(q.out, warn.Sprint("Answer this question first"))
			}
			continue
		case "q", "quit":
			return errQuit
		}

		value := inputValue(question, line)
		if line == "" && hasPrev {
			value = prev
		}

		if err := s.Answer(question.ID, value); err != nil {
			if errors.Is(err, session.ErrInvalidAnswer) {
				fmt.Fprintln(q.out, warn.Sprintf("Please answer with %s", question.DomainSummary()))
				continue
			}
			return err
		}
	}
}

func printDomain(out io.Writer, q model.QuestionDefinition) {
	if q.Kind == model.KindRange && q.Range != nil {
		unit := ""
		if q.Range.Unit != "" {
			unit = " " + q.Range.Unit
		}
		fmt.Fprintf(out, "  Enter a number from %d to %d%s\n", q.Range.Min, q.Range.Max, unit)
		return
	}
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt.Label)
	}
}

// inputValue turns an option number into its value; anything else passes through
func inputValue(q model.QuestionDefinition, line string) model.AnswerValue {
	if q.Kind != model.KindRange {
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
			return q.Options[n-1].Value
		}
	}
	return model.AnswerValue(line)
}
