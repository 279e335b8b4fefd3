package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	truthordare "github.com/jxucoder/truthordare"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/manual"
	"github.com/jxucoder/truthordare/model"
)

var playMode string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Long: `Play on a single screen in the terminal.

Commands:
  party | couple | family | solo     switch mode (clears the prompt)
  t | c | r                          draw a truth, challenge or random prompt
  spin [t|c|r]                       spin the bottle, then draw
  reset                              clear the prompt and seat
  state                              show the current state
  manual                             show the user manual
  quit                               leave the game`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&playMode, "mode", "m", string(model.ModeParty), "starting mode")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	mode, err := model.ParseMode(playMode)
	if err != nil {
		return err
	}
	table, err := truthordare.LoadContent(contentDB(cfg), cfg.ContentFile)
	if err != nil {
		return err
	}

	eng := engine.New(table,
		engine.WithMode(mode),
		engine.WithDrawDelay(cfg.DrawDelay),
		engine.WithSpinDuration(cfg.SpinDuration),
		engine.WithLogger(logger.Named("play")),
	)
	return newShell(eng, cmd.InOrStdin(), cmd.OutOrStdout(), logger).run()
}

// shell is the line-based game loop of the play command.
type shell struct {
	eng    *engine.Engine
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

func newShell(eng *engine.Engine, in io.Reader, out io.Writer, logger *zap.Logger) *shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &shell{eng: eng, in: in, out: out, logger: logger}
}

func (s *shell) run() error {
	fmt.Fprintf(s.out, "Truth or Dare. Mode: %s. Type 'help' for commands.\n", s.eng.State().Mode)
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if !s.exec(scanner.Text()) {
			return nil
		}
	}
}

// exec runs one command line and reports whether the loop should go on.
func (s *shell) exec(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return true
	}

	cmd, rest := fields[0], fields[1:]
	switch cmd {
	case "quit", "exit", "q":
		fmt.Fprintf(s.out, "Thanks for playing. Turns: %d\n", s.eng.State().TurnCount)
		return false
	case "help", "?":
		fmt.Fprintln(s.out, "party couple family solo | t c r | spin [t|c|r] | reset | state | manual | quit")
	case "manual":
		manual.Render(s.out)
	case "state":
		s.print(s.eng.State())
	case "reset":
		s.print(s.eng.Reset())
	case "spin":
		typ := model.TypeAny
		if len(rest) > 0 {
			t, ok := shortType(rest[0])
			if !ok {
				fmt.Fprintf(s.out, "unknown prompt type %q\n", rest[0])
				return true
			}
			typ = t
		}
		s.draw(engine.DrawRequest{Type: typ, Spin: true})
	default:
		if typ, ok := shortType(cmd); ok {
			s.draw(engine.DrawRequest{Type: typ})
			return true
		}
		if mode, err := model.ParseMode(cmd); err == nil {
			s.print(s.eng.SetMode(mode))
			return true
		}
		fmt.Fprintf(s.out, "unknown command %q, type 'help'\n", cmd)
	}
	return true
}

func (s *shell) draw(req engine.DrawRequest) {
	done, ok := s.eng.Draw(req)
	if !ok {
		fmt.Fprintln(s.out, "A draw is already in progress.")
		return
	}
	if req.Spin {
		fmt.Fprintln(s.out, "Spinning the bottle...")
	}
	state, ok := <-done
	if !ok {
		fmt.Fprintln(s.out, "Draw dropped.")
		return
	}
	s.print(state)
}

func (s *shell) print(st model.SessionState) {
	fmt.Fprintf(s.out, "[%s] turn %d", st.Mode, st.TurnCount)
	if st.SelectedSeat != "" {
		fmt.Fprintf(s.out, " | seat %s", st.SelectedSeat)
	}
	fmt.Fprintln(s.out)
	if st.Current == nil {
		fmt.Fprintln(s.out, "Pick truth, challenge or random to start.")
		return
	}
	if st.Current.Placeholder {
		fmt.Fprintln(s.out, st.Current.Text)
		return
	}
	fmt.Fprintf(s.out, "%s: %s\n", strings.ToUpper(string(st.Current.Type)), st.Current.Text)
}

// shortType maps the one-letter and long draw keys to an entry type.
func shortType(key string) (model.EntryType, bool) {
	switch key {
	case "t":
		return model.TypeTruth, true
	case "c", "d":
		return model.TypeChallenge, true
	case "r":
		return model.TypeAny, true
	}
	t, err := model.ParseEntryType(key)
	if err != nil || key == "" {
		return "", false
	}
	return t, true
}
