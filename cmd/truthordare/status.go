package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jxucoder/truthordare/eventbus"
	"github.com/jxucoder/truthordare/model"
	"github.com/jxucoder/truthordare/session"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show a session on a running server",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions on a running server",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var watchCmd = &cobra.Command{
	Use:   "watch [session-id]",
	Short: "Follow the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
}

func getJSON(path string, v any) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the server running? Start it with: truthordare serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	var snap session.Snapshot
	if err := getJSON("/api/sessions/"+args[0], &snap); err != nil {
		return err
	}
	printSnapshot(cmd.OutOrStdout(), snap)
	return nil
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	st := snap.State
	fmt.Fprintf(w, "Session:  %s\n", snap.ID)
	fmt.Fprintf(w, "Mode:     %s\n", st.Mode)
	fmt.Fprintf(w, "Turns:    %d\n", st.TurnCount)
	fmt.Fprintf(w, "Status:   %s\n", phase(st))
	if st.SelectedSeat != "" {
		fmt.Fprintf(w, "Seat:     %s\n", st.SelectedSeat)
	}
	if st.Current != nil {
		fmt.Fprintf(w, "Prompt:   [%s] %s\n", st.Current.Type, st.Current.Text)
	}
	fmt.Fprintf(w, "Created:  %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
}

func phase(st model.SessionState) string {
	switch {
	case st.IsGenerating:
		return "drawing"
	case st.Current != nil:
		return "showing"
	default:
		return "idle"
	}
}

func runList(cmd *cobra.Command, args []string) error {
	var sessions []session.Snapshot
	if err := getJSON("/api/sessions", &sessions); err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTURNS\tSTATUS\tPROMPT")
	for _, s := range sessions {
		prompt := "-"
		if s.State.Current != nil {
			prompt = model.Truncate(s.State.Current.Text, 50)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.State.Mode, s.State.TurnCount, phase(s.State), prompt)
	}
	return w.Flush()
}

func runWatch(cmd *cobra.Command, args []string) error {
	req, _ := http.NewRequest(http.MethodGet, serverURL+"/api/sessions/"+args[0]+"/events", nil)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var event eventbus.Event
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if event.Type == eventbus.TypeClosed {
			fmt.Fprintln(out, "\033[33mSession closed.\033[0m")
			return nil
		}
		st := event.State
		line := fmt.Sprintf("\033[36m[%s]\033[0m turn %d %s", st.Mode, st.TurnCount, phase(st))
		if st.SelectedSeat != "" {
			line += " seat " + st.SelectedSeat
		}
		if st.Current != nil && !st.IsGenerating {
			line += ": " + st.Current.Text
		}
		fmt.Fprintln(out, line)
	}
	return scanner.Err()
}
