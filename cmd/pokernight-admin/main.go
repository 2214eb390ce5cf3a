package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

var CLI struct {
	URL      string `short:"u" long:"url" default:"http://localhost:8000" help:"Server base URL"`
	Password string `short:"p" long:"password" env:"ADMIN_PASSWORD" required:"" help:"Admin dashboard password"`

	Summary struct{} `cmd:"" default:"1" help:"Show headline counts"`
	Daily   struct {
		Days int `short:"d" default:"30" help:"Number of days to show"`
	} `cmd:"" help:"Show per-day game creation and cleanup counts"`
	Games struct{} `cmd:"" help:"List every live game"`
}

type summary struct {
	ActiveGames   int `json:"active_games"`
	CreatedLast24 int `json:"created_last_24h"`
	CleanedLast24 int `json:"cleaned_last_24h"`
}

type dailyEntry struct {
	Date    string `json:"date"`
	Created int    `json:"created"`
	Cleaned int    `json:"cleaned"`
}

type gameRow struct {
	Code         string `json:"code"`
	Status       string `json:"status"`
	PlayerCount  int    `json:"player_count"`
	CreatedAt    int64  `json:"created_at"`
	LastActivity int64  `json:"last_activity"`
}

func main() {
	kctx := kong.Parse(&CLI)

	var err error
	switch kctx.Command() {
	case "summary":
		err = showSummary()
	case "daily":
		err = showDaily(CLI.Daily.Days)
	case "games":
		err = showGames()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: "+err.Error()))
		kctx.Exit(1)
	}
}

func fetch(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, CLI.URL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Password", CLI.Password)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Detail != "" {
			return fmt.Errorf("%s: %s", resp.Status, body.Detail)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func showSummary() error {
	var s summary
	if err := fetch("/api/admin/summary", &s); err != nil {
		return err
	}
	fmt.Println(headerStyle.Render("Poker Night"))
	fmt.Printf("%s %s\n", labelStyle.Render("Active games:"), valueStyle.Render(fmt.Sprint(s.ActiveGames)))
	fmt.Printf("%s %s\n", labelStyle.Render("Created (24h):"), valueStyle.Render(fmt.Sprint(s.CreatedLast24)))
	fmt.Printf("%s %s\n", labelStyle.Render("Cleaned (24h):"), valueStyle.Render(fmt.Sprint(s.CleanedLast24)))
	return nil
}

func showDaily(days int) error {
	var entries []dailyEntry
	if err := fetch(fmt.Sprintf("/api/admin/daily?days=%d", days), &entries); err != nil {
		return err
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-12s %8s %8s", "Date", "Created", "Cleaned")))
	for _, e := range entries {
		line := fmt.Sprintf("%-12s %8d %8d", e.Date, e.Created, e.Cleaned)
		if e.Created == 0 && e.Cleaned == 0 {
			fmt.Println(dimStyle.Render(line))
		} else {
			fmt.Println(line)
		}
	}
	return nil
}

func showGames() error {
	var games []gameRow
	if err := fetch("/api/admin/games", &games); err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println(dimStyle.Render("no games"))
		return nil
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-8s %-8s %7s %-20s %s", "Code", "Status", "Players", "Created", "Last activity")))
	for _, g := range games {
		created := time.Unix(g.CreatedAt, 0).Format("2006-01-02 15:04")
		activity := "never"
		if g.LastActivity > 0 {
			activity = time.Since(time.Unix(g.LastActivity, 0)).Truncate(time.Second).String() + " ago"
		}
		fmt.Printf("%-8s %-8s %7d %-20s %s\n", g.Code, g.Status, g.PlayerCount, created, activity)
	}
	return nil
}
