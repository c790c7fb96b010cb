// Command votecli votes from the terminal through the same guard the web
// widget uses: local cooldown first, server verdict second.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/shrimbly/willienotwilly/internal/domain"
	"github.com/shrimbly/willienotwilly/internal/voteguard"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "vote API base URL")
		subject   = flag.String("subject", "", "subject to vote on (see -list)")
		value     = flag.Int("value", -1, "vote value 0-100; omit to only show stats")
		list      = flag.Bool("list", false, "list known subjects and exit")
		stateFile = flag.String("state", defaultStatePath(), "cooldown state file")
		timeout   = flag.Duration("timeout", 15*time.Second, "request timeout")
	)
	flag.Parse()

	if *list {
		for _, info := range domain.Subjects() {
			fmt.Printf("%-15s %s\n", info.Key, info.DisplayName)
		}
		return
	}

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "error: -subject is required (see -list)")
		os.Exit(2)
	}
	subj := domain.Subject(*subject)
	if !domain.KnownSubject(subj) {
		fmt.Fprintf(os.Stderr, "error: unknown subject %q (see -list)\n", *subject)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := voteguard.NewClient(*serverURL, nil)
	store := voteguard.NewFileStore(*stateFile)
	guard := voteguard.NewGuard(ctx, client, store, clockwork.NewRealClock(), subj)

	printStats(subj, guard.Stats())

	if *value < 0 {
		if rec, active := guard.ActiveCooldown(); active {
			fmt.Printf("your recent vote: %d (cooldown until %s)\n",
				rec.Value, rec.Timestamp.Add(voteguard.DefaultCooldown).Local().Format(time.Kitchen))
		}
		return
	}

	if err := guard.BeginCompose(); err != nil {
		if errors.Is(err, voteguard.ErrCooldownActive) {
			fmt.Fprintln(os.Stderr, "error: you already voted for this subject recently")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	guard.SetSelection(*value)
	if err := guard.Submit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vote not recorded: %s\n", guard.Message())
		os.Exit(1)
	}

	fmt.Printf("vote recorded: %d\n", guard.Selection())
	printStats(subj, guard.Stats())
}

func printStats(subject domain.Subject, stats domain.VoteStats) {
	if stats.Mean == nil {
		fmt.Printf("%s: no votes yet\n", subject.DisplayName())
		return
	}
	fmt.Printf("%s: %d votes, mean %.1f\n", subject.DisplayName(), stats.Count, *stats.Mean)
}

func defaultStatePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "willienotwilly", "cooldowns.json")
}
