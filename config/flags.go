package config

import (
	"fmt"

	"ballot-bot/models"

	"github.com/spf13/pflag"
)

// ParseFlags parses the command line of a single run. Flags may appear in any order.
func ParseFlags(args []string) (models.Flags, error) {
	var f models.Flags

	fs := pflag.NewFlagSet("ballot-bot", pflag.ContinueOnError)
	fs.StringVar(&f.ConfigPath, "config", "", "path to the config file (default ./config.yaml)")
	fs.BoolVar(&f.InitiateElection, "initiate-election", false, "send a ballot to every eligible voter")
	fs.BoolVar(&f.NoAnswer, "no-answer", false, "skip the feedback pass")
	fs.BoolVar(&f.NoUpdate, "no-update", false, "do not edit feedback that was already sent")
	fs.StringVar(&f.RemindMessage, "remind-users", "", "post this reminder to voters who have not voted yet")
	fs.BoolVar(&f.PrintResults, "print-election-results", false, "print and save the shuffled vote lists")
	fs.BoolVar(&f.FetchUsers, "fetch-users", false, "refresh the roster from the forum")
	fs.BoolVar(&f.Watch, "watch", false, "keep running and repeat the feedback pass on schedule")
	fs.StringArrayVar(&f.Targets, "target", nil, "only send ballots to this user (repeatable)")

	if err := fs.Parse(args); err != nil {
		return models.Flags{}, err
	}
	if fs.NArg() > 0 {
		return models.Flags{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	f.Remind = fs.Changed("remind-users")
	return f, nil
}
