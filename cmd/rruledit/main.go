package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/cyp0633/rruledit/internal/app"
	"github.com/cyp0633/rruledit/internal/config"
	"github.com/spf13/pflag"
)

func main() {
	flags := config.NewFlagSet("rruledit")
	flags.SetInterspersed(false)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(flags)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	args := flags.Args()
	if help, _ := flags.GetBool("help"); help || (len(args) > 0 && args[0] == "help") {
		printUsage(flags)
		return
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	streams := app.Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	if err := app.Run(ctx, args, cfg, streams); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Println("rruledit [flags] <decode RULE|encode|occurrences DATE|preview RULE|edit RULE ACTION...|ics FILE ACTION...>")
	fmt.Println()
	fmt.Println("actions: freq=none|daily|weekly|monthly|yearly interval=N toggle=MO monthly=+4TU|bymonthday")
	fmt.Println("         end=never|after|on count=N until=YYYY-MM-DD start=YYYY-MM-DD")
	fmt.Println()
	fmt.Print(flags.FlagUsages())
}
