package commands

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InteractiveCmd creates the interactive command. It keeps one database connection and
// one sheets token for a whole session.
func InteractiveCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (connect once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands without reconnecting.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("\n🚀 Starting interactive session...")
			fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to leave")

			commands := sessionCommands(cmd.Parent())
			return runSession(cmd.InOrStdin(), cmd.OutOrStdout(), commands)
		},
	}
}

// sessionCommands returns the root's subcommands that make sense inside a session
func sessionCommands(root *cobra.Command) map[string]*cobra.Command {
	skip := map[string]bool{"interactive": true, "completion": true, "help": true, "serve": true}

	commands := make(map[string]*cobra.Command)
	for _, sub := range root.Commands() {
		if !skip[sub.Name()] {
			commands[sub.Name()] = sub
		}
	}
	return commands
}

func runSession(in io.Reader, out io.Writer, commands map[string]*cobra.Command) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmdName := parts[0]
		cmdArgs := parts[1:]

		if cmdName == "exit" || cmdName == "quit" {
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		}

		if cmdName == "help" {
			printInteractiveHelp(out, commands)
			continue
		}

		target, exists := commands[cmdName]
		if !exists {
			fmt.Fprintf(out, "❌ Unknown command: %s (type 'help' for available commands)\n\n", cmdName)
			continue
		}

		if err := runInSession(target, cmdArgs); err != nil {
			fmt.Fprintf(out, "❌ Error: %v\n\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// runInSession calls the command's RunE directly. Going through Execute would re-run
// the root's PersistentPreRunE and reconnect everything.
func runInSession(target *cobra.Command, args []string) error {
	target.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
		if sv, ok := flag.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
			return
		}
		_ = flag.Value.Set(flag.DefValue)
	})

	if err := target.ParseFlags(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	args = target.Flags().Args()

	if target.Args != nil {
		if err := target.Args(target, args); err != nil {
			return err
		}
	}

	switch {
	case target.RunE != nil:
		return target.RunE(target, args)
	case target.Run != nil:
		target.Run(target, args)
	}
	return nil
}

func printInteractiveHelp(out io.Writer, commands map[string]*cobra.Command) {
	fmt.Fprintln(out, "\nAvailable commands:")

	for _, name := range slices.Sorted(maps.Keys(commands)) {
		cmd := commands[name]
		fmt.Fprintf(out, "  %-40s %s\n", cmd.Use, cmd.Short)
	}

	fmt.Fprintln(out, "\n  help                                     Show this help message")
	fmt.Fprintln(out, "  exit, quit                               Exit the interactive session")
}
