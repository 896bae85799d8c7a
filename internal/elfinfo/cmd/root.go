package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"elfinfo/internal/disasm"
	"elfinfo/internal/ehframe"
	"elfinfo/internal/elfinfo/config"
	elflog "elfinfo/internal/elfinfo/log"
	"elfinfo/internal/elfinfo/styles"
	"elfinfo/internal/elfx"
	"elfinfo/internal/logging"
	"elfinfo/internal/render"
	"elfinfo/internal/ui/pager"
	"elfinfo/internal/views"
)

var errNoFile = errors.New("No ELF file provided either from the command line nor via the `ELF` env variable.")

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "elfinfo [file]",
		Short: "Inspect ELF files",
		Long: `elfinfo prints the structure of an ELF file: its header, program headers,
sections, symbols and relocations, disassembles functions and decodes the
call frame information used for stack unwinding.

Without a command, a summary of the file is printed. The file may also be
given through the ELF environment variable.`,
		Example: `
# Summary of a binary
elfinfo /bin/ls

# Disassemble main with its call frame information
elfinfo fn main --cfi /bin/ls

# Same, taking the file from the environment
ELF=/bin/ls elfinfo eh -s main
  `,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fileArg(args, 0), "summary", (*views.Context).Summary)
		},
	}

	root.PersistentFlags().BoolP("debug", "d", false, "Debug")
	root.PersistentFlags().Bool("no-color", false, "Disable colours")
	root.PersistentFlags().Bool("pager", false, "Show the report in a scrollable pager")
	root.PersistentFlags().String("arch", "", "Register names to use: x86_64 or aarch64")

	root.AddCommand(
		summaryCmd(),
		headerCmd(),
		programHeadersCmd(),
		sectionsCmd(),
		sectionCmd(),
		symbolsCmd(),
		fnCmd(),
		relocationsCmd(),
		ehCmd(),
		schemaCmd(),
	)
	return root
}

// fileArg returns args[i] or "" when absent.
func fileArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// loadConfig layers the persistent flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetBool("debug"); v {
		cfg.Debug = true
	}
	if v, _ := flags.GetBool("no-color"); v {
		cfg.Color = false
	}
	if flags.Changed("pager") {
		cfg.Pager, _ = flags.GetBool("pager")
	}
	if flags.Changed("arch") {
		cfg.Arch, _ = flags.GetString("arch")
	}
	return cfg, cfg.Validate()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func terminalWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}

// run opens the target file and renders one view of it to the command's
// output, or into the pager.
func run(cmd *cobra.Command, path, title string, view func(*views.Context) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lg := logging.NewLogger()
	defer lg.Close()
	debug := cfg.Debug || logging.IsDebug()
	if debug {
		lg.SetLevel(log.DebugLevel)
	}
	elflog.Setup(lg.Logger, debug)

	if path == "" {
		path = cfg.Path
	}
	if path == "" {
		return errNoFile
	}
	im, err := elfx.Open(path)
	if err != nil {
		return fmt.Errorf("%s: couldn't open ELF: %w", path, err)
	}
	defer im.Close()
	lg.Debug("opened", "path", path, "machine", im.File.Machine, "class", im.File.Class)

	stdout := cmd.OutOrStdout()
	tty := isTerminal(stdout)
	colour, paged := cfg.Color && tty, cfg.Pager && tty

	var buf bytes.Buffer
	w := stdout
	if paged {
		w = &buf
	}
	sink := styles.Sink(w, colour)

	c := views.New(im, render.New(sink))
	c.Logger = lg.Logger
	c.Demangle = cfg.Demangle
	if c.Syntax, err = disasm.ParseSyntax(cfg.Syntax); err != nil {
		return err
	}
	if m, ok := cfg.Machine(); ok {
		c.Regs = ehframe.RegistersFor(m)
	}
	if colour {
		width := terminalWidth()
		c.Markdown = func(md string) (string, error) {
			return styles.RenderMarkdown(md, width)
		}
	}

	if err := view(c); err != nil {
		return err
	}
	if s, ok := sink.(interface{ Err() error }); ok && s.Err() != nil {
		return s.Err()
	}
	if paged {
		return pager.Run(cmd.Context(), fmt.Sprintf("%s %s", title, path), buf.String())
	}
	return nil
}

// printError writes "error: msg", styled on a terminal.
func printError(w io.Writer, err error) {
	render.New(styles.Sink(w, isTerminal(w))).
		Put(render.Error, "error").Text(": " + err.Error()).Nl()
}

func Execute() {
	// fang renders help and errors itself, which only makes sense on a
	// terminal.
	if term.IsTerminal(os.Stdout.Fd()) {
		if err := fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
