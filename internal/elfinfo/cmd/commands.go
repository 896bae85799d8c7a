package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"elfinfo/internal/disasm"
	"elfinfo/internal/views"
)

// simple builds a command rendering view with an optional file argument.
func simple(use string, aliases []string, short string, view func(*views.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [file]",
		Aliases: aliases,
		Short:   short,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fileArg(args, 0), use, view)
		},
	}
}

func summaryCmd() *cobra.Command {
	return simple("summary", nil,
		"Give a brief summary of the ELF: file header, program headers, and sections' header",
		(*views.Context).Summary)
}

func headerCmd() *cobra.Command {
	return simple("header", []string{"h"}, "Display information in ELF's header", (*views.Context).Header)
}

func programHeadersCmd() *cobra.Command {
	return simple("program-headers", []string{"ph", "program-header"}, "List all program headers",
		(*views.Context).ProgramHeaders)
}

func sectionsCmd() *cobra.Command {
	return simple("sections", nil, "List all sections", (*views.Context).Sections)
}

func relocationsCmd() *cobra.Command {
	return simple("relocations", []string{"rel"}, "List all relocation entries", (*views.Context).Relocations)
}

func sectionCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "section NAME [file]",
		Aliases: []string{"sh"},
		Short:   "Display detailed information of one specific section, including its content",
		Long: `Display detailed information of one specific section, including its content.
The formatting used depends on the type of section: string tables are listed,
.eh_frame_hdr and .eh_frame are decoded, anything else is hexdumped.`,
		Example: `
# Dump the string table
elfinfo section .strtab /bin/ls

# Save 64 bytes of .text, skipping the first 16
elfinfo section .text -s 16 -n 64 -o text.bin /bin/ls
  `,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := views.SectionOptions{Name: args[0], Size: -1, Skip: -1}
			opts.Output, _ = flags.GetString("output")
			opts.Hexdump, _ = flags.GetBool("hexdump")
			if flags.Changed("size") {
				opts.Size, _ = flags.GetInt64("size")
			}
			if flags.Changed("skip") {
				opts.Skip, _ = flags.GetInt64("skip")
			}
			if opts.Size < -1 || opts.Skip < -1 {
				return fmt.Errorf("size and skip must not be negative")
			}
			return run(cmd, fileArg(args, 1), "section", func(c *views.Context) error {
				return c.Section(opts)
			})
		},
	}
	c.Flags().StringP("output", "o", "", "Write the section's content into a file")
	c.Flags().BoolP("hexdump", "x", false, "Always display the content as a hexdump")
	c.Flags().Int64P("size", "n", 0, "The maximum number of bytes to export or dump")
	c.Flags().Int64P("skip", "s", 0, "A number of bytes to skip for export or hexdump")
	return c
}

func symbolsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:     "symbols [file]",
		Aliases: []string{"sym"},
		Short:   "List all symbols",
		Example: `
# Defined functions whose name starts with "main"
elfinfo symbols --defined -t func -f '^main' /bin/ls
  `,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var opts views.SymbolOptions
			opts.NoDemangle, _ = flags.GetBool("no-demangle")
			opts.Dynamic, _ = flags.GetBool("dynamic")
			opts.NoRustStd, _ = flags.GetBool("no-rust-std")
			opts.Local, _ = flags.GetBool("local")
			opts.Global, _ = flags.GetBool("global")
			opts.Weak, _ = flags.GetBool("weak")
			opts.Visible, _ = flags.GetBool("visible")
			opts.Defined, _ = flags.GetBool("defined")

			if f, _ := flags.GetString("filter"); f != "" {
				re, err := regexp.Compile(f)
				if err != nil {
					return fmt.Errorf("invalid filter: %w", err)
				}
				opts.Filter = re
			}
			if t, _ := flags.GetString("type"); t != "" {
				typ, err := views.ParseSymbolType(t)
				if err != nil {
					return err
				}
				opts.Type, opts.HasType = typ, true
			}
			return run(cmd, fileArg(args, 0), "symbols", func(c *views.Context) error {
				return c.Symbols(opts)
			})
		},
	}
	f := c.Flags()
	f.Bool("no-demangle", false, "Show raw symbol names")
	f.BoolP("dynamic", "D", false, "Display dynamic symbols")
	f.Bool("no-rust-std", false, "Try to filter out symbols of Rust's std, core, and alloc libraries")
	f.StringP("filter", "f", "", "Only show symbols matching a regex")
	f.BoolP("local", "l", false, "Only display local symbols")
	f.BoolP("global", "g", false, "Only display global symbols, this includes undefined symbols")
	f.BoolP("weak", "w", false, "Only display weak symbols")
	f.BoolP("visible", "v", false, "Only display symbols with default visibility")
	// -d is taken by --debug on the root command.
	f.Bool("defined", false, "Only display defined symbols")
	f.StringP("type", "t", "", "Only display symbols of one type: "+views.SymbolTypeNames)
	return c
}

func fnCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "fn NAME [file]",
		Short: "Disassemble a function",
		Example: `
# Disassemble main in Intel syntax
elfinfo fn main --syntax intel /bin/ls

# Disassemble whatever function holds an address, with its CFI
elfinfo fn -a 0x4011d6 --cfi /bin/ls
  `,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := views.FunctionOptions{Name: args[0]}
			opts.Address, _ = flags.GetBool("address")
			opts.CFI, _ = flags.GetBool("cfi")
			syntax, _ := flags.GetString("syntax")
			return run(cmd, fileArg(args, 1), "fn", func(c *views.Context) error {
				opts.Syntax = c.Syntax
				if flags.Changed("syntax") {
					s, err := disasm.ParseSyntax(syntax)
					if err != nil {
						return err
					}
					opts.Syntax = s
				}
				return c.Function(opts)
			})
		},
	}
	c.Flags().BoolP("address", "a", false, "NAME is a hexadecimal memory address, not a symbol name")
	c.Flags().Bool("cfi", false, "Superimpose call frame information extracted from .eh_frame")
	c.Flags().String("syntax", "att", "Syntax used to format the disassembly: att or intel")
	return c
}

func ehCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "eh [file]",
		Short: "Display call frame information for exception handling",
		Long: `Display the CIEs and FDEs of .eh_frame, or .debug_frame when there is
no .eh_frame, with every call frame instruction and its effect on the CFA
and the saved registers.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var opts views.EhOptions
			opts.Section, _ = flags.GetString("section")
			opts.Symbol, _ = flags.GetString("symbol")
			if a, _ := flags.GetString("address"); a != "" {
				addr, err := views.ParseAddress(a)
				if err != nil {
					return err
				}
				opts.Address, opts.HasAddress = addr, true
			}
			return run(cmd, fileArg(args, 0), "eh", func(c *views.Context) error {
				return c.EhFrame(opts)
			})
		},
	}
	c.Flags().String("section", "", "Section to parse instead of .eh_frame or .debug_frame")
	c.Flags().StringP("symbol", "s", "", "Only display FDEs that contain the address of this symbol")
	c.Flags().String("address", "", "Only display FDEs that contain this hexadecimal address")
	return c
}
