// Derived from cmd/internal/ld/pobj.go's Ldmain: the same phase-call order
// (read objects, classify, preprocess, lay out, assign addresses, resolve,
// emit), re-architected per spec §9 onto github.com/spf13/cobra for flag
// parsing and github.com/spf13/viper for configuration layering, the way
// Manu343726-cucaracha and davejbax-pixie wire their own CLI entrypoints,
// instead of the teacher's hand-rolled obj.Flagxxx wrappers and os.Args
// rewriting for -X.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nightlyone/linkcore/internal/ld"
	"github.com/nightlyone/linkcore/internal/obj"
)

var strdata []string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "corelink [object files...]",
		Short: "lay out symbols, resolve relocations, and emit a linked image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(v, args)
		},
	}

	flags := cmd.Flags()
	flags.String("thechar", "", "architecture tag: 6 (amd64), 8 (x86), 5 (arm)")
	flags.Bool("shared", false, "generate a shared-library-compatible layout")
	flags.Bool("isobj", false, "emit relocations relative to the outermost symbol, as for an object file")
	flags.Int64("inittext", 0, "override the text segment's starting address")
	flags.Int("initrnd", 0, "override the segment address rounding quantum")
	flags.String("headtype", "", "target container format: elf, windows, darwin, plan9")
	flags.StringArrayVar(&strdata, "strdata", nil, "name=value pair to bind as a -X style string constant, may be repeated")
	flags.StringP("output", "o", "", "output file path")

	v.BindPFlag("thechar", flags.Lookup("thechar"))
	v.BindPFlag("shared", flags.Lookup("shared"))
	v.BindPFlag("isobj", flags.Lookup("isobj"))
	v.BindPFlag("inittext", flags.Lookup("inittext"))
	v.BindPFlag("initrnd", flags.Lookup("initrnd"))
	v.BindPFlag("headtype", flags.Lookup("headtype"))
	v.BindPFlag("output", flags.Lookup("output"))
	v.SetEnvPrefix("LINKCORE")
	v.AutomaticEnv()

	return cmd
}

func runLink(v *viper.Viper, objectFiles []string) error {
	cfg, err := ld.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctxt := obj.NewLink(int(cfg.PtrSize), cfg.ByteOrder())

	for _, path := range objectFiles {
		if err := readObjectFile(ctxt, path); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	for _, kv := range strdata {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("malformed --strdata %q, want name=value", kv)
		}
		ctxt.SetStringData(name, value)
	}

	arch := ld.NopArch{} // real architectures plug in their own DynRelocator/ArchReloc/TypeGCDecoder
	result, err := ld.Link(ctxt, cfg, arch)
	if err != nil {
		ctxt.Diag.Log.Printf("link failed: %v", err)
		return err
	}

	out := v.GetString("output")
	if out == "" {
		out = defaultOutputName(cfg)
	}
	return emitImage(ctxt, cfg, result, out)
}

func readObjectFile(ctxt *obj.Link, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	pkg := strings.TrimSuffix(strings.TrimPrefix(path, "."+string(os.PathSeparator)), ".o")
	return ld.ReadObject(ctxt, f, pkg)
}

func defaultOutputName(cfg *ld.Config) string {
	if cfg.HeadType == ld.HeadWindows {
		return fmt.Sprintf("%c.out.exe", cfg.Thechar)
	}
	return fmt.Sprintf("%c.out", cfg.Thechar)
}

// emitImage streams the finished text and data segments to out. The real
// container-format headers (ELF/PE/Mach-O/Plan 9) are an out-of-scope
// file-format-writer concern (spec §1); this writes the two segments back
// to back as a minimal flat image, which is enough to exercise
// CodeBlk/DatBlk end to end.
func emitImage(ctxt *obj.Link, cfg *ld.Config, result *ld.Result, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	segtext := result.Layout.Segtext
	if err := ld.CodeBlk(ctxt, f, ctxt.Textp, int64(segtext.Vaddr), int64(segtext.Length)); err != nil {
		return fmt.Errorf("writing text segment: %w", err)
	}
	segdata := result.Layout.Segdata
	if err := ld.DatBlk(ctxt, f, result.Datap, int64(segdata.Vaddr), int64(segdata.Length)); err != nil {
		return fmt.Errorf("writing data segment: %w", err)
	}
	return nil
}
