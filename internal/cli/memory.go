package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/store"
)

var (
	writeCore  bool
	loadN      int
	decayFile  float64
	decayChar  float64
	listFilter string
	seedFile   string
)

var writeCmd = &cobra.Command{
	Use:   "write [text]",
	Short: "Store a memory (reads stdin when no text is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		content := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = strings.TrimRight(string(data), "\n")
		}
		if content == "" {
			return fmt.Errorf("nothing to write")
		}

		cat := store.CategoryRegular
		if writeCore {
			cat = store.CategoryCore
		}

		a, err := openApp(openOpts{sessionID: "cli"})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.eng.Write(content, cat)
		if id != "" {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return err
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Print a sampled memory context",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{sessionID: "cli"})
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.eng.Load(loadN)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Run one uniform decay pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{sessionID: "cli", sounds: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		f, c := a.eng.Decay.FileProbability, a.eng.Decay.CharProbability
		if cmd.Flags().Changed("file-prob") {
			f = decayFile
		}
		if cmd.Flags().Changed("char-prob") {
			c = decayChar
		}
		res, err := a.eng.Decay.ApplyWith(f, c)
		printPass(cmd.OutOrStdout(), "decay", res)
		return err
	},
}

var ageCmd = &cobra.Command{
	Use:   "age",
	Short: "Run one age-weighted corruption pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{sessionID: "cli", sounds: os.Stderr})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.eng.RunAgingCycle()
		printPass(cmd.OutOrStdout(), "aging", res)
		return err
	},
}

func printPass(w io.Writer, name string, res engine.PassResult) {
	fmt.Fprintf(w, "%s: scanned %d, corrupted %d, %d chars lost", name, res.Scanned, res.Corrupted, res.CharsDeleted)
	if res.Failed > 0 {
		fmt.Fprintf(w, ", %d unreadable", res.Failed)
	}
	fmt.Fprintln(w)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories with their health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter store.Category
		if listFilter != "" {
			c, err := store.ParseCategory(listFilter)
			if err != nil {
				return err
			}
			filter = c
		}

		a, err := openApp(openOpts{noSeed: true})
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.eng.Inspect()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		shown := 0
		for _, in := range infos {
			if filter != store.CategoryAny && in.Category != filter {
				continue
			}
			fmt.Fprintln(out, renderRecord(in))
			shown++
		}
		if shown == 0 {
			fmt.Fprintln(out, "Memory bank is empty.")
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{noSeed: true})
		if err != nil {
			return err
		}
		defer a.Close()

		content, err := a.store.Read(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), content)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Forget regular memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{sessionID: "cli", noSeed: true})
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if err := a.eng.Forget(id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", id)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write core memories into a bank that has none",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{sessionID: "cli", noSeed: true})
		if err != nil {
			return err
		}
		defer a.Close()

		path := seedFile
		if path == "" {
			path = a.cfg.Seed.File
		}
		n, err := a.seed(path)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "core memories already present; nothing seeded")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d core memories\n", n)
		return nil
	},
}

func init() {
	writeCmd.Flags().BoolVar(&writeCore, "core", false, "Store as a protected core memory")
	loadCmd.Flags().IntVarP(&loadN, "count", "n", 0, "Number of memories (default from config)")
	decayCmd.Flags().Float64Var(&decayFile, "file-prob", 0, "Chance each memory is touched")
	decayCmd.Flags().Float64Var(&decayChar, "char-prob", 0, "Chance each character is lost")
	listCmd.Flags().StringVarP(&listFilter, "category", "c", "", "core or regular")
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML seed set (default from config, else built in)")
}
