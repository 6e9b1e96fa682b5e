package cli

import (
	"github.com/spf13/cobra"

	"github.com/lazypower/bitrot/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{sessionID: "mcp"})
		if err != nil {
			return err
		}
		defer a.Close()

		logger.Info("mcp server starting", "backend", a.cfg.Storage.Backend)
		return mcptools.New(a.eng, VersionString()).ServeStdio()
	},
}
