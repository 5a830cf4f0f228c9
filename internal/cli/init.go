package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultYAML = `# StreamFetch config
# Priority: CLI flag > this file > default.

http_port:    "8080"
metrics_addr: ":9095"
log_level:    "info"       # debug | info | warn | error

data_dir:        "./data"
ytdlp_path:      "yt-dlp"
lookup_endpoint: "https://spotify-athrix.up.railway.app/sp/dl"
master_key:      "admin-secret-123"
max_concurrent:  8           # 0 = unbounded

# Per-site cookie material, raw Netscape text or a browser JSON export.
# cookies:
#   hotstar: '[{"domain":"www.hotstar.com", ...}]'
#   zee5: ""
`

// newInitCmd returns an "init" subcommand that writes a default config file.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write default configuration for streamfetch.

If --config is given the file is written to that path.
Otherwise it is written to ~/.streamfetch/streamfetch.yaml.
Fails if the file already exists unless --force is passed.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			dest := cfgFile
			if dest == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("home dir: %w", err)
				}
				dest = filepath.Join(home, ".streamfetch", "streamfetch.yaml")
			}

			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("mkdir: %w", err)
			}

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", dest, err)
				}
			}

			if err := os.WriteFile(dest, []byte(defaultYAML), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("config written to %s\n", dest)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
