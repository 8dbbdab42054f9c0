// Package authcmder provides the auth command for storing the Plane API key.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opshelm/worklog/pkg/cliui"
	"github.com/opshelm/worklog/pkg/config"
)

const authLongDesc string = `Store the Plane API key.

The key is written to config.toml in the .worklog/ directory as
plane.api_key and used by the tracker tools on the serve command.
Create a key under Workspace Settings > API Tokens in Plane.

The WORKLOG_PLANE_API_KEY environment variable takes precedence over
the stored key at runtime.

Examples:
  worklog auth                   Prompt for the Plane API key
  worklog auth --remove          Remove the stored key
  echo $KEY | worklog auth       Pipe the key from stdin`

const authShortDesc string = "Store the Plane API key"

const apiKeyConfigKey = "plane.api_key"

func NewAuthCmd() *cobra.Command {
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			if removeFlag {
				return runRemove(configDir)
			}
			return runAuth(configDir)
		},
	}

	cmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the stored Plane API key")

	return cmd
}

func runAuth(configDir string) error {
	apiKey, err := readAPIKey()
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(apiKeyConfigKey, apiKey); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render("Plane"),
		cliui.DimStyle.Render("("+cfger.GetTarget()+")"),
	)

	return nil
}

func runRemove(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(apiKeyConfigKey, ""); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render("Plane"))

	return nil
}

// readAPIKey reads an API key from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readAPIKey() (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Print("Enter Plane API key: ")

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
