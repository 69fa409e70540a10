// Package authcmder provides the auth command for storing Cortex API keys.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/cliui"
	"github.com/papercomputeco/cortex/pkg/credentials"
)

const authLongDesc string = `Store Cortex API keys.

Keys are stored per profile in credentials.toml in the .cortex/ directory.
Commands use the profile selected with --profile (or client.profile), and
` + credentials.EnvAPIKey + ` overrides any stored key.

Examples:
  cortex auth                    Prompt for the default profile's API key
  cortex auth work               Prompt for the "work" profile's API key
  cortex auth --list             List profiles with stored keys
  cortex auth --remove work      Remove the "work" profile's key
  echo $KEY | cortex auth        Pipe the API key from stdin`

const authShortDesc string = "Store Cortex API keys"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [profile]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := cmdutil.ConfigDir(cmd)

			switch {
			case listFlag:
				return runList(cmd.OutOrStdout(), configDir)
			case removeFlag != "":
				return runRemove(cmd.OutOrStdout(), removeFlag, configDir)
			default:
				profile := credentials.DefaultProfile
				if len(args) == 1 {
					profile = args[0]
				}
				return runAuth(cmd, profile, configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List profiles with stored keys")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored key of a profile")

	return cmd
}

func runAuth(cmd *cobra.Command, profile, configDir string) error {
	profile = strings.ToLower(strings.TrimSpace(profile))
	if profile == "" {
		return errors.New("profile name cannot be empty")
	}

	apiKey, err := readAPIKey(cmd.InOrStdin(), cmd.ErrOrStderr(), profile)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(profile, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Stored API key for profile %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(profile),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)

	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	profiles, err := mgr.ListProfiles()
	if err != nil {
		return err
	}

	if len(profiles) == 0 {
		fmt.Fprintf(out, "\n  %s No stored API keys.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'cortex auth [profile]' to store one.\n\n")
		return nil
	}

	creds, err := mgr.Load()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored API keys"))
	for _, name := range profiles {
		p := creds.Profiles[name]
		line := fmt.Sprintf("  %s  %s  %s", cliui.SuccessMark, cliui.NameStyle.Render(name), cliui.IDStyle.Render(p.Masked()))
		if !p.StoredAt.IsZero() {
			line += "  " + cliui.DimStyle.Render(p.StoredAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(out, line)
	}
	if os.Getenv(credentials.EnvAPIKey) != "" {
		fmt.Fprintf(out, "\n  %s %s is set and overrides stored keys.\n",
			cliui.WarnStyle.Render("!"), credentials.EnvAPIKey)
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, profile, configDir string) error {
	profile = strings.ToLower(strings.TrimSpace(profile))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(profile); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed API key for profile %s.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(profile))

	return nil
}

// readAPIKey reads an API key from in. A terminal gets a hidden prompt;
// anything else is read up to the first newline.
func readAPIKey(in io.Reader, prompt io.Writer, profile string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(prompt, "Enter Cortex API key for profile %s: ", profile)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
