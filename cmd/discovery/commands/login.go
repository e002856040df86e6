package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/discovery-client/internal/auth"
	"github.com/fivetwenty-io/discovery-client/internal/constants"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		token        string
		tokenURL     string
		clientID     string
		clientSecret string
		refreshToken string
		scopes       string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials",
		Long: `Store OAuth2 credentials in the CLI configuration.

With --client-id and --client-secret (or --refresh-token) and --token-url a
token is obtained right away and renewed automatically later. Otherwise an
access token is read from --token or prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if tokenURL != "" {
				config.TokenURL = tokenURL
			}

			if scopes != "" {
				config.Scopes = splitList(scopes)
			}

			config.ClientID = clientID
			config.ClientSecret = clientSecret
			config.RefreshToken = refreshToken
			config.TokenExpiresAt = nil

			if hasGrant(config) {
				if config.TokenURL == "" {
					return fmt.Errorf("--token-url is required: %w", auth.ErrTokenURLRequired)
				}

				manager := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
					TokenURL:     config.TokenURL,
					ClientID:     config.ClientID,
					ClientSecret: config.ClientSecret,
					RefreshToken: config.RefreshToken,
					Scopes:       config.Scopes,
				})

				_, err := manager.GetToken(context.Background())
				if err != nil {
					return fmt.Errorf("failed to obtain token: %w", err)
				}

				obtained := manager.Token()
				config.Token = obtained.AccessToken

				if !obtained.ExpiresAt.IsZero() {
					config.TokenExpiresAt = &obtained.ExpiresAt
				}

				if obtained.RefreshToken != "" {
					config.RefreshToken = obtained.RefreshToken
				}
			} else {
				if token == "" {
					var err error

					token, err = promptToken(cmd.InOrStdin(), cmd.ErrOrStderr())
					if err != nil {
						return err
					}
				}

				config.Token = token
			}

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "OK")

			return err
		},
	}

	cmd.Flags().StringVar(&token, "access-token", "", "OAuth2 access token")
	cmd.Flags().StringVar(&tokenURL, "token-url", "", "OAuth2 token endpoint")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth2 refresh token")
	cmd.Flags().StringVar(&scopes, "scopes", "", "comma-separated OAuth2 scopes")

	return cmd
}

// promptToken reads a token without echo from a terminal, or a line from
// any other reader.
func promptToken(in io.Reader, prompt io.Writer) (string, error) {
	_, _ = fmt.Fprint(prompt, "Access token: ")

	var token string

	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(prompt)

		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		token = string(raw)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read token: %w", err)
		}

		token = line
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", constants.ErrNoTokenEntered
	}

	return token, nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  "Remove tokens and client credentials from the CLI configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			config.Token = ""
			config.TokenExpiresAt = nil
			config.RefreshToken = ""
			config.LastRefreshed = nil
			config.ClientID = ""
			config.ClientSecret = ""

			err := saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return err
		},
	}
}
