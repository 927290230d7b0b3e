// Command authtoken walks through the Google OAuth consent flow once and
// prints the offline refresh token used by the gmail mail driver.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/bilgisen/letterpress/internal/logger"
	"github.com/bilgisen/letterpress/internal/mail"
)

var credentialFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "client-id",
		EnvVars:  []string{"GOOGLE_CLIENT_ID"},
		Required: true,
		Usage:    "OAuth client ID",
	},
	&cli.StringFlag{
		Name:     "client-secret",
		EnvVars:  []string{"GOOGLE_CLIENT_SECRET"},
		Required: true,
		Usage:    "OAuth client secret",
	},
	&cli.StringFlag{
		Name:    "redirect-uri",
		EnvVars: []string{"GOOGLE_REDIRECT_URI"},
		Value:   "http://localhost:3000",
		Usage:   "redirect URI registered for the client",
	},
}

func main() {
	_ = godotenv.Load()
	log := logger.New(os.Stderr, "info", true)

	app := &cli.App{
		Name:  "authtoken",
		Usage: "obtain a Gmail send refresh token",
		Commands: []*cli.Command{
			{
				Name:   "url",
				Usage:  "print the consent URL to open in a browser",
				Flags:  credentialFlags,
				Action: urlAction,
			},
			{
				Name:      "exchange",
				Usage:     "exchange the authorization code for a refresh token",
				ArgsUsage: "<code>",
				Flags: append(credentialFlags, &cli.DurationFlag{
					Name:  "timeout",
					Value: 30 * time.Second,
					Usage: "token exchange timeout",
				}),
				Action: exchangeAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("authtoken failed")
	}
}

func oauthConfig(c *cli.Context) *oauth2.Config {
	return mail.GmailConfig{
		ClientID:     c.String("client-id"),
		ClientSecret: c.String("client-secret"),
		RedirectURL:  c.String("redirect-uri"),
	}.OAuthConfig()
}

func urlAction(c *cli.Context) error {
	// prompt=consent makes Google return a refresh token on every run.
	url := oauthConfig(c).AuthCodeURL("letterpress", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintln(c.App.Writer, url)
	return nil
}

func exchangeAction(c *cli.Context) error {
	code := c.Args().First()
	if code == "" {
		return cli.Exit("missing authorization code", 2)
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	tok, err := oauthConfig(c).Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}
	if tok.RefreshToken == "" {
		return cli.Exit("no refresh token returned; revoke the app's access and run again", 1)
	}

	fmt.Fprintf(c.App.Writer, "GOOGLE_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}
