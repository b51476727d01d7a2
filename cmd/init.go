package cmd

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailer/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	var creds config.Credentials

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store the OAuth client credentials in the config file",
		Long: `Write the OAuth client id and secret of a Google Cloud project to the config
file. Existing tokens are kept when the client id is unchanged. Run
"gmailer auth login" afterwards to authorize the account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := creds.Validate(); err != nil {
				return err
			}

			store, err := a.fileStore()
			if err != nil {
				return err
			}

			doc, err := store.Load(cmd.Context())
			switch {
			case errors.Is(err, fs.ErrNotExist):
				doc = &config.Document{}
			case err != nil:
				return err
			}

			if doc.Web.ClientID != creds.ClientID {
				doc = &config.Document{}
			}
			doc.Web = creds

			if err := store.Save(cmd.Context(), doc); err != nil {
				return err
			}

			a.log().Info("stored client credentials", "path", store.Path())
			return a.printJSON(map[string]any{
				"config":     store.Path(),
				"authorized": doc.HasToken(),
			})
		},
	}

	cmd.Flags().StringVar(&creds.ClientID, "client-id", "", "OAuth client id (required)")
	cmd.Flags().StringVar(&creds.ClientSecret, "client-secret", "", "OAuth client secret (required)")
	cmd.Flags().StringVar(&creds.AuthURI, "auth-uri", config.DefaultAuthURI, "OAuth authorization endpoint")
	cmd.Flags().StringVar(&creds.TokenURI, "token-uri", config.DefaultTokenURI, "OAuth token endpoint")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("client-secret")

	return cmd
}
