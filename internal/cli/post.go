package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/RMahshie/rfscope/internal/transport"
	"github.com/RMahshie/rfscope/pkg/codec"
	"github.com/spf13/cobra"
)

func newPostCmd(a *app) *cobra.Command {
	var (
		server        string
		keyPath       string
		passphraseEnv string
		keyID         string
		timeout       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "post [ENVELOPE]",
		Short: "Upload an envelope to an rfscope server as a signed request",
		Long: `Sign ENVELOPE (or stdin) with an Ed25519 SSH key and POST it to
/api/spectra. The envelope is validated locally before it is sent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), firstArg(args))
			if err != nil {
				return err
			}
			envelope := strings.TrimSpace(string(data))
			if _, err := codec.DecodeHeader(envelope); err != nil {
				return err
			}

			var passphrase []byte
			if passphraseEnv != "" {
				passphrase = []byte(os.Getenv(passphraseEnv))
			}
			signer, err := transport.LoadSigner(keyPath, passphrase)
			if err != nil {
				return err
			}
			if keyID != "" {
				signer = signer.WithKeyID(keyID)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := transport.NewClient(server, signer, nil).PostSpectrum(ctx, envelope)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&server, "server", "http://localhost:8080", "rfscope server base URL")
	f.StringVar(&keyPath, "key", "~/.ssh/id_ed25519", "OpenSSH Ed25519 private key")
	f.StringVar(&passphraseEnv, "passphrase-env", "", "environment variable holding the key passphrase")
	f.StringVar(&keyID, "key-id", "", "key ID to advertise instead of the SHA256 fingerprint")
	f.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}
