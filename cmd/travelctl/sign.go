package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"travel-booking-backend/config"
	"travel-booking-backend/internal/gateway/momo"

	"github.com/spf13/cobra"
)

var signVerify bool

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [payload.json]",
		Short: "Print the MoMo IPN signature for a callback payload",
		Long: `Computes the HMAC-SHA256 signature MoMo would send for the given IPN body,
using MOMO_ACCESS_KEY and MOMO_SECRET_KEY from the environment. Reads stdin when
the path is "-".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.MoMoAccessKey == "" || cfg.MoMoSecretKey == "" {
				return fmt.Errorf("MOMO_ACCESS_KEY and MOMO_SECRET_KEY are required")
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			client := momo.NewClient(momo.Config{
				PartnerCode: cfg.MoMoPartnerCode,
				AccessKey:   cfg.MoMoAccessKey,
				SecretKey:   cfg.MoMoSecretKey,
			})
			return signPayload(client, in, cmd.OutOrStdout(), signVerify)
		},
	}

	cmd.Flags().BoolVar(&signVerify, "verify", false, "also report whether the payload's own signature is valid")
	return cmd
}

func signPayload(client *momo.Client, in io.Reader, out io.Writer, verify bool) error {
	var cb momo.Callback
	if err := json.NewDecoder(in).Decode(&cb); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	fmt.Fprintln(out, client.SignCallback(&cb))
	if verify {
		if client.VerifyCallback(&cb) {
			fmt.Fprintln(out, "signature: valid")
		} else {
			fmt.Fprintln(out, "signature: INVALID")
		}
	}
	return nil
}
