package wxforensic

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rkoshiba/wxforensic/internal/app"
	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/werrors"
)

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.Flags().IntVarP(&keyPID, "pid", "p", 0, "target process id (0 = first match)")
	keyCmd.Flags().StringVar(&keyAccount, "account", "", "target account name (overrides --pid)")
	// debugExpectedKey is deliberately undocumented (no Short, no Long
	// entry): it switches validation to a fixed known value instead of
	// trial-decrypting the account's reference database, per spec.md
	// §9's diagnostic-only expected-key path. Never the default.
	keyCmd.Flags().StringVar(&debugExpectedKey, "debug-expected-key", "", "")
	keyCmd.Flags().MarkHidden("debug-expected-key")
}

var (
	keyPID           int
	keyAccount       string
	debugExpectedKey string
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Recover the master encryption key from process memory",
	Run: func(cmd *cobra.Command, args []string) {
		m := app.New()

		rec, err := findTarget(m, keyPID, keyAccount)
		if err != nil {
			log.Err(err).Msg("failed to locate target process")
			return
		}

		opts := app.ScanOptions{}
		if debugExpectedKey != "" {
			secret, err := decodeMasterSecret(debugExpectedKey)
			if err != nil {
				log.Err(err).Msg("invalid --debug-expected-key")
				return
			}
			opts.ExpectedKey = secret
			opts.UseExpected = true
		}

		secret, err := m.ResolveKey(context.Background(), rec, opts)
		if err != nil {
			log.Err(err).Msg("key scan failed")
			return
		}

		fmt.Println(hex.EncodeToString(secret[:]))
	},
}

func findTarget(m *app.Manager, pid int, account string) (*model.ProcessRecord, error) {
	if account != "" {
		return m.FindProcess(account)
	}
	records, err := m.FindProcesses()
	if err != nil {
		return nil, err
	}
	if pid == 0 {
		return records[0], nil
	}
	for _, r := range records {
		if int(r.PID) == pid {
			return r, nil
		}
	}
	return nil, werrors.ErrTargetNotFound
}

func decodeMasterSecret(s string) (model.MasterSecret, error) {
	var secret model.MasterSecret
	b, err := hex.DecodeString(s)
	if err != nil {
		return secret, werrors.DecodeKeyFailed(err)
	}
	if len(b) != model.MasterSecretSize {
		return secret, werrors.DecodeKeyFailed(fmt.Errorf("expected %d bytes, got %d", model.MasterSecretSize, len(b)))
	}
	copy(secret[:], b)
	return secret, nil
}
