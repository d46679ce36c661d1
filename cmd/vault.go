package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/vault"
)

func (a *app) newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Encrypt or decrypt the endpoint store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt",
			Short: "Replace the plaintext store with an encrypted one",
			Args:  cobra.NoArgs,
			RunE:  a.runVaultEncrypt,
		},
		&cobra.Command{
			Use:   "decrypt",
			Short: "Replace the encrypted store with a plaintext one",
			Args:  cobra.NoArgs,
			RunE:  a.runVaultDecrypt,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which form of the store exists",
			Args:  cobra.NoArgs,
			RunE:  a.runVaultStatus,
		},
	)

	return cmd
}

func (a *app) runVaultEncrypt(cmd *cobra.Command, _ []string) error {
	path := a.cfg.Store.Path

	if vault.IsEncrypted(path) {
		return fmt.Errorf("%s already exists", vault.EncryptedPath(path))
	}

	// Refuse to encrypt something that would not load afterwards.
	if _, err := endpoint.Load(path); err != nil {
		return err
	}

	password, err := a.vaultPassword()
	if err != nil {
		return err
	}

	v := vault.ForStore(path)
	if err := v.EncryptFile(path, password); err != nil {
		return err
	}

	// The plaintext only goes once the blob is known to open.
	if _, err := v.DecryptFile(path, password); err != nil {
		_ = os.Remove(vault.EncryptedPath(path))
		return fmt.Errorf("verify encrypted store: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove plaintext store: %w", err)
	}

	a.logger.Info("Encrypted endpoint store", slog.String("path", vault.EncryptedPath(path)))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Encrypted %s to %s\n", path, vault.EncryptedPath(path))
	return nil
}

func (a *app) runVaultDecrypt(cmd *cobra.Command, _ []string) error {
	path := a.cfg.Store.Path

	if !vault.IsEncrypted(path) {
		return fmt.Errorf("%s does not exist", vault.EncryptedPath(path))
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	password, err := a.vaultPassword()
	if err != nil {
		return err
	}

	plaintext, err := vault.ForStore(path).DecryptFile(path, password)
	if err != nil {
		return err
	}

	if _, err := endpoint.Parse(plaintext); err != nil {
		return err
	}

	if err := endpoint.WriteFileAtomic(path, plaintext, 0o600); err != nil {
		return err
	}

	if err := os.Remove(vault.EncryptedPath(path)); err != nil {
		return fmt.Errorf("remove encrypted store: %w", err)
	}

	a.logger.Info("Decrypted endpoint store", slog.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Decrypted %s to %s\n", vault.EncryptedPath(path), path)
	return nil
}

func (a *app) runVaultStatus(cmd *cobra.Command, _ []string) error {
	path := a.cfg.Store.Path
	out := cmd.OutOrStdout()

	_, err := os.Stat(path)
	plaintext := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	switch encrypted := vault.IsEncrypted(path); {
	case encrypted && plaintext:
		fmt.Fprintf(out, "both %s and %s exist; remove one of them\n", path, vault.EncryptedPath(path))
	case encrypted:
		fmt.Fprintf(out, "encrypted: %s\n", vault.EncryptedPath(path))
	case plaintext:
		fmt.Fprintf(out, "plaintext: %s\n", path)
	default:
		fmt.Fprintf(out, "missing: neither %s nor %s exists\n", path, vault.EncryptedPath(path))
	}
	return nil
}
