// openauthctl es la CLI de operación: genera el par RSA de firma, la clave
// secretbox de los authorization codes y credenciales de cliente.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/security/token"
)

func main() {
	root := &cobra.Command{
		Use:   "openauthctl",
		Short: "CLI de operación para OpenAuth (claves y credenciales)",
	}

	root.AddCommand(keysCmd(), clientCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Genera material criptográfico",
	}

	var (
		bits   int
		outDir string
	)
	rsaCmd := &cobra.Command{
		Use:   "rsa",
		Short: "Genera el par RSA de firma (private.pem / public.pem)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bits < 2048 {
				return fmt.Errorf("se requieren al menos 2048 bits (pedidos: %d)", bits)
			}
			priv, err := rsa.GenerateKey(rand.Reader, bits)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return err
			}

			privPath := filepath.Join(outDir, "private.pem")
			privDER, err := x509.MarshalPKCS8PrivateKey(priv)
			if err != nil {
				return err
			}
			if err := writePEM(privPath, "PRIVATE KEY", privDER, 0o600); err != nil {
				return err
			}

			pubPath := filepath.Join(outDir, "public.pem")
			pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
			if err != nil {
				return err
			}
			if err := writePEM(pubPath, "PUBLIC KEY", pubDER, 0o644); err != nil {
				return err
			}

			fmt.Printf("escrito %s y %s (%d bits)\n", privPath, pubPath, bits)
			return nil
		},
	}
	rsaCmd.Flags().IntVar(&bits, "bits", 2048, "tamaño de la clave RSA")
	rsaCmd.Flags().StringVar(&outDir, "out-dir", ".", "directorio de salida")

	secretboxCmd := &cobra.Command{
		Use:   "secretbox",
		Short: "Genera la clave AES-256 para AUTH_CODE_KEY (base64 de 32 bytes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(key))
			return nil
		},
	}

	cmd.AddCommand(rsaCmd, secretboxCmd)
	return cmd
}

func clientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Gestiona credenciales de cliente",
	}

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Genera client_id, client_secret y el hash para el seeding",
		RunE: func(cmd *cobra.Command, args []string) error {
			idBytes := make([]byte, 16)
			if _, err := rand.Read(idBytes); err != nil {
				return err
			}
			clientID := hex.EncodeToString(idBytes)

			secret, err := token.GenerateOpaque(32)
			if err != nil {
				return err
			}
			hash, err := password.Hash(secret)
			if err != nil {
				return err
			}

			// El hash sólo se imprime como referencia; el seeding vuelve a
			// hashear el secret que reciba por env.
			fmt.Printf("client_id:     %s\n", clientID)
			fmt.Printf("client_secret: %s\n", secret)
			fmt.Printf("secret_hash:   %s\n", hash)
			return nil
		},
	}

	cmd.AddCommand(mintCmd)
	return cmd
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: der})
}
