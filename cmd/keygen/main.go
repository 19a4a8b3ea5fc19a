// Package main generates an Ed25519 issuer keypair and seals the private key
// with the platform secret, printing what an operator stores on the issuer row.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"attest/internal/keys"
)

type keyOutput struct {
	PublicKey           string `json:"public_key"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
}

func main() {
	secretEnv := flag.String("secret-env", "ATTEST_KEY_SECRET", "Environment variable holding the platform secret")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	secret := os.Getenv(*secretEnv)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "%s is not set; private keys cannot be sealed\n", *secretEnv)
		os.Exit(1)
	}

	km := keys.NewManager([]byte(secret))
	kp, err := km.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating keypair: %v\n", err)
		os.Exit(1)
	}
	blob, err := km.EncryptAtRest(kp.PrivateKey)
	keys.Zero(kp.PrivateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sealing private key: %v\n", err)
		os.Exit(1)
	}

	out := keyOutput{
		PublicKey:           base64.StdEncoding.EncodeToString(kp.PublicKey),
		EncryptedPrivateKey: base64.StdEncoding.EncodeToString(blob),
	}
	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Issuer Keypair (Ed25519)")
	fmt.Println("========================")
	fmt.Printf("Public Key:            %s\n", out.PublicKey)
	fmt.Printf("Encrypted Private Key: %s\n", out.EncryptedPrivateKey)
	fmt.Println()
	fmt.Println("The private key is sealed with the platform secret and never printed in the clear.")
}
