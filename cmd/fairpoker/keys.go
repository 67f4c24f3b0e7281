package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lox/fairpoker/internal/keyfile"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/tui"
)

// KeygenCmd writes a fresh key file for a player.
type KeygenCmd struct {
	Address string `arg:"" help:"Player address"`
	Out     string `short:"o" default:"fairpoker.key" help:"Where to write the key"`
	Force   bool   `short:"f" help:"Overwrite an existing key file"`
}

func (c *KeygenCmd) Run(g *Globals) error {
	if _, err := os.Stat(c.Out); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to replace it", c.Out)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	key, err := keyfile.Generate(protocol.Address(c.Address))
	if err != nil {
		return err
	}
	if err := key.Save(c.Out); err != nil {
		return err
	}
	fmt.Println(tui.SuccessStyle.Render("Wrote " + c.Out))
	fmt.Printf("address:    %s\n", key.Address)
	fmt.Printf("public key: %s\n", key.PublicKey)
	return nil
}

// VerifyCmd checks a commitment, either from a key file or given directly.
type VerifyCmd struct {
	Key       string `short:"k" help:"Key file to check" xor:"source"`
	PublicKey string `help:"Public key (hex)" xor:"source"`
	Secret    string `help:"Secret that should open the public key (hex)"`
}

func (c *VerifyCmd) Run(g *Globals) error {
	switch {
	case c.Key != "":
		key, err := keyfile.Load(c.Key)
		if err != nil {
			return err
		}
		fmt.Println(tui.SuccessStyle.Render("OK") + " " + key.Address.String() + " " + key.PublicKey.String())
		return nil

	case c.PublicKey != "" && c.Secret != "":
		pub, err := protocol.ParseHash(c.PublicKey)
		if err != nil {
			return fmt.Errorf("public key: %w", err)
		}
		secret, err := protocol.ParseHash(c.Secret)
		if err != nil {
			return fmt.Errorf("secret: %w", err)
		}
		if !protocol.VerifyCommitment(pub, secret) {
			return fmt.Errorf("%w: secret does not open %s", protocol.ErrInvalidKey, pub.Short())
		}
		fmt.Println(tui.SuccessStyle.Render("OK") + " " + pub.String())
		return nil
	}
	return fmt.Errorf("give --key, or --public-key with --secret")
}
