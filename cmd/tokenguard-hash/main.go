// Command tokenguard-hash produces argon2id PHC strings for user seed files.
//
// The secret is read from the first line of stdin. With -identifier the
// output is a users: entry ready to paste into a seed file; with -verify
// it checks the secret against an existing hash and exits 1 on mismatch.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/tokenguard/internal/userdir"
	"github.com/MrEthical07/tokenguard/password"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "tokenguard-hash:", err)
		if errors.Is(err, errMismatch) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

var errMismatch = errors.New("secret does not match hash")

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	def := password.DefaultConfig()

	fs := flag.NewFlagSet("tokenguard-hash", flag.ContinueOnError)
	var (
		memory      = fs.Uint("memory", uint(def.Memory), "argon2id memory in KiB")
		timeCost    = fs.Uint("time", uint(def.Time), "argon2id iterations")
		parallelism = fs.Uint("parallelism", uint(def.Parallelism), "argon2id lanes")
		verify      = fs.String("verify", "", "verify stdin against this hash instead of hashing")
		identifier  = fs.String("identifier", "", "emit a seed-file entry for this identifier")
		name        = fs.String("name", "", "display name for the seed entry")
		role        = fs.String("role", "USER", "role for the seed entry")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *parallelism > 255 {
		return errors.New("parallelism must be <= 255")
	}

	cfg := def
	cfg.Memory = uint32(*memory)
	cfg.Time = uint32(*timeCost)
	cfg.Parallelism = uint8(*parallelism)
	argon, err := password.NewArgon2(cfg)
	if err != nil {
		return err
	}

	secret, err := readSecret(stdin)
	if err != nil {
		return err
	}

	if *verify != "" {
		ok, err := argon.Verify(secret, *verify)
		if err != nil {
			return err
		}
		if !ok {
			return errMismatch
		}
		_, err = fmt.Fprintln(stdout, "ok")
		return err
	}

	hash, err := argon.Hash(secret)
	if err != nil {
		return err
	}

	if *identifier == "" {
		_, err = fmt.Fprintln(stdout, hash)
		return err
	}

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	err = enc.Encode(userdir.SeedFile{Users: []userdir.SeedUser{{
		Identifier:   *identifier,
		Name:         *name,
		Role:         strings.ToUpper(*role),
		PasswordHash: hash,
	}}})
	if err != nil {
		return err
	}
	return enc.Close()
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty secret on stdin")
	}
	return secret, nil
}
