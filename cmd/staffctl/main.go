// Command staffctl prints a staff directory entry with a bcrypt hash, ready
// to append under the "staff:" key of the file named by STAFF_FILE.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type cliConfig struct {
	Email    string
	Password string
	Name     string
	ID       string
	Cost     int
}

func parseFlags(args []string) (cliConfig, error) {
	cfg := cliConfig{}

	fs := flag.NewFlagSet("staffctl", flag.ContinueOnError)
	fs.StringVar(&cfg.Email, "email", "", "Staff email used to sign in")
	fs.StringVar(&cfg.Password, "password", "", "Password; read from stdin when empty")
	fs.StringVar(&cfg.Name, "name", "", "Display name used as the article byline")
	fs.StringVar(&cfg.ID, "id", "", "Actor id recorded in the audit log (default: random UUID)")
	fs.IntVar(&cfg.Cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	if strings.TrimSpace(cfg.Email) == "" {
		return cliConfig{}, errors.New("-email is required")
	}
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return cliConfig{}, fmt.Errorf("-cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return cfg, nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

func entry(cfg cliConfig) ([]byte, error) {
	hash, err := auth.HashPassword(cfg.Password, cfg.Cost)
	if err != nil {
		return nil, err
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	actor := domain.Actor{
		ID:           id,
		Email:        strings.ToLower(strings.TrimSpace(cfg.Email)),
		DisplayName:  strings.TrimSpace(cfg.Name),
		PasswordHash: hash,
	}
	return yaml.Marshal([]domain.Actor{actor})
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}
	if cfg.Password == "" {
		if cfg.Password, err = readPassword(stdin); err != nil {
			return err
		}
	}

	out, err := entry(cfg)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "staffctl:", err)
		}
		os.Exit(2)
	}
}
